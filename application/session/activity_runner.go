package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/timing"
	"rewardsfarmer-go/domain/activity"
)

const defaultStepTimeout = 10 * time.Second

// ActivityRunner executes scripted activities on a session.
type ActivityRunner struct {
	session *Session
	logger  *slog.Logger
	sleep   timing.SleepFunc
}

// NewActivityRunner creates a new activity runner.
func NewActivityRunner(s *Session) *ActivityRunner {
	return &ActivityRunner{
		session: s,
		logger:  s.Logger().With("component", "activities"),
		sleep:   timing.Sleep,
	}
}

// RunAll runs every activity in order. Failures are logged and published,
// never returned. It reports how many activities completed.
func (r *ActivityRunner) RunAll(ctx context.Context, activities []*activity.Activity) int {
	completed := 0
	for _, a := range activities {
		if ctx.Err() != nil {
			break
		}
		err := r.safeRun(ctx, a)
		r.session.Publish(event.NewActivityCompleted(r.session.ID(), a.Name, err))
		if err != nil {
			r.logger.Error("Activity failed", "activity", a.Name, "error", err)
			continue
		}
		completed++
		r.logger.Info("Activity completed", "activity", a.Name)
	}
	return completed
}

func (r *ActivityRunner) safeRun(ctx context.Context, a *activity.Activity) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Activity panicked", "activity", a.Name, "error", rec)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.Run(ctx, a)
}

// Run executes one activity. A failing step that is not optional aborts the
// activity after closing any tabs it opened.
func (r *ActivityRunner) Run(ctx context.Context, a *activity.Activity) error {
	r.logger.Info("Running activity", "activity", a.Name)

	openTabs := 0
	defer func() {
		for ; openTabs > 0; openTabs-- {
			if err := r.session.Driver().CloseTab(ctx); err != nil {
				r.logger.Debug("Failed to close leftover tab", "error", err)
			}
		}
	}()

	for i, step := range a.Plan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.execute(ctx, step)
		if err == nil {
			switch step.Type {
			case activity.StepSwitchTab:
				openTabs++
			case activity.StepCloseTab:
				if openTabs > 0 {
					openTabs--
				}
			}
			continue
		}

		if step.Optional {
			r.logger.Debug("Optional step failed", "activity", a.Name, "step", i, "type", step.Type, "error", err)
			continue
		}
		return fmt.Errorf("step %d (%s): %w", i, step.Type, err)
	}
	return nil
}

func (r *ActivityRunner) execute(ctx context.Context, step activity.Step) error {
	driver := r.session.Driver()
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}

	var err error
	switch step.Type {
	case activity.StepNavigate:
		err = r.session.GetBrowserController().Navigate(ctx, step.URL)
	case activity.StepClick:
		if err = driver.WaitClickable(ctx, step.Selector, timeout); err == nil {
			err = driver.Click(ctx, step.Selector)
		}
	case activity.StepWait:
		return r.sleep(ctx, step.Duration)
	case activity.StepWaitVisible:
		return driver.WaitVisible(ctx, step.Selector, timeout)
	case activity.StepSwitchTab:
		err = driver.SwitchToNewTab(ctx, timeout)
	case activity.StepCloseTab:
		return driver.CloseTab(ctx)
	case activity.StepScript:
		err = driver.Evaluate(ctx, step.Script, nil)
	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}
	if err != nil {
		return err
	}
	return r.sleep(ctx, step.Duration)
}
