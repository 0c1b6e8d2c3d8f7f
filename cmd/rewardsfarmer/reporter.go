package main

import (
	"log/slog"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/eventbus"
)

// reporter traces run progress published on the event bus. Publishers already
// log these events at their own level, so the trace stays at debug.
type reporter struct {
	logger *slog.Logger
}

func newReporter(logger *slog.Logger) *reporter {
	return &reporter{logger: logger.With("component", "progress")}
}

func (r *reporter) attach(bus eventbus.EventBus) string {
	return bus.Subscribe(r.handle)
}

func (r *reporter) handle(e event.Event) {
	switch evt := e.(type) {
	case *event.AccountStarted:
		r.logger.Debug("Account started", "username", evt.Username)
	case *event.AccountFinished:
		if evt.Error != nil {
			r.logger.Debug("Account finished with error", "username", evt.Username, "error", evt.Error)
			return
		}
		r.logger.Debug("Account finished", "username", evt.Username,
			"earned", evt.FinalPoints-evt.StartingPoints, "balance", evt.FinalPoints)
	case *event.AuthStateChanged:
		r.logger.Debug("Login state", "session_id", evt.SessionID(), "from", evt.OldState.String(), "to", evt.NewState.String())
	case *event.QuotaPolled:
		r.logger.Debug("Remaining searches", "session_id", evt.SessionID(), "desktop", evt.Desktop, "mobile", evt.Mobile)
	case *event.SearchPerformed:
		r.logger.Debug("Search", "session_id", evt.SessionID(), "term", evt.Term, "counted", evt.Succeeded, "balance", evt.Balance)
	case *event.ActivityCompleted:
		if evt.Error != nil {
			r.logger.Debug("Activity failed", "session_id", evt.SessionID(), "activity", evt.Activity, "error", evt.Error)
			return
		}
		r.logger.Debug("Activity done", "session_id", evt.SessionID(), "activity", evt.Activity)
	case *event.WorkerFailed:
		r.logger.Debug("Worker failed", "session_id", evt.SessionID(), "error", evt.Error)
	case *event.GoalReached:
		r.logger.Debug("Goal reached", "username", evt.Username, "balance", evt.Balance, "target", evt.Target)
	}
}
