// Package activity defines the scripted click-through activities run before searching.
package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IndexPlaceholder is replaced by the current loop iteration (1-based) in step selectors and URLs.
const IndexPlaceholder = "{{index}}"

// Activity is a named, ordered list of browser steps.
type Activity struct {
	// Name is the unique identifier for this activity
	Name string

	Description string

	// Order sorts activities; lower runs first
	Order int

	// Enabled toggles the activity without removing its definition
	Enabled bool

	Steps []Step

	// Loop optionally repeats a contiguous range of steps
	Loop *Loop
}

// Step is a single browser instruction.
type Step struct {
	Type StepType

	// URL is used by navigate steps
	URL string

	// Selector is a CSS selector, or an XPath expression when it starts with "/"
	Selector string

	// Script is evaluated by script steps
	Script string

	// Duration is the pause for wait steps and the settle time after clicks
	Duration time.Duration

	// Timeout bounds waits for the selector
	Timeout time.Duration

	// Optional steps may fail without aborting the activity
	Optional bool
}

// StepType represents the kind of step.
type StepType string

const (
	StepNavigate    StepType = "navigate"
	StepClick       StepType = "click"
	StepWait        StepType = "wait"
	StepWaitVisible StepType = "wait_visible"
	StepSwitchTab   StepType = "switch_tab"
	StepCloseTab    StepType = "close_tab"
	StepScript      StepType = "script"
)

var knownSteps = map[StepType]bool{
	StepNavigate:    true,
	StepClick:       true,
	StepWait:        true,
	StepWaitVisible: true,
	StepSwitchTab:   true,
	StepCloseTab:    true,
	StepScript:      true,
}

// Loop repeats steps[StartIndex..EndIndex] Count times.
type Loop struct {
	StartIndex int
	EndIndex   int
	Count      int
}

// Expand returns the step with IndexPlaceholder replaced by i.
func (s Step) Expand(i int) Step {
	n := strconv.Itoa(i)
	s.Selector = strings.ReplaceAll(s.Selector, IndexPlaceholder, n)
	s.URL = strings.ReplaceAll(s.URL, IndexPlaceholder, n)
	s.Script = strings.ReplaceAll(s.Script, IndexPlaceholder, n)
	return s
}

// Plan flattens the activity into the concrete step sequence to execute,
// unrolling the loop and substituting the iteration index.
func (a *Activity) Plan() []Step {
	if a.Loop == nil || a.Loop.Count <= 0 {
		out := make([]Step, len(a.Steps))
		for i, s := range a.Steps {
			out[i] = s.Expand(1)
		}
		return out
	}

	l := a.Loop
	out := make([]Step, 0, len(a.Steps)+(l.EndIndex-l.StartIndex+1)*(l.Count-1))
	for _, s := range a.Steps[:l.StartIndex] {
		out = append(out, s.Expand(1))
	}
	for i := 1; i <= l.Count; i++ {
		for _, s := range a.Steps[l.StartIndex : l.EndIndex+1] {
			out = append(out, s.Expand(i))
		}
	}
	for _, s := range a.Steps[l.EndIndex+1:] {
		out = append(out, s.Expand(1))
	}
	return out
}

// Validate checks step types and loop bounds.
func (a *Activity) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("activity has no name")
	}
	if len(a.Steps) == 0 {
		return fmt.Errorf("activity %s has no steps", a.Name)
	}
	for i, s := range a.Steps {
		if !knownSteps[s.Type] {
			return fmt.Errorf("activity %s step %d: unknown type %q", a.Name, i, s.Type)
		}
		switch s.Type {
		case StepNavigate:
			if s.URL == "" {
				return fmt.Errorf("activity %s step %d: navigate requires url", a.Name, i)
			}
		case StepClick, StepWaitVisible:
			if s.Selector == "" {
				return fmt.Errorf("activity %s step %d: %s requires selector", a.Name, i, s.Type)
			}
		case StepScript:
			if s.Script == "" {
				return fmt.Errorf("activity %s step %d: script requires script", a.Name, i)
			}
		}
	}
	return a.Loop.ValidateIndices(len(a.Steps))
}

// ValidateIndices checks the loop indices against the number of steps.
func (l *Loop) ValidateIndices(stepCount int) error {
	if l == nil {
		return nil
	}
	if l.StartIndex < 0 {
		return fmt.Errorf("loop startIndex (%d) cannot be negative", l.StartIndex)
	}
	if l.StartIndex > l.EndIndex {
		return fmt.Errorf("loop startIndex (%d) cannot be greater than endIndex (%d)", l.StartIndex, l.EndIndex)
	}
	if l.EndIndex >= stepCount {
		return fmt.Errorf("loop endIndex (%d) exceeds step count (%d)", l.EndIndex, stepCount)
	}
	return nil
}
