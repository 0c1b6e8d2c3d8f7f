package event

// SearchPerformed is published after each search action was verified.
type SearchPerformed struct {
	baseSessionEvent
	Term      string
	Succeeded bool
	Balance   int
}

func NewSearchPerformed(sessionID, term string, succeeded bool, balance int) *SearchPerformed {
	return &SearchPerformed{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Term:             term,
		Succeeded:        succeeded,
		Balance:          balance,
	}
}

func (e *SearchPerformed) EventName() string {
	return "SearchPerformed"
}

// QuotaPolled is published whenever the remaining search quota was read from the platform.
type QuotaPolled struct {
	baseSessionEvent
	Desktop int
	Mobile  int
}

func NewQuotaPolled(sessionID string, desktop, mobile int) *QuotaPolled {
	return &QuotaPolled{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Desktop:          desktop,
		Mobile:           mobile,
	}
}

func (e *QuotaPolled) EventName() string {
	return "QuotaPolled"
}

// ActivityCompleted is published after a scripted activity ran.
type ActivityCompleted struct {
	baseSessionEvent
	Activity string
	Error    error // nil if the activity finished
}

func NewActivityCompleted(sessionID, activity string, err error) *ActivityCompleted {
	return &ActivityCompleted{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Activity:         activity,
		Error:            err,
	}
}

func (e *ActivityCompleted) EventName() string {
	return "ActivityCompleted"
}

// WorkerFailed is published when a persona worker ended with an error or panic.
type WorkerFailed struct {
	baseSessionEvent
	Error error
}

func NewWorkerFailed(sessionID string, err error) *WorkerFailed {
	return &WorkerFailed{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Error:            err,
	}
}

func (e *WorkerFailed) EventName() string {
	return "WorkerFailed"
}

// GoalReached is published when an account's balance reached the configured target.
type GoalReached struct {
	Username string
	Balance  int
	Target   int
}

func NewGoalReached(username string, balance, target int) *GoalReached {
	return &GoalReached{Username: username, Balance: balance, Target: target}
}

func (e *GoalReached) EventName() string {
	return "GoalReached"
}
