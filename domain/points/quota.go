package points

import (
	"fmt"

	"rewardsfarmer-go/domain/account"
)

// PointsPerSearch is how many points one counted search earns.
const PointsPerSearch = 3

// Quota is the number of remaining actions the platform will still reward, per persona.
type Quota struct {
	Desktop int
	Mobile  int
}

// For returns the quota for the given persona.
func (q Quota) For(p account.Persona) int {
	if p == account.Mobile {
		return q.Mobile
	}
	return q.Desktop
}

// IsZero reports whether no persona has work left.
func (q Quota) IsZero() bool {
	return q.Desktop == 0 && q.Mobile == 0
}

func (q Quota) String() string {
	return fmt.Sprintf("desktop=%d mobile=%d", q.Desktop, q.Mobile)
}

// Outcome is the verified result of one action.
type Outcome struct {
	Attempted       bool
	Succeeded       bool
	ObservedBalance int
}

// Productive reports whether the action raised the balance above before.
func (o Outcome) Productive(before int) bool {
	return o.Succeeded && o.ObservedBalance > before
}
