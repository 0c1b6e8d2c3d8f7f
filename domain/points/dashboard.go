package points

// DefaultBaseTier is the membership level that earns no mobile search points.
const DefaultBaseTier = "Level1"

// Counter is one progress bucket on the dashboard.
type Counter struct {
	PointProgress    int `json:"pointProgress"`
	PointProgressMax int `json:"pointProgressMax"`
}

// Dashboard is the subset of the platform's dashboard state read by the engine.
type Dashboard struct {
	UserStatus struct {
		AvailablePoints int `json:"availablePoints"`
		LevelInfo       struct {
			ActiveLevel string `json:"activeLevel"`
		} `json:"levelInfo"`
		Counters struct {
			PCSearch     []Counter `json:"pcSearch"`
			MobileSearch []Counter `json:"mobileSearch"`
		} `json:"counters"`
	} `json:"userStatus"`
}

// TierPredicate reports whether an active level qualifies for mobile searches.
type TierPredicate func(activeLevel string) bool

// AboveTier returns a predicate that is true for any level other than base.
// An empty level is treated as base.
func AboveTier(base string) TierPredicate {
	if base == "" {
		base = DefaultBaseTier
	}
	return func(level string) bool {
		return level != "" && level != base
	}
}

// Balance returns the available points shown on the dashboard.
func (d *Dashboard) Balance() int {
	return d.UserStatus.AvailablePoints
}

// Remaining converts the dashboard counters into a Quota.
// Desktop sums every pcSearch bucket; mobile uses the first mobileSearch bucket
// and only when the tier predicate allows it.
func (d *Dashboard) Remaining(eligible TierPredicate) Quota {
	var q Quota

	var progress, total int
	for _, c := range d.UserStatus.Counters.PCSearch {
		progress += c.PointProgress
		total += c.PointProgressMax
	}
	q.Desktop = remaining(total, progress)

	mobile := d.UserStatus.Counters.MobileSearch
	if eligible != nil && eligible(d.UserStatus.LevelInfo.ActiveLevel) && len(mobile) > 0 {
		q.Mobile = remaining(mobile[0].PointProgressMax, mobile[0].PointProgress)
	}

	return q
}

func remaining(total, progress int) int {
	n := (total - progress) / PointsPerSearch
	if n < 0 {
		return 0
	}
	return n
}
