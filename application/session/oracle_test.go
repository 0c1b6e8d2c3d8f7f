package session

import (
	"context"
	"errors"
	"testing"

	"rewardsfarmer-go/domain/points"
	"rewardsfarmer-go/infrastructure/rewardsapi"
)

const testDashboard = `{
  "userStatus": {
    "availablePoints": 1200,
    "levelInfo": {"activeLevel": "Level2"},
    "counters": {
      "pcSearch": [
        {"pointProgress": 30, "pointProgressMax": 90},
        {"pointProgress": 0, "pointProgressMax": 60}
      ],
      "mobileSearch": [{"pointProgress": 15, "pointProgressMax": 60}]
    }
  }
}`

func TestOracle_AccountBalance(t *testing.T) {
	driver := newMockDriver()
	driver.dashboard = testDashboard
	s := newTestSession(driver, nil, nil)

	got, err := s.Oracle().AccountBalance(context.Background())
	if err != nil {
		t.Fatalf("AccountBalance() error = %v", err)
	}
	if got != 1200 {
		t.Errorf("AccountBalance() = %d, want 1200", got)
	}
	if len(driver.navigations) == 0 || driver.navigations[0] != DefaultDashboardURL {
		t.Errorf("navigations = %v, want the dashboard first", driver.navigations)
	}
}

func TestOracle_NoDashboard(t *testing.T) {
	driver := newMockDriver()
	s := newTestSession(driver, nil, nil)

	_, err := s.Oracle().AccountBalance(context.Background())
	if !errors.Is(err, ErrNoDashboard) {
		t.Errorf("AccountBalance() error = %v, want ErrNoDashboard", err)
	}
}

func TestOracle_ScriptError(t *testing.T) {
	driver := newMockDriver()
	driver.evalErr = errors.New("ReferenceError")
	s := newTestSession(driver, nil, nil)

	if _, err := s.Oracle().RemainingActions(context.Background()); !errors.Is(err, driver.evalErr) {
		t.Errorf("RemainingActions() error = %v, want wrapped script error", err)
	}
}

func TestOracle_RemainingActions(t *testing.T) {
	tests := []struct {
		name string
		tier points.TierPredicate
		want points.Quota
	}{
		{"above base tier", points.AboveTier("Level1"), points.Quota{Desktop: 40, Mobile: 15}},
		{"at base tier", points.AboveTier("Level2"), points.Quota{Desktop: 40, Mobile: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := newMockDriver()
			driver.dashboard = testDashboard
			s := newTestSession(driver, nil, nil)
			s.oracle.tier = tt.tier

			got, err := s.Oracle().RemainingActions(context.Background())
			if err != nil {
				t.Fatalf("RemainingActions() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RemainingActions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOracle_SearchBalance(t *testing.T) {
	client := &mockUserInfo{info: &rewardsapi.UserInfo{Balance: 1215, IsRewardsUser: true}}
	s := newTestSession(newMockDriver(), client, nil)

	if got := s.Oracle().SearchBalance(context.Background()); got != 1215 {
		t.Errorf("SearchBalance() = %d, want 1215", got)
	}
	if !s.Oracle().IsRewardsUser(context.Background()) {
		t.Error("IsRewardsUser() = false, want true")
	}
}

func TestOracle_SearchBalanceUnavailable(t *testing.T) {
	client := &mockUserInfo{err: errors.New("404")}
	s := newTestSession(newMockDriver(), client, nil)

	if got := s.Oracle().SearchBalance(context.Background()); got != points.NoBalance {
		t.Errorf("SearchBalance() = %d, want NoBalance", got)
	}
	if s.Oracle().IsRewardsUser(context.Background()) {
		t.Error("IsRewardsUser() = true on an unreadable endpoint")
	}
}

func TestOracle_DisabledEndpoint(t *testing.T) {
	s := newTestSession(newMockDriver(), nil, nil)

	if got := s.Oracle().SearchBalance(context.Background()); got != points.NoBalance {
		t.Errorf("SearchBalance() = %d, want NoBalance", got)
	}
}
