package timing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSleep_Completes(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep() did not return promptly on cancelled context")
	}
}

func TestSleep_NonPositive(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) error = %v", err)
	}
}

func TestNoSleep(t *testing.T) {
	if err := NoSleep(context.Background(), time.Hour); err != nil {
		t.Errorf("NoSleep() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NoSleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("NoSleep() error = %v, want context.Canceled", err)
	}
}

func TestBetween(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi time.Duration
	}{
		{"range", 18 * time.Second, 30 * time.Second},
		{"equal", time.Second, time.Second},
		{"inverted", 5 * time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				d := Between(tt.lo, tt.hi)
				hi := tt.hi
				if hi < tt.lo {
					hi = tt.lo
				}
				if d < tt.lo || d > hi {
					t.Fatalf("Between(%v, %v) = %v out of range", tt.lo, tt.hi, d)
				}
			}
		})
	}
}

func TestIntBetween(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := IntBetween(1, 3)
		if v < 1 || v > 3 {
			t.Fatalf("IntBetween(1, 3) = %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Errorf("IntBetween(1, 3) produced %v, want all of 1..3", seen)
	}
}
