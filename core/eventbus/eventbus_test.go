package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// waitTimeout waits for wg or fails the test after d.
func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("Timeout waiting for events")
	}
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := New(10, nil)
	defer bus.Close()

	var wg sync.WaitGroup
	wg.Add(1)

	var got event.Event
	bus.Subscribe(func(e event.Event) {
		got = e
		wg.Done()
	})

	bus.Publish(event.NewAccountStarted("alice"))
	waitTimeout(t, &wg, time.Second)

	started, ok := got.(*event.AccountStarted)
	if !ok {
		t.Fatalf("got %T, want *event.AccountStarted", got)
	}
	if started.Username != "alice" {
		t.Errorf("Username = %q, want alice", started.Username)
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := New(10, nil)
	defer bus.Close()

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	for i := 0; i < 3; i++ {
		bus.Subscribe(func(e event.Event) {
			count.Add(1)
			wg.Done()
		})
	}

	bus.Publish(event.NewGoalReached("alice", 10, 5))
	waitTimeout(t, &wg, time.Second)

	if count.Load() != 3 {
		t.Errorf("delivered %d times, want 3", count.Load())
	}
}

func TestEventBus_SessionFilter(t *testing.T) {
	bus := New(10, nil)
	defer bus.Close()

	var desktop, mobile atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	bus.SubscribeSession("alice/desktop", func(e event.Event) {
		desktop.Add(1)
		wg.Done()
	})
	bus.SubscribeSession("alice/mobile", func(e event.Event) {
		mobile.Add(1)
		wg.Done()
	})

	bus.Publish(event.NewSearchPerformed("alice/desktop", "a", true, 3))
	bus.Publish(event.NewSearchPerformed("alice/desktop", "b", true, 6))
	bus.Publish(event.NewQuotaPolled("alice/mobile", 0, 4))
	waitTimeout(t, &wg, time.Second)

	if desktop.Load() != 2 {
		t.Errorf("desktop subscriber got %d, want 2", desktop.Load())
	}
	if mobile.Load() != 1 {
		t.Errorf("mobile subscriber got %d, want 1", mobile.Load())
	}
}

func TestEventBus_NonSessionEventSkipsSessionSubscriber(t *testing.T) {
	bus := New(10, nil)

	var received atomic.Int32
	bus.SubscribeSession("alice/desktop", func(e event.Event) {
		received.Add(1)
	})

	bus.Publish(event.NewAccountStarted("alice"))
	bus.Close()

	if received.Load() != 0 {
		t.Errorf("session subscriber got %d account-level events, want 0", received.Load())
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := New(10, nil)

	var received atomic.Int32
	id := bus.Subscribe(func(e event.Event) {
		received.Add(1)
	})
	bus.Unsubscribe(id)

	bus.Publish(event.NewAccountStarted("alice"))
	bus.Close()

	if received.Load() != 0 {
		t.Errorf("got %d events after unsubscribe, want 0", received.Load())
	}
}

func TestEventBus_CloseDrainsQueue(t *testing.T) {
	bus := New(10, nil)

	var received atomic.Int32
	bus.Subscribe(func(e event.Event) {
		received.Add(1)
	})

	for i := 0; i < 5; i++ {
		bus.Publish(event.NewSearchPerformed("s", "term", true, i))
	}
	bus.Close()

	if received.Load() != 5 {
		t.Errorf("delivered %d events before close returned, want 5", received.Load())
	}

	// Publish after close is a no-op, closing twice is safe.
	bus.Publish(event.NewAccountStarted("late"))
	bus.Close()
}

func TestEventBus_HandlerPanic(t *testing.T) {
	bus := New(10, nil)
	defer bus.Close()

	var wg sync.WaitGroup
	wg.Add(1)

	var survived atomic.Bool
	bus.Subscribe(func(e event.Event) {
		panic("reporter crashed")
	})
	bus.Subscribe(func(e event.Event) {
		survived.Store(true)
		wg.Done()
	})

	bus.Publish(event.NewWorkerFailed("alice/mobile", errors.New("boom")))
	waitTimeout(t, &wg, time.Second)

	if !survived.Load() {
		t.Error("second handler was not called after first panicked")
	}
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	const publishers, perPublisher = 10, 10

	bus := New(publishers*perPublisher, nil)

	var received atomic.Int32
	bus.Subscribe(func(e event.Event) {
		received.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				bus.Publish(event.NewAuthStateChanged("s", state.StateStart, state.StateAwaitingCredentials))
			}
		}()
	}
	wg.Wait()
	bus.Close()

	if received.Load() != publishers*perPublisher {
		t.Errorf("received %d events, want %d", received.Load(), publishers*perPublisher)
	}
}
