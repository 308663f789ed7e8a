package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	q.Push(ManualRun{Name: "a"})
	q.Push(SettingsChanged{})
	q.Push(MountsChanged{Snapshot: "x"})

	want := []Event{ManualRun{Name: "a"}, SettingsChanged{}, MountsChanged{Snapshot: "x"}}
	for i, w := range want {
		ev, err := q.Receive(context.Background(), 0)
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev != w {
			t.Errorf("event %d: expected %#v, got %#v", i, w, ev)
		}
	}
}

func TestQueue_Timeout(t *testing.T) {
	q := NewQueue()
	start := time.Now()
	_, err := q.Receive(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Receive returned before the timeout")
	}
}

func TestQueue_ZeroTimeoutPolls(t *testing.T) {
	q := NewQueue()
	if _, err := q.Receive(context.Background(), 0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestQueue_WakesBlockedReceiver(t *testing.T) {
	q := NewQueue()
	got := make(chan Event, 1)
	go func() {
		ev, err := q.Receive(context.Background(), NoTimeout)
		if err == nil {
			got <- ev
		}
	}()
	time.Sleep(10 * time.Millisecond)
	q.Push(ManualRun{Name: "home"})

	select {
	case ev := <-got:
		if ev != (ManualRun{Name: "home"}) {
			t.Errorf("unexpected event %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver was not woken")
	}
}

func TestQueue_CloseDrainsThenDisconnects(t *testing.T) {
	q := NewQueue()
	q.Push(SettingsChanged{})
	q.Close()

	if q.Push(SettingsChanged{}) {
		t.Error("Push must fail on a closed queue")
	}
	if _, err := q.Receive(context.Background(), NoTimeout); err != nil {
		t.Fatalf("queued event must survive Close: %v", err)
	}
	if _, err := q.Receive(context.Background(), NoTimeout); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

func TestQueue_ContextCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Receive(ctx, NoTimeout); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const producers, each = 8, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Push(SettingsChanged{})
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		_, err := q.Receive(context.Background(), 0)
		if errors.Is(err, ErrTimeout) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		n++
	}
	if n != producers*each {
		t.Errorf("expected %d events, got %d", producers*each, n)
	}
}
