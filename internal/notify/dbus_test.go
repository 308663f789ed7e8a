package notify

import (
	"context"
	"testing"
	"time"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/godbus/dbus/v5"
)

func newRoutingOnly() *DBus {
	return &DBus{log: logger.NewNopLogger(), subs: make(map[uint32]chan signalEvent)}
}

func TestExpireTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int32
	}{
		{Never, 0},
		{0, -1},
		{6 * time.Second, 6000},
		{10 * time.Second, 10000},
	}
	for _, tt := range tests {
		if got := expireTimeout(tt.in); got != tt.want {
			t.Errorf("expireTimeout(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestRoute_ActionInvoked(t *testing.T) {
	d := newRoutingOnly()
	h := &dbusHandle{d: d, id: 7, events: make(chan signalEvent, 4)}
	d.subscribe(7, h.events)

	d.route(&dbus.Signal{Name: signalActionInvoked, Body: []interface{}{uint32(8), "Other"}})
	d.route(&dbus.Signal{Name: signalActionInvoked, Body: []interface{}{uint32(7), "Unmount"}})

	label, ok := h.WaitForAction(context.Background())
	if !ok || label != "Unmount" {
		t.Fatalf("expected Unmount action, got %q %v", label, ok)
	}
}

func TestRoute_ClosedUnsubscribes(t *testing.T) {
	d := newRoutingOnly()
	h := &dbusHandle{d: d, id: 3, events: make(chan signalEvent, 4)}
	d.subscribe(3, h.events)

	d.route(&dbus.Signal{Name: signalClosed, Body: []interface{}{uint32(3), uint32(2)}})
	if _, ok := h.WaitForAction(context.Background()); ok {
		t.Fatal("closed notification must not report an action")
	}
	if _, found := d.subs[3]; found {
		t.Error("expected subscription to be removed after close")
	}
}

func TestRoute_SignalBeforeSubscribe(t *testing.T) {
	d := newRoutingOnly()
	d.route(&dbus.Signal{Name: signalActionInvoked, Body: []interface{}{uint32(5), "Unmount"}})

	h := &dbusHandle{d: d, id: 5, events: make(chan signalEvent, 4)}
	d.subscribe(5, h.events)

	label, ok := h.WaitForAction(context.Background())
	if !ok || label != "Unmount" {
		t.Fatalf("expected early Unmount action, got %q %v", label, ok)
	}
	if _, found := d.pending[5]; found {
		t.Error("expected buffered signals to be released on subscribe")
	}
}

func TestRoute_ClosedBeforeSubscribe(t *testing.T) {
	d := newRoutingOnly()
	d.route(&dbus.Signal{Name: signalClosed, Body: []interface{}{uint32(9), uint32(2)}})

	h := &dbusHandle{d: d, id: 9, events: make(chan signalEvent, 4)}
	d.subscribe(9, h.events)

	if _, ok := h.WaitForAction(context.Background()); ok {
		t.Fatal("closed notification must not report an action")
	}
	if _, found := d.subs[9]; found {
		t.Error("a closed notification must not stay subscribed")
	}
}

func TestRoute_PendingIsBounded(t *testing.T) {
	d := newRoutingOnly()
	for id := uint32(1); id <= 3*maxPending; id++ {
		d.route(&dbus.Signal{Name: signalActionInvoked, Body: []interface{}{id, "x"}})
	}
	if len(d.pending) != maxPending {
		t.Fatalf("expected %d buffered ids, got %d", maxPending, len(d.pending))
	}
	if _, found := d.pending[1]; found {
		t.Error("expected the oldest ids to be dropped")
	}
	if _, found := d.pending[3*maxPending]; !found {
		t.Error("expected the newest id to be kept")
	}
}

func TestRoute_IgnoresMalformed(t *testing.T) {
	d := newRoutingOnly()
	ch := make(chan signalEvent, 1)
	d.subscribe(1, ch)
	d.route(&dbus.Signal{Name: signalActionInvoked, Body: []interface{}{"1", "x"}})
	d.route(&dbus.Signal{Name: signalActionInvoked, Body: []interface{}{uint32(1)}})
	d.route(&dbus.Signal{Name: dbusIface + ".Other", Body: []interface{}{uint32(1), "x"}})
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestWaitForAction_Cancelled(t *testing.T) {
	h := &dbusHandle{d: newRoutingOnly(), events: make(chan signalEvent)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := h.WaitForAction(ctx); ok {
		t.Fatal("expected cancelled wait to report no action")
	}
}

func TestNop(t *testing.T) {
	h, err := Nop{}.Show(Notification{Summary: "x"})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if err := h.Update(Notification{}); err != nil {
		t.Errorf("Update: %v", err)
	}
	if _, ok := h.WaitForAction(context.Background()); ok {
		t.Error("nop handle must not report an action")
	}
}
