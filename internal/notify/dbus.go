package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/godbus/dbus/v5"
)

const (
	dbusDest  = "org.freedesktop.Notifications"
	dbusPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	dbusIface = "org.freedesktop.Notifications"

	signalActionInvoked = dbusIface + ".ActionInvoked"
	signalClosed        = dbusIface + ".NotificationClosed"

	// signals for ids nobody has subscribed to yet are kept for this many ids
	maxPending = 16
)

type signalEvent struct {
	action string
	closed bool
}

// DBus talks to the freedesktop notification service on the session bus.
type DBus struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal
	log     logger.Logger

	mu         sync.Mutex
	subs       map[uint32]chan signalEvent
	pending    map[uint32][]signalEvent
	pendingIDs []uint32

	done chan struct{}
}

// NewDBus connects to the session bus and subscribes to notification
// signals.
func NewDBus(l logger.Logger) (*DBus, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbusPath),
		dbus.WithMatchInterface(dbusIface),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe notification signals: %w", err)
	}

	d := &DBus{
		conn:    conn,
		obj:     conn.Object(dbusDest, dbusPath),
		signals: make(chan *dbus.Signal, 16),
		log:     l,
		subs:    make(map[uint32]chan signalEvent),
		done:    make(chan struct{}),
	}
	conn.Signal(d.signals)
	go d.dispatch()
	return d, nil
}

// Close disconnects from the bus.
func (d *DBus) Close() error {
	d.conn.RemoveSignal(d.signals)
	close(d.done)
	return d.conn.Close()
}

// Show displays n and returns a handle for updating it.
func (d *DBus) Show(n Notification) (Handle, error) {
	h := &dbusHandle{d: d, events: make(chan signalEvent, 4)}
	if err := h.notify(n); err != nil {
		return nil, err
	}
	return h, nil
}

func (d *DBus) dispatch() {
	for {
		select {
		case <-d.done:
			return
		case sig, ok := <-d.signals:
			if !ok {
				return
			}
			d.route(sig)
		}
	}
}

func (d *DBus) route(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	var ev signalEvent
	switch sig.Name {
	case signalActionInvoked:
		key, _ := sig.Body[1].(string)
		ev = signalEvent{action: key}
	case signalClosed:
		ev = signalEvent{closed: true}
	default:
		return
	}

	d.mu.Lock()
	ch, found := d.subs[id]
	if ev.closed {
		delete(d.subs, id)
	}
	if !found {
		// Notify may not have returned the id yet
		d.hold(id, ev)
	}
	d.mu.Unlock()
	if !found {
		return
	}
	select {
	case ch <- ev:
	default:
		d.log.Debug("dropping notification signal %s for %d", sig.Name, id)
	}
}

// hold buffers ev for an unsubscribed id. d.mu must be held.
func (d *DBus) hold(id uint32, ev signalEvent) {
	if d.pending == nil {
		d.pending = make(map[uint32][]signalEvent)
	}
	if _, ok := d.pending[id]; !ok {
		for len(d.pending) >= maxPending && len(d.pendingIDs) > 0 {
			delete(d.pending, d.pendingIDs[0])
			d.pendingIDs = d.pendingIDs[1:]
		}
		d.pendingIDs = append(d.pendingIDs, id)
	}
	d.pending[id] = append(d.pending[id], ev)
}

func (d *DBus) subscribe(id uint32, ch chan signalEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	closed := false
	for _, ev := range d.pending[id] {
		select {
		case ch <- ev:
		default:
			d.log.Debug("dropping early notification signal for %d", id)
		}
		closed = closed || ev.closed
	}
	if _, ok := d.pending[id]; ok {
		delete(d.pending, id)
		for i, p := range d.pendingIDs {
			if p == id {
				d.pendingIDs = append(d.pendingIDs[:i], d.pendingIDs[i+1:]...)
				break
			}
		}
	}
	if !closed {
		d.subs[id] = ch
	}
}

func (d *DBus) unsubscribe(id uint32) {
	d.mu.Lock()
	delete(d.subs, id)
	d.mu.Unlock()
}

type dbusHandle struct {
	d      *DBus
	id     uint32
	events chan signalEvent
}

func (h *dbusHandle) notify(n Notification) error {
	actions := make([]string, 0, 2*len(n.Actions))
	for _, a := range n.Actions {
		actions = append(actions, a, a)
	}
	hints := map[string]dbus.Variant{}
	if n.Resident {
		hints["resident"] = dbus.MakeVariant(true)
	}

	var id uint32
	err := h.d.obj.Call(dbusIface+".Notify", 0,
		n.AppName, h.id, n.Icon, n.Summary, n.Body, actions, hints, expireTimeout(n.Timeout),
	).Store(&id)
	if err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	if id != h.id {
		if h.id != 0 {
			h.d.unsubscribe(h.id)
		}
		h.id = id
		h.d.subscribe(id, h.events)
	}
	return nil
}

func (h *dbusHandle) Update(n Notification) error {
	return h.notify(n)
}

func (h *dbusHandle) WaitForAction(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case ev := <-h.events:
		if ev.closed {
			return "", false
		}
		return ev.action, true
	}
}

// expireTimeout converts a timeout to the Notify expire_timeout argument:
// -1 for the server default, 0 for never, milliseconds otherwise.
func expireTimeout(d time.Duration) int32 {
	switch {
	case d == Never:
		return 0
	case d <= 0:
		return -1
	default:
		return int32(d / time.Millisecond)
	}
}

var _ Notifier = (*DBus)(nil)
