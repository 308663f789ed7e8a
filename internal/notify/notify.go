// Package notify shows desktop notifications and reports which action, if
// any, the user picked.
package notify

import (
	"context"
	"time"
)

// Never keeps a notification on screen until the user dismisses it.
const Never time.Duration = -1

// Notification is the content of one desktop notification.
type Notification struct {
	AppName string
	Icon    string
	Summary string
	Body    string
	// Actions are offered as buttons; the label doubles as the action key.
	Actions []string
	// Resident notifications stay in the notification center after an
	// action was invoked.
	Resident bool
	// Timeout of zero uses the server default.
	Timeout time.Duration
}

// Notifier shows notifications.
type Notifier interface {
	Show(n Notification) (Handle, error)
}

// Handle refers to a notification on screen.
type Handle interface {
	// Update replaces the content of the notification.
	Update(n Notification) error
	// WaitForAction blocks until the user picks an action, the notification
	// is closed or ctx is done. ok is false unless an action was picked.
	WaitForAction(ctx context.Context) (label string, ok bool)
}

// Nop is a Notifier that shows nothing. Its handles never report an action.
type Nop struct{}

// Show returns a handle that does nothing.
func (Nop) Show(Notification) (Handle, error) { return nopHandle{}, nil }

type nopHandle struct{}

func (nopHandle) Update(Notification) error { return nil }

func (nopHandle) WaitForAction(context.Context) (string, bool) { return "", false }

// NopHandle returns a handle that does nothing, for use when showing a
// notification failed.
func NopHandle() Handle { return nopHandle{} }

var _ Notifier = Nop{}
