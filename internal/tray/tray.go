// Package tray keeps the tray icon state and pushes it to connected tray
// frontends as JSON-RPC notifications.
package tray

import (
	"context"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/pkg/logger"
)

// Status of the tray icon.
type Status string

const (
	Passive        Status = "passive"
	Active         Status = "active"
	NeedsAttention Status = "needs-attention"
)

// pushTimeout bounds a single push so a stuck frontend cannot stall the
// caller.
const pushTimeout = 2 * time.Second

// Data is a partial tray update. Empty Status, nil Tooltip and nil Jobs leave
// the current value unchanged.
type Data struct {
	Status  Status
	Tooltip *string
	Jobs    []common.TrayJob
}

// Text returns a pointer to s for use as Data.Tooltip.
func Text(s string) *string { return &s }

// Updater receives tray updates.
type Updater interface {
	Update(d Data)
}

// Hub merges updates into the current tray state and broadcasts the result
// to every registered frontend connection.
type Hub struct {
	mu      sync.Mutex
	state   common.TrayState
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
}

// NewHub creates a hub with a passive status and no jobs.
func NewHub(l logger.Logger) *Hub {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Hub{
		state:   common.TrayState{Status: string(Passive), Jobs: []common.TrayJob{}},
		servers: make(map[*jrpc2.Server]struct{}),
		log:     l,
	}
}

// SetAppearance sets the title and icon shown by frontends.
func (h *Hub) SetAppearance(title, icon string) {
	h.mu.Lock()
	changed := h.state.Title != title || h.state.Icon != icon
	h.state.Title = title
	h.state.Icon = icon
	h.mu.Unlock()
	if changed {
		h.broadcast()
	}
}

// Update merges d into the tray state and pushes the new state.
func (h *Hub) Update(d Data) {
	h.mu.Lock()
	if d.Status != "" {
		h.state.Status = string(d.Status)
	}
	if d.Tooltip != nil {
		h.state.Tooltip = *d.Tooltip
	}
	if d.Jobs != nil {
		h.state.Jobs = append([]common.TrayJob(nil), d.Jobs...)
	}
	h.mu.Unlock()
	h.broadcast()
}

// State returns a copy of the current tray state.
func (h *Hub) State() common.TrayState {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.state
	s.Jobs = append([]common.TrayJob(nil), h.state.Jobs...)
	return s
}

// Register adds a frontend connection and sends it the current state.
func (h *Hub) Register(srv *jrpc2.Server) {
	h.mu.Lock()
	h.servers[srv] = struct{}{}
	h.mu.Unlock()
	h.push(srv, h.State())
}

// Unregister removes a frontend connection.
func (h *Hub) Unregister(srv *jrpc2.Server) {
	h.mu.Lock()
	delete(h.servers, srv)
	h.mu.Unlock()
}

// Count returns the number of registered frontends.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.servers)
}

func (h *Hub) broadcast() {
	state := h.State()
	h.mu.Lock()
	servers := make([]*jrpc2.Server, 0, len(h.servers))
	for srv := range h.servers {
		servers = append(servers, srv)
	}
	h.mu.Unlock()

	for _, srv := range servers {
		h.push(srv, state)
	}
}

// push sends state to srv, dropping srv when the push fails.
func (h *Hub) push(srv *jrpc2.Server, state common.TrayState) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := srv.Notify(ctx, common.NotifyTrayUpdate, state); err != nil {
		h.log.Debug("tray push failed: %v", err)
		h.Unregister(srv)
	}
}

var _ Updater = (*Hub)(nil)
