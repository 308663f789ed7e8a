// Package server exposes the daemon over a unix socket: a JSON-RPC bridge for
// the command line client and a websocket endpoint for tray frontends.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/dfaust/backup-monitor/internal/tray"
	"github.com/dfaust/backup-monitor/pkg/logger"
)

// HTTP endpoints.
const (
	RPCPath  = "/rpc"
	TrayPath = "/tray"
)

const shutdownTimeout = 5 * time.Second

// Server serves the API over HTTP.
type Server struct {
	api    *API
	hub    *tray.Hub
	log    logger.Logger
	bridge jhttp.Bridge
	mux    *http.ServeMux

	mu     sync.Mutex
	server *http.Server
}

// New creates a server for api. Tray websocket connections are registered
// with hub.
func New(api *API, hub *tray.Hub, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	s := &Server{
		api:    api,
		hub:    hub,
		log:    l,
		bridge: jhttp.NewBridge(api.Methods(), nil),
		mux:    http.NewServeMux(),
	}
	s.mux.Handle(RPCPath, s.bridge)
	s.mux.HandleFunc(TrayPath, s.handleTray)
	return s
}

// Handler returns the HTTP handler serving both endpoints.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleTray upgrades the request and serves JSON-RPC over the websocket
// until the frontend disconnects. Tray state is pushed on every change.
func (s *Server) handleTray(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.log.Warning("tray websocket: %v", err)
		return
	}
	ch := &wsChannel{conn: conn, ctx: r.Context()}
	srv := jrpc2.NewServer(s.api.Methods(), &jrpc2.ServerOptions{AllowPush: true}).Start(ch)
	s.log.Debug("tray frontend connected")

	s.hub.Register(srv)
	defer s.hub.Unregister(srv)
	if err := srv.Wait(); err != nil && !errors.Is(err, io.EOF) {
		s.log.Debug("tray frontend disconnected: %v", err)
	}
}

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warning("shutting down control server: %v", err)
		}
	}()

	s.log.Info("listening on %s", l.Addr())
	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close releases the JSON-RPC bridge.
func (s *Server) Close() error {
	return s.bridge.Close()
}
