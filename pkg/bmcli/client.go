// Package bmcli is the client side of the backup-monitor control socket.
package bmcli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
)

// ErrDaemonNotRunning is returned when nothing listens on the socket.
var ErrDaemonNotRunning = errors.New("backup-monitor daemon is not running")

const socketDialTimeout = time.Second

// host is a placeholder; requests are routed by the unix dialer.
const (
	host     = "backup-monitor"
	rpcPath  = "/rpc"
	trayPath = "/tray"
)

// Client calls the daemon's JSON-RPC methods over its unix socket.
type Client struct {
	socket string
	http   *http.Client
	rpc    *jrpc2.Client
}

// NewClient connects to the daemon listening on socketPath.
func NewClient(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, socketDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	conn.Close()

	hc := unixHTTPClient(socketPath)
	ch := jhttp.NewChannel("http://"+host+rpcPath, &jhttp.ChannelOptions{Client: hc})
	return &Client{
		socket: socketPath,
		http:   hc,
		rpc:    jrpc2.NewClient(ch, nil),
	}, nil
}

func unixHTTPClient(socketPath string) *http.Client {
	var d net.Dialer
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var res T
	if err := c.rpc.CallResult(ctx, method, params, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return &res, nil
}
