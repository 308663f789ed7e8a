package server

import (
	"context"
	"io"

	cws "github.com/coder/websocket"
)

// wsChannel carries JSON-RPC messages over a websocket, one message per
// frame, as a jrpc2 channel.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

// Recv maps a normal closure by the peer to a clean end of stream.
func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	if cws.CloseStatus(err) == cws.StatusNormalClosure {
		return nil, io.EOF
	}
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
