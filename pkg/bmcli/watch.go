package bmcli

import (
	"context"
	"encoding/json"
	"fmt"

	cws "github.com/coder/websocket"
	"github.com/dfaust/backup-monitor/common"
)

type push struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Watch subscribes to tray updates and calls onUpdate for each pushed state
// until ctx is done or the daemon goes away.
func (c *Client) Watch(ctx context.Context, onUpdate func(common.TrayState)) error {
	conn, _, err := cws.Dial(ctx, "ws://"+host+trayPath, &cws.DialOptions{HTTPClient: c.http})
	if err != nil {
		return fmt.Errorf("connect to tray endpoint: %w", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("tray endpoint: %w", err)
		}
		var p push
		if err := json.Unmarshal(data, &p); err != nil || p.Method != common.NotifyTrayUpdate {
			continue
		}
		var state common.TrayState
		if err := json.Unmarshal(p.Params, &state); err != nil {
			return fmt.Errorf("decode tray state: %w", err)
		}
		onUpdate(state)
	}
}
