package signalbus

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// sendTimeout bounds the whole client round trip: dial, write, close.
const sendTimeout = 5 * time.Second

// Client sends one message per connection to a signal-bus socket. One
// Client is constructed per logical peer (data-center, backend, or tool)
// and reused across sends.
type Client struct {
	socketPath string
	password   string
}

func NewClient(socketPath, password string) *Client {
	return &Client{socketPath: socketPath, password: password}
}

// Send dials socketPath, writes one encrypted frame carrying message, and
// closes the connection. The whole operation is bounded by sendTimeout,
// matching the source's per-send timeout.
func (c *Client) Send(ctx context.Context, message any) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("signalbus: encode message: %w", err)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("signalbus: dial %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	return writeFrame(conn, c.password, payload)
}
