//go:build windows

package player

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/natefinch/npipe.v2"

	"github.com/PizzaHomicide/muxbridge/internal/log"
)

const defaultPipeTimeout = 2 * time.Second

// Connect establishes a connection with MPV for Windows
func (c *MPVIPCClient) Connect(ctx context.Context) error {
	log.Debug("Connecting to Windows named pipe", "path", c.socketPath)

	timeout := defaultPipeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	conn, err := npipe.DialTimeout(c.socketPath, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to MPV pipe: %w", err)
	}

	c.attach(conn)
	return nil
}
