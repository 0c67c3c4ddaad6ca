package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/PizzaHomicide/muxbridge/internal/log"
)

// maxEventSize bounds a single line read from the MPV socket.  Replies such as track-list can be large.
const maxEventSize = 16 * 1024 * 1024

// MPVIPCClient provides communication with a running MPV instance
type MPVIPCClient struct {
	socketPath string
	events     chan MPVEvent

	// done is closed by Close so a reader blocked on a full events channel can exit.  readerDone is closed once the
	// reader has returned.
	done       chan struct{}
	closeOnce  sync.Once
	readerDone chan struct{}

	mu   sync.Mutex
	conn net.Conn
}

// MPVEvent represents an event, property change or command reply from MPV
type MPVEvent struct {
	Event string `json:"event,omitempty"`
	// Set for property-change events
	ID   int             `json:"id,omitempty"`
	Name string          `json:"name,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
	// Set for end-file events
	Reason    string `json:"reason,omitempty"`
	FileError string `json:"file_error,omitempty"`
	// Set for command replies
	RequestID int    `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewMPVIPCClient creates a new MPV IPC client
func NewMPVIPCClient(socketPath string) *MPVIPCClient {
	return &MPVIPCClient{
		socketPath: socketPath,
		events:     make(chan MPVEvent, 100),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
}

// GetMPVSocketPath returns the socket path for MPV IPC communication
func GetMPVSocketPath() string {
	var socketPath string

	// Use environment variable if set
	if path := os.Getenv("MPV_IPC_SOCKET"); path != "" {
		return path
	}

	// Otherwise use default location based on OS
	switch runtime.GOOS {
	case "windows":
		// Windows uses named pipes instead of unix sockets
		return `\\.\pipe\muxbridge-mpv`
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("Failed to get user home directory", "error", err)
			return "/tmp/muxbridge-mpv.sock"
		}
		socketPath = filepath.Join(homeDir, ".config", "mpv", "muxbridge.sock")
	default:
		// Linux and others
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		if runtimeDir != "" {
			socketPath = filepath.Join(runtimeDir, "muxbridge-mpv.sock")
		} else {
			socketPath = "/tmp/muxbridge-mpv.sock"
		}
	}

	return socketPath
}

// WaitForConnection attempts to connect to MPV with retries
func (c *MPVIPCClient) WaitForConnection(ctx context.Context, maxAttempts int, retryDelay time.Duration) error {
	log.Debug("Waiting for MPV to create socket", "socket_path", c.socketPath, "max_attempts", maxAttempts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check if socket file exists for unix sockets
		if runtime.GOOS != "windows" {
			if _, err := os.Stat(c.socketPath); os.IsNotExist(err) {
				log.Debug("MPV socket does not exist yet", "attempt", attempt, "path", c.socketPath)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
					continue
				}
			}
		}

		err := c.Connect(ctx)
		if err == nil {
			log.Info("Successfully connected to MPV", "attempt", attempt)
			return nil
		}

		log.Debug("Failed to connect to MPV", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
			// Continue and retry
		}
	}

	return fmt.Errorf("failed to connect to MPV after %d attempts", maxAttempts)
}

// attach stores the connection and starts reading events from it
func (c *MPVIPCClient) attach(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	go c.readEvents(conn)
}

// Close closes the connection to MPV and releases the event reader
func (c *MPVIPCClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// readEvents continuously reads events from MPV until the connection closes or the client is closed
func (c *MPVIPCClient) readEvents(conn net.Conn) {
	defer close(c.readerDone)
	defer close(c.events)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := scanner.Bytes()

		if log.TraceEnabled() {
			log.Trace("Raw MPV event", "data", string(line))
		}

		var event MPVEvent
		if err := json.Unmarshal(line, &event); err != nil {
			log.Error("Failed to unmarshal MPV event", "error", err)
			continue
		}

		select {
		case c.events <- event:
		case <-c.done:
			log.Debug("MPV client closed, dropping unread events")
			return
		}
	}

	switch err := scanner.Err(); {
	case errors.Is(err, bufio.ErrTooLong):
		log.Warn("MPV sent a message larger than the read limit, stopped reading", "limit_bytes", maxEventSize)
	case err != nil:
		log.Debug("Stopped reading from MPV socket", "error", err)
	}

	log.Debug("MPV event reader stopped")
}

// Events returns the channel for MPV events.  It is closed when the connection ends.
func (c *MPVIPCClient) Events() <-chan MPVEvent {
	return c.events
}

// SendCommand sends a command to MPV
func (c *MPVIPCClient) SendCommand(cmd []interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected to MPV")
	}

	cmdObj := map[string]interface{}{
		"command": cmd,
	}

	data, err := json.Marshal(cmdObj)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	data = append(data, '\n')
	if _, err = c.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	return nil
}

// ObserveProperty starts observing an MPV property
func (c *MPVIPCClient) ObserveProperty(id int, name string) error {
	return c.SendCommand([]interface{}{"observe_property", id, name})
}
