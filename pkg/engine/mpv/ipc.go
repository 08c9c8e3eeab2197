package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
)

const (
	// DefaultRequestTimeout is how long a command waits for its reply
	DefaultRequestTimeout = 1 * time.Second

	maxMessageSize = 1 << 20
)

var (
	// ErrCommand is returned when mpv replies to a command with an error
	ErrCommand = fmt.Errorf("%w: mpv command failed", engine.ErrEngine)

	// ErrDisconnected is returned when the IPC connection is gone
	ErrDisconnected = fmt.Errorf("%w: mpv connection closed", engine.ErrEngine)

	// ErrTimeout is returned when mpv does not reply to a command in time
	ErrTimeout = fmt.Errorf("%w: mpv did not reply", engine.ErrEngine)
)

// request is the JSON structure sent to mpv's IPC socket
type request struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

// message is a single line received from mpv's IPC socket. Replies carry a request id and an error status, events
// carry an event name
type message struct {
	Event     string          `json:"event"`
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
	Error     string          `json:"error"`
	RequestID int64           `json:"request_id"`
}

// client multiplexes commands and events over one persistent IPC connection
type client struct {
	conn    net.Conn
	timeout time.Duration
	onEvent func(message)

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan message
	err     error
	done    chan struct{}
}

// newClient starts reading conn. onEvent is called on the read goroutine for every event and must not block
func newClient(conn net.Conn, timeout time.Duration, onEvent func(message)) *client {
	c := &client{
		conn:    conn,
		timeout: timeout,
		onEvent: onEvent,
		pending: make(map[int64]chan message),
		done:    make(chan struct{}),
	}

	go c.readLoop()
	return c
}

// command sends a command and waits for its reply data
func (c *client) command(args ...interface{}) (json.RawMessage, error) {
	replies := make(chan message, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}

	c.nextID++
	id := c.nextID
	c.pending[id] = replies
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", engine.ErrEngine, err)
	}

	if err := c.write(append(payload, '\n')); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply := <-replies:
		if reply.Error != "" && reply.Error != "success" {
			return nil, fmt.Errorf("%w: %v: %s", ErrCommand, args, reply.Error)
		}

		return reply.Data, nil
	case <-c.done:
		return nil, c.closeErr()
	case <-timer.C:
		return nil, fmt.Errorf("%w: %v after %s", ErrTimeout, args, c.timeout)
	}
}

func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	if _, err := c.conn.Write(payload); err != nil {
		return fmt.Errorf("%w: write: %v", ErrDisconnected, err)
	}

	return nil
}

// readLoop reads newline delimited JSON until the connection is closed
func (c *client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 4096), maxMessageSize)

	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		if msg.Event != "" {
			c.onEvent(msg)
			continue
		}

		c.mu.Lock()
		replies, ok := c.pending[msg.RequestID]
		c.mu.Unlock()

		if ok {
			replies <- msg
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}

	c.mu.Lock()
	c.err = fmt.Errorf("%w: %v", ErrDisconnected, err)
	c.mu.Unlock()
	close(c.done)
}

func (c *client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the connection has been lost or closed
func (c *client) Done() <-chan struct{} {
	return c.done
}

// close closes the connection and waits for the read loop to finish
func (c *client) close() error {
	err := c.conn.Close()
	<-c.done

	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}
