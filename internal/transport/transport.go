package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrNotConnected is returned when an exchange is attempted without an open socket.
var ErrNotConnected = errors.New("transport: not connected")

// Channel is a synchronous textual command/query channel to the instrument.
// One exchange is in flight at a time; every exchange is bounded by the
// configured command timeout.
type Channel interface {
	// Command writes one LF-terminated command that produces no response.
	Command(ctx context.Context, cmd string) error
	// Query writes one LF-terminated command and reads one response line.
	Query(ctx context.Context, cmd string) (string, error)
	// Close releases the underlying connection.
	Close() error
}

// TCP implements Channel over an LXI raw socket.
type TCP struct {
	// address is the host:port of the instrument.
	address string
	// timeout bounds dialing and every read/write on the socket.
	timeout time.Duration

	// mu serializes exchanges so responses pair with their requests.
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// Dial opens a raw-socket connection to the instrument at the given address.
func Dial(ctx context.Context, address string, timeout time.Duration) (*TCP, error) {
	d := net.Dialer{Timeout: timeout}

	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	return &TCP{
		address: address,
		timeout: timeout,
		conn:    conn,
		reader:  bufio.NewReader(conn),
	}, nil
}

// NewWithConn wraps an existing connection, bypassing Dial.
// Used by tests and by callers tunneling through another transport.
func NewWithConn(conn net.Conn, timeout time.Duration) *TCP {
	return &TCP{
		timeout: timeout,
		conn:    conn,
		reader:  bufio.NewReader(conn),
	}
}

// Command writes one command line and returns once it is on the wire.
func (t *TCP) Command(ctx context.Context, cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writeLine(ctx, cmd)
}

// Query writes one command line and reads one LF-terminated response line,
// returned with line endings trimmed.
func (t *TCP) Query(ctx context.Context, cmd string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeLine(ctx, cmd); err != nil {
		return "", err
	}

	if err := t.conn.SetReadDeadline(t.deadline(ctx)); err != nil {
		return "", fmt.Errorf("set read deadline: %w", err)
	}

	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response to %q: %w", cmd, err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// Close releases the socket. Safe to call on a never-connected or
// already-closed channel.
func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	t.reader = nil

	return err
}

// writeLine sends cmd with a trailing LF, handling short writes.
// Callers must hold mu.
func (t *TCP) writeLine(ctx context.Context, cmd string) error {
	if t.conn == nil {
		return ErrNotConnected
	}

	if err := t.conn.SetWriteDeadline(t.deadline(ctx)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	b := []byte(cmd + "\n")
	for len(b) > 0 {
		n, err := t.conn.Write(b)
		if err != nil {
			return fmt.Errorf("write %q: %w", cmd, err)
		}

		b = b[n:]
	}

	return nil
}

// deadline picks the earlier of the context deadline and the command timeout.
func (t *TCP) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(t.timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}

	return d
}
