package mcpserver

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrTransportClosed is returned by in-process writes after either end of the
// pair has been closed.
var ErrTransportClosed = errors.New("in-process transport closed")

// InProcessTransport is one end of a loopback transport pair. Messages cross
// directly between the two ends by reference; there is no socket, no pipe and
// no re-encoding, but the framing and handshake semantics are identical to a
// networked transport. A client bound to one end cannot distinguish the
// session from a networked one, which is what allows a backend to drive a
// nested server inside the same process.
type InProcessTransport struct {
	sessionID string
	read      chan jsonrpc.Message
	write     chan jsonrpc.Message
	done      chan struct{}
	closeOnce *sync.Once
}

var _ mcp.Transport = (*InProcessTransport)(nil)

// NewInProcessTransports returns the client and server ends of a connected
// loopback pair. Closing the connection of either end closes the pair; the
// peer observes EOF.
func NewInProcessTransports() (client, server *InProcessTransport) {
	clientToServer := make(chan jsonrpc.Message, 8)
	serverToClient := make(chan jsonrpc.Message, 8)
	done := make(chan struct{})
	once := new(sync.Once)
	id := uuid.NewString()
	client = &InProcessTransport{
		sessionID: id,
		read:      serverToClient,
		write:     clientToServer,
		done:      done,
		closeOnce: once,
	}
	server = &InProcessTransport{
		sessionID: id,
		read:      clientToServer,
		write:     serverToClient,
		done:      done,
		closeOnce: once,
	}
	return client, server
}

// Connect implements mcp.Transport.
func (t *InProcessTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	select {
	case <-t.done:
		return nil, ErrTransportClosed
	default:
	}
	return &inProcessConn{t: t}, nil
}

type inProcessConn struct {
	t *InProcessTransport
}

func (c *inProcessConn) SessionID() string { return c.t.sessionID }

func (c *inProcessConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-c.t.read:
		return msg, nil
	case <-c.t.done:
		// Drain messages that were delivered before the close won the race.
		select {
		case msg := <-c.t.read:
			return msg, nil
		default:
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *inProcessConn) Write(ctx context.Context, msg jsonrpc.Message) error {
	// Check for close first: when done is already closed, the select below
	// would otherwise pick randomly between it and the buffered send.
	select {
	case <-c.t.done:
		return ErrTransportClosed
	default:
	}
	select {
	case c.t.write <- msg:
		return nil
	case <-c.t.done:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *inProcessConn) Close() error {
	c.t.closeOnce.Do(func() { close(c.t.done) })
	return nil
}
