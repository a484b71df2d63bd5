package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolType is advisory metadata surfaced to clients through tool annotations.
// It affects no control flow inside the runtime.
type ToolType string

const (
	// ToolTypeReadOnly marks a tool that does not mutate its environment.
	ToolTypeReadOnly ToolType = "readOnly"
	// ToolTypeDestructive marks a tool that may mutate its environment.
	ToolTypeDestructive ToolType = "destructive"
)

// ToolSchema describes one entry in a backend's tool catalog. Schemas are
// immutable once the catalog has been captured by NewServer.
type ToolSchema struct {
	// Name uniquely identifies the tool within the backend's catalog.
	Name string
	// Title is a human-readable name surfaced in listing annotations.
	Title string
	// Description tells the calling agent what the tool does.
	Description string
	// InputSchema validates call arguments. A nil schema accepts any object.
	InputSchema *jsonschema.Schema
	// Type is the advisory read-only/destructive classification.
	Type ToolType
}

// ServerBackend is the capability surface a component must implement to be
// served over the protocol. Implementations need not be safe for concurrent
// calls: the runtime dispatches the calls of one connection sequentially in
// arrival order.
type ServerBackend interface {
	// Name identifies the server implementation to peers.
	Name() string

	// Version identifies the server implementation version to peers.
	Version() string

	// Tools returns the backend's tool catalog. It is queried exactly once,
	// at server construction time, and the result is treated as immutable
	// for the life of the connection.
	Tools() []ToolSchema

	// CallTool executes the named tool. The schema always comes from this
	// backend's own catalog and args have already passed schema validation;
	// implementations must not re-validate shape. A returned error is
	// reported to the peer as an isError result, not a protocol fault.
	CallTool(ctx context.Context, schema ToolSchema, args json.RawMessage) (*mcp.CallToolResult, error)
}

// Initializer is implemented by backends that need setup before the
// connection starts accepting calls. A failed Initialize refuses the
// connection.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// InitializedObserver is implemented by backends that want the peer's
// identity once the initialize handshake completes. clientInfo is nil when
// the peer did not identify itself.
type InitializedObserver interface {
	ServerInitialized(clientInfo *mcp.Implementation)
}

// CloseObserver is implemented by backends that need to release resources
// when the connection goes away. The runtime invokes it exactly once per
// connection.
type CloseObserver interface {
	ServerClosed()
}

// BackendFactory produces a fresh backend for one incoming connection.
// Factories must not share mutable state between invocations.
type BackendFactory func() ServerBackend
