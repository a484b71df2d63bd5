package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zealous-tech/mcp-browser-go/internal/logctx"
)

// Server binds one ServerBackend to one protocol connection. It owns the
// captured tool catalog, the lifecycle observer lists and the heartbeat loop
// for that connection.
type Server struct {
	backend ServerBackend
	catalog []ToolSchema
	tools   map[string]*serverTool
	mcpSrv  *mcp.Server
	log     *slog.Logger

	heartbeat  bool
	hbInterval time.Duration
	hbTimeout  time.Duration

	mu            sync.Mutex
	sess          *mcp.ServerSession
	clientInfo    *mcp.Implementation
	hbStarted     bool
	closed        bool
	done          chan struct{}
	onInitialized []func(*mcp.Implementation)
	onClose       []func()
}

type serverTool struct {
	schema ToolSchema
	input  *jsonschema.Resolved
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHeartbeat enables the liveness heartbeat for the connection. The loop
// starts lazily on the first tool call so that idle connections that never
// issue a call are not probed.
func WithHeartbeat() Option {
	return func(s *Server) { s.heartbeat = true }
}

// permissiveObject accepts any object. Registered with the SDK so that shape
// enforcement stays in this package's dispatch path, where failures become
// isError results instead of protocol faults.
func permissiveObject() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", AdditionalProperties: &jsonschema.Schema{}}
}

// NewServer captures the backend's tool catalog, resolves every input schema
// and constructs the underlying MCP server. Duplicate tool names and
// unresolvable schemas are construction errors.
func NewServer(backend ServerBackend, opts ...Option) (*Server, error) {
	s := &Server{
		backend:    backend,
		tools:      make(map[string]*serverTool),
		log:        slog.Default(),
		hbInterval: heartbeatInterval,
		hbTimeout:  heartbeatTimeout,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.catalog = backend.Tools()
	for _, t := range s.catalog {
		if _, ok := s.tools[t.Name]; ok {
			return nil, fmt.Errorf("duplicate tool %q in catalog of backend %q", t.Name, backend.Name())
		}
		in := t.InputSchema
		if in == nil {
			in = permissiveObject()
		}
		resolved, err := in.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve input schema of tool %q: %w", t.Name, err)
		}
		s.tools[t.Name] = &serverTool{schema: t, input: resolved}
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    backend.Name(),
		Version: backend.Version(),
	}, nil)

	// Registration advertises the tools capability to the SDK. Listing and
	// dispatch are both owned by the middleware below; the SDK never sees a
	// tools/call, so its own validation and not-found handling stay out of
	// the way. The per-tool handler delegates to the same dispatch path for
	// any caller that bypasses the middleware.
	for _, t := range s.catalog {
		name := t.Name
		srv.AddTool(&mcp.Tool{
			Name:        name,
			Description: t.Description,
			InputSchema: permissiveObject(),
			Annotations: wireAnnotations(t),
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.dispatch(ctx, req), nil
		})
	}
	srv.AddReceivingMiddleware(s.middleware)
	s.mcpSrv = srv

	if obs, ok := backend.(InitializedObserver); ok {
		s.OnInitialized(obs.ServerInitialized)
	}
	if obs, ok := backend.(CloseObserver); ok {
		s.OnClose(obs.ServerClosed)
	}

	return s, nil
}

// OnInitialized appends an observer for the post-handshake notification.
// Observers run in registration order; registering never replaces an earlier
// observer.
func (s *Server) OnInitialized(fn func(clientInfo *mcp.Implementation)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onInitialized = append(s.onInitialized, fn)
	s.mu.Unlock()
}

// OnClose appends an observer for connection teardown. Observers run in
// registration order, exactly once per connection.
func (s *Server) OnClose(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// MCPServer exposes the underlying SDK server. It is the integration point
// for SDK-owned transports such as the streamable HTTP handler.
func (s *Server) MCPServer() *mcp.Server { return s.mcpSrv }

// Bind connects the server to a transport. The returned error is fatal to
// establishing the connection.
func (s *Server) Bind(ctx context.Context, t mcp.Transport) error {
	ss, err := s.mcpSrv.Connect(ctx, t, nil)
	if err != nil {
		return fmt.Errorf("bind transport: %w", err)
	}
	s.observeSession(ss)
	return nil
}

// Wait blocks until the connection has closed and all close observers have
// run.
func (s *Server) Wait() {
	<-s.done
}

// Connect instantiates a fresh backend from the factory, runs its
// initialization to completion and binds the resulting server to the
// transport. This is the only place a backend is instantiated; initialization
// failure refuses the connection.
func Connect(ctx context.Context, factory BackendFactory, t mcp.Transport, opts ...Option) (*Server, error) {
	backend := factory()
	if init, ok := backend.(Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initialize backend %q: %w", backend.Name(), err)
		}
	}
	srv, err := NewServer(backend, opts...)
	if err != nil {
		return nil, err
	}
	if err := srv.Bind(ctx, t); err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *Server) middleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		s.observeSession(req.GetSession())
		switch method {
		case "initialize":
			if r, ok := req.(*mcp.ServerRequest[*mcp.InitializeParams]); ok && r.Params != nil {
				s.mu.Lock()
				s.clientInfo = r.Params.ClientInfo
				s.mu.Unlock()
			}
		case "notifications/initialized":
			res, err := next(ctx, method, req)
			s.fireInitialized()
			return res, err
		case "tools/list":
			return s.listTools(), nil
		case "tools/call":
			if r, ok := req.(*mcp.CallToolRequest); ok {
				return s.dispatch(ctx, r), nil
			}
		}
		return next(ctx, method, req)
	}
}

// listTools maps the captured catalog to the wire shape, preserving catalog
// order. Annotation hints derive from the tool type; openWorldHint is always
// true because tools act on systems outside the protocol's own model.
func (s *Server) listTools() *mcp.ListToolsResult {
	tools := make([]*mcp.Tool, 0, len(s.catalog))
	for _, t := range s.catalog {
		in := t.InputSchema
		if in == nil {
			in = permissiveObject()
		}
		tools = append(tools, &mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: in,
			Annotations: wireAnnotations(t),
		})
	}
	return &mcp.ListToolsResult{Tools: tools}
}

func wireAnnotations(t ToolSchema) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:           t.Title,
		ReadOnlyHint:    t.Type == ToolTypeReadOnly,
		DestructiveHint: boolPtr(t.Type == ToolTypeDestructive),
		OpenWorldHint:   boolPtr(true),
	}
}

// dispatch implements the call algorithm: lazy heartbeat start, catalog
// lookup, argument validation, then backend execution. Every failure mode
// surfaces as an isError result; nothing here may take down the connection.
func (s *Server) dispatch(ctx context.Context, req *mcp.CallToolRequest) (res *mcp.CallToolResult) {
	s.maybeStartHeartbeat()

	name := req.Params.Name
	ctx = logctx.WithToolCall(ctx, name)

	tool, ok := s.tools[name]
	if !ok {
		return errorResult(fmt.Sprintf("Tool %q not found", name))
	}

	args := req.Params.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var parsed any
	if err := json.Unmarshal(args, &parsed); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments for tool %q: %v", name, err))
	}
	if err := tool.input.Validate(parsed); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments for tool %q: %v", name, err))
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "tool call panicked", "tool", name, "panic", r)
			res = errorResult(fmt.Sprintf("tool %q panicked: %v", name, r))
		}
	}()

	out, err := s.backend.CallTool(ctx, tool.schema, args)
	if err != nil {
		s.log.WarnContext(ctx, "tool call failed", "tool", name, "err", err)
		return errorResult(err.Error())
	}
	return out
}

// observeSession latches the connection's session on first sight and starts
// the close watcher. A Server serves a single connection; later sessions are
// ignored.
func (s *Server) observeSession(sess mcp.Session) {
	ss, ok := sess.(*mcp.ServerSession)
	if !ok || ss == nil {
		return
	}
	s.mu.Lock()
	if s.sess != nil {
		s.mu.Unlock()
		return
	}
	s.sess = ss
	s.mu.Unlock()

	ctx := logctx.WithSession(context.Background(), ss.ID())
	s.log.InfoContext(ctx, "connection established", "backend", s.backend.Name())

	go func() {
		_ = ss.Wait()
		s.fireClosed()
	}()
}

func (s *Server) fireInitialized() {
	s.mu.Lock()
	info := s.clientInfo
	obs := slices.Clone(s.onInitialized)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(info)
	}
}

func (s *Server) fireClosed() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	obs := slices.Clone(s.onClose)
	close(s.done)
	s.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
	s.log.Info("connection closed", "backend", s.backend.Name())
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func boolPtr(b bool) *bool { return &b }
