package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zealous-tech/mcp-browser-go/mcpserver"
	"github.com/zealous-tech/mcp-browser-go/sessionlog"
)

const (
	backendName    = "browser"
	backendVersion = "0.1.0"
)

// Backend serves the browser tool catalog over one connection. It owns the
// connection's automation Context and its optional transcript store.
type Backend struct {
	tools   []*Tool
	byName  map[string]*Tool
	catalog []mcpserver.ToolSchema
	bctx    *Context
	cfg     *Config
	log     *slog.Logger

	transcript sessionlog.Store
	onClose    func()
	closeOnce  sync.Once
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) BackendOption {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// WithTools replaces the default catalog before capability filtering.
func WithTools(tools []*Tool) BackendOption {
	return func(b *Backend) { b.tools = tools }
}

// WithCloseFunc registers an owner-side callback invoked when the connection
// closes, before the automation context is disposed.
func WithCloseFunc(fn func()) BackendOption {
	return func(b *Backend) { b.onClose = fn }
}

// WithTranscriptStore installs a transcript store explicitly, bypassing the
// file store that Initialize would otherwise create for persistent sessions.
func WithTranscriptStore(s sessionlog.Store) BackendOption {
	return func(b *Backend) { b.transcript = s }
}

// NewBackend builds the backend for one connection. The tool catalog is
// filtered by the configuration's capability set up front and stays immutable
// afterwards.
func NewBackend(driver Driver, cfg *Config, opts ...BackendOption) *Backend {
	b := &Backend{
		tools: DefaultTools(),
		cfg:   cfg,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.tools = FilterTools(b.tools, cfg)
	b.byName = make(map[string]*Tool, len(b.tools))
	b.catalog = make([]mcpserver.ToolSchema, 0, len(b.tools))
	for _, t := range b.tools {
		b.byName[t.Schema.Name] = t
		b.catalog = append(b.catalog, t.Schema)
	}
	b.bctx = NewContext(driver, cfg, b.log)
	return b
}

// Name implements mcpserver.ServerBackend.
func (b *Backend) Name() string { return backendName }

// Version implements mcpserver.ServerBackend.
func (b *Backend) Version() string { return backendVersion }

// Context returns the backend's automation context.
func (b *Backend) Context() *Context { return b.bctx }

// Initialize opens the session transcript when the configuration asks for
// persistence. Not persisting is the common case and is not an error.
func (b *Backend) Initialize(ctx context.Context) error {
	if b.transcript != nil || !b.cfg.SaveSession {
		return nil
	}
	store, err := sessionlog.NewFileStore(b.cfg.OutputDir, b.bctx.ID())
	if err != nil {
		return fmt.Errorf("open session transcript: %w", err)
	}
	b.log.InfoContext(ctx, "session transcript enabled", "path", store.Path())
	b.transcript = store
	return nil
}

// Tools implements mcpserver.ServerBackend.
func (b *Backend) Tools() []mcpserver.ToolSchema { return b.catalog }

// CallTool implements mcpserver.ServerBackend. The schema comes from this
// backend's own catalog, so the lookup cannot miss; arguments arrive already
// validated. A fresh Response is composed per call, logged to the transcript
// if one exists, then serialized and discarded.
func (b *Backend) CallTool(ctx context.Context, schema mcpserver.ToolSchema, args json.RawMessage) (*mcp.CallToolResult, error) {
	tool := b.byName[schema.Name]
	if tool == nil {
		return nil, fmt.Errorf("tool %q not in catalog", schema.Name)
	}
	resp := NewResponse(schema.Name, args)
	if err := tool.Handle(ctx, b.bctx, args, resp); err != nil {
		resp.SetError(err.Error())
	}
	if b.transcript != nil {
		entry := sessionlog.Entry{
			Time:      time.Now(),
			Tool:      resp.ToolName(),
			Arguments: resp.Arguments(),
			Output:    resp.Text(),
			IsError:   resp.IsError(),
		}
		if err := b.transcript.Log(ctx, entry); err != nil {
			b.log.WarnContext(ctx, "transcript write failed", "err", err)
		}
	}
	return resp.Serialize(), nil
}

// ServerInitialized implements mcpserver.InitializedObserver by recording the
// peer identity on the shared automation context.
func (b *Backend) ServerInitialized(clientInfo *mcp.Implementation) {
	b.bctx.SetClientInfo(clientInfo)
}

// ServerClosed implements mcpserver.CloseObserver. It is idempotent: the
// owner callback runs once and the automation context is disposed once, in
// the background so that shutdown never blocks the close notification.
// Disposal errors are logged, never re-thrown.
func (b *Backend) ServerClosed() {
	b.closeOnce.Do(func() {
		if b.onClose != nil {
			b.onClose()
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := b.bctx.Dispose(ctx); err != nil {
				b.log.Error("dispose browser context", "err", err)
			}
			if b.transcript != nil {
				if err := b.transcript.Close(); err != nil {
					b.log.Error("close session transcript", "err", err)
				}
			}
		}()
	})
}
