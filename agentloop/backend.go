// Package agentloop exposes the whole browser tool catalog as a single
// coarse "perform this task" tool. The implementation of that one tool is a
// full nested protocol session: the backend stands up a leaf browser backend
// behind an in-process transport, keeps a client handle to it, and hands that
// client to a task-execution loop on every call.
package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zealous-tech/mcp-browser-go/browser"
	"github.com/zealous-tech/mcp-browser-go/mcpserver"
)

// TaskRunner drives the nested session to complete one free-text task. It
// may issue any number of calls through the tools session, including none,
// and returns a single natural-language result.
type TaskRunner interface {
	Run(ctx context.Context, tools *mcp.ClientSession, task string) (string, error)
}

const (
	taskToolName = "browser"
	loopName     = "browser-task-loop"
	loopVersion  = "0.1.0"
)

type taskArgs struct {
	Task string `json:"task" jsonschema:"description=The task to perform with the browser"`
}

// Backend is the composite server backend: one advertised tool, one owned
// nested session.
type Backend struct {
	factory mcpserver.BackendFactory
	runner  TaskRunner
	log     *slog.Logger

	session   *mcp.ClientSession
	closeOnce sync.Once
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBackend builds the composite backend. The factory produces the nested
// leaf backend, typically wrapping a fresh automation context; the runner is
// the task-execution collaborator.
func NewBackend(factory mcpserver.BackendFactory, runner TaskRunner, opts ...Option) *Backend {
	b := &Backend{
		factory: factory,
		runner:  runner,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements mcpserver.ServerBackend.
func (b *Backend) Name() string { return loopName }

// Version implements mcpserver.ServerBackend.
func (b *Backend) Version() string { return loopVersion }

// Tools implements mcpserver.ServerBackend. The catalog is exactly one
// coarse-grained tool; the nested catalog is hidden behind it.
func (b *Backend) Tools() []mcpserver.ToolSchema {
	return []mcpserver.ToolSchema{{
		Name:        taskToolName,
		Title:       "Perform a browser task",
		Description: "Perform a task with the browser. Describe the goal; the steps are worked out autonomously.",
		InputSchema: mcpserver.MustReflectSchema[taskArgs](),
		Type:        mcpserver.ToolTypeDestructive,
	}}
}

// Initialize implements mcpserver.Initializer. It establishes the nested
// session over the in-process transport and probes it; any failure here must
// refuse the outer connection.
func (b *Backend) Initialize(ctx context.Context) error {
	clientEnd, serverEnd := mcpserver.NewInProcessTransports()
	if _, err := mcpserver.Connect(ctx, b.factory, serverEnd, mcpserver.WithLogger(b.log)); err != nil {
		return fmt.Errorf("establish nested session: %w", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: loopName, Version: loopVersion}, nil)
	session, err := client.Connect(ctx, clientEnd, nil)
	if err != nil {
		return fmt.Errorf("connect nested client: %w", err)
	}
	if err := session.Ping(ctx, nil); err != nil {
		_ = session.Close()
		return fmt.Errorf("probe nested session: %w", err)
	}
	b.session = session
	return nil
}

// CallTool implements mcpserver.ServerBackend by delegating the task to the
// runner, which autonomously issues calls against the nested catalog. The
// runner's result comes back as exactly one text segment.
func (b *Backend) CallTool(ctx context.Context, schema mcpserver.ToolSchema, args json.RawMessage) (*mcp.CallToolResult, error) {
	if b.session == nil {
		return nil, errors.New("nested session not established")
	}
	var a taskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	out, err := b.runner.Run(ctx, b.session, a.Task)
	if err != nil {
		return nil, fmt.Errorf("task failed: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: out}},
	}, nil
}

// ServerClosed implements mcpserver.CloseObserver. The nested automation
// context's lifetime is process-scoped rather than connection-scoped, so
// teardown disposes every outstanding context, not just the nested one.
func (b *Backend) ServerClosed() {
	b.closeOnce.Do(func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := browser.DisposeAll(ctx); err != nil {
				b.log.Error("dispose browser contexts", "err", err)
			}
			if b.session != nil {
				if err := b.session.Close(); err != nil {
					b.log.Warn("close nested session", "err", err)
				}
			}
		}()
	})
}
