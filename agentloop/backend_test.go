package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zealous-tech/mcp-browser-go/mcpserver"
)

// leafBackend is a stand-in for the nested browser backend.
type leafBackend struct {
	initErr error
}

type leafArgs struct {
	Msg string `json:"msg"`
}

func (l *leafBackend) Name() string    { return "leaf" }
func (l *leafBackend) Version() string { return "0.0.1" }

func (l *leafBackend) Initialize(ctx context.Context) error { return l.initErr }

func (l *leafBackend) Tools() []mcpserver.ToolSchema {
	return []mcpserver.ToolSchema{{
		Name:        "leaf_echo",
		Description: "Echo for the nested session.",
		InputSchema: mcpserver.MustReflectSchema[leafArgs](),
		Type:        mcpserver.ToolTypeReadOnly,
	}}
}

func (l *leafBackend) CallTool(ctx context.Context, schema mcpserver.ToolSchema, args json.RawMessage) (*mcp.CallToolResult, error) {
	var a leafArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "leaf says: " + a.Msg}},
	}, nil
}

// sessionRunner exercises the nested catalog for real: it lists the tools
// and relays the task through the nested echo tool.
type sessionRunner struct {
	err error
}

func (r *sessionRunner) Run(ctx context.Context, tools *mcp.ClientSession, task string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	listed, err := tools.ListTools(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("list nested tools: %w", err)
	}
	if len(listed.Tools) != 1 || listed.Tools[0].Name != "leaf_echo" {
		return "", fmt.Errorf("unexpected nested catalog: %+v", listed.Tools)
	}
	res, err := tools.CallTool(ctx, &mcp.CallToolParams{
		Name:      "leaf_echo",
		Arguments: map[string]any{"msg": task},
	})
	if err != nil {
		return "", err
	}
	tc := res.Content[0].(*mcp.TextContent)
	return tc.Text, nil
}

func connectComposite(t *testing.T, b *Backend) *mcp.ClientSession {
	t.Helper()
	clientEnd, serverEnd := mcpserver.NewInProcessTransports()
	if _, err := mcpserver.Connect(t.Context(), func() mcpserver.ServerBackend { return b }, serverEnd); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "loop-test", Version: "1"}, nil)
	cs, err := client.Connect(t.Context(), clientEnd, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestCompositeCatalog(t *testing.T) {
	b := NewBackend(func() mcpserver.ServerBackend { return &leafBackend{} }, &sessionRunner{})
	cs := connectComposite(t, b)

	res, err := cs.ListTools(t.Context(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(res.Tools) != 1 {
		t.Fatalf("composite must expose exactly one tool, got %d", len(res.Tools))
	}
	if res.Tools[0].Name != "browser" {
		t.Errorf("tool name: want %q, got %q", "browser", res.Tools[0].Name)
	}
}

func TestCompositeCallDelegates(t *testing.T) {
	b := NewBackend(func() mcpserver.ServerBackend { return &leafBackend{} }, &sessionRunner{})
	cs := connectComposite(t, b)

	res, err := cs.CallTool(t.Context(), &mcp.CallToolParams{
		Name:      "browser",
		Arguments: map[string]any{"task": "open the docs"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res.Content)
	}
	if len(res.Content) != 1 {
		t.Fatalf("want exactly one content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("want TextContent, got %T", res.Content[0])
	}
	if want := "leaf says: open the docs"; tc.Text != want {
		t.Errorf("want %q, got %q", want, tc.Text)
	}
}

func TestCompositeRunnerFailure(t *testing.T) {
	b := NewBackend(
		func() mcpserver.ServerBackend { return &leafBackend{} },
		&sessionRunner{err: errors.New("model unavailable")},
	)
	cs := connectComposite(t, b)

	res, err := cs.CallTool(t.Context(), &mcp.CallToolParams{
		Name:      "browser",
		Arguments: map[string]any{"task": "anything"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected isError result")
	}
	tc := res.Content[0].(*mcp.TextContent)
	if !strings.Contains(tc.Text, "model unavailable") {
		t.Errorf("cause missing from result: %q", tc.Text)
	}
}

func TestCompositeInitializeFailure(t *testing.T) {
	b := NewBackend(
		func() mcpserver.ServerBackend { return &leafBackend{initErr: errors.New("engine down")} },
		&sessionRunner{},
	)

	_, serverEnd := mcpserver.NewInProcessTransports()
	_, err := mcpserver.Connect(t.Context(), func() mcpserver.ServerBackend { return b }, serverEnd)
	if err == nil {
		t.Fatal("expected connect to fail when the nested session cannot start")
	}
	if !strings.Contains(err.Error(), "engine down") {
		t.Errorf("error should carry the cause: %v", err)
	}
}

func TestCompositeClosesNestedSession(t *testing.T) {
	b := NewBackend(func() mcpserver.ServerBackend { return &leafBackend{} }, &sessionRunner{})
	cs := connectComposite(t, b)

	nested := b.session
	if nested == nil {
		t.Fatal("nested session not established")
	}
	if err := nested.Ping(t.Context(), nil); err != nil {
		t.Fatalf("nested ping: %v", err)
	}

	if err := cs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		err := nested.Ping(ctx, nil)
		cancel()
		if err != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("nested session still alive after close")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
