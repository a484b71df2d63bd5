package browser

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Response accumulates one tool call's outcome: ordered text and image
// segments plus an error flag. A Response is created fresh per call, never
// reused, and becomes immutable once Serialize has run.
type Response struct {
	mu        sync.Mutex
	toolName  string
	args      json.RawMessage
	blocks    []mcp.Content
	texts     []string
	isError   bool
	finalized bool
}

// NewResponse creates the response for one invocation of the named tool.
func NewResponse(toolName string, args json.RawMessage) *Response {
	return &Response{toolName: toolName, args: args}
}

// ToolName returns the name of the tool this response belongs to.
func (r *Response) ToolName() string { return r.toolName }

// Arguments returns the raw arguments the tool was invoked with.
func (r *Response) Arguments() json.RawMessage { return r.args }

// AddText appends a text segment. Writes after Serialize are ignored.
func (r *Response) AddText(text string) {
	if text == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.blocks = append(r.blocks, &mcp.TextContent{Text: text})
	r.texts = append(r.texts, text)
}

// AddImage appends an image segment.
func (r *Response) AddImage(data []byte, mimeType string) {
	if len(data) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.blocks = append(r.blocks, &mcp.ImageContent{Data: data, MIMEType: mimeType})
}

// SetError flags the response as failed and appends the message as a text
// segment.
func (r *Response) SetError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.isError = true
	if msg != "" {
		r.blocks = append(r.blocks, &mcp.TextContent{Text: msg})
		r.texts = append(r.texts, msg)
	}
}

// IsError reports whether the call failed.
func (r *Response) IsError() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isError
}

// Text returns the accumulated text segments joined by newlines, for
// transcript logging.
func (r *Response) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.texts, "\n")
}

// Serialize finalizes the response into the wire-level result shape. It is
// idempotent; the returned result shares no mutable state with the Response.
func (r *Response) Serialize() *mcp.CallToolResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = true
	content := make([]mcp.Content, len(r.blocks))
	copy(content, r.blocks)
	return &mcp.CallToolResult{Content: content, IsError: r.isError}
}
