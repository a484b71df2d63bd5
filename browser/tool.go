package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zealous-tech/mcp-browser-go/mcpserver"
)

// Tool is one named, schema-described unit of browser functionality. Handle
// mutates the passed Response rather than returning a value; the backend
// serializes the Response after the call.
type Tool struct {
	Schema mcpserver.ToolSchema
	// Capability gates catalog inclusion; see Config.
	Capability string
	Handle     func(ctx context.Context, bctx *Context, args json.RawMessage, resp *Response) error
}

// NewTool builds a Tool whose handler takes decoded arguments of type A. The
// input schema is reflected from A unless the schema already carries one.
// Arguments reaching the handler have passed schema validation upstream; the
// decode here only maps them onto the struct.
func NewTool[A any](schema mcpserver.ToolSchema, capability string, handler func(ctx context.Context, bctx *Context, args A, resp *Response) error) *Tool {
	if schema.InputSchema == nil {
		schema.InputSchema = mcpserver.MustReflectSchema[A]()
	}
	return &Tool{
		Schema:     schema,
		Capability: capability,
		Handle: func(ctx context.Context, bctx *Context, raw json.RawMessage, resp *Response) error {
			var args A
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return fmt.Errorf("decode arguments for %q: %w", schema.Name, err)
				}
			}
			return handler(ctx, bctx, args, resp)
		},
	}
}
