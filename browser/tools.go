package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/zealous-tech/mcp-browser-go/mcpserver"
)

// Capability tags used by the built-in catalog.
const (
	CapabilityCore   = "core"
	CapabilityVision = "vision"
)

type navigateArgs struct {
	URL string `json:"url" jsonschema:"description=The URL to navigate to"`
}

type clickArgs struct {
	Ref string `json:"ref" jsonschema:"description=Element reference from the page snapshot"`
}

type typeArgs struct {
	Ref    string `json:"ref" jsonschema:"description=Element reference from the page snapshot"`
	Text   string `json:"text" jsonschema:"description=Text to type into the element"`
	Submit bool   `json:"submit,omitempty" jsonschema:"description=Press Enter after typing"`
}

type waitArgs struct {
	Seconds float64 `json:"seconds" jsonschema:"description=Seconds to wait,maximum=30"`
}

type emptyArgs struct{}

// DefaultTools returns the built-in catalog in its canonical order. The
// returned tools are safe to share; they hold no per-session state.
func DefaultTools() []*Tool {
	return []*Tool{
		NewTool(mcpserver.ToolSchema{
			Name:        "browser_navigate",
			Title:       "Navigate to a URL",
			Description: "Navigate the page to the given URL",
			Type:        mcpserver.ToolTypeDestructive,
		}, CapabilityCore, func(ctx context.Context, bctx *Context, args navigateArgs, resp *Response) error {
			page, err := bctx.Page(ctx)
			if err != nil {
				return err
			}
			if err := page.Navigate(ctx, args.URL); err != nil {
				return err
			}
			resp.AddText(fmt.Sprintf("Navigated to %s", args.URL))
			return nil
		}),

		NewTool(mcpserver.ToolSchema{
			Name:        "browser_navigate_back",
			Title:       "Go back",
			Description: "Go back to the previous page",
			Type:        mcpserver.ToolTypeDestructive,
		}, CapabilityCore, func(ctx context.Context, bctx *Context, _ emptyArgs, resp *Response) error {
			page, err := bctx.Page(ctx)
			if err != nil {
				return err
			}
			if err := page.GoBack(ctx); err != nil {
				return err
			}
			resp.AddText("Navigated back")
			return nil
		}),

		NewTool(mcpserver.ToolSchema{
			Name:        "browser_snapshot",
			Title:       "Page snapshot",
			Description: "Capture an accessibility snapshot of the current page",
			Type:        mcpserver.ToolTypeReadOnly,
		}, CapabilityCore, func(ctx context.Context, bctx *Context, _ emptyArgs, resp *Response) error {
			page, err := bctx.Page(ctx)
			if err != nil {
				return err
			}
			snap, err := page.Snapshot(ctx)
			if err != nil {
				return err
			}
			resp.AddText(snap)
			return nil
		}),

		NewTool(mcpserver.ToolSchema{
			Name:        "browser_click",
			Title:       "Click",
			Description: "Click an element on the page",
			Type:        mcpserver.ToolTypeDestructive,
		}, CapabilityCore, func(ctx context.Context, bctx *Context, args clickArgs, resp *Response) error {
			page, err := bctx.Page(ctx)
			if err != nil {
				return err
			}
			if err := page.Click(ctx, args.Ref); err != nil {
				return err
			}
			resp.AddText(fmt.Sprintf("Clicked element %s", args.Ref))
			return nil
		}),

		NewTool(mcpserver.ToolSchema{
			Name:        "browser_type",
			Title:       "Type text",
			Description: "Type text into an editable element",
			Type:        mcpserver.ToolTypeDestructive,
		}, CapabilityCore, func(ctx context.Context, bctx *Context, args typeArgs, resp *Response) error {
			page, err := bctx.Page(ctx)
			if err != nil {
				return err
			}
			if err := page.Type(ctx, args.Ref, args.Text, args.Submit); err != nil {
				return err
			}
			resp.AddText(fmt.Sprintf("Typed %q into element %s", args.Text, args.Ref))
			return nil
		}),

		NewTool(mcpserver.ToolSchema{
			Name:        "browser_wait",
			Title:       "Wait",
			Description: "Wait for the given number of seconds",
			Type:        mcpserver.ToolTypeReadOnly,
		}, CapabilityCore, func(ctx context.Context, _ *Context, args waitArgs, resp *Response) error {
			d := time.Duration(args.Seconds * float64(time.Second))
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			resp.AddText(fmt.Sprintf("Waited for %g seconds", args.Seconds))
			return nil
		}),

		NewTool(mcpserver.ToolSchema{
			Name:        "browser_close",
			Title:       "Close page",
			Description: "Close the current page",
			Type:        mcpserver.ToolTypeDestructive,
		}, CapabilityCore, func(ctx context.Context, bctx *Context, _ emptyArgs, resp *Response) error {
			if err := bctx.ClosePage(ctx); err != nil {
				return err
			}
			resp.AddText("Page closed")
			return nil
		}),

		NewTool(mcpserver.ToolSchema{
			Name:        "browser_take_screenshot",
			Title:       "Screenshot",
			Description: "Take a screenshot of the current page",
			Type:        mcpserver.ToolTypeReadOnly,
		}, CapabilityVision, func(ctx context.Context, bctx *Context, _ emptyArgs, resp *Response) error {
			page, err := bctx.Page(ctx)
			if err != nil {
				return err
			}
			shot, err := page.Screenshot(ctx)
			if err != nil {
				return err
			}
			resp.AddImage(shot, "image/png")
			return nil
		}),
	}
}
