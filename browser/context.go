package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// contexts is the process-wide registry behind DisposeAll. It must stay safe
// to iterate and mutate from concurrently shutting-down sessions.
var contexts = struct {
	sync.Mutex
	m map[*Context]struct{}
}{m: make(map[*Context]struct{})}

// Context is one long-lived automation session. It is owned by exactly one
// backend and never shared across connections; the only cross-session touch
// point is the registry consumed by DisposeAll.
type Context struct {
	id     string
	driver Driver
	cfg    *Config
	log    *slog.Logger

	mu         sync.Mutex
	page       Page
	clientInfo *mcp.Implementation
	disposed   bool
}

// NewContext creates a session around the given driver and registers it for
// process-wide disposal.
func NewContext(driver Driver, cfg *Config, log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}
	c := &Context{
		id:     uuid.NewString(),
		driver: driver,
		cfg:    cfg,
		log:    log,
	}
	contexts.Lock()
	contexts.m[c] = struct{}{}
	contexts.Unlock()
	return c
}

// ID returns the session's unique id.
func (c *Context) ID() string { return c.id }

// Config returns the configuration the session was created with.
func (c *Context) Config() *Config { return c.cfg }

// SetClientInfo records the negotiated peer identity for downstream tools to
// consult. The runtime sets it after the initialize handshake.
func (c *Context) SetClientInfo(info *mcp.Implementation) {
	c.mu.Lock()
	c.clientInfo = info
	c.mu.Unlock()
}

// ClientInfo returns the peer identity, or nil before the handshake
// completes.
func (c *Context) ClientInfo() *mcp.Implementation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientInfo
}

// Page returns the session's current page, opening one on first use.
func (c *Context) Page(ctx context.Context) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, errors.New("browser context disposed")
	}
	if c.page != nil {
		return c.page, nil
	}
	page, err := c.driver.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	c.page = page
	return page, nil
}

// ClosePage closes the current page, if any. The next Page call opens a
// fresh one.
func (c *Context) ClosePage(ctx context.Context) error {
	c.mu.Lock()
	page := c.page
	c.page = nil
	c.mu.Unlock()
	if page == nil {
		return nil
	}
	return page.Close(ctx)
}

// Dispose tears the session down: closes the page and the driver and removes
// the context from the registry. It is idempotent.
func (c *Context) Dispose(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	page := c.page
	c.page = nil
	c.mu.Unlock()

	contexts.Lock()
	delete(contexts.m, c)
	contexts.Unlock()

	var errs []error
	if page != nil {
		if err := page.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if err := c.driver.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close driver: %w", err))
	}
	return errors.Join(errs...)
}

// DisposeAll disposes every live context in the process. Session transcripts
// and connection state are untouched; only automation resources are
// released.
func DisposeAll(ctx context.Context) error {
	contexts.Lock()
	all := make([]*Context, 0, len(contexts.m))
	for c := range contexts.m {
		all = append(all, c)
	}
	contexts.Unlock()

	var errs []error
	for _, c := range all {
		if err := c.Dispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
