// Command mcp-browser serves the browser tool catalog over MCP. With no
// listen address it speaks the stdio framing; with one it serves the
// streamable HTTP transport. A browser.Driver implementation must be linked
// into the binary and registered via browser.RegisterDriver.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joeshaw/envdecode"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zealous-tech/mcp-browser-go/browser"
	"github.com/zealous-tech/mcp-browser-go/httpserver"
	"github.com/zealous-tech/mcp-browser-go/internal/logctx"
	"github.com/zealous-tech/mcp-browser-go/mcpserver"
)

type config struct {
	// ListenAddr switches on the HTTP transport when set.
	ListenAddr string `env:"MCP_LISTEN_ADDR,default="`
	// ConfigFile points at a JSON tool configuration that is reloaded on
	// change. When empty, configuration comes from the environment.
	ConfigFile string `env:"BROWSER_CONFIG_FILE,default="`
	LogLevel   string `env:"LOG_LEVEL,default=info"`
}

func main() {
	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		slog.Error("decode config", "err", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	// Logs go to stderr: stdout belongs to the stdio transport.
	log := slog.New(logctx.Handler{Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config, log *slog.Logger) error {
	toolCfg, err := loadToolConfig(cfg)
	if err != nil {
		return err
	}

	// The live configuration is swapped atomically on file change; each new
	// connection picks up whatever is current.
	var current atomic.Pointer[browser.Config]
	current.Store(toolCfg)
	if cfg.ConfigFile != "" {
		go func() {
			err := browser.WatchConfig(ctx, cfg.ConfigFile, log, func(next *browser.Config) {
				current.Store(next)
				log.Info("tool configuration reloaded", "capabilities", next.Capabilities)
			})
			if err != nil && ctx.Err() == nil {
				log.Warn("config watch stopped", "err", err)
			}
		}()
	}

	factory := func() mcpserver.ServerBackend {
		c := current.Load()
		driver, err := browser.NewRegisteredDriver(ctx, c)
		if err != nil {
			log.Error("create driver", "err", err)
			return &unavailableBackend{err: err}
		}
		return browser.NewBackend(driver, c, browser.WithLogger(log))
	}

	if cfg.ListenAddr != "" {
		return httpserver.ListenAndServe(ctx, cfg.ListenAddr, "/mcp", factory, log, mcpserver.WithHeartbeat())
	}

	srv, err := mcpserver.Connect(ctx, factory, &mcp.StdioTransport{}, mcpserver.WithLogger(log), mcpserver.WithHeartbeat())
	if err != nil {
		return err
	}
	srv.Wait()
	return nil
}

func loadToolConfig(cfg *config) (*browser.Config, error) {
	if cfg.ConfigFile != "" {
		return browser.LoadConfigFile(cfg.ConfigFile)
	}
	return browser.FromEnv()
}

// unavailableBackend refuses the connection during initialization when the
// driver cannot be built. The connection never reaches the tool phase.
type unavailableBackend struct {
	err error
}

func (u *unavailableBackend) Name() string                  { return "browser" }
func (u *unavailableBackend) Version() string               { return "0.0.0" }
func (u *unavailableBackend) Tools() []mcpserver.ToolSchema { return nil }

func (u *unavailableBackend) Initialize(ctx context.Context) error { return u.err }

func (u *unavailableBackend) CallTool(ctx context.Context, schema mcpserver.ToolSchema, args json.RawMessage) (*mcp.CallToolResult, error) {
	return nil, u.err
}
