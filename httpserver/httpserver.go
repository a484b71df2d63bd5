// Package httpserver serves backends over the streamable HTTP transport.
// Each inbound MCP connection gets its own backend instance from the factory, the
// same per-connection isolation the stdio path has.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zealous-tech/mcp-browser-go/mcpserver"
)

// Handler builds the HTTP handler. MCP traffic is served at path (defaults
// to "/mcp" when empty); a liveness probe lives at /healthz.
func Handler(path string, factory mcpserver.BackendFactory, log *slog.Logger, opts ...mcpserver.Option) http.Handler {
	if path == "" {
		path = "/mcp"
	}
	if log == nil {
		log = slog.Default()
	}
	opts = append([]mcpserver.Option{mcpserver.WithLogger(log)}, opts...)

	streamable := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		backend := factory()
		if init, ok := backend.(mcpserver.Initializer); ok {
			if err := init.Initialize(r.Context()); err != nil {
				log.Error("initialize backend", "err", err)
				return nil
			}
		}
		srv, err := mcpserver.NewServer(backend, opts...)
		if err != nil {
			log.Error("build server", "err", err)
			return nil
		}
		return srv.MCPServer()
	}, nil)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle(path, streamable)
	r.Handle(path+"/*", streamable)
	return r
}

// ListenAndServe runs the handler on addr until ctx is cancelled, then
// drains in-flight requests.
func ListenAndServe(ctx context.Context, addr, path string, factory mcpserver.BackendFactory, log *slog.Logger, opts ...mcpserver.Option) error {
	if log == nil {
		log = slog.Default()
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: Handler(path, factory, log, opts...),
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
