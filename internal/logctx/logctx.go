// Package logctx enriches slog records with connection and tool-call
// attributes carried on the context.
package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates an slog.Handler with request-scoped attribute groups.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(sessionKey{}).(string); ok {
		r.AddAttrs(slog.Group("sess", slog.String("id", id)))
	}
	if name, ok := ctx.Value(toolKey{}).(string); ok {
		r.AddAttrs(slog.Group("tool", slog.String("name", name)))
	}
	return h.Handler.Handle(ctx, r)
}

type sessionKey struct{}

// WithSession tags the context with the connection's session id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

type toolKey struct{}

// WithToolCall tags the context with the tool being dispatched.
func WithToolCall(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolKey{}, name)
}
