package mcpserver

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestInProcessTransport(t *testing.T) {
	t.Run("shared session id", func(t *testing.T) {
		clientEnd, serverEnd := NewInProcessTransports()
		cc, err := clientEnd.Connect(t.Context())
		if err != nil {
			t.Fatalf("client connect: %v", err)
		}
		sc, err := serverEnd.Connect(t.Context())
		if err != nil {
			t.Fatalf("server connect: %v", err)
		}
		if cc.SessionID() == "" {
			t.Fatal("session id must not be empty")
		}
		if cc.SessionID() != sc.SessionID() {
			t.Fatalf("ends disagree on session id: %q vs %q", cc.SessionID(), sc.SessionID())
		}
	})

	t.Run("distinct pairs get distinct ids", func(t *testing.T) {
		a, _ := NewInProcessTransports()
		b, _ := NewInProcessTransports()
		ac, _ := a.Connect(t.Context())
		bc, _ := b.Connect(t.Context())
		if ac.SessionID() == bc.SessionID() {
			t.Fatal("pairs share a session id")
		}
	})

	t.Run("close propagates", func(t *testing.T) {
		clientEnd, serverEnd := NewInProcessTransports()
		cc, _ := clientEnd.Connect(t.Context())
		sc, _ := serverEnd.Connect(t.Context())

		if err := cc.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		if _, err := sc.Read(t.Context()); !errors.Is(err, io.EOF) {
			t.Fatalf("peer read after close: want io.EOF, got %v", err)
		}
		if err := sc.Write(t.Context(), nil); !errors.Is(err, ErrTransportClosed) {
			t.Fatalf("peer write after close: want ErrTransportClosed, got %v", err)
		}
		if _, err := serverEnd.Connect(t.Context()); !errors.Is(err, ErrTransportClosed) {
			t.Fatalf("connect after close: want ErrTransportClosed, got %v", err)
		}

		// Closing again, from either end, is a no-op.
		if err := sc.Close(); err != nil {
			t.Fatalf("second close: %v", err)
		}
	})

	t.Run("read honors context", func(t *testing.T) {
		clientEnd, _ := NewInProcessTransports()
		cc, _ := clientEnd.Connect(t.Context())

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()
		if _, err := cc.Read(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("want DeadlineExceeded, got %v", err)
		}
	})
}
