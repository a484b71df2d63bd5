package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Heartbeat cadence. The period is fixed and unconditional while the
// connection is healthy; a single failed or timed-out probe closes the
// connection. The loop keeps idle long-poll connections from being reaped by
// intermediary infrastructure while surfacing real peer death promptly.
const (
	heartbeatInterval = 3 * time.Second
	heartbeatTimeout  = 5 * time.Second
)

// maybeStartHeartbeat starts the heartbeat loop on the first tool call and
// never again for the life of the connection.
func (s *Server) maybeStartHeartbeat() {
	if !s.heartbeat {
		return
	}
	s.mu.Lock()
	if s.hbStarted || s.closed || s.sess == nil {
		s.mu.Unlock()
		return
	}
	s.hbStarted = true
	ss := s.sess
	s.mu.Unlock()
	go s.runHeartbeat(ss)
}

func (s *Server) runHeartbeat(ss *mcp.ServerSession) {
	ticker := time.NewTicker(s.hbInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		// Race the probe against its timeout; the context cancels the loser.
		ctx, cancel := context.WithTimeout(context.Background(), s.hbTimeout)
		err := ss.Ping(ctx, nil)
		cancel()
		if err != nil {
			s.log.Warn("heartbeat probe failed, closing connection",
				"backend", s.backend.Name(), "err", err)
			_ = ss.Close()
			return
		}
	}
}
