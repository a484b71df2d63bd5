// Package sessionlog persists per-session tool-call transcripts. A transcript
// receives exactly one entry per tool call; stores are owned by a single
// backend and closed when its connection goes away.
package sessionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one recorded tool call.
type Entry struct {
	Time      time.Time       `json:"time"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Output    string          `json:"output,omitempty"`
	IsError   bool            `json:"isError,omitempty"`
}

// Store receives transcript entries for one session.
type Store interface {
	Log(ctx context.Context, e Entry) error
	Close() error
}

// FileStore appends entries to a markdown transcript on disk.
type FileStore struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewFileStore creates the transcript file for the given session under dir,
// creating dir as needed.
func NewFileStore(dir, sessionID string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	path := filepath.Join(dir, "session-"+sessionID+".md")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return &FileStore{f: f, path: path}, nil
}

// Path returns the transcript's location on disk.
func (s *FileStore) Path() string { return s.path }

// Log implements Store.
func (s *FileStore) Log(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := ""
	if e.IsError {
		status = " (error)"
	}
	args := string(e.Arguments)
	if args == "" {
		args = "{}"
	}
	_, err := fmt.Fprintf(s.f, "### %s%s\n- time: %s\n- args: `%s`\n\n%s\n\n",
		e.Tool, status, e.Time.Format(time.RFC3339), args, e.Output)
	if err != nil {
		return fmt.Errorf("append transcript entry: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
