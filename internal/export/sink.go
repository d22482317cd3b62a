package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink stores a finished export payload.
type Sink interface {
	Save(ctx context.Context, filename, contentType string, payload []byte) error
}

// FileSink writes exports into Dir.
type FileSink struct {
	Dir string
}

func (s FileSink) Save(ctx context.Context, filename, _ string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

type MemoryFile struct {
	ContentType string
	Payload     []byte
}

// MemorySink keeps exports in memory.
type MemorySink struct {
	mu    sync.Mutex
	files map[string]MemoryFile
}

func NewMemorySink() *MemorySink { return &MemorySink{files: map[string]MemoryFile{}} }

func (s *MemorySink) Save(_ context.Context, filename, contentType string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filename] = MemoryFile{ContentType: contentType, Payload: append([]byte(nil), payload...)}
	return nil
}

func (s *MemorySink) File(name string) (MemoryFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[name]
	return f, ok
}

func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
