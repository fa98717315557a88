package feedback

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type MemoryRelay struct {
	mu   sync.RWMutex
	data map[string][]Record
}

func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{data: make(map[string][]Record)}
}

func (r *MemoryRelay) Append(_ context.Context, path string, rec Record) error {
	if r == nil {
		return fmt.Errorf("relay is nil")
	}
	path = normalizePath(path)
	if path == "" {
		return fmt.Errorf("path is required")
	}
	rec.State = append([]byte(nil), rec.State...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[path] = append(r.data[path], rec)
	return nil
}

func (r *MemoryRelay) List(_ context.Context, path string) ([]Record, error) {
	if r == nil {
		return nil, fmt.Errorf("relay is nil")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Record(nil), r.data[normalizePath(path)]...), nil
}

func normalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}
