package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

func (s *Store) ensureLoadedFile() error {
	s.loadOnce.Do(func() {
		if s.path == "" {
			return
		}
		b, err := os.ReadFile(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			s.loadErr = err
			return
		}
		var rows map[string]json.RawMessage
		if err := json.Unmarshal(b, &rows); err != nil {
			s.loadErr = fmt.Errorf("decode %s: %w", s.path, err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for key, raw := range rows {
			s.byKey[key] = []byte(raw)
		}
	})
	return s.loadErr
}

func (s *Store) loadFile(key string) ([]byte, bool, error) {
	if err := s.ensureLoadedFile(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.byKey[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

// saveFile rewrites the whole file. A file that failed to load is replaced.
func (s *Store) saveFile(key string, data []byte) error {
	_ = s.ensureLoadedFile()
	s.mu.Lock()
	s.byKey[key] = data
	s.mu.Unlock()
	return s.flushFile()
}

func (s *Store) deleteFile(key string) error {
	_ = s.ensureLoadedFile()
	s.mu.Lock()
	delete(s.byKey, key)
	s.mu.Unlock()
	return s.flushFile()
}

func (s *Store) flushFile() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	rows := make(map[string]json.RawMessage, len(s.byKey))
	for key, raw := range s.byKey {
		if json.Valid(raw) {
			rows[key] = raw
		}
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
