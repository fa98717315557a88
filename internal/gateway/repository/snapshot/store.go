package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store keeps serialized session state by key, either in a JSON file or in
// Postgres. An empty file path keeps everything in memory.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	byKey    map[string][]byte

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, []byte]
}

func New(path string) *Store {
	return &Store{
		path:  strings.TrimSpace(path),
		byKey: make(map[string][]byte),
	}
}

func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, []byte](256)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

// Open picks Postgres when dsn is set and falls back to the file backend
// when the database is unreachable.
func Open(path, dsn string, logger *slog.Logger) *Store {
	if strings.TrimSpace(dsn) == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		if logger != nil {
			logger.Warn("session snapshots fall back to file", "path", path, "error", err)
		}
		return New(path)
	}
	return s
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("store is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("key is required")
	}
	if s.db != nil {
		if cached, ok := s.cache.Get(key); ok {
			return append([]byte(nil), cached...), true, nil
		}
		data, ok, err := s.loadDB(ctx, key)
		if err == nil && ok {
			s.cache.Add(key, data)
		}
		return data, ok, err
	}
	return s.loadFile(key)
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key is required")
	}
	data = append([]byte(nil), data...)
	if s.db != nil {
		if err := s.saveDB(ctx, key, data); err != nil {
			s.cache.Remove(key)
			return err
		}
		s.cache.Add(key, data)
		return nil
	}
	return s.saveFile(key, data)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	key = strings.TrimSpace(key)
	if s.db != nil {
		s.cache.Remove(key)
		return s.deleteDB(ctx, key)
	}
	return s.deleteFile(key)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
