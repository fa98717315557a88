package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS session_snapshots (
    key TEXT PRIMARY KEY,
    state BYTEA NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *Store) loadDB(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM session_snapshots WHERE key=$1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) saveDB(ctx context.Context, key string, data []byte) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO session_snapshots (key, state, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key)
DO UPDATE SET state=EXCLUDED.state, updated_at=EXCLUDED.updated_at
`, key, data, time.Now())
	return err
}

func (s *Store) deleteDB(ctx context.Context, key string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE key=$1`, key)
	return err
}
