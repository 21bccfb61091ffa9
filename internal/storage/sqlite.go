package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	_ "modernc.org/sqlite"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	adventure_id TEXT NOT NULL,
	data         BLOB NOT NULL,
	updated_at   INTEGER NOT NULL,
	expires_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions (expires_at);`

// SQLiteStorage implements the Storage interface with snapshots in a local
// SQLite database and adventure documents on the filesystem.
type SQLiteStorage struct {
	catalog
	db     *sql.DB
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// Ensure SQLiteStorage implements Storage interface
var _ storage.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (and if needed creates) the database at path.
func NewSQLiteStorage(ctx context.Context, path string, dataDir string, ttl time.Duration, logger *slog.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SQLiteStorage{
		catalog: newCatalog(dataDir, logger),
		db:      db,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", "error", err)
		return err
	}
	s.logger.Info("SQLite database closed")
	return nil
}

func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	now := s.now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, adventure_id, data, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			adventure_id = excluded.adventure_id,
			data = excluded.data,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		id.String(), snap.AdventureID, data, now.UnixMilli(), now.Add(s.ttl).UnixMilli())
	if err != nil {
		s.logger.Error("Failed to save snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns (nil, nil) for missing or expired sessions. Expired rows
// are removed on read.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	var (
		data    []byte
		expires int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, expires_at FROM sessions WHERE id = ?`, id.String()).Scan(&data, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Session not found", "uuid", id)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if s.now().UnixMilli() >= expires {
		s.logger.Info("Session expired", "uuid", id)
		if err := s.DeleteSnapshot(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SQLiteStorage) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String()); err != nil {
		s.logger.Error("Failed to delete snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// PurgeExpired removes every expired session and reports how many went.
func (s *SQLiteStorage) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}
