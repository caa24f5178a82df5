// Package sqlite persists layout cache entries in a local SQLite database
// so layouts survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"screengraph-backend/application/ports"
	"screengraph-backend/domain/core/valueobjects"
)

const schema = `
CREATE TABLE IF NOT EXISTS layout_cache (
	collection   TEXT PRIMARY KEY,
	fingerprint  TEXT NOT NULL,
	positions    TEXT NOT NULL,
	stale_ids    TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
`

// LayoutCacheStore stores one row per collection. Positions and stale ids
// are serialized as JSON; the row is replaced wholesale on Store.
type LayoutCacheStore struct {
	conn *sql.DB
}

type positionRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewLayoutCacheStore opens (or creates) the database at path and ensures
// the schema exists
func NewLayoutCacheStore(path string) (*LayoutCacheStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Single writer, a couple of readers
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &LayoutCacheStore{conn: conn}, nil
}

// Restore returns the collection's entry only when the stored fingerprint
// matches exactly
func (s *LayoutCacheStore) Restore(ctx context.Context, collection string, fingerprint valueobjects.Fingerprint) (*ports.LayoutCacheEntry, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT fingerprint, positions, stale_ids, created_at FROM layout_cache WHERE collection = ?`,
		collection)

	var (
		storedFP      string
		positionsJSON string
		staleJSON     string
		createdAt     int64
	)
	if err := row.Scan(&storedFP, &positionsJSON, &staleJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	if valueobjects.Fingerprint(storedFP) != fingerprint {
		return nil, nil
	}

	positions, err := decodePositions(positionsJSON)
	if err != nil {
		return nil, fmt.Errorf("decoding cached positions: %w", err)
	}
	var stale []valueobjects.ItemID
	if err := json.Unmarshal([]byte(staleJSON), &stale); err != nil {
		return nil, fmt.Errorf("decoding stale ids: %w", err)
	}

	return &ports.LayoutCacheEntry{
		Fingerprint: fingerprint,
		Positions:   positions,
		StaleIDs:    stale,
		CreatedAt:   time.Unix(0, createdAt).UTC(),
	}, nil
}

// Store replaces the collection's row; a fresh store clears stale ids
func (s *LayoutCacheStore) Store(ctx context.Context, collection string, entry *ports.LayoutCacheEntry) error {
	positionsJSON, err := encodePositions(entry.Positions)
	if err != nil {
		return fmt.Errorf("encoding positions: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO layout_cache (collection, fingerprint, positions, stale_ids, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		collection, string(entry.Fingerprint), positionsJSON, "[]", createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// InvalidateRegion merges the given ids into the stored stale set
func (s *LayoutCacheStore) InvalidateRegion(ctx context.Context, collection string, ids []valueobjects.ItemID) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting invalidation: %w", err)
	}
	defer tx.Rollback()

	var staleJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT stale_ids FROM layout_cache WHERE collection = ?`, collection).Scan(&staleJSON)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading stale ids: %w", err)
	}

	var existing []valueobjects.ItemID
	if err := json.Unmarshal([]byte(staleJSON), &existing); err != nil {
		return fmt.Errorf("decoding stale ids: %w", err)
	}

	merged := mergeIDs(existing, ids)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding stale ids: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE layout_cache SET stale_ids = ? WHERE collection = ?`,
		string(encoded), collection); err != nil {
		return fmt.Errorf("writing stale ids: %w", err)
	}
	return tx.Commit()
}

// Close checkpoints and closes the database
func (s *LayoutCacheStore) Close() error {
	if s.conn == nil {
		return nil
	}
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := s.conn.Close()
	s.conn = nil
	return err
}

func encodePositions(positions map[valueobjects.ItemID]valueobjects.Position) (string, error) {
	records := make(map[valueobjects.ItemID]positionRecord, len(positions))
	for id, p := range positions {
		records[id] = positionRecord{X: p.X(), Y: p.Y()}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodePositions(encoded string) (map[valueobjects.ItemID]valueobjects.Position, error) {
	var records map[valueobjects.ItemID]positionRecord
	if err := json.Unmarshal([]byte(encoded), &records); err != nil {
		return nil, err
	}
	positions := make(map[valueobjects.ItemID]valueobjects.Position, len(records))
	for id, rec := range records {
		p, err := valueobjects.NewPosition(rec.X, rec.Y)
		if err != nil {
			return nil, err
		}
		positions[id] = p
	}
	return positions, nil
}

func mergeIDs(existing, incoming []valueobjects.ItemID) []valueobjects.ItemID {
	seen := make(map[valueobjects.ItemID]struct{}, len(existing)+len(incoming))
	merged := make([]valueobjects.ItemID, 0, len(existing)+len(incoming))
	for _, id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range incoming {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	return merged
}
