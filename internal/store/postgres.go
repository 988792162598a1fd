package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tendant/simple-mediasync/pkg/status"
)

// Postgres stores status words in a single table. The status column is a
// BIGINT holding the uint32 raw word so the completed flag (bit 31) never
// collides with the sign bit.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Close() error { return s.db.Close() }

const ddl = `
CREATE TABLE IF NOT EXISTS item_status (
	item_id    UUID        NOT NULL,
	kind       TEXT        NOT NULL,
	status     BIGINT      NOT NULL DEFAULT 0,
	parts      JSONB       NOT NULL DEFAULT '{}',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (item_id, kind)
)`

// Migrate creates the item_status table when it does not exist yet.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create item_status table: %w", err)
	}
	return nil
}

func (s *Postgres) EnsureItem(ctx context.Context, item Item, parts map[string]string) error {
	partsJSON, err := json.Marshal(orEmpty(parts))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO item_status (item_id, kind, status, parts)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (item_id, kind) DO NOTHING
	`, item.ID, item.Kind, partsJSON)
	return err
}

func (s *Postgres) GetStatus(ctx context.Context, item Item) (uint32, error) {
	var raw int64
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM item_status WHERE item_id = $1 AND kind = $2
	`, item.ID, item.Kind).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return uint32(raw), nil
}

func (s *Postgres) SaveStatus(ctx context.Context, item Item, raw uint32) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO item_status (item_id, kind, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, kind) DO UPDATE
		   SET status = EXCLUDED.status, updated_at = now()
	`, item.ID, item.Kind, int64(raw))
	return err
}

func (s *Postgres) ListPending(ctx context.Context, kind string, limit int) ([]PendingItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, kind, status, parts
		  FROM item_status
		 WHERE kind = $1 AND status < $2
		 ORDER BY updated_at
		 LIMIT $3
	`, kind, int64(status.CompletedFlag), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingItem
	for rows.Next() {
		var (
			p         PendingItem
			raw       int64
			partsJSON []byte
		)
		if err := rows.Scan(&p.ID, &p.Kind, &raw, &partsJSON); err != nil {
			return nil, err
		}
		p.Status = uint32(raw)
		if len(partsJSON) > 0 && string(partsJSON) != "null" {
			if err := json.Unmarshal(partsJSON, &p.Parts); err != nil {
				return nil, fmt.Errorf("decode parts for %s: %w", p.ID, err)
			}
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func orEmpty(parts map[string]string) map[string]string {
	if parts == nil {
		return map[string]string{}
	}
	return parts
}
