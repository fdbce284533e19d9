package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/naveenspark/tradedesk/pkg/domain"

	_ "modernc.org/sqlite"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// SQLiteMirror stores the session keys in a single-table SQLite database.
type SQLiteMirror struct {
	db *sql.DB
}

// NewSQLiteMirror opens (creating if needed) the database at dbPath.
func NewSQLiteMirror(dbPath string) (*SQLiteMirror, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	m := &SQLiteMirror{db: db}
	if err := m.ensureSchema(context.Background()); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return m, nil
}

func (m *SQLiteMirror) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS session_kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create session_kv table: %w", err)
	}
	return nil
}

func (m *SQLiteMirror) Load(ctx context.Context) (Snapshot, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT key, value FROM session_kv WHERE key IN (?, ?)`, keyToken, keyUser)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var s Snapshot
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Snapshot{}, fmt.Errorf("scan session: %w", err)
		}
		switch key {
		case keyToken:
			s.Token = value
		case keyUser:
			var u domain.User
			if err := json.Unmarshal([]byte(value), &u); err != nil {
				return Snapshot{}, fmt.Errorf("%w: user: %v", ErrCorrupt, err)
			}
			s.User = &u
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate session: %w", err)
	}
	return s, nil
}

func (m *SQLiteMirror) Save(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const stmt = `
INSERT INTO session_kv (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value=excluded.value,
  updated_at=excluded.updated_at;
`
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, stmt, keyToken, s.Token, now); err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, stmt, keyUser, string(data), now); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (m *SQLiteMirror) Clear(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key IN (?, ?)`, keyToken, keyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}
