package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/fibtiles/game/service"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	config_name      TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL,
	last_accessed_at TIMESTAMP NOT NULL,
	game_state       TEXT NOT NULL
);`

// SQLitePersistence implements SessionPersistence on a single SQLite database.
// Game state is stored as JSON in the game_state column.
type SQLitePersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
	timeout       time.Duration
}

// NewSQLitePersistence opens (and creates if missing) the database at path
func NewSQLitePersistence(path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	// Ensure directory exists for ./data/sessions.db, etc.
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps writers serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &SQLitePersistence{
		db:            db,
		configManager: configManager,
		timeout:       5 * time.Second,
	}, nil
}

// Close releases the database
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

func (sp *SQLitePersistence) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), sp.timeout)
}

// Save upserts a session row
func (sp *SQLitePersistence) Save(session *service.Session) error {
	data, err := snapshot(session, sp.configManager)
	if err != nil {
		return err
	}

	state, err := json.Marshal(data.GameState)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	ctx, cancel := sp.ctx()
	defer cancel()

	_, err = sp.db.ExecContext(ctx, `
INSERT INTO sessions (id, config_name, created_at, last_accessed_at, game_state)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	config_name = excluded.config_name,
	last_accessed_at = excluded.last_accessed_at,
	game_state = excluded.game_state`,
		data.ID, data.ConfigName, data.CreatedAt.UTC(), data.LastAccessedAt.UTC(), string(state))
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", data.ID, err)
	}
	return nil
}

// Load reads a session row and rebuilds the live session
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := sp.ctx()
	defer cancel()

	var data PersistedSessionData
	var state string
	err := sp.db.QueryRowContext(ctx,
		`SELECT id, config_name, created_at, last_accessed_at, game_state FROM sessions WHERE id = ?`, id,
	).Scan(&data.ID, &data.ConfigName, &data.CreatedAt, &data.LastAccessedAt, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(state), &data.GameState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	return restore(&data, sp.configManager)
}

// Delete removes a session row
func (sp *SQLitePersistence) Delete(id string) error {
	ctx, cancel := sp.ctx()
	defer cancel()

	res, err := sp.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns every stored session id, oldest first
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	ctx, cancel := sp.ctx()
	defer cancel()

	rows, err := sp.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists reports whether a row for id is stored
func (sp *SQLitePersistence) Exists(id string) bool {
	ctx, cancel := sp.ctx()
	defer cancel()

	var one int
	err := sp.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	return err == nil
}
