package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"payfriend/internal/models"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("database: not found")

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB opens (or creates) the sqlite database and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY churn.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			key TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			access_token TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertSession stores the session under key, replacing any previous one.
func (db *DB) UpsertSession(ctx context.Context, key string, s models.Session) error {
	query := `INSERT INTO sessions (key, user_id, access_token, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		user_id = excluded.user_id,
		access_token = excluded.access_token,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at`

	_, err := db.conn.ExecContext(ctx, query,
		key,
		s.UserID,
		s.AccessToken,
		s.CreatedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// GetSession loads the session stored under key.
func (db *DB) GetSession(ctx context.Context, key string) (models.Session, error) {
	var s models.Session
	var createdAt string

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, access_token, created_at FROM sessions WHERE key = ?`, key,
	).Scan(&s.UserID, &s.AccessToken, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to query session: %w", err)
	}

	s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return s, nil
}

// DeleteSession removes the session stored under key. Deleting a missing
// session is not an error.
func (db *DB) DeleteSession(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
