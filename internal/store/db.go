// Package store persists per-user session state (standing instructions and
// the last generated plan) in SQLite so it survives restarts.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chris/dayplan/internal/planner"
)

//go:embed schema.sql
var schema string

var _ planner.SessionStore = (*DB)(nil)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:"
	// databases are per-connection.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Instructions returns the user's standing instructions, if any.
func (d *DB) Instructions(ctx context.Context, userID string) (string, bool, error) {
	return d.getColumn(ctx, "instructions", userID)
}

// SetInstructions stores or replaces the user's standing instructions.
func (d *DB) SetInstructions(ctx context.Context, userID, text string) error {
	return d.setColumn(ctx, "instructions", userID, text)
}

// ClearInstructions removes the user's standing instructions.
func (d *DB) ClearInstructions(ctx context.Context, userID string) error {
	_, err := d.conn.ExecContext(ctx,
		"UPDATE sessions SET instructions = NULL, updated_at = datetime('now') WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return fmt.Errorf("clearing instructions: %w", err)
	}
	return nil
}

// LastPlan returns the most recently generated plan for the user.
func (d *DB) LastPlan(ctx context.Context, userID string) (string, bool, error) {
	return d.getColumn(ctx, "last_plan", userID)
}

// SetLastPlan overwrites the user's most recent plan.
func (d *DB) SetLastPlan(ctx context.Context, userID, text string) error {
	return d.setColumn(ctx, "last_plan", userID, text)
}

// column is always one of the two constants above, never user input.
func (d *DB) getColumn(ctx context.Context, column, userID string) (string, bool, error) {
	var value sql.NullString
	err := d.conn.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM sessions WHERE user_id = ?", column),
		userID,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %s: %w", column, err)
	}
	return value.String, value.Valid, nil
}

func (d *DB) setColumn(ctx context.Context, column, userID, value string) error {
	_, err := d.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO sessions (user_id, %[1]s) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = datetime('now')`, column),
		userID, value,
	)
	if err != nil {
		return fmt.Errorf("setting %s: %w", column, err)
	}
	return nil
}
