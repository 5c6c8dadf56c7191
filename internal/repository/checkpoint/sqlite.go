package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the "sqlite" driver.

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    position INTEGER NOT NULL,
    id TEXT PRIMARY KEY,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    radius_meters REAL NOT NULL,
    label TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

// SQLiteRepository persists checkpoints to a single SQLite table.
// Creation order is kept in the position column.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Load returns the stored checkpoints ordered by position.
func (r *SQLiteRepository) Load(ctx context.Context) ([]domain.Checkpoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, latitude, longitude, radius_meters, label, created_at
		FROM checkpoints
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}

	defer func() { _ = rows.Close() }()

	result := make([]domain.Checkpoint, 0)

	for rows.Next() {
		var (
			c         domain.Checkpoint
			createdAt string
		)

		if err = rows.Scan(&c.ID, &c.Latitude, &c.Longitude, &c.RadiusMeters, &c.Label, &createdAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}

		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", c.ID, err)
		}

		result = append(result, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	return result, nil
}

// Save replaces the table contents in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, checkpoints []domain.Checkpoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, "DELETE FROM checkpoints"); err != nil {
		return fmt.Errorf("clear checkpoints: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO checkpoints
		(position, id, latitude, longitude, radius_meters, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	for i, c := range checkpoints {
		if _, err = stmt.ExecContext(ctx,
			i,
			c.ID,
			c.Latitude,
			c.Longitude,
			c.RadiusMeters,
			c.Label,
			c.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert checkpoint %s: %w", c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoints: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
