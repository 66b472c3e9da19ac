package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/deusflow/ofertas/internal/deals"
)

// PostgresStore keeps the state document in a single-row table.
type PostgresStore struct {
	db     *sql.DB
	window time.Duration
	now    func() time.Time
}

// NewPostgresStore connects to PostgreSQL and prepares the schema.
func NewPostgresStore(ctx context.Context, connectionString string, window time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewPostgresStoreFromDB(ctx, db, window)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an open connection and prepares the schema.
func NewPostgresStoreFromDB(ctx context.Context, db *sql.DB, window time.Duration) (*PostgresStore, error) {
	store := &PostgresStore{db: db, window: window, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS selection_state (
		id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		document JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load reads the state row.
func (ps *PostgresStore) Load(ctx context.Context) (*deals.SelectionState, error) {
	var data []byte
	err := ps.db.QueryRowContext(ctx, `SELECT document FROM selection_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return deals.NewSelectionState(), nil
	}
	if err != nil {
		return deals.NewSelectionState(), fmt.Errorf("failed to load state: %w", err)
	}

	return Decode(data, ps.now(), ps.window)
}

// Save upserts the state row.
func (ps *PostgresStore) Save(ctx context.Context, state *deals.SelectionState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO selection_state (id, document, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()
	`
	if _, err := ps.db.ExecContext(ctx, query, string(data)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (ps *PostgresStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
