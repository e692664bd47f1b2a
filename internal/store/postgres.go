package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

// PostgresStore is a PostgreSQL-backed AssignmentStorage for deployments
// where assignments must survive restarts and be shared across instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed assignment store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the assignments table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS assignments (
			experiment_id TEXT PRIMARY KEY,
			variant_id    TEXT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("migrate assignments table: %w", err)
	}
	return nil
}

// Get returns the confirmed variant id for the experiment, if any.
func (p *PostgresStore) Get(ctx context.Context, experimentID string) (string, bool, error) {
	var variantID string
	err := p.pool.QueryRow(ctx,
		`SELECT variant_id FROM assignments WHERE experiment_id = $1`,
		experimentID,
	).Scan(&variantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get assignment: %w", err)
	}
	return variantID, true, nil
}

// Put records a confirmed assignment, overwriting any previous variant for
// the experiment (server-side reassignment).
func (p *PostgresStore) Put(ctx context.Context, assignment rules.Assignment) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO assignments (experiment_id, variant_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (experiment_id)
		DO UPDATE SET variant_id = EXCLUDED.variant_id, updated_at = now()`,
		assignment.ExperimentID, assignment.VariantID,
	)
	if err != nil {
		return fmt.Errorf("put assignment: %w", err)
	}
	return nil
}

// Clear removes all assignments.
func (p *PostgresStore) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM assignments`); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
