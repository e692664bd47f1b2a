package store

import (
	"context"
	"fmt"

	mydb "github.com/TimurManjosov/gopaywall/internal/db"
)

// NewStore creates an AssignmentStorage based on the given store type.
// Supported types: "memory", "postgres". The postgres store runs its
// migration before being returned.
func NewStore(ctx context.Context, storeType, dbDSN string) (AssignmentStorage, error) {
	switch storeType {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		pool, err := mydb.NewPool(ctx, dbDSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}
		pg := NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
