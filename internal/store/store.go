// Package store persists confirmed experiment assignments so that variant
// selection is sticky: a user keeps the variant they were first exposed to.
package store

import (
	"context"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

// AssignmentStorage is the durable mapping from experiment id to confirmed
// variant id. Implementations must be safe for concurrent use; multiple
// presentation runs read and write assignments at the same time.
type AssignmentStorage interface {
	// Get returns the confirmed variant id for the experiment, with ok
	// reporting whether a confirmed assignment exists.
	Get(ctx context.Context, experimentID string) (variantID string, ok bool, err error)

	// Put records a confirmed assignment. Writing the same assignment twice
	// is idempotent; a confirmed assignment is never rolled back.
	Put(ctx context.Context, assignment rules.Assignment) error

	// Clear removes all assignments (e.g. on logout or identity reset).
	Clear(ctx context.Context) error

	// Close releases any resources held by the storage.
	Close() error
}
