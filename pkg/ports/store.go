package ports

import (
	"context"

	"github.com/aretw0/otec/pkg/domain"
)

// LogStore persists the committed transaction log of each entity.
// Replaying the records of an entity in order rebuilds its State.
type LogStore interface {
	// Append adds a record at the end of the entity's log, creating the log if needed.
	Append(ctx context.Context, entityID int, rec domain.Record) error

	// Load returns the entity's records in append order.
	// Returns domain.ErrEntityNotFound if the entity has no log.
	Load(ctx context.Context, entityID int) ([]domain.Record, error)

	// Delete removes the entity's log. Deleting a missing entity is not an error.
	Delete(ctx context.Context, entityID int) error

	// List returns the IDs of all entities with a log, in ascending order.
	List(ctx context.Context) ([]int, error)
}
