package record

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	// GetByID returns ErrNotFound when the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByOwner returns records in creation-time order.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Record, int, error)
	// AttachAnchor sets the anchor transaction hash. Idempotent; a record that
	// no longer exists is a no-op, not an error.
	AttachAnchor(ctx context.Context, id uuid.UUID, anchorID string) error
}
