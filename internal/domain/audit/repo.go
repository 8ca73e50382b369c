package audit

import "context"

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Entry, int, error)
}
