package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder is the write-side interface the record and identity services
// depend on.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "audit").Logger()}
}

// Record writes one entry synchronously. A failed write is its own internal
// error: it is logged with full detail and never blocks the caller's
// user-facing response.
func (s *Service) Record(ctx context.Context, e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := s.repo.Insert(ctx, &e); err != nil {
		s.log.Error().Err(err).
			Str("action_type", e.ActionType).
			Str("actor_id", e.ActorID).
			Msg("audit write failed")
	}
}

// HistoryForOwner returns the owner's audit trail, newest first.
func (s *Service) HistoryForOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}
