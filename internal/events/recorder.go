package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/data"
)

type Store interface {
	Create(ctx context.Context, evt *data.TamperingEvent) error
	ListByView(ctx context.Context, companyID, viewID uuid.UUID, limit int) ([]data.TamperingEvent, error)
}

type Publisher interface {
	Publish(evt *data.TamperingEvent) error
}

// Recorder persists tampering events and fans them out. The database row is
// the record; a publish failure is logged and does not fail the write.
type Recorder struct {
	store     Store
	publisher Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewRecorder accepts a nil publisher when NATS is not configured.
func NewRecorder(store Store, publisher Publisher, log zerolog.Logger) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		log:       log.With().Str("component", "tampering_events").Logger(),
		now:       time.Now,
	}
}

func (r *Recorder) CreateTamperingEvent(ctx context.Context, evt *data.TamperingEvent) error {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = r.now().UTC()
	}
	if err := r.store.Create(ctx, evt); err != nil {
		return fmt.Errorf("insert tampering event: %w", err)
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(evt); err != nil {
			r.log.Warn().Err(err).
				Str("event_id", evt.ID.String()).
				Str("view_id", evt.ViewID.String()).
				Msg("tampering event not published")
		}
	}
	return nil
}

const maxListLimit = 200

func (r *Recorder) ListEvents(ctx context.Context, companyID, viewID uuid.UUID, limit int) ([]data.TamperingEvent, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = 50
	}
	return r.store.ListByView(ctx, companyID, viewID, limit)
}
