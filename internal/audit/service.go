package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/data"
)

type Service struct {
	db    data.DBTX
	spool *Spool
	log   zerolog.Logger
}

// NewService accepts a nil spool; a failed insert is then returned to the caller.
func NewService(db data.DBTX, spool *Spool, log zerolog.Logger) *Service {
	return &Service{db: db, spool: spool, log: log.With().Str("component", "audit").Logger()}
}

func (s *Service) WriteEvent(ctx context.Context, evt Event) error {
	if evt.EventID == uuid.Nil {
		evt.EventID = uuid.New()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	if evt.Result == "" {
		evt.Result = ResultSuccess
	}

	err := s.insert(ctx, evt)
	if err == nil {
		return nil
	}
	if s.spool == nil {
		return fmt.Errorf("audit insert: %w", err)
	}

	s.log.Warn().Err(err).Str("event_id", evt.EventID.String()).Msg("audit insert failed, spooling")
	if spoolErr := s.spool.Append(evt); spoolErr != nil {
		s.log.Error().Err(spoolErr).Str("event_id", evt.EventID.String()).Msg("audit spool failed")
		return fmt.Errorf("audit critical failure: %w", spoolErr)
	}
	return nil
}

func (s *Service) insert(ctx context.Context, evt Event) error {
	query := `
		INSERT INTO audit_logs (
			event_id, company_id, actor_user_id, action, target_type, target_id,
			result, reason_code, request_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		evt.EventID, evt.CompanyID, evt.ActorUserID, evt.Action, evt.TargetType, evt.TargetID,
		evt.Result, evt.ReasonCode, evt.RequestID, []byte(evt.Metadata), evt.CreatedAt,
	)
	return err
}

// Append-only: no update or delete.

// QueryEvents pages backwards by created_at; the returned cursor feeds the next call.
func (s *Service) QueryEvents(ctx context.Context, f Filter) ([]Event, *time.Time, error) {
	q := `SELECT id, event_id, company_id, actor_user_id, action, target_type, target_id,
	             result, reason_code, request_id, metadata, created_at
	      FROM audit_logs
	      WHERE company_id = $1`
	args := []any{f.CompanyID}
	idx := 2

	if f.Result != "" {
		q += fmt.Sprintf(" AND result = $%d", idx)
		args = append(args, f.Result)
		idx++
	}
	if f.TargetID != "" {
		q += fmt.Sprintf(" AND target_id = $%d", idx)
		args = append(args, f.TargetID)
		idx++
	}
	if f.ActorUserID != nil {
		q += fmt.Sprintf(" AND actor_user_id = $%d", idx)
		args = append(args, *f.ActorUserID)
		idx++
	}
	if f.Cursor != nil {
		q += fmt.Sprintf(" AND created_at < $%d", idx)
		args = append(args, *f.Cursor)
		idx++
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", idx)
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		var meta []byte
		var targetType, targetID, reason, reqID *string
		if err := rows.Scan(&evt.ID, &evt.EventID, &evt.CompanyID, &evt.ActorUserID, &evt.Action,
			&targetType, &targetID, &evt.Result, &reason, &reqID, &meta, &evt.CreatedAt); err != nil {
			return nil, nil, err
		}
		evt.TargetType = deref(targetType)
		evt.TargetID = deref(targetID)
		evt.ReasonCode = deref(reason)
		evt.RequestID = deref(reqID)
		if len(meta) > 0 {
			evt.Metadata = meta
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *time.Time
	if len(events) == f.Limit {
		last := events[len(events)-1].CreatedAt
		next = &last
	}
	return events, next, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
