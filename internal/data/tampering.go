package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase selects the day or night half of a camera's reference images.
type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
)

// Phases lists the phases in the order references are offered to the engine.
var Phases = []Phase{PhaseDay, PhaseNight}

// ReferencePhase is one half of a TamperingConfig.
// A phase without a reference image never carries an update timestamp.
type ReferencePhase struct {
	ReferenceImage           *string    `json:"referenceImage"`
	ReferenceImageUpdatedAt  *time.Time `json:"referenceImageUpdatedAt"`
	IsUpdatingReferenceImage bool       `json:"isUpdatingReferenceImage"`
}

// HasReference reports whether the phase holds a usable reference identifier.
func (p ReferencePhase) HasReference() bool {
	return p.ReferenceImage != nil && *p.ReferenceImage != ""
}

// TamperingConfig is stored as JSONB on the cameras table.
type TamperingConfig struct {
	Day   ReferencePhase `json:"day"`
	Night ReferencePhase `json:"night"`
}

func (c *TamperingConfig) Phase(p Phase) ReferencePhase {
	if c == nil {
		return ReferencePhase{}
	}
	if p == PhaseNight {
		return c.Night
	}
	return c.Day
}

// WithPhase returns a copy of c with phase p replaced. A nil receiver yields
// a config whose other phase is empty.
func (c *TamperingConfig) WithPhase(p Phase, rp ReferencePhase) TamperingConfig {
	var out TamperingConfig
	if c != nil {
		out = *c
	}
	if p == PhaseNight {
		out.Night = rp
	} else {
		out.Day = rp
	}
	return out
}

func marshalTamperingConfig(c *TamperingConfig) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func unmarshalTamperingConfig(raw []byte) (*TamperingConfig, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var c TamperingConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode tampering_config: %w", err)
	}
	return &c, nil
}

// WindowConfig is the per-company schedule of the two daily check windows.
// Values are local HH:MM strings.
type WindowConfig struct {
	FirstCheckFrom  string `json:"firstCheckFrom" yaml:"first_check_from"`
	FirstCheckTo    string `json:"firstCheckTo" yaml:"first_check_to"`
	SecondCheckFrom string `json:"secondCheckFrom" yaml:"second_check_from"`
	SecondCheckTo   string `json:"secondCheckTo" yaml:"second_check_to"`
}

type WindowConfigModel struct {
	DB DBTX
}

// Get returns the company's window config or ErrRecordNotFound.
func (m WindowConfigModel) Get(ctx context.Context, companyID uuid.UUID) (*WindowConfig, error) {
	query := `
		SELECT first_check_from, first_check_to, second_check_from, second_check_to
		FROM company_tampering_settings
		WHERE company_id = $1`

	var w WindowConfig
	err := m.DB.QueryRowContext(ctx, query, companyID).Scan(
		&w.FirstCheckFrom, &w.FirstCheckTo, &w.SecondCheckFrom, &w.SecondCheckTo,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (m WindowConfigModel) Upsert(ctx context.Context, companyID uuid.UUID, w WindowConfig) error {
	query := `
		INSERT INTO company_tampering_settings (
			company_id, first_check_from, first_check_to, second_check_from, second_check_to, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (company_id) DO UPDATE SET
			first_check_from = EXCLUDED.first_check_from,
			first_check_to = EXCLUDED.first_check_to,
			second_check_from = EXCLUDED.second_check_from,
			second_check_to = EXCLUDED.second_check_to,
			updated_at = NOW()`

	_, err := m.DB.ExecContext(ctx, query, companyID,
		w.FirstCheckFrom, w.FirstCheckTo, w.SecondCheckFrom, w.SecondCheckTo)
	return err
}

// TamperingDetection marks a scheduled check that the engine actually performed.
type TamperingDetection struct {
	ID          uuid.UUID `json:"id"`
	ViewID      uuid.UUID `json:"view_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	IsValid     bool      `json:"is_valid"`
	IsDay       bool      `json:"is_day"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type TamperingDetectionModel struct {
	DB DBTX
}

func (m TamperingDetectionModel) Insert(ctx context.Context, d *TamperingDetection) error {
	query := `
		INSERT INTO tampering_detections (view_id, company_id, is_valid, is_day, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return m.DB.QueryRowContext(ctx, query,
		d.ViewID, d.CompanyID, d.IsValid, d.IsDay, d.ReferenceID, d.CreatedAt,
	).Scan(&d.ID)
}

// ListTamperingDetections returns the view's checks performed at or after since.
func (m TamperingDetectionModel) ListTamperingDetections(ctx context.Context, viewID uuid.UUID, since time.Time) ([]TamperingDetection, error) {
	query := `
		SELECT id, view_id, company_id, is_valid, is_day, reference_id, created_at
		FROM tampering_detections
		WHERE view_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`

	rows, err := m.DB.QueryContext(ctx, query, viewID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TamperingDetection
	for rows.Next() {
		var d TamperingDetection
		if err := rows.Scan(&d.ID, &d.ViewID, &d.CompanyID, &d.IsValid, &d.IsDay, &d.ReferenceID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Tampering event statuses.
const (
	TamperingStatusFailed    = "failed"
	TamperingStatusCreated   = "created"
	TamperingStatusRefreshed = "refreshed"
)

// TamperingEvent is an append-only audit record for the reference lifecycle.
type TamperingEvent struct {
	ID        uuid.UUID       `json:"id"`
	ViewID    uuid.UUID       `json:"view_id"`
	CompanyID uuid.UUID       `json:"company_id"`
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type TamperingEventModel struct {
	DB DBTX
}

func (m TamperingEventModel) Create(ctx context.Context, evt *TamperingEvent) error {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO tampering_events (id, view_id, company_id, status, created_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := m.DB.ExecContext(ctx, query,
		evt.ID, evt.ViewID, evt.CompanyID, evt.Status, evt.Timestamp, []byte(evt.Metadata))
	return err
}

func (m TamperingEventModel) ListByView(ctx context.Context, companyID, viewID uuid.UUID, limit int) ([]TamperingEvent, error) {
	query := `
		SELECT id, view_id, company_id, status, created_at, metadata
		FROM tampering_events
		WHERE company_id = $1 AND view_id = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := m.DB.QueryContext(ctx, query, companyID, viewID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TamperingEvent
	for rows.Next() {
		var evt TamperingEvent
		var meta []byte
		if err := rows.Scan(&evt.ID, &evt.ViewID, &evt.CompanyID, &evt.Status, &evt.Timestamp, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			evt.Metadata = meta
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

type CapabilityModel struct {
	DB DBTX
}

// ListCapabilities returns the detection capabilities the company is entitled to.
func (m CapabilityModel) ListCapabilities(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	query := `
		SELECT capability
		FROM company_capabilities
		WHERE company_id = $1 AND (expires_at IS NULL OR expires_at > NOW())`

	rows, err := m.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caps []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}
