package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Camera represents a view: one video source attached to a site.
// Timezone and coordinates are inherited from the site on read.
type Camera struct {
	ID                 uuid.UUID        `json:"id"`
	CompanyID          uuid.UUID        `json:"company_id"`
	ClientID           uuid.UUID        `json:"client_id"`
	SiteID             uuid.UUID        `json:"site_id"`
	Name               string           `json:"name"`
	StreamURL          string           `json:"stream_url,omitempty"`
	IsEnabled          bool             `json:"is_enabled"`
	SceneChangeEnabled bool             `json:"scene_change_enabled"`
	TamperingConfig    *TamperingConfig `json:"tampering_config"`
	Tags               []string         `json:"tags"`
	Timezone           string           `json:"timezone,omitempty"`
	Latitude           *float64         `json:"latitude,omitempty"`
	Longitude          *float64         `json:"longitude,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	DeletedAt          *time.Time       `json:"deleted_at,omitempty"`
}

// CameraPatch carries a partial update. Nil fields are left untouched;
// ClearTampering writes NULL into tampering_config.
type CameraPatch struct {
	Name               *string
	StreamURL          *string
	Tags               []string
	SceneChangeEnabled *bool
	TamperingConfig    *TamperingConfig
	ClearTampering     bool
}

func (p CameraPatch) IsEmpty() bool {
	return p.Name == nil && p.StreamURL == nil && p.Tags == nil &&
		p.SceneChangeEnabled == nil && p.TamperingConfig == nil && !p.ClearTampering
}

type CameraModel struct {
	DB DBTX
}

const cameraColumns = `
		c.id, c.company_id, c.client_id, c.site_id, c.name, c.stream_url,
		c.is_enabled, c.scene_change_enabled, c.tampering_config, c.tags,
		s.timezone, s.latitude, s.longitude, c.created_at, c.updated_at, c.deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCamera(row rowScanner) (*Camera, error) {
	var c Camera
	var tampering []byte
	var tags []string
	var lat, lng sql.NullFloat64

	err := row.Scan(
		&c.ID, &c.CompanyID, &c.ClientID, &c.SiteID, &c.Name, &c.StreamURL,
		&c.IsEnabled, &c.SceneChangeEnabled, &tampering, pq.Array(&tags),
		&c.Timezone, &lat, &lng, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.TamperingConfig, err = unmarshalTamperingConfig(tampering); err != nil {
		return nil, err
	}
	if lat.Valid {
		c.Latitude = &lat.Float64
	}
	if lng.Valid {
		c.Longitude = &lng.Float64
	}
	c.Tags = tags
	return &c, nil
}

// Create inserts a new camera. Company/client/site ownership is enforced via FK.
func (m CameraModel) Create(ctx context.Context, c *Camera) error {
	query := `
		INSERT INTO cameras (
			company_id, client_id, site_id, name, stream_url,
			is_enabled, scene_change_enabled, tampering_config, tags
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	tampering, err := marshalTamperingConfig(c.TamperingConfig)
	if err != nil {
		return err
	}
	return m.DB.QueryRowContext(ctx, query,
		c.CompanyID, c.ClientID, c.SiteID, c.Name, c.StreamURL,
		c.IsEnabled, c.SceneChangeEnabled, tampering, pq.Array(c.Tags),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a camera scoped to the company.
func (m CameraModel) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Camera, error) {
	query := `SELECT` + cameraColumns + `
		FROM cameras c
		JOIN sites s ON s.id = c.site_id
		WHERE c.id = $1 AND c.company_id = $2 AND c.deleted_at IS NULL`

	c, err := scanCamera(m.DB.QueryRowContext(ctx, query, id, companyID))
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return c, err
}

// Patch applies the non-nil fields of p.
func (m CameraModel) Patch(ctx context.Context, companyID, id uuid.UUID, p CameraPatch) error {
	sets := []string{}
	args := []any{}
	next := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, next))
		args = append(args, v)
		next++
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.StreamURL != nil {
		add("stream_url", *p.StreamURL)
	}
	if p.Tags != nil {
		add("tags", pq.Array(p.Tags))
	}
	if p.SceneChangeEnabled != nil {
		add("scene_change_enabled", *p.SceneChangeEnabled)
	}
	switch {
	case p.ClearTampering:
		sets = append(sets, "tampering_config = NULL")
	case p.TamperingConfig != nil:
		raw, err := marshalTamperingConfig(p.TamperingConfig)
		if err != nil {
			return err
		}
		add("tampering_config", raw)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE cameras SET %s WHERE id = $%d AND company_id = $%d AND deleted_at IS NULL`,
		strings.Join(sets, ", "), next, next+1)
	args = append(args, id, companyID)

	res, err := m.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func (m CameraModel) SetStatus(ctx context.Context, companyID, id uuid.UUID, enabled bool) error {
	query := `UPDATE cameras SET is_enabled = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3 AND deleted_at IS NULL`
	res, err := m.DB.ExecContext(ctx, query, enabled, id, companyID)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func (m CameraModel) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	query := `UPDATE cameras SET deleted_at = NOW() WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`
	res, err := m.DB.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// CameraFilter parameters
type CameraFilter struct {
	ClientID  *uuid.UUID
	SiteID    *uuid.UUID
	IsEnabled *bool
	Query     string
}

// List retrieves paginated cameras.
func (m CameraModel) List(ctx context.Context, companyID uuid.UUID, filter CameraFilter, limit, offset int) ([]*Camera, int, error) {
	where := "WHERE c.company_id = $1 AND c.deleted_at IS NULL"
	args := []any{companyID}
	nextArg := 2

	if filter.ClientID != nil {
		where += fmt.Sprintf(" AND c.client_id = $%d", nextArg)
		args = append(args, *filter.ClientID)
		nextArg++
	}
	if filter.SiteID != nil {
		where += fmt.Sprintf(" AND c.site_id = $%d", nextArg)
		args = append(args, *filter.SiteID)
		nextArg++
	}
	if filter.IsEnabled != nil {
		where += fmt.Sprintf(" AND c.is_enabled = $%d", nextArg)
		args = append(args, *filter.IsEnabled)
		nextArg++
	}
	if filter.Query != "" {
		where += fmt.Sprintf(" AND c.name ILIKE '%%' || $%d || '%%'", nextArg)
		args = append(args, filter.Query)
		nextArg++
	}

	var total int
	countQuery := "SELECT count(*) FROM cameras c " + where
	if err := m.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s
		FROM cameras c
		JOIN sites s ON s.id = c.site_id
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d`, cameraColumns, where, nextArg, nextArg+1)
	args = append(args, limit, offset)

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cameras []*Camera
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, 0, err
		}
		cameras = append(cameras, c)
	}
	return cameras, total, rows.Err()
}

// CountAll counts the company's live cameras for quota checks.
func (m CameraModel) CountAll(ctx context.Context, companyID uuid.UUID) (int, error) {
	var n int
	err := m.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM cameras WHERE company_id = $1 AND deleted_at IS NULL`, companyID,
	).Scan(&n)
	return n, err
}
