package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Site is a physical location. Its timezone drives every local-time
// decision for the cameras attached to it.
type Site struct {
	ID        uuid.UUID  `json:"id"`
	CompanyID uuid.UUID  `json:"company_id"`
	ClientID  uuid.UUID  `json:"client_id"`
	Name      string     `json:"name"`
	Address   string     `json:"address,omitempty"`
	Timezone  string     `json:"timezone"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type SiteModel struct {
	DB DBTX
}

func (m SiteModel) Create(ctx context.Context, s *Site) error {
	query := `
		INSERT INTO sites (company_id, client_id, name, address, timezone, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return m.DB.QueryRowContext(ctx, query,
		s.CompanyID, s.ClientID, s.Name, s.Address, s.Timezone, s.Latitude, s.Longitude,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func scanSite(row rowScanner) (*Site, error) {
	var s Site
	var lat, lng sql.NullFloat64
	if err := row.Scan(&s.ID, &s.CompanyID, &s.ClientID, &s.Name, &s.Address, &s.Timezone,
		&lat, &lng, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lng.Valid {
		s.Longitude = &lng.Float64
	}
	return &s, nil
}

func (m SiteModel) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Site, error) {
	query := `
		SELECT id, company_id, client_id, name, address, timezone, latitude, longitude, created_at, updated_at
		FROM sites
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`

	s, err := scanSite(m.DB.QueryRowContext(ctx, query, id, companyID))
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return s, err
}

func (m SiteModel) Update(ctx context.Context, s *Site) error {
	query := `
		UPDATE sites
		SET name = $1, address = $2, timezone = $3, latitude = $4, longitude = $5, updated_at = NOW()
		WHERE id = $6 AND company_id = $7 AND deleted_at IS NULL
		RETURNING updated_at`

	err := m.DB.QueryRowContext(ctx, query,
		s.Name, s.Address, s.Timezone, s.Latitude, s.Longitude, s.ID, s.CompanyID,
	).Scan(&s.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrRecordNotFound
	}
	return err
}

func (m SiteModel) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	query := `UPDATE sites SET deleted_at = NOW() WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`
	res, err := m.DB.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// List returns a client's sites, or every site of the company when clientID is nil.
func (m SiteModel) List(ctx context.Context, companyID uuid.UUID, clientID *uuid.UUID, limit, offset int) ([]*Site, error) {
	query := `
		SELECT id, company_id, client_id, name, address, timezone, latitude, longitude, created_at, updated_at
		FROM sites
		WHERE company_id = $1 AND deleted_at IS NULL AND ($2::uuid IS NULL OR client_id = $2)
		ORDER BY name ASC
		LIMIT $3 OFFSET $4`

	rows, err := m.DB.QueryContext(ctx, query, companyID, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []*Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}
