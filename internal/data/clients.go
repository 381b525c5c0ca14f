package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Client is a customer of a company; it owns sites.
type Client struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    uuid.UUID  `json:"company_id"`
	Name         string     `json:"name"`
	ContactEmail string     `json:"contact_email,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

type ClientModel struct {
	DB DBTX
}

func (m ClientModel) Create(ctx context.Context, c *Client) error {
	query := `
		INSERT INTO clients (company_id, name, contact_email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	return m.DB.QueryRowContext(ctx, query, c.CompanyID, c.Name, c.ContactEmail).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (m ClientModel) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Client, error) {
	query := `
		SELECT id, company_id, name, contact_email, created_at, updated_at, deleted_at
		FROM clients
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`

	var c Client
	err := m.DB.QueryRowContext(ctx, query, id, companyID).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m ClientModel) Update(ctx context.Context, c *Client) error {
	query := `
		UPDATE clients
		SET name = $1, contact_email = $2, updated_at = NOW()
		WHERE id = $3 AND company_id = $4 AND deleted_at IS NULL
		RETURNING updated_at`

	err := m.DB.QueryRowContext(ctx, query, c.Name, c.ContactEmail, c.ID, c.CompanyID).Scan(&c.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrRecordNotFound
	}
	return err
}

func (m ClientModel) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	query := `UPDATE clients SET deleted_at = NOW() WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`
	res, err := m.DB.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func (m ClientModel) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Client, int, error) {
	var total int
	if err := m.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM clients WHERE company_id = $1 AND deleted_at IS NULL`, companyID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, company_id, name, contact_email, created_at, updated_at
		FROM clients
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
		LIMIT $2 OFFSET $3`

	rows, err := m.DB.QueryContext(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		clients = append(clients, &c)
	}
	return clients, total, rows.Err()
}
