package cameras

import (
	"context"
	"net/mail"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/data"
)

type ClientRepository interface {
	Create(ctx context.Context, c *data.Client) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*data.Client, error)
	Update(ctx context.Context, c *data.Client) error
	SoftDelete(ctx context.Context, companyID, id uuid.UUID) error
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*data.Client, int, error)
}

func validateClient(c *data.Client) error {
	if err := validName(c.Name); err != nil {
		return err
	}
	if c.ContactEmail != "" {
		if _, err := mail.ParseAddress(c.ContactEmail); err != nil {
			return invalid("contact_email", err)
		}
	}
	return nil
}

func (s *Service) CreateClient(ctx context.Context, actor Actor, c *data.Client) error {
	if err := validateClient(c); err != nil {
		return err
	}
	c.CompanyID = actor.CompanyID
	if err := s.clients.Create(ctx, c); err != nil {
		return err
	}
	s.record(ctx, actor, "client.create", "client", c.ID, map[string]any{"name": c.Name})
	return nil
}

func (s *Service) GetClient(ctx context.Context, companyID, id uuid.UUID) (*data.Client, error) {
	c, err := s.clients.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Service) ListClients(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*data.Client, int, error) {
	limit, offset = clampPage(limit, offset)
	return s.clients.List(ctx, companyID, limit, offset)
}

func (s *Service) UpdateClient(ctx context.Context, actor Actor, c *data.Client) error {
	if err := validateClient(c); err != nil {
		return err
	}
	c.CompanyID = actor.CompanyID
	if err := s.clients.Update(ctx, c); err != nil {
		return notFound(err)
	}
	s.record(ctx, actor, "client.update", "client", c.ID, nil)
	return nil
}

func (s *Service) DeleteClient(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.clients.SoftDelete(ctx, actor.CompanyID, id); err != nil {
		return notFound(err)
	}
	s.record(ctx, actor, "client.delete", "client", id, nil)
	return nil
}
