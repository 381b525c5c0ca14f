package cameras

import (
	"context"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

type SiteRepository interface {
	Create(ctx context.Context, s *data.Site) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*data.Site, error)
	Update(ctx context.Context, s *data.Site) error
	SoftDelete(ctx context.Context, companyID, id uuid.UUID) error
	List(ctx context.Context, companyID uuid.UUID, clientID *uuid.UUID, limit, offset int) ([]*data.Site, error)
}

func validateSite(site *data.Site) error {
	if err := validName(site.Name); err != nil {
		return err
	}
	if _, err := tampering.LoadLocation(site.Timezone); err != nil {
		return invalid("timezone", ErrInvalidTimezone)
	}
	if (site.Latitude == nil) != (site.Longitude == nil) {
		return invalid("latitude", ErrInvalidLocation)
	}
	if site.Latitude != nil && (*site.Latitude < -90 || *site.Latitude > 90) {
		return invalid("latitude", ErrInvalidLocation)
	}
	if site.Longitude != nil && (*site.Longitude < -180 || *site.Longitude > 180) {
		return invalid("longitude", ErrInvalidLocation)
	}
	return nil
}

func (s *Service) CreateSite(ctx context.Context, actor Actor, site *data.Site) error {
	if err := validateSite(site); err != nil {
		return err
	}
	site.CompanyID = actor.CompanyID
	if _, err := s.clients.GetByID(ctx, actor.CompanyID, site.ClientID); err != nil {
		return notFound(err)
	}
	if err := s.sites.Create(ctx, site); err != nil {
		return err
	}
	s.record(ctx, actor, "site.create", "site", site.ID, map[string]any{"name": site.Name, "client_id": site.ClientID})
	return nil
}

func (s *Service) GetSite(ctx context.Context, companyID, id uuid.UUID) (*data.Site, error) {
	site, err := s.sites.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return site, nil
}

func (s *Service) ListSites(ctx context.Context, companyID uuid.UUID, clientID *uuid.UUID, limit, offset int) ([]*data.Site, error) {
	limit, offset = clampPage(limit, offset)
	return s.sites.List(ctx, companyID, clientID, limit, offset)
}

// UpdateSite also moves the site's cameras to the new timezone; they inherit it on read.
func (s *Service) UpdateSite(ctx context.Context, actor Actor, site *data.Site) error {
	if err := validateSite(site); err != nil {
		return err
	}
	site.CompanyID = actor.CompanyID
	if err := s.sites.Update(ctx, site); err != nil {
		return notFound(err)
	}
	s.record(ctx, actor, "site.update", "site", site.ID, map[string]any{"timezone": site.Timezone})
	return nil
}

func (s *Service) DeleteSite(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.sites.SoftDelete(ctx, actor.CompanyID, id); err != nil {
		return notFound(err)
	}
	s.record(ctx, actor, "site.delete", "site", id, nil)
	return nil
}
