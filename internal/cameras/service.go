package cameras

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/audit"
	"github.com/technosupport/vms-analytics/internal/data"
)

type CameraRepository interface {
	Create(ctx context.Context, c *data.Camera) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*data.Camera, error)
	Patch(ctx context.Context, companyID, id uuid.UUID, p data.CameraPatch) error
	SetStatus(ctx context.Context, companyID, id uuid.UUID, enabled bool) error
	SoftDelete(ctx context.Context, companyID, id uuid.UUID) error
	CountAll(ctx context.Context, companyID uuid.UUID) (int, error)
	List(ctx context.Context, companyID uuid.UUID, filter data.CameraFilter, limit, offset int) ([]*data.Camera, int, error)
}

type Auditor interface {
	WriteEvent(ctx context.Context, evt audit.Event) error
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
}

const MaxPageSize = 50

// Service owns client, site and camera inventory. Every mutation is audited.
type Service struct {
	cameras    CameraRepository
	sites      SiteRepository
	clients    ClientRepository
	audit      Auditor
	maxCameras int
	now        func() time.Time
}

// NewService takes maxCameras <= 0 as unlimited.
func NewService(cams CameraRepository, sites SiteRepository, clients ClientRepository, aud Auditor, maxCameras int) *Service {
	return &Service{
		cameras:    cams,
		sites:      sites,
		clients:    clients,
		audit:      aud,
		maxCameras: maxCameras,
		now:        time.Now,
	}
}

func (s *Service) record(ctx context.Context, actor Actor, action, targetType string, targetID uuid.UUID, meta any) {
	evt := audit.Event{
		CompanyID:  actor.CompanyID,
		EventID:    uuid.New(),
		Action:     action,
		Result:     audit.ResultSuccess,
		TargetType: targetType,
		TargetID:   targetID.String(),
		CreatedAt:  s.now().UTC(),
	}
	if actor.UserID != uuid.Nil {
		uid := actor.UserID
		evt.ActorUserID = &uid
	}
	if meta != nil {
		evt.Metadata = audit.Meta(meta)
	}
	s.audit.WriteEvent(ctx, evt)
}

func notFound(err error) error {
	if errors.Is(err, data.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func validName(name string) error {
	if len(name) == 0 || len(name) > 120 {
		return invalid("name", ErrNameLength)
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// CreateCamera enforces the company's camera quota and that the site belongs to the client.
func (s *Service) CreateCamera(ctx context.Context, actor Actor, c *data.Camera) error {
	if err := validName(c.Name); err != nil {
		return err
	}
	c.CompanyID = actor.CompanyID

	site, err := s.sites.GetByID(ctx, actor.CompanyID, c.SiteID)
	if err != nil {
		return notFound(err)
	}
	if site.ClientID != c.ClientID {
		return ErrSiteScopeMismatch
	}

	if s.maxCameras > 0 {
		count, err := s.cameras.CountAll(ctx, actor.CompanyID)
		if err != nil {
			return err
		}
		if count >= s.maxCameras {
			return ErrQuotaExceeded
		}
	}

	if err := s.cameras.Create(ctx, c); err != nil {
		return err
	}
	c.Timezone = site.Timezone
	c.Latitude, c.Longitude = site.Latitude, site.Longitude

	s.record(ctx, actor, "camera.create", "camera", c.ID, map[string]any{"name": c.Name, "site_id": c.SiteID})
	return nil
}

func (s *Service) GetCamera(ctx context.Context, companyID, id uuid.UUID) (*data.Camera, error) {
	c, err := s.cameras.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Service) ListCameras(ctx context.Context, companyID uuid.UUID, filter data.CameraFilter, limit, offset int) ([]*data.Camera, int, error) {
	limit, offset = clampPage(limit, offset)
	return s.cameras.List(ctx, companyID, filter, limit, offset)
}

// UpdateView applies patch and returns the stored camera. A camera that no
// longer exists yields (nil, nil).
func (s *Service) UpdateView(ctx context.Context, companyID, userID, viewID uuid.UUID, patch data.CameraPatch) (*data.Camera, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	if patch.Name != nil {
		if err := validName(*patch.Name); err != nil {
			return nil, err
		}
	}

	err := s.cameras.Patch(ctx, companyID, viewID, patch)
	if errors.Is(err, data.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.cameras.GetByID(ctx, companyID, viewID)
	if errors.Is(err, data.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.record(ctx, Actor{CompanyID: companyID, UserID: userID}, "camera.update", "camera", viewID, patchFields(patch))
	return updated, nil
}

func patchFields(p data.CameraPatch) map[string]any {
	fields := []string{}
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.StreamURL != nil {
		fields = append(fields, "stream_url")
	}
	if p.Tags != nil {
		fields = append(fields, "tags")
	}
	if p.SceneChangeEnabled != nil {
		fields = append(fields, "scene_change_enabled")
	}
	if p.TamperingConfig != nil || p.ClearTampering {
		fields = append(fields, "tampering_config")
	}
	return map[string]any{"fields": fields}
}

// SetSceneChange toggles scheduled tampering checks for the camera.
func (s *Service) SetSceneChange(ctx context.Context, actor Actor, id uuid.UUID, enabled bool) (*data.Camera, error) {
	c, err := s.UpdateView(ctx, actor.CompanyID, actor.UserID, id, data.CameraPatch{SceneChangeEnabled: &enabled})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// ResetReferences forgets both reference phases; the next scheduled check recreates them.
func (s *Service) ResetReferences(ctx context.Context, actor Actor, id uuid.UUID) error {
	c, err := s.UpdateView(ctx, actor.CompanyID, actor.UserID, id, data.CameraPatch{ClearTampering: true})
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	return nil
}

func (s *Service) EnableCamera(ctx context.Context, actor Actor, id uuid.UUID) error {
	return s.setStatus(ctx, actor, id, true)
}

func (s *Service) DisableCamera(ctx context.Context, actor Actor, id uuid.UUID) error {
	return s.setStatus(ctx, actor, id, false)
}

func (s *Service) setStatus(ctx context.Context, actor Actor, id uuid.UUID, enabled bool) error {
	if err := s.cameras.SetStatus(ctx, actor.CompanyID, id, enabled); err != nil {
		return notFound(err)
	}
	action := "camera.disable"
	if enabled {
		action = "camera.enable"
	}
	s.record(ctx, actor, action, "camera", id, nil)
	return nil
}

func (s *Service) DeleteCamera(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.cameras.SoftDelete(ctx, actor.CompanyID, id); err != nil {
		return notFound(err)
	}
	s.record(ctx, actor, "camera.delete", "camera", id, nil)
	return nil
}
