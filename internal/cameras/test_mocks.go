package cameras

import (
	"context"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/audit"
	"github.com/technosupport/vms-analytics/internal/data"
)

// MockAuditor
type MockAuditor struct {
	Events []audit.Event
}

func (m *MockAuditor) WriteEvent(ctx context.Context, evt audit.Event) error {
	m.Events = append(m.Events, evt)
	return nil
}

// MockCameraRepo keeps cameras in memory.
type MockCameraRepo struct {
	Cameras map[uuid.UUID]*data.Camera
	Patches []data.CameraPatch
	Count   int
	Err     error
}

func NewMockCameraRepo(cams ...*data.Camera) *MockCameraRepo {
	m := &MockCameraRepo{Cameras: map[uuid.UUID]*data.Camera{}}
	for _, c := range cams {
		m.Cameras[c.ID] = c
	}
	return m
}

func (m *MockCameraRepo) Create(ctx context.Context, c *data.Camera) error {
	if m.Err != nil {
		return m.Err
	}
	c.ID = uuid.New()
	m.Cameras[c.ID] = c
	return nil
}

func (m *MockCameraRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*data.Camera, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.Cameras[id]
	if !ok || c.CompanyID != companyID {
		return nil, data.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCameraRepo) Patch(ctx context.Context, companyID, id uuid.UUID, p data.CameraPatch) error {
	if m.Err != nil {
		return m.Err
	}
	c, ok := m.Cameras[id]
	if !ok || c.CompanyID != companyID {
		return data.ErrRecordNotFound
	}
	m.Patches = append(m.Patches, p)
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.SceneChangeEnabled != nil {
		c.SceneChangeEnabled = *p.SceneChangeEnabled
	}
	if p.TamperingConfig != nil {
		cfg := *p.TamperingConfig
		c.TamperingConfig = &cfg
	}
	if p.ClearTampering {
		c.TamperingConfig = nil
	}
	return nil
}

func (m *MockCameraRepo) SetStatus(ctx context.Context, companyID, id uuid.UUID, enabled bool) error {
	c, ok := m.Cameras[id]
	if !ok || c.CompanyID != companyID {
		return data.ErrRecordNotFound
	}
	c.IsEnabled = enabled
	return nil
}

func (m *MockCameraRepo) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	c, ok := m.Cameras[id]
	if !ok || c.CompanyID != companyID {
		return data.ErrRecordNotFound
	}
	delete(m.Cameras, id)
	return nil
}

func (m *MockCameraRepo) CountAll(ctx context.Context, companyID uuid.UUID) (int, error) {
	return m.Count, m.Err
}

func (m *MockCameraRepo) List(ctx context.Context, companyID uuid.UUID, filter data.CameraFilter, limit, offset int) ([]*data.Camera, int, error) {
	var out []*data.Camera
	for _, c := range m.Cameras {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, len(out), m.Err
}

// MockSiteRepo
type MockSiteRepo struct {
	Sites map[uuid.UUID]*data.Site
}

func (m *MockSiteRepo) Create(ctx context.Context, s *data.Site) error {
	s.ID = uuid.New()
	m.Sites[s.ID] = s
	return nil
}

func (m *MockSiteRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*data.Site, error) {
	s, ok := m.Sites[id]
	if !ok || s.CompanyID != companyID {
		return nil, data.ErrRecordNotFound
	}
	return s, nil
}

func (m *MockSiteRepo) Update(ctx context.Context, s *data.Site) error {
	if _, ok := m.Sites[s.ID]; !ok {
		return data.ErrRecordNotFound
	}
	m.Sites[s.ID] = s
	return nil
}

func (m *MockSiteRepo) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	if _, ok := m.Sites[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.Sites, id)
	return nil
}

func (m *MockSiteRepo) List(ctx context.Context, companyID uuid.UUID, clientID *uuid.UUID, limit, offset int) ([]*data.Site, error) {
	var out []*data.Site
	for _, s := range m.Sites {
		if s.CompanyID == companyID && (clientID == nil || s.ClientID == *clientID) {
			out = append(out, s)
		}
	}
	return out, nil
}

// MockClientRepo
type MockClientRepo struct {
	Clients map[uuid.UUID]*data.Client
}

func (m *MockClientRepo) Create(ctx context.Context, c *data.Client) error {
	c.ID = uuid.New()
	m.Clients[c.ID] = c
	return nil
}

func (m *MockClientRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*data.Client, error) {
	c, ok := m.Clients[id]
	if !ok || c.CompanyID != companyID {
		return nil, data.ErrRecordNotFound
	}
	return c, nil
}

func (m *MockClientRepo) Update(ctx context.Context, c *data.Client) error {
	if _, ok := m.Clients[c.ID]; !ok {
		return data.ErrRecordNotFound
	}
	m.Clients[c.ID] = c
	return nil
}

func (m *MockClientRepo) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	if _, ok := m.Clients[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.Clients, id)
	return nil
}

func (m *MockClientRepo) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*data.Client, int, error) {
	var out []*data.Client
	for _, c := range m.Clients {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}
