package cameras

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/vms-analytics/internal/data"
)

type fixture struct {
	svc     *Service
	cams    *MockCameraRepo
	sites   *MockSiteRepo
	clients *MockClientRepo
	audit   *MockAuditor
	actor   Actor
	client  *data.Client
	site    *data.Site
}

func newFixture(maxCameras int) *fixture {
	actor := Actor{CompanyID: uuid.New(), UserID: uuid.New()}
	client := &data.Client{ID: uuid.New(), CompanyID: actor.CompanyID, Name: "Acme"}
	site := &data.Site{ID: uuid.New(), CompanyID: actor.CompanyID, ClientID: client.ID, Name: "HQ", Timezone: "Europe/Berlin"}

	f := &fixture{
		cams:    NewMockCameraRepo(),
		sites:   &MockSiteRepo{Sites: map[uuid.UUID]*data.Site{site.ID: site}},
		clients: &MockClientRepo{Clients: map[uuid.UUID]*data.Client{client.ID: client}},
		audit:   &MockAuditor{},
		actor:   actor,
		client:  client,
		site:    site,
	}
	f.svc = NewService(f.cams, f.sites, f.clients, f.audit, maxCameras)
	return f
}

func TestCreateCamera_Success(t *testing.T) {
	f := newFixture(10)
	cam := &data.Camera{Name: "Gate", ClientID: f.client.ID, SiteID: f.site.ID}

	require.NoError(t, f.svc.CreateCamera(context.Background(), f.actor, cam))
	assert.NotEqual(t, uuid.Nil, cam.ID)
	assert.Equal(t, "Europe/Berlin", cam.Timezone)

	require.Len(t, f.audit.Events, 1)
	evt := f.audit.Events[0]
	assert.Equal(t, "camera.create", evt.Action)
	assert.Equal(t, f.actor.CompanyID, evt.CompanyID)
	require.NotNil(t, evt.ActorUserID)
	assert.Equal(t, f.actor.UserID, *evt.ActorUserID)
}

func TestCreateCamera_QuotaExceeded(t *testing.T) {
	f := newFixture(5)
	f.cams.Count = 5

	err := f.svc.CreateCamera(context.Background(), f.actor, &data.Camera{Name: "Gate", ClientID: f.client.ID, SiteID: f.site.ID})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, f.audit.Events)
}

func TestCreateCamera_SiteOfOtherClient(t *testing.T) {
	f := newFixture(0)
	err := f.svc.CreateCamera(context.Background(), f.actor, &data.Camera{Name: "Gate", ClientID: uuid.New(), SiteID: f.site.ID})
	assert.ErrorIs(t, err, ErrSiteScopeMismatch)
}

func TestCreateCamera_InvalidName(t *testing.T) {
	f := newFixture(0)
	err := f.svc.CreateCamera(context.Background(), f.actor, &data.Camera{Name: "", SiteID: f.site.ID})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)
}

func TestUpdateView_PreservesOtherFields(t *testing.T) {
	f := newFixture(0)
	ref := "references/day.jpg"
	cam := &data.Camera{
		ID: uuid.New(), CompanyID: f.actor.CompanyID, Name: "Dock", SceneChangeEnabled: true,
		TamperingConfig: &data.TamperingConfig{Day: data.ReferencePhase{ReferenceImage: &ref}},
	}
	f.cams.Cameras[cam.ID] = cam

	night := "references/night.jpg"
	cfg := cam.TamperingConfig.WithPhase(data.PhaseNight, data.ReferencePhase{ReferenceImage: &night})
	updated, err := f.svc.UpdateView(context.Background(), f.actor.CompanyID, f.actor.UserID, cam.ID, data.CameraPatch{TamperingConfig: &cfg})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "Dock", updated.Name)
	assert.True(t, updated.SceneChangeEnabled)
	assert.Equal(t, ref, *updated.TamperingConfig.Day.ReferenceImage)
	assert.Equal(t, night, *updated.TamperingConfig.Night.ReferenceImage)

	require.Len(t, f.audit.Events, 1)
	assert.JSONEq(t, `{"fields":["tampering_config"]}`, string(f.audit.Events[0].Metadata))
}

func TestUpdateView_MissingCamera(t *testing.T) {
	f := newFixture(0)
	enabled := true
	updated, err := f.svc.UpdateView(context.Background(), f.actor.CompanyID, f.actor.UserID, uuid.New(), data.CameraPatch{SceneChangeEnabled: &enabled})
	assert.NoError(t, err)
	assert.Nil(t, updated)
	assert.Empty(t, f.audit.Events)
}

func TestUpdateView_EmptyPatch(t *testing.T) {
	f := newFixture(0)
	_, err := f.svc.UpdateView(context.Background(), f.actor.CompanyID, f.actor.UserID, uuid.New(), data.CameraPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestSetSceneChange_NotFound(t *testing.T) {
	f := newFixture(0)
	_, err := f.svc.SetSceneChange(context.Background(), f.actor, uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResetReferences(t *testing.T) {
	f := newFixture(0)
	ref := "references/day.jpg"
	cam := &data.Camera{ID: uuid.New(), CompanyID: f.actor.CompanyID, Name: "Dock",
		TamperingConfig: &data.TamperingConfig{Day: data.ReferencePhase{ReferenceImage: &ref}}}
	f.cams.Cameras[cam.ID] = cam

	require.NoError(t, f.svc.ResetReferences(context.Background(), f.actor, cam.ID))
	assert.Nil(t, f.cams.Cameras[cam.ID].TamperingConfig)
	assert.True(t, f.cams.Patches[0].ClearTampering)
}

func TestEnableDisable_AuditAction(t *testing.T) {
	f := newFixture(0)
	cam := &data.Camera{ID: uuid.New(), CompanyID: f.actor.CompanyID, Name: "Dock"}
	f.cams.Cameras[cam.ID] = cam

	require.NoError(t, f.svc.EnableCamera(context.Background(), f.actor, cam.ID))
	require.NoError(t, f.svc.DisableCamera(context.Background(), f.actor, cam.ID))

	require.Len(t, f.audit.Events, 2)
	assert.Equal(t, "camera.enable", f.audit.Events[0].Action)
	assert.Equal(t, "camera.disable", f.audit.Events[1].Action)
	assert.False(t, cam.IsEnabled)
}

func TestDeleteCamera_OtherCompany(t *testing.T) {
	f := newFixture(0)
	cam := &data.Camera{ID: uuid.New(), CompanyID: uuid.New(), Name: "Foreign"}
	f.cams.Cameras[cam.ID] = cam

	err := f.svc.DeleteCamera(context.Background(), f.actor, cam.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSite_Validation(t *testing.T) {
	f := newFixture(0)
	lat := 52.5

	tests := []struct {
		name  string
		site  data.Site
		field string
	}{
		{"bad timezone", data.Site{Name: "A", ClientID: f.client.ID, Timezone: "Mars/Base"}, "timezone"},
		{"half coordinates", data.Site{Name: "A", ClientID: f.client.ID, Timezone: "UTC", Latitude: &lat}, "latitude"},
		{"empty name", data.Site{ClientID: f.client.ID, Timezone: "UTC"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := tt.site
			err := f.svc.CreateSite(context.Background(), f.actor, &site)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreateSite_UnknownClient(t *testing.T) {
	f := newFixture(0)
	err := f.svc.CreateSite(context.Background(), f.actor, &data.Site{Name: "A", ClientID: uuid.New(), Timezone: "UTC"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateClient_InvalidEmail(t *testing.T) {
	f := newFixture(0)
	err := f.svc.CreateClient(context.Background(), f.actor, &data.Client{Name: "B", ContactEmail: "not-an-email"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "contact_email", ve.Field)
}

func TestListClients_PageClamp(t *testing.T) {
	f := newFixture(0)
	clients, total, err := f.svc.ListClients(context.Background(), f.actor.CompanyID, 500, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, clients, 1)
}
