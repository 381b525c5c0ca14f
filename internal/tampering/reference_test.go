package tampering

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/vms-analytics/internal/data"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type refFixture struct {
	coord    *ReferenceCoordinator
	uploader *MockUploader
	cameras  *MockCameraUpdater
	events   *MockEventWriter
	logs     *bytes.Buffer
	log      zerolog.Logger
	req      Requester
}

func newRefFixture(isDay bool) *refFixture {
	f := &refFixture{
		uploader: new(MockUploader),
		cameras:  new(MockCameraUpdater),
		events:   new(MockEventWriter),
		logs:     &bytes.Buffer{},
		req:      Requester{CompanyID: uuid.New(), UserID: uuid.New()},
	}
	f.log = zerolog.New(f.logs)
	f.coord = NewReferenceCoordinator(f.uploader, f.cameras, f.events, FixedDayClock{Day: isDay})
	f.coord.now = func() time.Time { return fixedNow }
	return f
}

func (f *refFixture) errorLines() []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(f.logs.String()), "\n") {
		if strings.Contains(line, `"level":"error"`) {
			out = append(out, line)
		}
	}
	return out
}

func newCamera(cfg *data.TamperingConfig) *data.Camera {
	return &data.Camera{
		ID:                 uuid.New(),
		CompanyID:          uuid.New(),
		Timezone:           "UTC",
		SceneChangeEnabled: true,
		IsEnabled:          true,
		TamperingConfig:    cfg,
	}
}

func TestSetReferenceImage_CreatesNewReference(t *testing.T) {
	f := newRefFixture(true)
	cam := newCamera(nil)
	image := []byte("jpeg")

	f.uploader.On("UploadReferenceImage", mock.Anything, cam.ID, data.PhaseDay, "", image).Return("refs/day-1.jpg", nil).Once()
	f.cameras.On("UpdateView", mock.Anything, f.req.CompanyID, f.req.UserID, cam.ID, mock.MatchedBy(func(p data.CameraPatch) bool {
		cfg := p.TamperingConfig
		return cfg != nil &&
			*cfg.Day.ReferenceImage == "refs/day-1.jpg" &&
			cfg.Day.ReferenceImageUpdatedAt.Equal(fixedNow) &&
			!cfg.Day.IsUpdatingReferenceImage &&
			cfg.Night.ReferenceImage == nil && cfg.Night.ReferenceImageUpdatedAt == nil
	})).Return(cam, nil).Once()
	f.events.On("CreateTamperingEvent", mock.Anything, mock.MatchedBy(func(e *data.TamperingEvent) bool {
		return e.Status == data.TamperingStatusCreated && e.ViewID == cam.ID
	})).Return(nil).Once()

	f.coord.SetReferenceImage(context.Background(), f.req, cam, image, true, f.log)

	f.uploader.AssertExpectations(t)
	f.cameras.AssertExpectations(t)
	f.events.AssertExpectations(t)
	require.NotNil(t, cam.TamperingConfig)
	assert.Equal(t, "refs/day-1.jpg", *cam.TamperingConfig.Day.ReferenceImage)
	assert.Empty(t, f.errorLines())
}

// Calling twice for the same phase keeps the identifier; only bytes and timestamp change.
func TestSetReferenceImage_ReusesIdentifier(t *testing.T) {
	f := newRefFixture(false)
	cam := newCamera(&data.TamperingConfig{Day: ref("refs/day-1.jpg"), Night: ref("refs/night-1.jpg")})
	dayBefore := cam.TamperingConfig.Day

	f.uploader.On("UploadReferenceImage", mock.Anything, cam.ID, data.PhaseNight, "refs/night-1.jpg", mock.Anything).
		Return("refs/night-1.jpg", nil).Twice()
	f.cameras.On("UpdateView", mock.Anything, mock.Anything, mock.Anything, cam.ID, mock.Anything).Return(cam, nil).Twice()
	f.events.On("CreateTamperingEvent", mock.Anything, mock.MatchedBy(func(e *data.TamperingEvent) bool {
		return e.Status == data.TamperingStatusRefreshed
	})).Return(nil).Twice()

	f.coord.SetReferenceImage(context.Background(), f.req, cam, []byte("first"), false, f.log)
	f.coord.now = func() time.Time { return fixedNow.Add(time.Hour) }
	f.coord.SetReferenceImage(context.Background(), f.req, cam, []byte("second"), false, f.log)

	f.uploader.AssertExpectations(t)
	assert.Equal(t, "refs/night-1.jpg", *cam.TamperingConfig.Night.ReferenceImage)
	assert.True(t, cam.TamperingConfig.Night.ReferenceImageUpdatedAt.Equal(fixedNow.Add(time.Hour)))
	assert.Equal(t, dayBefore, cam.TamperingConfig.Day, "day phase untouched")

	calls := f.cameras.Calls
	require.Len(t, calls, 2)
	for _, c := range calls {
		patch := c.Arguments.Get(4).(data.CameraPatch)
		assert.Equal(t, "refs/day-1.jpg", *patch.TamperingConfig.Day.ReferenceImage)
	}
}

func TestSetReferenceImage_FailuresLogOnce(t *testing.T) {
	boom := errors.New("boom")

	t.Run("upload", func(t *testing.T) {
		f := newRefFixture(true)
		cam := newCamera(nil)
		f.uploader.On("UploadReferenceImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", boom)

		f.coord.SetReferenceImage(context.Background(), f.req, cam, []byte("x"), true, f.log)

		assert.Len(t, f.errorLines(), 1)
		f.cameras.AssertNotCalled(t, "UpdateView", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "CreateTamperingEvent", mock.Anything, mock.Anything)
		assert.Nil(t, cam.TamperingConfig)
	})

	t.Run("update", func(t *testing.T) {
		f := newRefFixture(true)
		cam := newCamera(nil)
		f.uploader.On("UploadReferenceImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("id", nil)
		f.cameras.On("UpdateView", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

		f.coord.SetReferenceImage(context.Background(), f.req, cam, []byte("x"), true, f.log)

		assert.Len(t, f.errorLines(), 1)
		f.events.AssertNotCalled(t, "CreateTamperingEvent", mock.Anything, mock.Anything)
	})

	t.Run("camera vanished", func(t *testing.T) {
		f := newRefFixture(true)
		cam := newCamera(nil)
		f.uploader.On("UploadReferenceImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("id", nil)
		f.cameras.On("UpdateView", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		f.coord.SetReferenceImage(context.Background(), f.req, cam, []byte("x"), true, f.log)

		assert.Len(t, f.errorLines(), 1)
		f.events.AssertNotCalled(t, "CreateTamperingEvent", mock.Anything, mock.Anything)
	})

	t.Run("event", func(t *testing.T) {
		f := newRefFixture(true)
		cam := newCamera(nil)
		f.uploader.On("UploadReferenceImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("id", nil)
		f.cameras.On("UpdateView", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(cam, nil)
		f.events.On("CreateTamperingEvent", mock.Anything, mock.Anything).Return(boom)

		f.coord.SetReferenceImage(context.Background(), f.req, cam, []byte("x"), true, f.log)

		lines := f.errorLines()
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], cam.ID.String())
	})
}

func TestMaybeSaveMissingReference(t *testing.T) {
	t.Run("day missing uploads once", func(t *testing.T) {
		f := newRefFixture(true)
		cam := newCamera(&data.TamperingConfig{Night: ref("n")})
		f.uploader.On("UploadReferenceImage", mock.Anything, cam.ID, data.PhaseDay, "", mock.Anything).Return("d", nil).Once()
		f.cameras.On("UpdateView", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(cam, nil)
		f.events.On("CreateTamperingEvent", mock.Anything, mock.Anything).Return(nil)

		f.coord.MaybeSaveMissingReference(context.Background(), f.req, cam, []byte("x"),
			[]Reference{{ID: "n", Label: data.PhaseNight}}, f.log)

		f.uploader.AssertNumberOfCalls(t, "UploadReferenceImage", 1)
	})

	t.Run("day present is a no-op", func(t *testing.T) {
		f := newRefFixture(true)
		cam := newCamera(&data.TamperingConfig{Day: ref("d")})

		f.coord.MaybeSaveMissingReference(context.Background(), f.req, cam, []byte("x"),
			[]Reference{{ID: "d", Label: data.PhaseDay}}, f.log)

		f.uploader.AssertNumberOfCalls(t, "UploadReferenceImage", 0)
	})
}
