package tampering

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/technosupport/vms-analytics/internal/data"
)

// MockDetectionStore
type MockDetectionStore struct {
	mock.Mock
}

func (m *MockDetectionStore) ListTamperingDetections(ctx context.Context, viewID uuid.UUID, since time.Time) ([]data.TamperingDetection, error) {
	args := m.Called(ctx, viewID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.TamperingDetection), args.Error(1)
}

func (m *MockDetectionStore) Insert(ctx context.Context, d *data.TamperingDetection) error {
	return m.Called(ctx, d).Error(0)
}

// MockUploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadReferenceImage(ctx context.Context, viewID uuid.UUID, phase data.Phase, existingID string, image []byte) (string, error) {
	args := m.Called(ctx, viewID, phase, existingID, image)
	return args.String(0), args.Error(1)
}

// MockCameraUpdater
type MockCameraUpdater struct {
	mock.Mock
}

func (m *MockCameraUpdater) UpdateView(ctx context.Context, companyID, userID, viewID uuid.UUID, patch data.CameraPatch) (*data.Camera, error) {
	args := m.Called(ctx, companyID, userID, viewID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Camera), args.Error(1)
}

// MockEventWriter
type MockEventWriter struct {
	mock.Mock
}

func (m *MockEventWriter) CreateTamperingEvent(ctx context.Context, evt *data.TamperingEvent) error {
	return m.Called(ctx, evt).Error(0)
}

// MockWindowSource
type MockWindowSource struct {
	mock.Mock
}

func (m *MockWindowSource) WindowsFor(ctx context.Context, companyID uuid.UUID) (data.WindowConfig, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(data.WindowConfig), args.Error(1)
}

// FixedDayClock always answers Day.
type FixedDayClock struct {
	Day bool
}

func (c FixedDayClock) IsDayTime(cam *data.Camera, now time.Time) bool {
	return c.Day
}
