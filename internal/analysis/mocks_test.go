package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/technosupport/vms-analytics/internal/capabilities"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/engine"
	"github.com/technosupport/vms-analytics/internal/results"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

type MockCameras struct{ mock.Mock }

func (m *MockCameras) GetCamera(ctx context.Context, companyID, id uuid.UUID) (*data.Camera, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Camera), args.Error(1)
}

type MockCapabilities struct{ mock.Mock }

func (m *MockCapabilities) CheckDetectionCapabilities(ctx context.Context, companyID uuid.UUID, detections []string) (capabilities.Verdict, error) {
	args := m.Called(ctx, companyID, detections)
	return args.Get(0).(capabilities.Verdict), args.Error(1)
}

type MockEngine struct{ mock.Mock }

func (m *MockEngine) Analyze(ctx context.Context, req engine.Request) (*engine.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Result), args.Error(1)
}

type MockInterpreter struct{ mock.Mock }

func (m *MockInterpreter) ToResponse(viewID uuid.UUID, payload tampering.DetectionPayload, verdict *engine.TamperingVerdict) tampering.Interpretation {
	return m.Called(viewID, payload, verdict).Get(0).(tampering.Interpretation)
}

func (m *MockInterpreter) Apply(ctx context.Context, req tampering.Requester, cam *data.Camera, image []byte, payload tampering.DetectionPayload, verdict *engine.TamperingVerdict, log zerolog.Logger) {
	m.Called(ctx, req, cam, image, payload, verdict)
}

type MockResults struct{ mock.Mock }

func (m *MockResults) Save(ctx context.Context, r *results.AnalysisResult) error {
	return m.Called(ctx, r).Error(0)
}

type MockWindowSource struct{ mock.Mock }

func (m *MockWindowSource) WindowsFor(ctx context.Context, companyID uuid.UUID) (data.WindowConfig, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(data.WindowConfig), args.Error(1)
}

type MockDetectionStore struct{ mock.Mock }

func (m *MockDetectionStore) ListTamperingDetections(ctx context.Context, viewID uuid.UUID, since time.Time) ([]data.TamperingDetection, error) {
	args := m.Called(ctx, viewID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.TamperingDetection), args.Error(1)
}
