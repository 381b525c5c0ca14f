package tampering

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/metrics"
)

// CameraUpdater persists camera mutations. A nil camera with a nil error
// means the camera no longer exists.
type CameraUpdater interface {
	UpdateView(ctx context.Context, companyID, userID, viewID uuid.UUID, patch data.CameraPatch) (*data.Camera, error)
}

// ReferenceUploader stores reference image bytes. When existingID is set
// the same identifier is returned and only the bytes are replaced.
type ReferenceUploader interface {
	UploadReferenceImage(ctx context.Context, viewID uuid.UUID, phase data.Phase, existingID string, image []byte) (string, error)
}

type EventWriter interface {
	CreateTamperingEvent(ctx context.Context, evt *data.TamperingEvent) error
}

// Requester identifies who triggered the analysis; reference writes are attributed to them.
type Requester struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
}

// ReferenceCoordinator creates and refreshes reference images. Its methods
// never fail the caller: every error is logged once and the operation stops.
type ReferenceCoordinator struct {
	uploader ReferenceUploader
	cameras  CameraUpdater
	events   EventWriter
	clock    DayClock
	now      func() time.Time
}

func NewReferenceCoordinator(up ReferenceUploader, cams CameraUpdater, events EventWriter, clock DayClock) *ReferenceCoordinator {
	return &ReferenceCoordinator{
		uploader: up,
		cameras:  cams,
		events:   events,
		clock:    clock,
		now:      time.Now,
	}
}

// SetReferenceImage stores image as the reference of the day or night phase.
// An existing identifier is reused. The other phase is written back as is.
func (c *ReferenceCoordinator) SetReferenceImage(ctx context.Context, req Requester, cam *data.Camera, image []byte, isDayTime bool, log zerolog.Logger) {
	phase := PhaseFor(isDayTime)
	log = log.With().Str("view_id", cam.ID.String()).Str("phase", string(phase)).Logger()

	existing := ""
	if current := cam.TamperingConfig.Phase(phase); current.HasReference() {
		existing = *current.ReferenceImage
	}

	id, err := c.uploader.UploadReferenceImage(ctx, cam.ID, phase, existing, image)
	if err != nil {
		log.Error().Err(err).Msg("reference image upload failed")
		metrics.RecordReferenceWrite(string(phase), "upload_error")
		return
	}

	updatedAt := c.now().UTC()
	cfg := cam.TamperingConfig.WithPhase(phase, data.ReferencePhase{
		ReferenceImage:           &id,
		ReferenceImageUpdatedAt:  &updatedAt,
		IsUpdatingReferenceImage: false,
	})

	updated, err := c.cameras.UpdateView(ctx, req.CompanyID, req.UserID, cam.ID, data.CameraPatch{TamperingConfig: &cfg})
	if err != nil {
		log.Error().Err(err).Str("reference_image", id).Msg("saving tampering config failed")
		metrics.RecordReferenceWrite(string(phase), "update_error")
		return
	}
	if updated == nil {
		log.Error().Str("reference_image", id).Msg("camera vanished while saving tampering config")
		metrics.RecordReferenceWrite(string(phase), "update_error")
		return
	}
	cam.TamperingConfig = &cfg

	status := data.TamperingStatusCreated
	if existing != "" {
		status = data.TamperingStatusRefreshed
	}
	metrics.RecordReferenceWrite(string(phase), status)

	meta, _ := json.Marshal(map[string]any{"phase": phase, "referenceImage": id})
	evt := &data.TamperingEvent{
		ViewID:    cam.ID,
		CompanyID: cam.CompanyID,
		Status:    status,
		Timestamp: updatedAt,
		Metadata:  meta,
	}
	if err := c.events.CreateTamperingEvent(ctx, evt); err != nil {
		log.Error().Err(err).Str("status", status).Msg("writing tampering event failed")
		return
	}
	log.Info().Str("reference_image", id).Str("status", status).Msg("reference image saved")
}

// MaybeSaveMissingReference fills the current local phase from image when
// that phase was not among the references just compared.
func (c *ReferenceCoordinator) MaybeSaveMissingReference(ctx context.Context, req Requester, cam *data.Camera, image []byte, references []Reference, log zerolog.Logger) {
	isDay := c.clock.IsDayTime(cam, c.now())
	phase := PhaseFor(isDay)
	for _, r := range references {
		if r.Label == phase {
			return
		}
	}
	c.SetReferenceImage(ctx, req, cam, image, isDay, log)
}

// IsDayTime exposes the coordinator's clock for the current instant.
func (c *ReferenceCoordinator) IsDayTime(cam *data.Camera) bool {
	return c.clock.IsDayTime(cam, c.now())
}
