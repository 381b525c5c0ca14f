package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/data"
)

// ReferenceImages addresses reference images inside a Store.
type ReferenceImages struct {
	store   Store
	baseURL string
}

func NewReferenceImages(store Store, publicBaseURL string) *ReferenceImages {
	return &ReferenceImages{store: store, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// UploadReferenceImage writes image under existingID when set, otherwise under a fresh key.
func (r *ReferenceImages) UploadReferenceImage(ctx context.Context, viewID uuid.UUID, phase data.Phase, existingID string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty reference image for view %s", viewID)
	}
	id := existingID
	if id == "" {
		id = fmt.Sprintf("references/%s/%s-%s.jpg", viewID, phase, uuid.New())
	}
	if err := r.store.Put(ctx, id, image); err != nil {
		return "", fmt.Errorf("store reference image: %w", err)
	}
	return id, nil
}

func (r *ReferenceImages) Fetch(ctx context.Context, id string) ([]byte, error) {
	return r.store.Get(ctx, id)
}

// ReferenceURL is the API address of a view's reference image; the phase is
// the query discriminator.
func (r *ReferenceImages) ReferenceURL(viewID uuid.UUID, phase data.Phase) string {
	q := url.Values{"phase": []string{string(phase)}}
	return fmt.Sprintf("%s/api/v1/views/%s/reference-image?%s", r.baseURL, viewID, q.Encode())
}
