package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/technosupport/vms-analytics/internal/engine"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

const DefaultRetention = 7 * 24 * time.Hour

var ErrNotFound = errors.New("analysis result not found")

type ObjectDetection struct {
	BoundingBoxes []engine.BoundingBox `json:"boundingBoxes"`
}

type Summary struct {
	Valid     bool   `json:"valid"`
	AlarmType string `json:"alarmType,omitempty"`
	Faces     int    `json:"faces,omitempty"`
	Guns      int    `json:"guns,omitempty"`
}

// AnalysisResult is the caller-visible outcome of one analysis request.
type AnalysisResult struct {
	ID              uuid.UUID             `json:"id"`
	ViewID          uuid.UUID             `json:"viewId"`
	CompanyID       uuid.UUID             `json:"companyId"`
	SceneChange     tampering.SceneChange `json:"sceneChange"`
	Tampering       tampering.Summary     `json:"tampering"`
	TamperingFlags  tampering.Flags       `json:"tamperingFlags"`
	ObjectDetection ObjectDetection       `json:"objectDetection"`
	ResultSummary   Summary               `json:"resultSummary"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// RedisStore keeps results for a retention period.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRetention
	}
	return &RedisStore{client: client, ttl: ttl}
}

func resultKey(companyID, viewID, id uuid.UUID) string {
	return fmt.Sprintf("analysis:%s:%s:%s", companyID, viewID, id)
}

func (s *RedisStore) Save(ctx context.Context, r *AnalysisResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.client.Set(ctx, resultKey(r.CompanyID, r.ViewID, r.ID), b, s.ttl).Err()
}

// Get is scoped by company and view so ids cannot be read across tenants.
func (s *RedisStore) Get(ctx context.Context, companyID, viewID, id uuid.UUID) (*AnalysisResult, error) {
	b, err := s.client.Get(ctx, resultKey(companyID, viewID, id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r AnalysisResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}
