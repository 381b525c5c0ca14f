package capabilities

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/technosupport/vms-analytics/internal/metrics"
)

// Detection names. A company must hold the capability of the same name.
const (
	Object    = "object"
	Face      = "face"
	Gun       = "gun"
	Tampering = "tampering"
)

var Known = []string{Object, Face, Gun, Tampering}

func IsKnown(name string) bool {
	for _, k := range Known {
		if k == name {
			return true
		}
	}
	return false
}

type Source interface {
	ListCapabilities(ctx context.Context, companyID uuid.UUID) ([]string, error)
}

// Verdict lists the requested detections the company is not entitled to.
type Verdict struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
}

func (v Verdict) Lacks(name string) bool {
	for _, m := range v.Missing {
		if m == name {
			return true
		}
	}
	return false
}

// Checker caches each company's capability set for a short TTL.
type Checker struct {
	source Source
	cache  *expirable.LRU[uuid.UUID, map[string]struct{}]
}

func NewChecker(source Source, size int, ttl time.Duration) *Checker {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Checker{
		source: source,
		cache:  expirable.NewLRU[uuid.UUID, map[string]struct{}](size, nil, ttl),
	}
}

func (c *Checker) load(ctx context.Context, companyID uuid.UUID) (map[string]struct{}, error) {
	if set, ok := c.cache.Get(companyID); ok {
		metrics.RecordCapabilityLookup(true)
		return set, nil
	}
	metrics.RecordCapabilityLookup(false)

	caps, err := c.source.ListCapabilities(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load capabilities: %w", err)
	}
	set := make(map[string]struct{}, len(caps))
	for _, cp := range caps {
		set[cp] = struct{}{}
	}
	c.cache.Add(companyID, set)
	return set, nil
}

func (c *Checker) CheckDetectionCapabilities(ctx context.Context, companyID uuid.UUID, detections []string) (Verdict, error) {
	set, err := c.load(ctx, companyID)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Valid: true}
	for _, d := range detections {
		if _, ok := set[d]; !ok {
			v.Valid = false
			v.Missing = append(v.Missing, d)
		}
	}
	return v, nil
}

// Invalidate drops the cached set, e.g. after an entitlement change.
func (c *Checker) Invalidate(companyID uuid.UUID) {
	c.cache.Remove(companyID)
}
