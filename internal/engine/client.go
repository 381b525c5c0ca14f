package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/technosupport/vms-analytics/internal/metrics"
)

// ErrNoValidImages is reported when the engine could not process any of the
// submitted images. It is a client error, not an engine failure.
var ErrNoValidImages = errors.New("engine could not process any valid image")

const kindNoValidImages = "no_valid_images"

// Error is a non-2xx engine response.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("engine returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("engine returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the external analysis engine over JSON/HTTP.
// Timeouts belong to the engine client, never to the caller's flow.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// EncodeImages base64 encodes raw image bytes for a Request.
func EncodeImages(images [][]byte) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, base64.StdEncoding.EncodeToString(img))
	}
	return out
}

// Analyze submits images and options and returns the raw verdict.
func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal engine request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	metrics.RecordEngineLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read engine response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		if eb.Error.Kind == kindNoValidImages {
			return nil, fmt.Errorf("%w: %s", ErrNoValidImages, eb.Error.Message)
		}
		msg := eb.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Kind: eb.Error.Kind, Message: msg}
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode engine response: %w", err)
	}
	return &result, nil
}
