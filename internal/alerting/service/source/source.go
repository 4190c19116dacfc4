// Package source provides access to broker metrics snapshots.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// ErrMetricsUnavailable reports that the metrics backend could not
// produce a snapshot for the server. Callers treat this as a transient
// condition and keep previously known alert state untouched.
var ErrMetricsUnavailable = errors.New("metrics unavailable")

// MetricsSource yields the current snapshot for one managed server.
type MetricsSource interface {
	Snapshot(ctx context.Context, serverID string) (*model.MetricsSnapshot, error)
}

// HTTPConfig holds configuration for the HTTP snapshot client.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPSource fetches snapshots from the metrics aggregation endpoint.
type HTTPSource struct {
	config     HTTPConfig
	httpClient *http.Client
}

func NewHTTPSource(config HTTPConfig) *HTTPSource {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Snapshot(ctx context.Context, serverID string) (*model.MetricsSnapshot, error) {
	reqURL := fmt.Sprintf("%s/api/v1/servers/%s/metrics", s.config.BaseURL, url.PathEscape(serverID))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: metrics endpoint returned status %d: %s", ErrMetricsUnavailable, resp.StatusCode, string(body))
	}

	var snap model.MetricsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: failed to decode snapshot: %v", ErrMetricsUnavailable, err)
	}
	if snap.ServerID == "" {
		snap.ServerID = serverID
	}
	return &snap, nil
}

// StaticSource serves fixed snapshots keyed by server id. Used in tests
// and local development.
type StaticSource struct {
	Snapshots map[string]*model.MetricsSnapshot
}

func (s *StaticSource) Snapshot(_ context.Context, serverID string) (*model.MetricsSnapshot, error) {
	snap, ok := s.Snapshots[serverID]
	if !ok || snap == nil {
		return nil, fmt.Errorf("%w: no snapshot for server %s", ErrMetricsUnavailable, serverID)
	}
	return snap, nil
}
