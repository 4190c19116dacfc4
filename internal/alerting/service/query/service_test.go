package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/alerting/service/lifecycle"
	"github.com/lepusmq/lepusmon/internal/alerting/service/source"
	"github.com/lepusmq/lepusmon/internal/alerting/service/threshold"
	"github.com/lepusmq/lepusmon/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func alert(id string, sev model.Severity, cat model.Category, st model.SourceType, vhost string, age time.Duration) model.Alert {
	return model.Alert{
		ID:          id,
		WorkspaceID: "ws-1",
		ServerID:    "srv-1",
		Severity:    sev,
		Category:    cat,
		Source:      model.AlertSource{Type: st, Name: "x"},
		VHost:       vhost,
		Timestamp:   baseTime.Add(-age),
	}
}

func newTestService(t *testing.T, active []model.Alert, resolved []model.Alert, plans PlanResolver) *Service {
	t.Helper()
	ctx := context.Background()
	as := lifecycle.NewMemoryActiveStore()
	require.NoError(t, as.Replace(ctx, "ws-1", "srv-1", active))
	rs := lifecycle.NewMemoryResolvedStore()
	require.NoError(t, rs.Add(ctx, "ws-1", "srv-1", resolved))
	thresholds := threshold.NewStore(threshold.NewMemoryRepo(), nil)
	src := &source.StaticSource{}
	return NewService(as, rs, thresholds, src, plans, &clock.Fixed{T: baseTime})
}

func TestServerAlertsRequiresVHost(t *testing.T) {
	s := newTestService(t, nil, nil, nil)
	_, err := s.ServerAlerts(context.Background(), "ws-1", "srv-1", Filter{})
	assert.ErrorIs(t, err, ErrVHostRequired)
}

func TestServerAlertsVHostScoping(t *testing.T) {
	active := []model.Alert{
		alert("a-node", model.SeverityWarning, model.CategoryMemory, model.SourceNode, "", time.Minute),
		alert("a-cluster", model.SeverityWarning, model.CategoryConnection, model.SourceCluster, "", 2*time.Minute),
		alert("a-q-prod", model.SeverityCritical, model.CategoryQueue, model.SourceQueue, "/prod", 3*time.Minute),
		alert("a-q-stg", model.SeverityCritical, model.CategoryQueue, model.SourceQueue, "/staging", 4*time.Minute),
	}
	s := newTestService(t, active, nil, nil)

	res, err := s.ServerAlerts(context.Background(), "ws-1", "srv-1", Filter{VHost: "/prod"})
	require.NoError(t, err)

	// node and cluster alerts pass regardless of vhost, queue alerts
	// only when theirs matches
	ids := make([]string, 0, len(res.Alerts))
	for _, a := range res.Alerts {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"a-node", "a-cluster", "a-q-prod"}, ids)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Summary.Total)
}

func TestServerAlertsSortNewestFirstStable(t *testing.T) {
	sameAge := 5 * time.Minute
	active := []model.Alert{
		alert("b", model.SeverityWarning, model.CategoryMemory, model.SourceNode, "", sameAge),
		alert("a", model.SeverityWarning, model.CategoryMemory, model.SourceNode, "", sameAge),
		alert("c", model.SeverityWarning, model.CategoryMemory, model.SourceNode, "", time.Minute),
	}
	s := newTestService(t, active, nil, nil)
	res, err := s.ServerAlerts(context.Background(), "ws-1", "srv-1", Filter{VHost: "/"})
	require.NoError(t, err)

	require.Len(t, res.Alerts, 3)
	assert.Equal(t, "c", res.Alerts[0].ID, "newest first")
	assert.Equal(t, "a", res.Alerts[1].ID, "equal timestamps ordered by id")
	assert.Equal(t, "b", res.Alerts[2].ID)
}

func TestServerAlertsFreeTierSuppression(t *testing.T) {
	active := []model.Alert{
		alert("a1", model.SeverityCritical, model.CategoryMemory, model.SourceNode, "", time.Minute),
		alert("a2", model.SeverityWarning, model.CategoryDisk, model.SourceNode, "", 2*time.Minute),
	}
	s := newTestService(t, active, nil, StaticPlanResolver{"ws-1": PlanFree})

	res, err := s.ServerAlerts(context.Background(), "ws-1", "srv-1", Filter{VHost: "/"})
	require.NoError(t, err)
	assert.Empty(t, res.Alerts, "free tier hides the detail list")
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Summary.Critical)
	assert.Equal(t, 1, res.Summary.Warning)
}

func TestServerAlertsHealthRollUp(t *testing.T) {
	active := []model.Alert{
		alert("a1", model.SeverityCritical, model.CategoryMemory, model.SourceNode, "", time.Minute),
		alert("a2", model.SeverityWarning, model.CategoryDisk, model.SourceNode, "", 2*time.Minute),
	}
	active[0].Title = "Memory usage critical"
	s := newTestService(t, active, nil, nil)

	res, err := s.ServerAlerts(context.Background(), "ws-1", "srv-1", Filter{VHost: "/"})
	require.NoError(t, err)
	assert.Equal(t, model.HealthCritical, res.Health.Status)
	assert.Contains(t, res.Health.Issues, "Memory usage critical")
	assert.Equal(t, 1, res.Health.Summary.Critical)

	// warnings alone only degrade
	res, err = s.ServerAlerts(context.Background(), "ws-1", "srv-1",
		Filter{VHost: "/", Severity: model.SeverityWarning})
	require.NoError(t, err)
	assert.Equal(t, model.HealthDegraded, res.Health.Status)

	empty := newTestService(t, nil, nil, nil)
	res, err = empty.ServerAlerts(context.Background(), "ws-1", "srv-1", Filter{VHost: "/"})
	require.NoError(t, err)
	assert.Equal(t, model.HealthHealthy, res.Health.Status)
}

func TestResolvedAlertsFilterAndPaginationConsistency(t *testing.T) {
	var archive []model.Alert
	severities := []model.Severity{model.SeverityCritical, model.SeverityWarning}
	categories := []model.Category{model.CategoryMemory, model.CategoryQueue}
	i := 0
	for _, sev := range severities {
		for _, cat := range categories {
			for n := 0; n < 3; n++ {
				st := model.SourceNode
				vhost := ""
				if cat == model.CategoryQueue {
					st = model.SourceQueue
					vhost = "/prod"
				}
				a := alert(string(rune('a'+i)), sev, cat, st, vhost, time.Duration(i)*time.Minute)
				a.Resolved = true
				archive = append(archive, a)
				i++
			}
		}
	}
	s := newTestService(t, nil, archive, nil)
	ctx := context.Background()

	for _, tc := range []Filter{
		{},
		{Severity: model.SeverityCritical},
		{Category: model.CategoryQueue},
		{Severity: model.SeverityWarning, Category: model.CategoryMemory},
		{VHost: "/prod"},
	} {
		full, err := s.ResolvedAlerts(ctx, "ws-1", "srv-1", tc)
		require.NoError(t, err)

		paged := tc
		paged.Limit = 2
		paged.Offset = 1
		page, err := s.ResolvedAlerts(ctx, "ws-1", "srv-1", paged)
		require.NoError(t, err)

		assert.Equal(t, len(full.Alerts), full.Total, "unpaginated total matches list length")
		assert.Equal(t, full.Total, page.Total, "total is pre-pagination for %+v", tc)
		if full.Total > 1 {
			assert.Equal(t, full.Alerts[1].ID, page.Alerts[0].ID, "offset applies after sorting")
		}
	}
}

func TestResolvedAlertsOffsetPastEnd(t *testing.T) {
	archive := []model.Alert{
		alert("a", model.SeverityWarning, model.CategoryMemory, model.SourceNode, "", time.Minute),
	}
	s := newTestService(t, nil, archive, nil)
	res, err := s.ResolvedAlerts(context.Background(), "ws-1", "srv-1", Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)
	assert.Equal(t, 1, res.Total)
}

func TestHealthCheckUnreachableMetrics(t *testing.T) {
	s := newTestService(t, nil, nil, nil)
	health, err := s.HealthCheck(context.Background(), "ws-1", "srv-unknown")
	require.NoError(t, err)
	assert.Equal(t, model.ComponentCritical, health.Overall)
	assert.Equal(t, model.ComponentCritical, health.Components["connectivity"].Status)
	for _, name := range model.HealthComponents {
		_, ok := health.Components[name]
		assert.True(t, ok, "component %s missing", name)
	}
}

func TestHealthCheckGradesComponents(t *testing.T) {
	src := &source.StaticSource{Snapshots: map[string]*model.MetricsSnapshot{
		"srv-1": {
			ServerID: "srv-1",
			Nodes: []model.NodeMetrics{
				{Name: "n1", MemoryUsedPercent: 85, DiskFreePercent: 60},
				{Name: "n2", MemoryUsedPercent: 40, DiskFreePercent: 8},
			},
			Queues: []model.QueueMetrics{{Name: "orders", VHost: "/", Messages: 100}},
		},
	}}
	thresholds := threshold.NewStore(threshold.NewMemoryRepo(), nil)
	s := NewService(lifecycle.NewMemoryActiveStore(), lifecycle.NewMemoryResolvedStore(), thresholds, src, nil, &clock.Fixed{T: baseTime})

	health, err := s.HealthCheck(context.Background(), "ws-1", "srv-1")
	require.NoError(t, err)
	assert.Equal(t, model.ComponentHealthy, health.Components["connectivity"].Status)
	assert.Equal(t, model.ComponentWarning, health.Components["memory"].Status)
	assert.Equal(t, model.ComponentCritical, health.Components["disk"].Status)
	assert.Equal(t, model.ComponentHealthy, health.Components["queues"].Status)
	assert.Equal(t, model.ComponentCritical, health.Overall)
}

func TestCachedPlanResolverMemoizes(t *testing.T) {
	calls := 0
	inner := planFunc(func(ctx context.Context, ws string) (string, error) {
		calls++
		return PlanFree, nil
	})
	r := NewCachedPlanResolver(inner, time.Minute)
	for i := 0; i < 3; i++ {
		plan, err := r.Plan(context.Background(), "ws-1")
		require.NoError(t, err)
		assert.Equal(t, PlanFree, plan)
	}
	assert.Equal(t, 1, calls, "plan lookups must be cached")
}

func TestCachedPlanResolverDoesNotCacheErrors(t *testing.T) {
	calls := 0
	inner := planFunc(func(ctx context.Context, ws string) (string, error) {
		calls++
		return "", errors.New("upstream down")
	})
	r := NewCachedPlanResolver(inner, time.Minute)
	for i := 0; i < 2; i++ {
		_, err := r.Plan(context.Background(), "ws-1")
		assert.Error(t, err)
	}
	assert.Equal(t, 2, calls)
}

type planFunc func(ctx context.Context, workspaceID string) (string, error)

func (f planFunc) Plan(ctx context.Context, workspaceID string) (string, error) {
	return f(ctx, workspaceID)
}
