// Package query serves the read side of the alerting core: filtered,
// paginated views over active and resolved alerts plus health probes.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/alerting/service/lifecycle"
	"github.com/lepusmq/lepusmon/internal/alerting/service/source"
	"github.com/lepusmq/lepusmon/internal/alerting/service/threshold"
	"github.com/lepusmq/lepusmon/internal/clock"
	"github.com/rs/zerolog/log"
)

var (
	// ErrVHostRequired is returned when an active-alert query omits the
	// mandatory vhost filter.
	ErrVHostRequired = errors.New("vhost is required")

	// ErrNotFound reports an unknown workspace or server.
	ErrNotFound = errors.New("not found")
)

// Filter narrows an alert query. Zero values mean "no constraint";
// Limit <= 0 returns all matching rows.
type Filter struct {
	Severity model.Severity
	Category model.Category
	Resolved *bool
	VHost    string
	Limit    int
	Offset   int
}

// ServerAlertsResult is the active-alert view for one server.
type ServerAlertsResult struct {
	Alerts     []model.Alert              `json:"alerts"`
	Summary    model.AlertSummary         `json:"summary"`
	Health     model.ClusterHealthSummary `json:"health"`
	Thresholds model.ThresholdSet         `json:"thresholds"`
	Total      int                        `json:"total"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// ResolvedAlertsResult is one page of the resolved-alert archive.
type ResolvedAlertsResult struct {
	Alerts    []model.Alert `json:"alerts"`
	Total     int           `json:"total"`
	Timestamp time.Time     `json:"timestamp"`
}

// Service answers read queries against the tracked alert collections.
type Service struct {
	active     lifecycle.ActiveStore
	resolved   lifecycle.ResolvedStore
	thresholds *threshold.Store
	source     source.MetricsSource
	plans      PlanResolver
	clock      clock.Clock
}

func NewService(active lifecycle.ActiveStore, resolved lifecycle.ResolvedStore, thresholds *threshold.Store, src source.MetricsSource, plans PlanResolver, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if plans == nil {
		plans = StaticPlanResolver{}
	}
	return &Service{
		active:     active,
		resolved:   resolved,
		thresholds: thresholds,
		source:     src,
		plans:      plans,
		clock:      clk,
	}
}

// ServerAlerts returns the active-alert view for one server scoped to
// the given vhost. Node and cluster scoped alerts are included for any
// vhost; queue scoped alerts only when their vhost matches. Free-tier
// workspaces get summary and total but an empty alert list.
func (s *Service) ServerAlerts(ctx context.Context, workspaceID, serverID string, f Filter) (*ServerAlertsResult, error) {
	if f.VHost == "" {
		return nil, ErrVHostRequired
	}

	active, err := s.active.List(ctx, workspaceID, serverID)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}

	filtered := applyFilters(active, f)
	sortNewestFirst(filtered)
	total := len(filtered)
	summary := model.Summarize(filtered)
	page := paginate(filtered, f.Limit, f.Offset)

	plan, err := s.plans.Plan(ctx, workspaceID)
	if err != nil {
		log.Warn().Err(err).Str("workspace_id", workspaceID).Msg("plan lookup failed, serving full detail")
	} else if plan == PlanFree {
		page = []model.Alert{}
	}

	return &ServerAlertsResult{
		Alerts:     page,
		Summary:    summary,
		Health:     model.ComputeClusterHealth(filtered),
		Thresholds: s.thresholds.GetThresholds(ctx, workspaceID),
		Total:      total,
		Timestamp:  s.clock.Now(),
	}, nil
}

// ResolvedAlerts returns one page of the resolved archive for a server.
// Unlike the active view, vhost here is an ordinary optional filter.
func (s *Service) ResolvedAlerts(ctx context.Context, workspaceID, serverID string, f Filter) (*ResolvedAlertsResult, error) {
	alerts, err := s.resolved.List(ctx, workspaceID, serverID)
	if err != nil {
		return nil, fmt.Errorf("list resolved alerts: %w", err)
	}

	filtered := applyFilters(alerts, f)
	sortNewestFirst(filtered)
	total := len(filtered)
	page := paginate(filtered, f.Limit, f.Offset)

	return &ResolvedAlertsResult{
		Alerts:    page,
		Total:     total,
		Timestamp: s.clock.Now(),
	}, nil
}

// applyFilters narrows alerts by severity, then category, then
// resolved status, then vhost. Queue scoped alerts must match the
// vhost exactly; node and cluster scoped alerts always pass the vhost
// check.
func applyFilters(alerts []model.Alert, f Filter) []model.Alert {
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.Resolved != nil && a.Resolved != *f.Resolved {
			continue
		}
		if f.VHost != "" && a.Source.Type == model.SourceQueue && a.VHost != f.VHost {
			continue
		}
		out = append(out, a)
	}
	return out
}

// sortNewestFirst orders by timestamp descending, breaking ties by
// identity key so equal timestamps sort the same way every request.
func sortNewestFirst(alerts []model.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if !alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
			return alerts[i].Timestamp.After(alerts[j].Timestamp)
		}
		return alerts[i].ID < alerts[j].ID
	})
}

func paginate(alerts []model.Alert, limit, offset int) []model.Alert {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(alerts) {
		return []model.Alert{}
	}
	alerts = alerts[offset:]
	if limit > 0 && limit < len(alerts) {
		alerts = alerts[:limit]
	}
	return alerts
}
