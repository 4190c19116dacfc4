// Package detector runs the periodic detection loop: poll a metrics
// snapshot per monitored server, classify it against workspace
// thresholds, reconcile alert lifecycle, and hand newly active alerts
// to notification dispatch.
package detector

import (
	"context"
	"errors"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/alerting/service/classify"
	"github.com/lepusmq/lepusmon/internal/alerting/service/lifecycle"
	"github.com/lepusmq/lepusmon/internal/alerting/service/notify"
	"github.com/lepusmq/lepusmon/internal/alerting/service/settings"
	"github.com/lepusmq/lepusmon/internal/alerting/service/source"
	"github.com/lepusmq/lepusmon/internal/alerting/service/threshold"
	"github.com/lepusmq/lepusmon/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Server is one monitored broker registration.
type Server struct {
	ID          string
	Name        string
	WorkspaceID string
}

// ServerRegistry yields the servers to poll each cycle. Implemented by
// the control-plane client; StaticRegistry serves fixed lists.
type ServerRegistry interface {
	Servers(ctx context.Context) ([]Server, error)
}

// StaticRegistry is a fixed server list.
type StaticRegistry []Server

func (r StaticRegistry) Servers(context.Context) ([]Server, error) { return r, nil }

// Deps wires the detection loop.
type Deps struct {
	Registry   ServerRegistry
	Source     source.MetricsSource
	Thresholds *threshold.Store
	Tracker    *lifecycle.Tracker
	Settings   *settings.Store
	Dispatcher *notify.Dispatcher
	Interval   time.Duration
}

// StartScheduler runs detection cycles until ctx is cancelled. One
// cycle runs immediately on startup.
func StartScheduler(ctx context.Context, deps Deps) {
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	t := time.NewTicker(deps.Interval)
	defer t.Stop()

	runCycle(ctx, deps)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runCycle(ctx, deps)
		}
	}
}

func runCycle(ctx context.Context, deps Deps) {
	servers, err := deps.Registry.Servers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list servers for detection cycle")
		metrics.PollCycles.WithLabelValues("registry_error").Inc()
		return
	}
	for _, srv := range servers {
		if err := runServer(ctx, deps, srv); err != nil {
			// one failing server never blocks the rest of the cycle
			log.Error().Err(err).Str("server_id", srv.ID).Msg("detection failed for server")
		}
		if ctx.Err() != nil {
			return
		}
	}
	metrics.PollCycles.WithLabelValues("ok").Inc()
}

// runServer executes detection for a single server. A metrics outage is
// treated as unknown, not resolved: the cycle is skipped and the
// previously active set stays untouched.
func runServer(ctx context.Context, deps Deps, srv Server) error {
	snap, err := deps.Source.Snapshot(ctx, srv.ID)
	if err != nil {
		if errors.Is(err, source.ErrMetricsUnavailable) {
			log.Warn().Err(err).Str("server_id", srv.ID).Msg("metrics unavailable, skipping cycle for server")
			metrics.PollCycles.WithLabelValues("metrics_unavailable").Inc()
			return nil
		}
		return err
	}

	thresholds := deps.Thresholds.GetThresholds(ctx, srv.WorkspaceID)
	candidates := classify.Classify(snap, thresholds)

	res, err := deps.Tracker.Sync(ctx, srv.WorkspaceID, srv.ID, candidates)
	if err != nil {
		return err
	}
	observeTransitions(srv.ID, res)
	log.Debug().
		Str("server_id", srv.ID).
		Int("candidates", len(candidates)).
		Int("newly_active", len(res.NewlyActive)).
		Int("newly_resolved", len(res.NewlyResolved)).
		Msg("detection cycle reconciled")

	if len(res.NewlyActive) > 0 && deps.Dispatcher != nil {
		notifySettings, err := deps.Settings.GetSettings(ctx, srv.WorkspaceID)
		if err != nil {
			log.Error().Err(err).Str("workspace_id", srv.WorkspaceID).Msg("failed to load notification settings")
			return nil
		}
		channels, err := deps.Settings.ListChannels(ctx, srv.WorkspaceID)
		if err != nil {
			log.Error().Err(err).Str("workspace_id", srv.WorkspaceID).Msg("failed to load notification channels")
			return nil
		}
		batch := notify.Batch{
			WorkspaceID: srv.WorkspaceID,
			ServerID:    srv.ID,
			ServerName:  srv.Name,
			Alerts:      res.NewlyActive,
		}
		// fire and forget: delivery retries must not delay the next poll
		go deps.Dispatcher.DispatchAll(context.WithoutCancel(ctx), notifySettings, channels, batch)
	}
	return nil
}

func observeTransitions(serverID string, res lifecycle.Result) {
	counts := map[model.Severity]int{}
	for _, a := range res.Active() {
		counts[a.Severity]++
	}
	for _, sev := range []model.Severity{model.SeverityCritical, model.SeverityWarning, model.SeverityInfo} {
		metrics.ActiveAlerts.WithLabelValues(serverID, string(sev)).Set(float64(counts[sev]))
	}
	for _, a := range res.NewlyActive {
		metrics.AlertsOpened.WithLabelValues(string(a.Severity)).Inc()
	}
	if n := len(res.NewlyResolved); n > 0 {
		metrics.AlertsResolved.Add(float64(n))
	}
}
