// Package lifecycle reconciles classifier candidates against the
// previously active alert set, deciding new/continuing/resolved
// transitions and maintaining the active and resolved collections.
package lifecycle

import (
	"context"
	"sort"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/clock"
	"github.com/rs/zerolog/log"
)

// DefaultRetention is how long resolved alerts are kept before purge.
const DefaultRetention = 30 * 24 * time.Hour

// Result is the outcome of one reconcile cycle.
type Result struct {
	StillActive   []model.Alert
	NewlyActive   []model.Alert
	NewlyResolved []model.Alert
}

// Active returns the full active set after the cycle (continuations
// plus newly active), in deterministic key order.
func (r Result) Active() []model.Alert {
	out := make([]model.Alert, 0, len(r.StillActive)+len(r.NewlyActive))
	out = append(out, r.StillActive...)
	out = append(out, r.NewlyActive...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reconcile matches candidates to previously-active alerts by identity
// key. A candidate with a match is a continuation: identity and first
// detection timestamp are preserved and the measurement is refreshed. A
// candidate without a match is newly active. A previously-active alert
// with no matching candidate resolves immediately; there is no debounce
// on resolution, so a metric oscillating at a threshold flaps by
// design.
func Reconcile(now time.Time, workspaceID, serverID string, candidates []model.CandidateAlert, previouslyActive []model.Alert) Result {
	prev := make(map[string]model.Alert, len(previouslyActive))
	for _, a := range previouslyActive {
		prev[a.ID] = a
	}

	var res Result
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		id := CandidateKey(serverID, c)
		if seen[id] {
			continue
		}
		seen[id] = true
		if old, ok := prev[id]; ok {
			old.Severity = c.Severity
			old.Title = c.Title
			old.Description = c.Description
			old.Details = c.Details
			res.StillActive = append(res.StillActive, old)
			continue
		}
		res.NewlyActive = append(res.NewlyActive, model.Alert{
			ID:          id,
			WorkspaceID: workspaceID,
			ServerID:    serverID,
			Severity:    c.Severity,
			Category:    c.Category,
			Metric:      c.Metric,
			Title:       c.Title,
			Description: c.Description,
			Details:     c.Details,
			Timestamp:   now,
			Source:      c.Source,
			VHost:       c.VHost,
		})
	}

	for _, a := range previouslyActive {
		if seen[a.ID] {
			continue
		}
		resolvedAt := now
		a.Resolved = true
		a.ResolvedAt = &resolvedAt
		res.NewlyResolved = append(res.NewlyResolved, a)
	}
	return res
}

// Tracker owns the active and resolved collections for all servers of
// all workspaces and applies reconcile outcomes to them.
type Tracker struct {
	active    ActiveStore
	resolved  ResolvedStore
	clock     clock.Clock
	retention time.Duration
}

func NewTracker(active ActiveStore, resolved ResolvedStore, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tracker{active: active, resolved: resolved, clock: clk, retention: DefaultRetention}
}

// WithRetention overrides the resolved alert retention window.
func (t *Tracker) WithRetention(d time.Duration) *Tracker {
	if d > 0 {
		t.retention = d
	}
	return t
}

// Sync runs one reconcile cycle for a server: loads the active set,
// reconciles against the candidates, persists both collections, and
// purges resolved alerts past retention. Returns the cycle result so
// the caller can forward NewlyActive to notification dispatch.
func (t *Tracker) Sync(ctx context.Context, workspaceID, serverID string, candidates []model.CandidateAlert) (Result, error) {
	previous, err := t.active.List(ctx, workspaceID, serverID)
	if err != nil {
		return Result{}, err
	}
	now := t.clock.Now()
	res := Reconcile(now, workspaceID, serverID, candidates, previous)

	if err := t.active.Replace(ctx, workspaceID, serverID, res.Active()); err != nil {
		return Result{}, err
	}
	if err := t.resolved.Add(ctx, workspaceID, serverID, res.NewlyResolved); err != nil {
		// the active set is already updated; losing archive entries is
		// preferable to re-activating resolved alerts
		log.Error().Err(err).Str("workspace", workspaceID).Str("server", serverID).Msg("failed to archive resolved alerts")
	}
	if purged, err := t.resolved.Purge(ctx, now.Add(-t.retention)); err != nil {
		log.Warn().Err(err).Msg("resolved alert purge failed")
	} else if purged > 0 {
		log.Debug().Int("purged", purged).Msg("purged resolved alerts past retention")
	}
	return res, nil
}

// ActiveAlerts returns the current active set for a server.
func (t *Tracker) ActiveAlerts(ctx context.Context, workspaceID, serverID string) ([]model.Alert, error) {
	return t.active.List(ctx, workspaceID, serverID)
}

// ResolvedAlerts returns the resolved archive for a server.
func (t *Tracker) ResolvedAlerts(ctx context.Context, workspaceID, serverID string) ([]model.Alert, error) {
	return t.resolved.List(ctx, workspaceID, serverID)
}
