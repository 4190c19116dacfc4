// Package notify fans newly-detected alerts out to the configured
// notification channels (email, Slack, generic webhook) with per-channel
// retry, backoff, and failure isolation.
package notify

import (
	"context"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// Batch is the unit of dispatch: the alerts that became active in one
// reconcile cycle, with their workspace and server context.
type Batch struct {
	WorkspaceID   string
	WorkspaceName string
	ServerID      string
	ServerName    string
	Alerts        []model.Alert
}

// WorstSeverity returns the highest severity present in the batch.
func (b Batch) WorstSeverity() model.Severity {
	worst := model.SeverityInfo
	for _, a := range b.Alerts {
		if a.Severity.Rank() > worst.Rank() {
			worst = a.Severity
		}
	}
	return worst
}

// TopVHost returns the most frequent vhost among the batch's alerts,
// ties broken lexicographically for determinism. Empty when no alert
// carries a vhost.
func (b Batch) TopVHost() string {
	counts := map[string]int{}
	for _, a := range b.Alerts {
		if a.VHost != "" {
			counts[a.VHost]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && (best == "" || v < best)) {
			best, bestN = v, n
		}
	}
	return best
}

// Transport delivers one batch to one concrete channel. Implementations
// exist for the closed set of channel types; the set is small and fixed,
// so there is no open plugin registration beyond the Registry below.
type Transport interface {
	Type() model.ChannelType
	Send(ctx context.Context, cfg model.ChannelConfig, batch Batch) error
}

// Registry maps channel types to transports.
type Registry struct {
	transports map[model.ChannelType]Transport
}

func NewRegistry() *Registry {
	return &Registry{transports: map[model.ChannelType]Transport{}}
}

func (r *Registry) Register(t Transport) {
	r.transports[t.Type()] = t
}

func (r *Registry) Get(ct model.ChannelType) (Transport, bool) {
	t, ok := r.transports[ct]
	return t, ok
}
