package lifecycle

import (
	"context"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// scopeKey identifies one tracked alert collection.
func scopeKey(workspaceID, serverID string) string {
	return workspaceID + "|" + serverID
}

// ActiveStore holds the currently-active alert set per workspace and
// server. The tracker replaces the whole set each reconcile cycle.
type ActiveStore interface {
	List(ctx context.Context, workspaceID, serverID string) ([]model.Alert, error)
	Replace(ctx context.Context, workspaceID, serverID string, alerts []model.Alert) error
}

// ResolvedStore is the longer-lived archive of resolved alerts.
// Entries age out after the retention window.
type ResolvedStore interface {
	Add(ctx context.Context, workspaceID, serverID string, alerts []model.Alert) error
	List(ctx context.Context, workspaceID, serverID string) ([]model.Alert, error)
	// Purge removes resolved alerts whose ResolvedAt is before cutoff.
	// Stores with native TTL support may implement this as a no-op.
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}
