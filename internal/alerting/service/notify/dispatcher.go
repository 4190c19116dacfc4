package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DeliveryOutcome records how a single channel delivery ended.
type DeliveryOutcome string

const (
	DeliverySent    DeliveryOutcome = "sent"
	DeliveryFailed  DeliveryOutcome = "failed"
	DeliverySkipped DeliveryOutcome = "skipped"
)

// ChannelDelivery is the per-channel record of one dispatch.
type ChannelDelivery struct {
	ID          string            `json:"id"`
	ChannelID   string            `json:"channelId"`
	ChannelType model.ChannelType `json:"channelType"`
	Outcome     DeliveryOutcome   `json:"outcome"`
	Attempts    int               `json:"attempts"`
	Error       string            `json:"error,omitempty"`
	FinishedAt  time.Time         `json:"finishedAt"`
}

// DeliveryRecorder persists delivery records for audit. Implementations
// must tolerate being called from multiple goroutines.
type DeliveryRecorder interface {
	Record(ctx context.Context, workspaceID string, d ChannelDelivery) error
}

// NoopRecorder discards delivery records.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, string, ChannelDelivery) error { return nil }

// Dispatcher fans a batch of newly active alerts out to every matching
// channel. Channels are independent: one failing never blocks or fails
// the others.
type Dispatcher struct {
	registry *Registry
	retry    RetryConfig
	recorder DeliveryRecorder
}

func NewDispatcher(registry *Registry, retry RetryConfig, recorder DeliveryRecorder) *Dispatcher {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &Dispatcher{registry: registry, retry: retry, recorder: recorder}
}

// DispatchAll sends the batch to every enabled channel whose severity
// and server filters match, plus the workspace contact email when the
// workspace-level email preference is on. A channel matches when at
// least one alert in the batch is in its severity set; a matching
// channel receives the whole batch, not a filtered subset. All
// channels are attempted concurrently and DispatchAll returns once
// every one has settled.
func (d *Dispatcher) DispatchAll(ctx context.Context, settings model.NotificationSettings, channels []model.ChannelConfig, batch Batch) []ChannelDelivery {
	if len(batch.Alerts) == 0 {
		return nil
	}
	notifiable := batchMatches(batch, settings.EffectiveSeverities())
	if len(notifiable) == 0 {
		return nil
	}
	batch.Alerts = notifiable

	if email, ok := workspaceEmailChannel(settings, batch); ok {
		channels = append(append([]model.ChannelConfig(nil), channels...), email)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []ChannelDelivery
	)
	for _, cfg := range channels {
		if !cfg.Enabled {
			continue
		}
		if !cfg.AcceptsServer(batch.ServerID) {
			continue
		}
		if !channelMatches(cfg, notifiable) {
			continue
		}
		wg.Add(1)
		go func(cfg model.ChannelConfig) {
			defer wg.Done()
			rec := d.deliver(ctx, cfg, batch)
			if err := d.recorder.Record(ctx, batch.WorkspaceID, rec); err != nil {
				log.Warn().Err(err).Str("channel_id", cfg.ID).Msg("failed to record delivery")
			}
			mu.Lock()
			results = append(results, rec)
			mu.Unlock()
		}(cfg)
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, cfg model.ChannelConfig, batch Batch) ChannelDelivery {
	rec := ChannelDelivery{
		ID:          uuid.NewString(),
		ChannelID:   cfg.ID,
		ChannelType: cfg.Type,
	}
	transport, ok := d.registry.Get(cfg.Type)
	if !ok {
		rec.Outcome = DeliverySkipped
		rec.Error = "no transport registered for channel type"
		rec.FinishedAt = time.Now().UTC()
		log.Warn().Str("channel_id", cfg.ID).Str("channel_type", string(cfg.Type)).Msg("no transport for channel")
		metrics.Deliveries.WithLabelValues(string(cfg.Type), string(DeliverySkipped)).Inc()
		return rec
	}

	attempts, err := doWithRetry(ctx, d.retry, func(attemptCtx context.Context) error {
		return transport.Send(attemptCtx, cfg, batch)
	})
	rec.Attempts = attempts
	rec.FinishedAt = time.Now().UTC()
	if err != nil {
		rec.Outcome = DeliveryFailed
		rec.Error = err.Error()
		log.Error().Err(err).
			Str("channel_id", cfg.ID).
			Str("channel_type", string(cfg.Type)).
			Int("attempts", attempts).
			Str("server_id", batch.ServerID).
			Msg("notification delivery failed")
	} else {
		rec.Outcome = DeliverySent
		log.Info().
			Str("channel_id", cfg.ID).
			Str("channel_type", string(cfg.Type)).
			Int("attempts", attempts).
			Int("alerts", len(batch.Alerts)).
			Str("server_id", batch.ServerID).
			Msg("notification delivered")
	}
	metrics.Deliveries.WithLabelValues(string(cfg.Type), string(rec.Outcome)).Inc()
	metrics.DeliveryAttempts.WithLabelValues(string(cfg.Type)).Observe(float64(attempts))
	return rec
}

// WorkspaceEmailChannelID identifies deliveries made through the
// workspace-level email preference rather than a configured channel.
const WorkspaceEmailChannelID = "workspace-email"

// workspaceEmailChannel materializes the workspace email preference as
// an implicit email channel so it rides the same delivery, retry, and
// recording path as configured channels. The workspace server filter
// gates it; the severity filter already trimmed the batch.
func workspaceEmailChannel(settings model.NotificationSettings, batch Batch) (model.ChannelConfig, bool) {
	if !settings.EmailNotificationsEnabled || settings.ContactEmail == "" {
		return model.ChannelConfig{}, false
	}
	if !settings.AppliesToServer(batch.ServerID) {
		return model.ChannelConfig{}, false
	}
	return model.ChannelConfig{
		ID:          WorkspaceEmailChannelID,
		WorkspaceID: batch.WorkspaceID,
		Type:        model.ChannelEmail,
		Enabled:     true,
		Endpoint:    settings.ContactEmail,
	}, true
}

// batchMatches returns the alerts that pass the workspace-level
// severity setting. Alerts outside the set never notify anyone.
func batchMatches(batch Batch, severities []model.Severity) []model.Alert {
	allowed := make(map[model.Severity]bool, len(severities))
	for _, s := range severities {
		allowed[s] = true
	}
	var out []model.Alert
	for _, a := range batch.Alerts {
		if allowed[a.Severity] {
			out = append(out, a)
		}
	}
	return out
}

func channelMatches(cfg model.ChannelConfig, alerts []model.Alert) bool {
	for _, a := range alerts {
		if cfg.AcceptsSeverity(a.Severity) {
			return true
		}
	}
	return false
}
