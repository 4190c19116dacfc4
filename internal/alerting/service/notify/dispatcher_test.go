package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// fakeTransport records calls and fails a configurable number of times
// per channel before succeeding.
type fakeTransport struct {
	channelType model.ChannelType

	mu        sync.Mutex
	calls     map[string]int
	failures  map[string]int
	terminal  map[string]bool
	lastBatch Batch
	lastCfg   model.ChannelConfig
}

func newFakeTransport(ct model.ChannelType) *fakeTransport {
	return &fakeTransport{
		channelType: ct,
		calls:       map[string]int{},
		failures:    map[string]int{},
		terminal:    map[string]bool{},
	}
}

func (f *fakeTransport) Type() model.ChannelType { return f.channelType }

func (f *fakeTransport) Send(_ context.Context, cfg model.ChannelConfig, batch Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[cfg.ID]++
	f.lastBatch = batch
	f.lastCfg = cfg
	if f.terminal[cfg.ID] {
		return Terminal(errors.New("rejected"))
	}
	if f.failures[cfg.ID] > 0 {
		f.failures[cfg.ID]--
		return errors.New("transient")
	}
	return nil
}

func (f *fakeTransport) callCount(channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[channelID]
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}
}

func testBatch(severities ...model.Severity) Batch {
	alerts := make([]model.Alert, 0, len(severities))
	for i, s := range severities {
		alerts = append(alerts, model.Alert{
			ID:       fmt.Sprintf("alert-%d", i),
			Severity: s,
			Category: model.CategoryMemory,
			Source:   model.AlertSource{Type: model.SourceNode, Name: "n1"},
		})
	}
	return Batch{WorkspaceID: "ws-1", ServerID: "srv-1", ServerName: "prod", Alerts: alerts}
}

func channel(id string, ct model.ChannelType, severities ...model.Severity) model.ChannelConfig {
	return model.ChannelConfig{
		ID:          id,
		WorkspaceID: "ws-1",
		Type:        ct,
		Enabled:     true,
		Endpoint:    "https://example.com/hook",
		Severities:  severities,
	}
}

func outcomes(results []ChannelDelivery) map[string]DeliveryOutcome {
	out := map[string]DeliveryOutcome{}
	for _, r := range results {
		out[r.ChannelID] = r.Outcome
	}
	return out
}

func TestDispatchAllSettleAllIsolation(t *testing.T) {
	slack := newFakeTransport(model.ChannelSlack)
	webhook := newFakeTransport(model.ChannelWebhook)
	slack.terminal["ch-slack"] = true

	registry := NewRegistry()
	registry.Register(slack)
	registry.Register(webhook)
	d := NewDispatcher(registry, fastRetry(), nil)

	results := d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		channel("ch-slack", model.ChannelSlack),
		channel("ch-webhook", model.ChannelWebhook),
	}, testBatch(model.SeverityCritical))

	if len(results) != 2 {
		t.Fatalf("expected both channels settled, got %d results", len(results))
	}
	got := outcomes(results)
	if got["ch-slack"] != DeliveryFailed {
		t.Fatalf("slack should fail terminally, got %s", got["ch-slack"])
	}
	if got["ch-webhook"] != DeliverySent {
		t.Fatalf("webhook must succeed despite slack failing, got %s", got["ch-webhook"])
	}
}

func TestDispatchAllRetriesTransientThenSucceeds(t *testing.T) {
	webhook := newFakeTransport(model.ChannelWebhook)
	webhook.failures["ch-1"] = 2

	registry := NewRegistry()
	registry.Register(webhook)
	d := NewDispatcher(registry, fastRetry(), nil)

	results := d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		channel("ch-1", model.ChannelWebhook),
	}, testBatch(model.SeverityWarning))

	if len(results) != 1 || results[0].Outcome != DeliverySent {
		t.Fatalf("expected eventual success, got %+v", results)
	}
	if results[0].Attempts != 3 {
		t.Fatalf("expected 3 attempts (2 failures + success), got %d", results[0].Attempts)
	}
	if webhook.callCount("ch-1") != 3 {
		t.Fatalf("transport called %d times, want 3", webhook.callCount("ch-1"))
	}
}

func TestDispatchAllTerminalErrorStopsRetries(t *testing.T) {
	webhook := newFakeTransport(model.ChannelWebhook)
	webhook.terminal["ch-1"] = true

	registry := NewRegistry()
	registry.Register(webhook)
	d := NewDispatcher(registry, fastRetry(), nil)

	results := d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		channel("ch-1", model.ChannelWebhook),
	}, testBatch(model.SeverityCritical))

	if results[0].Outcome != DeliveryFailed || results[0].Attempts != 1 {
		t.Fatalf("terminal error must not retry: %+v", results[0])
	}
}

func TestDispatchAllChannelSeverityGateSendsFullBatch(t *testing.T) {
	slack := newFakeTransport(model.ChannelSlack)
	registry := NewRegistry()
	registry.Register(slack)
	d := NewDispatcher(registry, fastRetry(), nil)

	batch := testBatch(model.SeverityCritical, model.SeverityWarning, model.SeverityInfo)
	results := d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		channel("ch-crit", model.ChannelSlack, model.SeverityCritical),
	}, batch)

	if len(results) != 1 || results[0].Outcome != DeliverySent {
		t.Fatalf("channel with one matching alert must receive the batch: %+v", results)
	}
	slack.mu.Lock()
	got := len(slack.lastBatch.Alerts)
	slack.mu.Unlock()
	if got != 3 {
		t.Fatalf("matching channel receives the whole batch, got %d alerts", got)
	}
}

func TestDispatchAllSkipsNonMatchingChannels(t *testing.T) {
	slack := newFakeTransport(model.ChannelSlack)
	registry := NewRegistry()
	registry.Register(slack)
	d := NewDispatcher(registry, fastRetry(), nil)

	infoOnly := testBatch(model.SeverityInfo)
	results := d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		channel("ch-crit", model.ChannelSlack, model.SeverityCritical, model.SeverityWarning),
	}, infoOnly)

	if len(results) != 0 {
		t.Fatalf("no channel matches info-only batch, got %+v", results)
	}
	if slack.callCount("ch-crit") != 0 {
		t.Fatal("transport must not be called for non-matching channel")
	}
}

func TestDispatchAllWorkspaceSeverityFilter(t *testing.T) {
	slack := newFakeTransport(model.ChannelSlack)
	registry := NewRegistry()
	registry.Register(slack)
	d := NewDispatcher(registry, fastRetry(), nil)

	settings := model.NotificationSettings{
		NotificationSeverities: []model.Severity{model.SeverityCritical},
	}
	batch := testBatch(model.SeverityCritical, model.SeverityInfo)
	d.DispatchAll(context.Background(), settings, []model.ChannelConfig{
		channel("ch-1", model.ChannelSlack),
	}, batch)

	slack.mu.Lock()
	defer slack.mu.Unlock()
	if len(slack.lastBatch.Alerts) != 1 || slack.lastBatch.Alerts[0].Severity != model.SeverityCritical {
		t.Fatalf("workspace filter must trim the batch: %+v", slack.lastBatch.Alerts)
	}
}

func TestDispatchAllSkipsDisabledAndFilteredChannels(t *testing.T) {
	slack := newFakeTransport(model.ChannelSlack)
	registry := NewRegistry()
	registry.Register(slack)
	d := NewDispatcher(registry, fastRetry(), nil)

	disabled := channel("ch-off", model.ChannelSlack)
	disabled.Enabled = false
	otherServer := channel("ch-other", model.ChannelSlack)
	otherServer.ServerIDs = []string{"srv-9"}

	results := d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		disabled, otherServer,
	}, testBatch(model.SeverityCritical))

	if len(results) != 0 {
		t.Fatalf("disabled and server-filtered channels must be skipped: %+v", results)
	}
}

func TestDispatchAllEmptyBatchDoesNothing(t *testing.T) {
	slack := newFakeTransport(model.ChannelSlack)
	registry := NewRegistry()
	registry.Register(slack)
	d := NewDispatcher(registry, fastRetry(), nil)

	results := d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		channel("ch-1", model.ChannelSlack),
	}, Batch{WorkspaceID: "ws-1", ServerID: "srv-1"})

	if results != nil {
		t.Fatalf("empty batch must not dispatch: %+v", results)
	}
}

func TestDispatchAllDeliversToWorkspaceContactEmail(t *testing.T) {
	email := newFakeTransport(model.ChannelEmail)
	registry := NewRegistry()
	registry.Register(email)
	d := NewDispatcher(registry, fastRetry(), nil)

	settings := model.NotificationSettings{
		EmailNotificationsEnabled: true,
		ContactEmail:              "oncall@example.com",
	}
	results := d.DispatchAll(context.Background(), settings, nil, testBatch(model.SeverityCritical))

	if len(results) != 1 || results[0].Outcome != DeliverySent {
		t.Fatalf("enabled email settings must produce one delivery, got %+v", results)
	}
	if results[0].ChannelID != WorkspaceEmailChannelID || results[0].ChannelType != model.ChannelEmail {
		t.Fatalf("delivery not attributed to the workspace email channel: %+v", results[0])
	}
	email.mu.Lock()
	defer email.mu.Unlock()
	if email.lastCfg.Endpoint != "oncall@example.com" {
		t.Fatalf("email must go to the contact address, got %q", email.lastCfg.Endpoint)
	}
}

func TestDispatchAllWorkspaceEmailRespectsServerFilter(t *testing.T) {
	email := newFakeTransport(model.ChannelEmail)
	registry := NewRegistry()
	registry.Register(email)
	d := NewDispatcher(registry, fastRetry(), nil)

	settings := model.NotificationSettings{
		EmailNotificationsEnabled: true,
		ContactEmail:              "oncall@example.com",
		NotificationServerIDs:     []string{"srv-9"},
	}
	results := d.DispatchAll(context.Background(), settings, nil, testBatch(model.SeverityCritical))
	if len(results) != 0 {
		t.Fatalf("server filter must suppress the workspace email, got %+v", results)
	}

	settings.NotificationServerIDs = []string{"srv-1"}
	results = d.DispatchAll(context.Background(), settings, nil, testBatch(model.SeverityCritical))
	if len(results) != 1 {
		t.Fatalf("matching server filter must deliver, got %+v", results)
	}
}

func TestDispatchAllWorkspaceEmailDisabled(t *testing.T) {
	email := newFakeTransport(model.ChannelEmail)
	registry := NewRegistry()
	registry.Register(email)
	d := NewDispatcher(registry, fastRetry(), nil)

	settings := model.NotificationSettings{ContactEmail: "oncall@example.com"}
	results := d.DispatchAll(context.Background(), settings, nil, testBatch(model.SeverityCritical))
	if len(results) != 0 {
		t.Fatalf("disabled email settings must not deliver, got %+v", results)
	}
}

func TestDispatchAllWorkspaceEmailAlongsideChannels(t *testing.T) {
	email := newFakeTransport(model.ChannelEmail)
	slack := newFakeTransport(model.ChannelSlack)
	registry := NewRegistry()
	registry.Register(email)
	registry.Register(slack)
	d := NewDispatcher(registry, fastRetry(), nil)

	settings := model.NotificationSettings{
		EmailNotificationsEnabled: true,
		ContactEmail:              "oncall@example.com",
	}
	results := d.DispatchAll(context.Background(), settings, []model.ChannelConfig{
		channel("ch-slack", model.ChannelSlack),
	}, testBatch(model.SeverityCritical))

	got := outcomes(results)
	if len(results) != 2 || got["ch-slack"] != DeliverySent || got[WorkspaceEmailChannelID] != DeliverySent {
		t.Fatalf("expected slack and workspace email deliveries, got %+v", results)
	}
}

func TestDeliveryRecordsCarryIDs(t *testing.T) {
	webhook := newFakeTransport(model.ChannelWebhook)
	registry := NewRegistry()
	registry.Register(webhook)

	rec := &recordingRecorder{}
	d := NewDispatcher(registry, fastRetry(), rec)
	d.DispatchAll(context.Background(), model.NotificationSettings{}, []model.ChannelConfig{
		channel("ch-1", model.ChannelWebhook),
	}, testBatch(model.SeverityCritical))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 1 {
		t.Fatalf("expected one delivery record, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.ID == "" || r.ChannelID != "ch-1" || r.ChannelType != model.ChannelWebhook {
		t.Fatalf("incomplete record: %+v", r)
	}
}

type recordingRecorder struct {
	mu      sync.Mutex
	records []ChannelDelivery
}

func (r *recordingRecorder) Record(_ context.Context, _ string, d ChannelDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, d)
	return nil
}
