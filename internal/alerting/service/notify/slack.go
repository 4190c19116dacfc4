package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/rs/zerolog/log"
)

// SlackTransport delivers batches to Slack Incoming Webhooks.
type SlackTransport struct {
	client           *http.Client
	dashboardBaseURL string
}

func NewSlackTransport(dashboardBaseURL string) *SlackTransport {
	return &SlackTransport{
		client:           &http.Client{Timeout: 30 * time.Second},
		dashboardBaseURL: dashboardBaseURL,
	}
}

func (t *SlackTransport) Type() model.ChannelType { return model.ChannelSlack }

func (t *SlackTransport) Send(ctx context.Context, cfg model.ChannelConfig, batch Batch) error {
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return Terminal(fmt.Errorf("slack channel %s: endpoint is not a webhook URL", cfg.ID))
	}
	payload := BuildSlackPayload(batch, t.dashboardBaseURL)
	body, err := json.Marshal(payload)
	if err != nil {
		return Terminal(fmt.Errorf("marshal slack payload: %w", err))
	}
	resp, err := postJSON(ctx, t.client, cfg.Endpoint, body, nil)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("slack", resp.StatusCode); err != nil {
		return err
	}
	// Slack acknowledges with a literal "ok" body; anything else on a
	// 2xx still counts as delivered.
	ack, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if strings.TrimSpace(string(ack)) != "ok" {
		log.Warn().Str("channel", cfg.ID).Str("ack", string(ack)).Msg("slack returned 2xx with unexpected acknowledgment body")
	}
	return nil
}

// postJSON issues a JSON POST with the given extra headers.
func postJSON(ctx context.Context, client *http.Client, endpoint string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, Terminal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return client.Do(req)
}

// classifyStatus maps an HTTP status to the retry taxonomy: 2xx is
// success, 429 and 5xx are transient, everything else is terminal.
func classifyStatus(channel string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s endpoint returned status %d", channel, status)
	default:
		return Terminal(fmt.Errorf("%s endpoint returned status %d", channel, status))
	}
}
