package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// WebhookTransport POSTs the generic JSON payload to arbitrary
// endpoints. When the channel has a secret, the body is signed with
// HMAC-SHA256 so receivers can authenticate the sender.
type WebhookTransport struct {
	client *http.Client
}

func NewWebhookTransport() *WebhookTransport {
	return &WebhookTransport{client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *WebhookTransport) Type() model.ChannelType { return model.ChannelWebhook }

func (t *WebhookTransport) Send(ctx context.Context, cfg model.ChannelConfig, batch Batch) error {
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return Terminal(fmt.Errorf("webhook channel %s: endpoint is not an HTTP URL", cfg.ID))
	}
	body, err := json.Marshal(BuildWebhookPayload(batch))
	if err != nil {
		return Terminal(fmt.Errorf("marshal webhook payload: %w", err))
	}
	headers := map[string]string{}
	if cfg.Secret != "" {
		mac := hmac.New(sha256.New, []byte(cfg.Secret))
		mac.Write(body)
		headers["X-Lepus-Signature"] = hex.EncodeToString(mac.Sum(nil))
	}
	resp, err := postJSON(ctx, t.client, cfg.Endpoint, body, headers)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	return classifyStatus("webhook", resp.StatusCode)
}
