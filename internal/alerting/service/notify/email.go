package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/resend/resend-go/v2"
)

// EmailProvider abstracts the concrete mail backend so deployments can
// choose between direct SMTP and a hosted API.
type EmailProvider interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
}

// SMTPProvider sends through a plain SMTP relay with optional AUTH.
type SMTPProvider struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (p *SMTPProvider) SendMail(_ context.Context, to []string, subject, body string) error {
	if p.Host == "" || p.From == "" {
		return Terminal(fmt.Errorf("smtp provider is not configured"))
	}
	var msg strings.Builder
	msg.WriteString("From: " + p.From + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", p.Host, p.Port)
	var auth smtp.Auth
	if p.User != "" {
		auth = smtp.PlainAuth("", p.User, p.Pass, p.Host)
	}
	if err := smtp.SendMail(addr, auth, p.From, to, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// ResendProvider sends through the Resend HTTP API.
type ResendProvider struct {
	client *resend.Client
	from   string
}

func NewResendProvider(apiKey, from string) *ResendProvider {
	return &ResendProvider{client: resend.NewClient(apiKey), from: from}
}

func (p *ResendProvider) SendMail(ctx context.Context, to []string, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    p.from,
		To:      to,
		Subject: subject,
		Text:    body,
	}
	if _, err := p.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}

// EmailTransport delivers batches as plain-text digests. The channel
// endpoint holds the recipient address; multiple recipients may be
// comma-separated.
type EmailTransport struct {
	provider EmailProvider
}

func NewEmailTransport(provider EmailProvider) *EmailTransport {
	return &EmailTransport{provider: provider}
}

func (t *EmailTransport) Type() model.ChannelType { return model.ChannelEmail }

func (t *EmailTransport) Send(ctx context.Context, cfg model.ChannelConfig, batch Batch) error {
	if t.provider == nil {
		return Terminal(fmt.Errorf("email channel %s: no provider configured", cfg.ID))
	}
	recipients := splitRecipients(cfg.Endpoint)
	if len(recipients) == 0 {
		return Terminal(fmt.Errorf("email channel %s: no recipient configured", cfg.ID))
	}
	payload := BuildEmailPayload(batch)
	return t.provider.SendMail(ctx, recipients, payload.Subject, payload.Body)
}

func splitRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
