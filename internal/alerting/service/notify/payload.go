package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// maxSlackDetailAttachments caps per-alert attachments in one Slack
// message; overflow is collapsed into a single "+N more" attachment.
const maxSlackDetailAttachments = 10

// SlackPayload is the Incoming Webhook message body.
type SlackPayload struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

type SlackAttachment struct {
	Color   string        `json:"color,omitempty"`
	Title   string        `json:"title,omitempty"`
	Text    string        `json:"text,omitempty"`
	Fields  []SlackField  `json:"fields,omitempty"`
	Actions []SlackAction `json:"actions,omitempty"`
	Ts      int64         `json:"ts,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

type SlackAction struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

func severityColor(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "danger"
	case model.SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

// BuildSlackPayload renders a batch as one summary attachment colored
// by the worst severity present, up to ten per-alert detail
// attachments, a "+N more" attachment for any overflow, and an optional
// dashboard button carrying the server and the batch's dominant vhost.
func BuildSlackPayload(batch Batch, dashboardBaseURL string) SlackPayload {
	summary := model.Summarize(batch.Alerts)
	head := SlackAttachment{
		Color: severityColor(batch.WorstSeverity()),
		Title: fmt.Sprintf("%d new alert(s) on %s", summary.Total, batch.ServerName),
		Text: fmt.Sprintf("Workspace %s: %d critical, %d warning, %d info",
			batch.WorkspaceName, summary.Critical, summary.Warning, summary.Info),
		Ts: time.Now().Unix(),
	}
	if dashboardBaseURL != "" {
		head.Actions = append(head.Actions, SlackAction{
			Type: "button",
			Text: "View Alerts in Dashboard",
			URL:  dashboardURL(dashboardBaseURL, batch),
		})
	}

	payload := SlackPayload{Attachments: []SlackAttachment{head}}
	detail := batch.Alerts
	if len(detail) > maxSlackDetailAttachments {
		detail = detail[:maxSlackDetailAttachments]
	}
	for _, a := range detail {
		fields := []SlackField{
			{Title: "Severity", Value: string(a.Severity), Short: true},
			{Title: "Category", Value: string(a.Category), Short: true},
			{Title: "Source", Value: fmt.Sprintf("%s %s", a.Source.Type, a.Source.Name), Short: true},
			{Title: "Current", Value: fmt.Sprintf("%.1f", a.Details.Current), Short: true},
		}
		if a.Details.Threshold != nil {
			fields = append(fields, SlackField{Title: "Threshold", Value: fmt.Sprintf("%.1f", *a.Details.Threshold), Short: true})
		}
		if a.VHost != "" {
			fields = append(fields, SlackField{Title: "VHost", Value: a.VHost, Short: true})
		}
		payload.Attachments = append(payload.Attachments, SlackAttachment{
			Color:  severityColor(a.Severity),
			Title:  a.Title,
			Text:   a.Description,
			Fields: fields,
		})
	}
	if overflow := len(batch.Alerts) - maxSlackDetailAttachments; overflow > 0 {
		payload.Attachments = append(payload.Attachments, SlackAttachment{
			Color: severityColor(batch.WorstSeverity()),
			Text:  fmt.Sprintf("+%d more alert(s) not shown", overflow),
		})
	}
	return payload
}

func dashboardURL(base string, batch Batch) string {
	params := url.Values{}
	params.Set("serverId", batch.ServerID)
	if v := batch.TopVHost(); v != "" {
		params.Set("vhost", v)
	}
	return strings.TrimSuffix(base, "/") + "/alerts?" + params.Encode()
}

// EmailPayload is the rendered subject and plain-text body.
type EmailPayload struct {
	Subject string
	Body    string
}

// BuildEmailPayload renders a batch as a plain-text alert digest.
func BuildEmailPayload(batch Batch) EmailPayload {
	summary := model.Summarize(batch.Alerts)
	subject := fmt.Sprintf("[%s] %d new alert(s) on %s", strings.ToUpper(string(batch.WorstSeverity())), summary.Total, batch.ServerName)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Alerts for %s (workspace %s)\n", batch.ServerName, batch.WorkspaceName))
	sb.WriteString(fmt.Sprintf("%d critical, %d warning, %d info\n\n", summary.Critical, summary.Warning, summary.Info))
	for _, a := range batch.Alerts {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", strings.ToUpper(string(a.Severity)), a.Title))
		sb.WriteString(fmt.Sprintf("  %s\n", a.Description))
		sb.WriteString(fmt.Sprintf("  current: %.1f", a.Details.Current))
		if a.Details.Threshold != nil {
			sb.WriteString(fmt.Sprintf(", threshold: %.1f", *a.Details.Threshold))
		}
		sb.WriteByte('\n')
		if a.Details.Recommended != "" {
			sb.WriteString(fmt.Sprintf("  recommended: %s\n", a.Details.Recommended))
		}
		sb.WriteByte('\n')
	}
	return EmailPayload{Subject: subject, Body: sb.String()}
}

// WebhookPayload is the generic JSON body POSTed to webhook channels.
type WebhookPayload struct {
	WorkspaceID   string             `json:"workspaceId"`
	WorkspaceName string             `json:"workspaceName,omitempty"`
	ServerID      string             `json:"serverId"`
	ServerName    string             `json:"serverName,omitempty"`
	Summary       model.AlertSummary `json:"summary"`
	Alerts        []model.Alert      `json:"alerts"`
	Timestamp     time.Time          `json:"timestamp"`
}

// BuildWebhookPayload renders a batch for generic webhook consumers.
func BuildWebhookPayload(batch Batch) WebhookPayload {
	return WebhookPayload{
		WorkspaceID:   batch.WorkspaceID,
		WorkspaceName: batch.WorkspaceName,
		ServerID:      batch.ServerID,
		ServerName:    batch.ServerName,
		Summary:       model.Summarize(batch.Alerts),
		Alerts:        batch.Alerts,
		Timestamp:     time.Now().UTC(),
	}
}
