package notify

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

func TestBuildSlackPayloadCapsDetailsWithOverflow(t *testing.T) {
	batch := Batch{ServerID: "srv-1", ServerName: "prod"}
	for i := 0; i < 12; i++ {
		batch.Alerts = append(batch.Alerts, model.Alert{
			ID:       fmt.Sprintf("a-%d", i),
			Severity: model.SeverityWarning,
			Category: model.CategoryQueue,
			Title:    fmt.Sprintf("Queue q%d is backing up", i),
			Source:   model.AlertSource{Type: model.SourceQueue, Name: fmt.Sprintf("q%d", i)},
			VHost:    "/prod",
		})
	}

	p := BuildSlackPayload(batch, "")
	// 1 summary + 10 details + 1 overflow
	if len(p.Attachments) != 12 {
		t.Fatalf("expected 12 attachments, got %d", len(p.Attachments))
	}
	last := p.Attachments[len(p.Attachments)-1]
	if last.Text != "+2 more alert(s) not shown" {
		t.Fatalf("overflow attachment wrong: %q", last.Text)
	}
}

func TestBuildSlackPayloadNoOverflowAtCap(t *testing.T) {
	batch := Batch{ServerName: "prod"}
	for i := 0; i < 10; i++ {
		batch.Alerts = append(batch.Alerts, model.Alert{
			Severity: model.SeverityInfo,
			Source:   model.AlertSource{Type: model.SourceNode, Name: "n1"},
		})
	}
	p := BuildSlackPayload(batch, "")
	if len(p.Attachments) != 11 {
		t.Fatalf("exactly 10 alerts must not produce an overflow attachment, got %d attachments", len(p.Attachments))
	}
}

func TestBuildSlackPayloadSummaryColorIsWorstSeverity(t *testing.T) {
	batch := Batch{ServerName: "prod", Alerts: []model.Alert{
		{Severity: model.SeverityInfo},
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityWarning},
	}}
	p := BuildSlackPayload(batch, "")
	if p.Attachments[0].Color != "danger" {
		t.Fatalf("summary color = %q, want danger", p.Attachments[0].Color)
	}
}

func TestBuildSlackPayloadDashboardButton(t *testing.T) {
	batch := Batch{ServerID: "srv-1", ServerName: "prod", Alerts: []model.Alert{
		{Severity: model.SeverityWarning, VHost: "/prod", Source: model.AlertSource{Type: model.SourceQueue, Name: "a"}},
		{Severity: model.SeverityWarning, VHost: "/prod", Source: model.AlertSource{Type: model.SourceQueue, Name: "b"}},
		{Severity: model.SeverityWarning, VHost: "/staging", Source: model.AlertSource{Type: model.SourceQueue, Name: "c"}},
	}}

	p := BuildSlackPayload(batch, "https://app.example.com/")
	if len(p.Attachments[0].Actions) != 1 {
		t.Fatalf("expected dashboard button, got %+v", p.Attachments[0].Actions)
	}
	u := p.Attachments[0].Actions[0].URL
	if !strings.Contains(u, "serverId=srv-1") {
		t.Fatalf("dashboard URL missing serverId: %s", u)
	}
	if !strings.Contains(u, "vhost=%2Fprod") {
		t.Fatalf("dashboard URL must carry the most frequent vhost: %s", u)
	}

	// no base URL means no button
	p = BuildSlackPayload(batch, "")
	if len(p.Attachments[0].Actions) != 0 {
		t.Fatal("button must be omitted without a dashboard base URL")
	}
}

func TestTopVHostTieBreaksLexicographically(t *testing.T) {
	batch := Batch{Alerts: []model.Alert{
		{VHost: "/b"}, {VHost: "/a"},
	}}
	if got := batch.TopVHost(); got != "/a" {
		t.Fatalf("tie must break lexicographically, got %q", got)
	}
}

func TestBuildEmailPayloadSubjectAndDigest(t *testing.T) {
	th := 90.0
	batch := Batch{ServerName: "prod", WorkspaceName: "acme", Alerts: []model.Alert{
		{
			Severity:    model.SeverityCritical,
			Title:       "High memory usage on node1",
			Description: "Node node1 is using 92.0% of its memory high watermark",
			Details:     model.AlertDetails{Current: 92, Threshold: &th, Recommended: "Reduce queue depth"},
		},
	}}
	p := BuildEmailPayload(batch)
	if p.Subject != "[CRITICAL] 1 new alert(s) on prod" {
		t.Fatalf("subject = %q", p.Subject)
	}
	for _, want := range []string{"High memory usage on node1", "current: 92.0", "threshold: 90.0", "Reduce queue depth"} {
		if !strings.Contains(p.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, p.Body)
		}
	}
}

func TestClassifyStatusTaxonomy(t *testing.T) {
	if err := classifyStatus("slack", http.StatusOK); err != nil {
		t.Fatalf("2xx must be success: %v", err)
	}
	if err := classifyStatus("slack", http.StatusTooManyRequests); err == nil || IsTerminal(err) {
		t.Fatalf("429 must be transient, got %v", err)
	}
	if err := classifyStatus("slack", http.StatusBadGateway); err == nil || IsTerminal(err) {
		t.Fatalf("5xx must be transient, got %v", err)
	}
	if err := classifyStatus("slack", http.StatusNotFound); !IsTerminal(err) {
		t.Fatalf("404 must be terminal, got %v", err)
	}
	if err := classifyStatus("slack", http.StatusBadRequest); !IsTerminal(err) {
		t.Fatalf("400 must be terminal, got %v", err)
	}
}
