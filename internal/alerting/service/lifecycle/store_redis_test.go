package lifecycle

import (
	"testing"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

func TestOccurrenceIDDistinguishesRepeatedResolutions(t *testing.T) {
	opened := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	first := opened.Add(5 * time.Minute)
	second := opened.Add(20 * time.Minute)

	a := model.Alert{ID: "alert/srv-1/memory/abc", Timestamp: opened, Resolved: true, ResolvedAt: &first}
	b := a
	b.ResolvedAt = &second

	if occurrenceID(a) == occurrenceID(b) {
		t.Fatal("a flapping alert resolving twice must archive two occurrences")
	}
	if occurrenceID(a) != occurrenceID(a) {
		t.Fatal("the same occurrence must always derive the same key")
	}
}

func TestOccurrenceIDFallsBackToOpenTimestamp(t *testing.T) {
	opened := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a := model.Alert{ID: "alert/srv-1/memory/abc", Timestamp: opened}
	if occurrenceID(a) == a.ID {
		t.Fatal("occurrence key must still be time-qualified without resolvedAt")
	}
}
