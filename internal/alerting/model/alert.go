package model

import "time"

// Severity classifies how urgent an alert is. Ordering is
// critical > warning > info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank returns a comparable weight for severity ordering.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// Category is the metric family an alert belongs to.
type Category string

const (
	CategoryMemory      Category = "memory"
	CategoryDisk        Category = "disk"
	CategoryConnection  Category = "connection"
	CategoryQueue       Category = "queue"
	CategoryNode        Category = "node"
	CategoryPerformance Category = "performance"
)

// SourceType identifies which broker entity an alert was observed on.
type SourceType string

const (
	SourceNode    SourceType = "node"
	SourceQueue   SourceType = "queue"
	SourceCluster SourceType = "cluster"
)

// AlertSource describes the broker entity an alert originates from.
type AlertSource struct {
	Type SourceType `json:"type"`
	Name string     `json:"name"`
}

// AlertDetails carries the structured measurement behind an alert.
type AlertDetails struct {
	Current     float64  `json:"current"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Recommended string   `json:"recommended,omitempty"`
	Affected    []string `json:"affected,omitempty"`
}

// Alert is one detected broker condition tracked across poll cycles.
// ID is deterministic for the underlying condition (see lifecycle.Key),
// never random, so the same condition observed again maps to the same
// record.
type Alert struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspaceId"`
	ServerID    string       `json:"serverId"`
	Severity    Severity     `json:"severity"`
	Category    Category     `json:"category"`
	Metric      string       `json:"metric,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Details     AlertDetails `json:"details"`
	Timestamp   time.Time    `json:"timestamp"`
	Resolved    bool         `json:"resolved"`
	ResolvedAt  *time.Time   `json:"resolvedAt,omitempty"`
	Source      AlertSource  `json:"source"`
	VHost       string       `json:"vhost,omitempty"`
}

// CandidateAlert is the classifier's output for a single detected
// condition, before lifecycle reconciliation assigns identity and
// continuity.
type CandidateAlert struct {
	Severity Severity
	Category Category
	// Metric names the threshold family that fired, e.g.
	// "queue_messages". It disambiguates alert identity when several
	// families share a category and source.
	Metric      string
	Title       string
	Description string
	Details     AlertDetails
	Source      AlertSource
	VHost       string
}

// AlertSummary holds severity roll-up counts over an alert collection.
type AlertSummary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// Summarize computes severity counts for the given alerts.
func Summarize(alerts []Alert) AlertSummary {
	s := AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityWarning:
			s.Warning++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}

// ClusterHealth is the roll-up state derived from active alerts.
type ClusterHealth string

const (
	HealthHealthy  ClusterHealth = "healthy"
	HealthDegraded ClusterHealth = "degraded"
	HealthCritical ClusterHealth = "critical"
)

// ClusterHealthSummary is the derived health view for one server.
type ClusterHealthSummary struct {
	Status  ClusterHealth `json:"status"`
	Issues  []string      `json:"issues"`
	Summary AlertSummary  `json:"summary"`
}

// ComputeClusterHealth rolls active alerts up into a health state:
// any critical alert makes the cluster critical, else any warning makes
// it degraded, else it is healthy.
func ComputeClusterHealth(alerts []Alert) ClusterHealthSummary {
	sum := Summarize(alerts)
	status := HealthHealthy
	if sum.Warning > 0 {
		status = HealthDegraded
	}
	if sum.Critical > 0 {
		status = HealthCritical
	}
	issues := make([]string, 0, len(alerts))
	for _, a := range alerts {
		issues = append(issues, a.Title)
	}
	return ClusterHealthSummary{Status: status, Issues: issues, Summary: sum}
}
