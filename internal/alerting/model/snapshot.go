package model

import "time"

// MetricsSnapshot is the point-in-time input contract supplied by the
// poller collaborator for one monitored server. Percent fields are in
// the 0..100 range.
type MetricsSnapshot struct {
	ServerID   string         `json:"serverId"`
	ServerName string         `json:"serverName,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Nodes      []NodeMetrics  `json:"nodes"`
	Queues     []QueueMetrics `json:"queues"`
	Cluster    ClusterMetrics `json:"cluster"`
}

// NodeMetrics carries per-node resource usage.
type NodeMetrics struct {
	Name                 string  `json:"name"`
	MemoryUsedPercent    float64 `json:"memoryUsedPercent"`
	DiskFreePercent      float64 `json:"diskFreePercent"`
	FDUsedPercent        float64 `json:"fdUsedPercent"`
	SocketsUsedPercent   float64 `json:"socketsUsedPercent"`
	ProcessesUsedPercent float64 `json:"processesUsedPercent"`
	RunQueue             float64 `json:"runQueue"`
}

// QueueMetrics carries per-queue depth and consumer figures.
type QueueMetrics struct {
	Name                string  `json:"name"`
	VHost               string  `json:"vhost"`
	Messages            float64 `json:"messages"`
	MessagesUnacked     float64 `json:"messagesUnacked"`
	ConsumerUtilization float64 `json:"consumerUtilization"`
}

// ClusterMetrics carries cluster-wide figures. ConnectionLimit may be
// zero when the broker does not report one; connection classification
// is skipped in that case.
type ClusterMetrics struct {
	Connections     int `json:"connections"`
	ConnectionLimit int `json:"connectionLimit"`
}

// ConnectionsUsedPercent returns connection usage relative to the
// broker limit, and whether the figure is meaningful.
func (c ClusterMetrics) ConnectionsUsedPercent() (float64, bool) {
	if c.ConnectionLimit <= 0 {
		return 0, false
	}
	return float64(c.Connections) / float64(c.ConnectionLimit) * 100, true
}
