// Package classify turns a metrics snapshot and a threshold set into
// candidate alerts. It is pure: no I/O and no state; malformed snapshot
// entries yield no alerts for that entry and are logged.
package classify

import (
	"fmt"
	"math"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/rs/zerolog/log"
)

// Classify evaluates every metric family for every node, queue, and the
// cluster. A value clearing both bounds produces exactly one candidate,
// at critical severity (critical is checked first).
func Classify(snap *model.MetricsSnapshot, thresholds model.ThresholdSet) []model.CandidateAlert {
	if snap == nil {
		return nil
	}
	var out []model.CandidateAlert
	for _, node := range snap.Nodes {
		if node.Name == "" {
			log.Warn().Str("server", snap.ServerID).Msg("classify: node without name in snapshot, skipping")
			continue
		}
		out = appendNodeCandidates(out, node, thresholds)
	}
	for _, q := range snap.Queues {
		if q.Name == "" {
			log.Warn().Str("server", snap.ServerID).Str("vhost", q.VHost).Msg("classify: queue without name in snapshot, skipping")
			continue
		}
		out = appendQueueCandidates(out, q, thresholds)
	}
	out = appendClusterCandidates(out, snap, thresholds)
	return out
}

// crossed evaluates a value against a bound pair, critical first.
// invert flips the comparison for lower-is-worse metrics (disk free).
func crossed(value float64, b model.Bound, invert bool) (model.Severity, float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", 0, false
	}
	hit := func(bound *float64) bool {
		if bound == nil {
			return false
		}
		if invert {
			return value < *bound
		}
		return value >= *bound
	}
	if hit(b.Critical) {
		return model.SeverityCritical, *b.Critical, true
	}
	if hit(b.Warning) {
		return model.SeverityWarning, *b.Warning, true
	}
	return "", 0, false
}

func appendNodeCandidates(out []model.CandidateAlert, node model.NodeMetrics, t model.ThresholdSet) []model.CandidateAlert {
	source := model.AlertSource{Type: model.SourceNode, Name: node.Name}

	if sev, bound, ok := crossed(node.MemoryUsedPercent, t.Memory, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryMemory, Metric: "memory", Source: source,
			Title:       fmt.Sprintf("High memory usage on %s", node.Name),
			Description: fmt.Sprintf("Node %s is using %.1f%% of its memory high watermark", node.Name, node.MemoryUsedPercent),
			Details: model.AlertDetails{
				Current: node.MemoryUsedPercent, Threshold: &bound,
				Recommended: "Reduce queue depth or raise the memory high watermark",
			},
		})
	}
	if sev, bound, ok := crossed(node.DiskFreePercent, t.DiskFree, true); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryDisk, Metric: "disk_free", Source: source,
			Title:       fmt.Sprintf("Low disk space on %s", node.Name),
			Description: fmt.Sprintf("Node %s has %.1f%% free disk remaining", node.Name, node.DiskFreePercent),
			Details: model.AlertDetails{
				Current: node.DiskFreePercent, Threshold: &bound,
				Recommended: "Free disk space or raise the disk free limit before the broker blocks publishers",
			},
		})
	}
	if sev, bound, ok := crossed(node.FDUsedPercent, t.FileDescriptors, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryNode, Metric: "file_descriptors", Source: source,
			Title:       fmt.Sprintf("File descriptor exhaustion on %s", node.Name),
			Description: fmt.Sprintf("Node %s is using %.1f%% of available file descriptors", node.Name, node.FDUsedPercent),
			Details: model.AlertDetails{
				Current: node.FDUsedPercent, Threshold: &bound,
				Recommended: "Increase the file descriptor ulimit for the broker process",
			},
		})
	}
	if sev, bound, ok := crossed(node.SocketsUsedPercent, t.Sockets, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryNode, Metric: "sockets", Source: source,
			Title:       fmt.Sprintf("Socket exhaustion on %s", node.Name),
			Description: fmt.Sprintf("Node %s is using %.1f%% of available sockets", node.Name, node.SocketsUsedPercent),
			Details: model.AlertDetails{
				Current: node.SocketsUsedPercent, Threshold: &bound,
				Recommended: "Audit connection churn and raise the socket limit if sustained",
			},
		})
	}
	if sev, bound, ok := crossed(node.ProcessesUsedPercent, t.Processes, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryNode, Metric: "processes", Source: source,
			Title:       fmt.Sprintf("Erlang process exhaustion on %s", node.Name),
			Description: fmt.Sprintf("Node %s is using %.1f%% of the Erlang process limit", node.Name, node.ProcessesUsedPercent),
			Details: model.AlertDetails{
				Current: node.ProcessesUsedPercent, Threshold: &bound,
				Recommended: "Investigate channel and queue leaks; raise the process limit if legitimate",
			},
		})
	}
	if sev, bound, ok := crossed(node.RunQueue, t.RunQueue, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryPerformance, Metric: "run_queue", Source: source,
			Title:       fmt.Sprintf("High run queue on %s", node.Name),
			Description: fmt.Sprintf("Node %s reports a scheduler run queue of %.0f", node.Name, node.RunQueue),
			Details: model.AlertDetails{
				Current: node.RunQueue, Threshold: &bound,
				Recommended: "Check for CPU saturation; add cores or rebalance queues across nodes",
			},
		})
	}
	return out
}

func appendQueueCandidates(out []model.CandidateAlert, q model.QueueMetrics, t model.ThresholdSet) []model.CandidateAlert {
	source := model.AlertSource{Type: model.SourceQueue, Name: q.Name}

	if sev, bound, ok := crossed(q.Messages, t.QueueMessages, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryQueue, Metric: "queue_messages", Source: source, VHost: q.VHost,
			Title:       fmt.Sprintf("Queue %s is backing up", q.Name),
			Description: fmt.Sprintf("Queue %s in vhost %s holds %.0f messages", q.Name, q.VHost, q.Messages),
			Details: model.AlertDetails{
				Current: q.Messages, Threshold: &bound,
				Recommended: "Add consumers or check that existing consumers are keeping up",
			},
		})
	}
	if sev, bound, ok := crossed(q.MessagesUnacked, t.QueueUnacked, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryQueue, Metric: "queue_unacked", Source: source, VHost: q.VHost,
			Title:       fmt.Sprintf("Unacknowledged backlog on %s", q.Name),
			Description: fmt.Sprintf("Queue %s in vhost %s has %.0f unacknowledged messages", q.Name, q.VHost, q.MessagesUnacked),
			Details: model.AlertDetails{
				Current: q.MessagesUnacked, Threshold: &bound,
				Recommended: "Lower consumer prefetch or investigate consumers that never ack",
			},
		})
	}
	if sev, bound, ok := crossed(q.ConsumerUtilization, t.ConsumerUtilization, false); ok {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryPerformance, Metric: "consumer_utilization", Source: source, VHost: q.VHost,
			Title:       fmt.Sprintf("Consumer utilisation alert on %s", q.Name),
			Description: fmt.Sprintf("Queue %s in vhost %s reports %.0f%% consumer utilisation", q.Name, q.VHost, q.ConsumerUtilization),
			Details: model.AlertDetails{
				Current: q.ConsumerUtilization, Threshold: &bound,
				Recommended: "Review consumer prefetch and processing latency for this queue",
			},
		})
	}
	return out
}

func appendClusterCandidates(out []model.CandidateAlert, snap *model.MetricsSnapshot, t model.ThresholdSet) []model.CandidateAlert {
	used, ok := snap.Cluster.ConnectionsUsedPercent()
	if !ok {
		// no connection limit reported; nothing to compare against
		return out
	}
	name := snap.ServerName
	if name == "" {
		name = snap.ServerID
	}
	if sev, bound, hit := crossed(used, t.Connections, false); hit {
		out = append(out, model.CandidateAlert{
			Severity: sev, Category: model.CategoryConnection, Metric: "connections",
			Source:      model.AlertSource{Type: model.SourceCluster, Name: name},
			Title:       "Connection limit pressure",
			Description: fmt.Sprintf("Cluster %s is using %d of %d allowed connections (%.1f%%)", name, snap.Cluster.Connections, snap.Cluster.ConnectionLimit, used),
			Details: model.AlertDetails{
				Current: used, Threshold: &bound,
				Recommended: "Close idle connections or raise the broker connection limit",
			},
		})
	}
	return out
}
