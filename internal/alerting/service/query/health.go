package query

import (
	"context"
	"fmt"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/rs/zerolog/log"
)

// HealthCheck probes the broker directly through the metrics source
// and grades a fixed set of components. It does not consult the alert
// collections, so it stays meaningful even when detection is paused.
func (s *Service) HealthCheck(ctx context.Context, workspaceID, serverID string) (*model.HealthCheck, error) {
	thresholds := s.thresholds.GetThresholds(ctx, workspaceID)

	snap, err := s.source.Snapshot(ctx, serverID)
	if err != nil {
		log.Warn().Err(err).Str("server_id", serverID).Msg("health probe failed to fetch metrics")
		components := map[string]model.ComponentCheck{
			"connectivity": {
				Status:  model.ComponentCritical,
				Message: "unable to reach metrics endpoint",
				Details: map[string]any{"error": err.Error()},
			},
		}
		for _, name := range model.HealthComponents {
			if name == "connectivity" {
				continue
			}
			components[name] = model.ComponentCheck{
				Status:  model.ComponentWarning,
				Message: "no metrics data available",
			}
		}
		return &model.HealthCheck{
			Overall:    model.WorstComponent(components),
			Components: components,
		}, nil
	}

	components := map[string]model.ComponentCheck{
		"connectivity": {
			Status:  model.ComponentHealthy,
			Message: "metrics endpoint reachable",
		},
		"nodes":  checkNodes(snap),
		"memory": checkMemory(snap, thresholds),
		"disk":   checkDisk(snap, thresholds),
		"queues": checkQueues(snap, thresholds),
	}
	return &model.HealthCheck{
		Overall:    model.WorstComponent(components),
		Components: components,
	}, nil
}

func checkNodes(snap *model.MetricsSnapshot) model.ComponentCheck {
	if len(snap.Nodes) == 0 {
		return model.ComponentCheck{
			Status:  model.ComponentCritical,
			Message: "no nodes reporting",
		}
	}
	return model.ComponentCheck{
		Status:  model.ComponentHealthy,
		Message: fmt.Sprintf("%d node(s) reporting", len(snap.Nodes)),
		Details: map[string]any{"count": len(snap.Nodes)},
	}
}

func checkMemory(snap *model.MetricsSnapshot, t model.ThresholdSet) model.ComponentCheck {
	worstNode, worst := "", 0.0
	for _, n := range snap.Nodes {
		if n.MemoryUsedPercent >= worst {
			worst = n.MemoryUsedPercent
			worstNode = n.Name
		}
	}
	check := model.ComponentCheck{
		Status:  model.ComponentHealthy,
		Message: "memory usage within limits",
		Details: map[string]any{"worstNode": worstNode, "usedPercent": worst},
	}
	switch {
	case t.Memory.Critical != nil && worst >= *t.Memory.Critical:
		check.Status = model.ComponentCritical
		check.Message = fmt.Sprintf("node %s memory at %.1f%%", worstNode, worst)
	case t.Memory.Warning != nil && worst >= *t.Memory.Warning:
		check.Status = model.ComponentWarning
		check.Message = fmt.Sprintf("node %s memory at %.1f%%", worstNode, worst)
	}
	return check
}

func checkDisk(snap *model.MetricsSnapshot, t model.ThresholdSet) model.ComponentCheck {
	worstNode, worst := "", 100.0
	for _, n := range snap.Nodes {
		if n.DiskFreePercent <= worst {
			worst = n.DiskFreePercent
			worstNode = n.Name
		}
	}
	check := model.ComponentCheck{
		Status:  model.ComponentHealthy,
		Message: "disk space within limits",
		Details: map[string]any{"worstNode": worstNode, "freePercent": worst},
	}
	switch {
	case t.DiskFree.Critical != nil && worst < *t.DiskFree.Critical:
		check.Status = model.ComponentCritical
		check.Message = fmt.Sprintf("node %s disk free at %.1f%%", worstNode, worst)
	case t.DiskFree.Warning != nil && worst < *t.DiskFree.Warning:
		check.Status = model.ComponentWarning
		check.Message = fmt.Sprintf("node %s disk free at %.1f%%", worstNode, worst)
	}
	return check
}

func checkQueues(snap *model.MetricsSnapshot, t model.ThresholdSet) model.ComponentCheck {
	worstQueue, worst := "", 0.0
	for _, q := range snap.Queues {
		if q.Messages >= worst {
			worst = q.Messages
			worstQueue = q.Name
		}
	}
	check := model.ComponentCheck{
		Status:  model.ComponentHealthy,
		Message: fmt.Sprintf("%d queue(s) within depth limits", len(snap.Queues)),
		Details: map[string]any{"deepestQueue": worstQueue, "messages": worst},
	}
	switch {
	case t.QueueMessages.Critical != nil && worst >= *t.QueueMessages.Critical:
		check.Status = model.ComponentCritical
		check.Message = fmt.Sprintf("queue %s has %.0f messages", worstQueue, worst)
	case t.QueueMessages.Warning != nil && worst >= *t.QueueMessages.Warning:
		check.Status = model.ComponentWarning
		check.Message = fmt.Sprintf("queue %s has %.0f messages", worstQueue, worst)
	}
	return check
}
