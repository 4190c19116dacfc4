package model

// ComponentStatus is the state of one health check component.
type ComponentStatus string

const (
	ComponentHealthy  ComponentStatus = "healthy"
	ComponentWarning  ComponentStatus = "warning"
	ComponentCritical ComponentStatus = "critical"
)

func (s ComponentStatus) rank() int {
	switch s {
	case ComponentCritical:
		return 2
	case ComponentWarning:
		return 1
	default:
		return 0
	}
}

// ComponentCheck is the result of probing one broker aspect.
type ComponentCheck struct {
	Status  ComponentStatus `json:"status"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details,omitempty"`
}

// HealthCheck is the fixed-component probe result for one server,
// independent from the threshold alert pipeline.
type HealthCheck struct {
	Overall    ComponentStatus           `json:"overall"`
	Components map[string]ComponentCheck `json:"components"`
}

// HealthComponents lists the fixed component names, in report order.
var HealthComponents = []string{"connectivity", "nodes", "memory", "disk", "queues"}

// WorstComponent derives the overall status from the component map.
func WorstComponent(components map[string]ComponentCheck) ComponentStatus {
	overall := ComponentHealthy
	for _, c := range components {
		if c.Status.rank() > overall.rank() {
			overall = c.Status
		}
	}
	return overall
}
