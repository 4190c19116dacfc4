package model

import (
	"fmt"
	"strings"
)

// Bound holds the warning/critical limits for one metric family.
// Pointers distinguish "unset" from zero so partial updates can merge
// field by field. Consumer utilization carries a warning bound only.
type Bound struct {
	Warning  *float64 `json:"warning,omitempty" yaml:"warning,omitempty"`
	Critical *float64 `json:"critical,omitempty" yaml:"critical,omitempty"`
}

// ThresholdSet is the per-workspace alerting configuration. A fully
// merged set (overrides over defaults) always has every bound present,
// except ConsumerUtilization.Critical which never exists.
type ThresholdSet struct {
	Memory              Bound `json:"memory" yaml:"memory"`
	DiskFree            Bound `json:"diskFree" yaml:"disk_free"`
	FileDescriptors     Bound `json:"fileDescriptors" yaml:"file_descriptors"`
	Sockets             Bound `json:"sockets" yaml:"sockets"`
	Processes           Bound `json:"processes" yaml:"processes"`
	QueueMessages       Bound `json:"queueMessages" yaml:"queue_messages"`
	QueueUnacked        Bound `json:"queueUnacked" yaml:"queue_unacked"`
	ConsumerUtilization Bound `json:"consumerUtilization" yaml:"consumer_utilization"`
	Connections         Bound `json:"connections" yaml:"connections"`
	RunQueue            Bound `json:"runQueue" yaml:"run_queue"`
}

func f64(v float64) *float64 { return &v }

// DefaultThresholds returns the system-wide fallback configuration.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		Memory:              Bound{Warning: f64(80), Critical: f64(90)},
		DiskFree:            Bound{Warning: f64(20), Critical: f64(10)},
		FileDescriptors:     Bound{Warning: f64(80), Critical: f64(90)},
		Sockets:             Bound{Warning: f64(80), Critical: f64(90)},
		Processes:           Bound{Warning: f64(80), Critical: f64(90)},
		QueueMessages:       Bound{Warning: f64(10000), Critical: f64(50000)},
		QueueUnacked:        Bound{Warning: f64(5000), Critical: f64(20000)},
		ConsumerUtilization: Bound{Warning: f64(50)},
		Connections:         Bound{Warning: f64(80), Critical: f64(95)},
		RunQueue:            Bound{Warning: f64(2), Critical: f64(4)},
	}
}

// thresholdField pairs a metric name with accessors so merge and
// validation iterate one table instead of ten copies of the same code.
type thresholdField struct {
	name string
	// lowerIsWorse inverts the warning/critical ordering check.
	lowerIsWorse bool
	// warningOnly families skip the ordering check entirely.
	warningOnly bool
	get         func(*ThresholdSet) *Bound
}

func thresholdFields() []thresholdField {
	return []thresholdField{
		{name: "memory", get: func(t *ThresholdSet) *Bound { return &t.Memory }},
		{name: "diskFree", lowerIsWorse: true, get: func(t *ThresholdSet) *Bound { return &t.DiskFree }},
		{name: "fileDescriptors", get: func(t *ThresholdSet) *Bound { return &t.FileDescriptors }},
		{name: "sockets", get: func(t *ThresholdSet) *Bound { return &t.Sockets }},
		{name: "processes", get: func(t *ThresholdSet) *Bound { return &t.Processes }},
		{name: "queueMessages", get: func(t *ThresholdSet) *Bound { return &t.QueueMessages }},
		{name: "queueUnacked", get: func(t *ThresholdSet) *Bound { return &t.QueueUnacked }},
		{name: "consumerUtilization", warningOnly: true, get: func(t *ThresholdSet) *Bound { return &t.ConsumerUtilization }},
		{name: "connections", get: func(t *ThresholdSet) *Bound { return &t.Connections }},
		{name: "runQueue", get: func(t *ThresholdSet) *Bound { return &t.RunQueue }},
	}
}

// MergeThresholds overlays the fields present in patch onto base and
// returns the result. Neither input is mutated.
func MergeThresholds(base, patch ThresholdSet) ThresholdSet {
	out := base
	for _, f := range thresholdFields() {
		src := f.get(&patch)
		dst := f.get(&out)
		if src.Warning != nil {
			dst.Warning = src.Warning
		}
		if src.Critical != nil && !f.warningOnly {
			dst.Critical = src.Critical
		}
	}
	return out
}

// ValidationError reports the metric families whose merged bounds
// violate the warning/critical ordering invariant.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid thresholds for: %s", strings.Join(e.Fields, ", "))
}

// Validate checks the ordering invariant on every family where both
// bounds are present after merge: critical must be strictly worse than
// warning, with disk free inverted (lower is worse).
func (t ThresholdSet) Validate() error {
	var bad []string
	for _, f := range thresholdFields() {
		b := f.get(&t)
		if b.Warning == nil || b.Critical == nil {
			continue
		}
		if f.lowerIsWorse {
			if *b.Critical >= *b.Warning {
				bad = append(bad, f.name)
			}
		} else if *b.Critical <= *b.Warning {
			bad = append(bad, f.name)
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}
