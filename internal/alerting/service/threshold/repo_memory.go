package threshold

import (
	"context"
	"sync"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// MemoryRepo keeps workspace overrides in process memory. Default repo
// for single-instance deployments and the test substrate.
type MemoryRepo struct {
	mu   sync.RWMutex
	sets map[string]model.ThresholdSet
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sets: map[string]model.ThresholdSet{}}
}

func (r *MemoryRepo) Get(_ context.Context, workspaceID string) (*model.ThresholdSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.sets[workspaceID]
	if !ok {
		return nil, nil
	}
	copied := t
	return &copied, nil
}

func (r *MemoryRepo) Put(_ context.Context, workspaceID string, t model.ThresholdSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[workspaceID] = t
	return nil
}
