package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// MemoryActiveStore keeps active alerts in process memory.
type MemoryActiveStore struct {
	mu     sync.RWMutex
	active map[string][]model.Alert
}

func NewMemoryActiveStore() *MemoryActiveStore {
	return &MemoryActiveStore{active: map[string][]model.Alert{}}
}

func (s *MemoryActiveStore) List(_ context.Context, workspaceID, serverID string) ([]model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Alert(nil), s.active[scopeKey(workspaceID, serverID)]...), nil
}

func (s *MemoryActiveStore) Replace(_ context.Context, workspaceID, serverID string, alerts []model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[scopeKey(workspaceID, serverID)] = append([]model.Alert(nil), alerts...)
	return nil
}

// MemoryResolvedStore keeps resolved alerts in process memory with
// explicit purge-based retention.
type MemoryResolvedStore struct {
	mu       sync.RWMutex
	resolved map[string][]model.Alert
}

func NewMemoryResolvedStore() *MemoryResolvedStore {
	return &MemoryResolvedStore{resolved: map[string][]model.Alert{}}
}

func (s *MemoryResolvedStore) Add(_ context.Context, workspaceID, serverID string, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scopeKey(workspaceID, serverID)
	s.resolved[k] = append(s.resolved[k], alerts...)
	return nil
}

func (s *MemoryResolvedStore) List(_ context.Context, workspaceID, serverID string) ([]model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Alert(nil), s.resolved[scopeKey(workspaceID, serverID)]...), nil
}

func (s *MemoryResolvedStore) Purge(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for k, alerts := range s.resolved {
		kept := alerts[:0]
		for _, a := range alerts {
			if a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
				purged++
				continue
			}
			kept = append(kept, a)
		}
		if len(kept) == 0 {
			delete(s.resolved, k)
			continue
		}
		s.resolved[k] = kept
	}
	return purged, nil
}
