package settings

import (
	"context"
	"sync"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// MemoryRepo is the in-process Repo used in tests and when no database
// is configured.
type MemoryRepo struct {
	mu       sync.RWMutex
	settings map[string]model.NotificationSettings
	channels map[string]map[string]model.ChannelConfig
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		settings: make(map[string]model.NotificationSettings),
		channels: make(map[string]map[string]model.ChannelConfig),
	}
}

func (r *MemoryRepo) GetSettings(_ context.Context, workspaceID string) (*model.NotificationSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[workspaceID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryRepo) PutSettings(_ context.Context, workspaceID string, s model.NotificationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[workspaceID] = s
	return nil
}

func (r *MemoryRepo) ListChannels(_ context.Context, workspaceID string) ([]model.ChannelConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ChannelConfig, 0, len(r.channels[workspaceID]))
	for _, c := range r.channels[workspaceID] {
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) UpsertChannel(_ context.Context, c model.ChannelConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[c.WorkspaceID] == nil {
		r.channels[c.WorkspaceID] = make(map[string]model.ChannelConfig)
	}
	r.channels[c.WorkspaceID][c.ID] = c
	return nil
}

func (r *MemoryRepo) DeleteChannel(_ context.Context, workspaceID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[workspaceID][channelID]; !ok {
		return ErrChannelNotFound
	}
	delete(r.channels[workspaceID], channelID)
	return nil
}
