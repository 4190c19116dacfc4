// Package threshold owns per-workspace alerting thresholds: defaults,
// overrides, partial-update merging, and the warning/critical ordering
// invariant.
package threshold

import (
	"context"
	"errors"
	"sync"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/rs/zerolog/log"
)

// ErrPermission indicates the workspace plan does not allow threshold
// modification. Checked before validation runs.
var ErrPermission = errors.New("workspace plan does not permit threshold changes")

// Repo abstracts persistence of workspace threshold overrides.
// Implementations: MemoryRepo, PgRepo.
type Repo interface {
	// Get returns the stored overrides, or (nil, nil) when the
	// workspace has none.
	Get(ctx context.Context, workspaceID string) (*model.ThresholdSet, error)
	// Put replaces the stored overrides for the workspace.
	Put(ctx context.Context, workspaceID string, t model.ThresholdSet) error
}

// PlanGate is the external plan-tier collaborator deciding who may
// modify thresholds.
type PlanGate interface {
	CanModifyThresholds(ctx context.Context, workspaceID string) (bool, error)
}

// AllowAllGate permits every modification; used in tests and when no
// plan collaborator is wired.
type AllowAllGate struct{}

func (AllowAllGate) CanModifyThresholds(context.Context, string) (bool, error) { return true, nil }

// Store serves merged threshold sets and applies validated partial
// updates. Reads never fail: on any repo error the system defaults are
// returned.
type Store struct {
	repo     Repo
	gate     PlanGate
	defaults model.ThresholdSet

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore builds a Store over the given repo and plan gate. A nil gate
// allows all updates.
func NewStore(repo Repo, gate PlanGate) *Store {
	if gate == nil {
		gate = AllowAllGate{}
	}
	return &Store{
		repo:     repo,
		gate:     gate,
		defaults: model.DefaultThresholds(),
		locks:    map[string]*sync.Mutex{},
	}
}

// WithDefaults replaces the system defaults, e.g. from a bootstrap
// file. The set must be complete and valid.
func (s *Store) WithDefaults(d model.ThresholdSet) *Store {
	s.defaults = d
	return s
}

// Defaults returns the system default threshold set.
func (s *Store) Defaults() model.ThresholdSet { return s.defaults }

// CanModify asks the plan gate whether the workspace may change
// thresholds.
func (s *Store) CanModify(ctx context.Context, workspaceID string) (bool, error) {
	return s.gate.CanModifyThresholds(ctx, workspaceID)
}

// GetThresholds returns workspace overrides merged over defaults.
// Falls back to defaults entirely when the workspace has no record or
// the repo fails.
func (s *Store) GetThresholds(ctx context.Context, workspaceID string) model.ThresholdSet {
	overrides, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		log.Warn().Err(err).Str("workspace", workspaceID).Msg("threshold read failed; using defaults")
		return s.defaults
	}
	if overrides == nil {
		return s.defaults
	}
	return model.MergeThresholds(s.defaults, *overrides)
}

// UpdateThresholds merges the partial update into the workspace
// overrides after the plan gate and the ordering invariant both pass.
// Nothing is persisted on rejection. Returns the new effective set.
func (s *Store) UpdateThresholds(ctx context.Context, workspaceID string, patch model.ThresholdSet) (model.ThresholdSet, error) {
	allowed, err := s.gate.CanModifyThresholds(ctx, workspaceID)
	if err != nil {
		return model.ThresholdSet{}, err
	}
	if !allowed {
		return model.ThresholdSet{}, ErrPermission
	}

	lock := s.workspaceLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return model.ThresholdSet{}, err
	}
	overrides := patch
	if existing != nil {
		overrides = model.MergeThresholds(*existing, patch)
	}
	effective := model.MergeThresholds(s.defaults, overrides)
	if err := effective.Validate(); err != nil {
		return model.ThresholdSet{}, err
	}
	if err := s.repo.Put(ctx, workspaceID, overrides); err != nil {
		return model.ThresholdSet{}, err
	}
	log.Info().Str("workspace", workspaceID).Msg("thresholds updated")
	return effective, nil
}

// workspaceLock serializes concurrent updates per workspace without
// cross-workspace contention.
func (s *Store) workspaceLock(workspaceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[workspaceID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[workspaceID] = l
	}
	return l
}
