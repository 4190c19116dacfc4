package query

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// Plan tiers recognized by the query layer. Only the free tier changes
// behavior: its responses omit the detailed alert list.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// PlanResolver looks up the billing plan for a workspace. Implemented
// by the workspace service client; tests use StaticPlanResolver.
type PlanResolver interface {
	Plan(ctx context.Context, workspaceID string) (string, error)
}

// StaticPlanResolver maps workspace ids to fixed plans. Workspaces not
// in the map default to the pro tier.
type StaticPlanResolver map[string]string

func (r StaticPlanResolver) Plan(_ context.Context, workspaceID string) (string, error) {
	if plan, ok := r[workspaceID]; ok {
		return plan, nil
	}
	return PlanPro, nil
}

// CachedPlanResolver memoizes plan lookups so every list request does
// not round-trip to the workspace service.
type CachedPlanResolver struct {
	inner PlanResolver
	cache *cache.Cache
}

func NewCachedPlanResolver(inner PlanResolver, ttl time.Duration) *CachedPlanResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedPlanResolver{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *CachedPlanResolver) Plan(ctx context.Context, workspaceID string) (string, error) {
	if v, ok := r.cache.Get(workspaceID); ok {
		return v.(string), nil
	}
	plan, err := r.inner.Plan(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	r.cache.SetDefault(workspaceID, plan)
	log.Debug().Str("workspace_id", workspaceID).Str("plan", plan).Msg("cached workspace plan")
	return plan, nil
}
