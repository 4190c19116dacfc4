package lifecycle

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisResolvedStore archives resolved alerts in Redis. Each alert is a
// JSON value with a TTL equal to the retention window, plus a per-scope
// index set used for listing; retention is therefore native and Purge
// only trims index entries whose values already expired.
type RedisResolvedStore struct {
	rdb       *redis.Client
	retention time.Duration
}

func NewRedisResolvedStore(rdb *redis.Client, retention time.Duration) *RedisResolvedStore {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &RedisResolvedStore{rdb: rdb, retention: retention}
}

func alertKey(id string) string { return "resolvedalert:" + id }

// occurrenceID qualifies the deterministic alert ID with its
// resolution time. A flapping condition resolves repeatedly under the
// same ID; each occurrence must survive in the archive, not overwrite
// the last.
func occurrenceID(a model.Alert) string {
	t := a.Timestamp
	if a.ResolvedAt != nil {
		t = *a.ResolvedAt
	}
	return a.ID + "/" + strconv.FormatInt(t.UnixNano(), 10)
}

func indexKey(workspaceID, serverID string) string {
	return "resolvedalert:index:" + scopeKey(workspaceID, serverID)
}

func (s *RedisResolvedStore) Add(ctx context.Context, workspaceID, serverID string, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	idx := indexKey(workspaceID, serverID)
	for _, a := range alerts {
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		occ := occurrenceID(a)
		pipe.Set(ctx, alertKey(occ), data, s.retention)
		pipe.SAdd(ctx, idx, occ)
	}
	pipe.Expire(ctx, idx, s.retention)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisResolvedStore) List(ctx context.Context, workspaceID, serverID string) ([]model.Alert, error) {
	idx := indexKey(workspaceID, serverID)
	ids, err := s.rdb.SMembers(ctx, idx).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Alert{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, alertKey(id))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	out := make([]model.Alert, 0, len(vals))
	var expired []any
	for i, v := range vals {
		if v == nil {
			// value aged out; drop the stale index entry
			expired = append(expired, ids[i])
			continue
		}
		var a model.Alert
		switch t := v.(type) {
		case string:
			err = json.Unmarshal([]byte(t), &a)
		case []byte:
			err = json.Unmarshal(t, &a)
		default:
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("id", ids[i]).Msg("resolved alert cache entry is malformed, skipping")
			continue
		}
		out = append(out, a)
	}
	if len(expired) > 0 {
		if err := s.rdb.SRem(ctx, idx, expired...).Err(); err != nil {
			log.Warn().Err(err).Msg("failed to trim expired resolved alert index entries")
		}
	}
	return out, nil
}

// Purge is a no-op for counting purposes: Redis expires values itself
// and List trims the index lazily.
func (s *RedisResolvedStore) Purge(context.Context, time.Time) (int, error) { return 0, nil }
