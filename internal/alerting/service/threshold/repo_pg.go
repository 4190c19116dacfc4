package threshold

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/database"
)

// PgRepo persists workspace threshold overrides as a JSONB document,
// one row per workspace.
type PgRepo struct {
	DB *database.Database
}

func NewPgRepo(db *database.Database) *PgRepo { return &PgRepo{DB: db} }

func (r *PgRepo) Get(ctx context.Context, workspaceID string) (*model.ThresholdSet, error) {
	const q = `SELECT thresholds FROM workspace_thresholds WHERE workspace_id = $1`
	var raw []byte
	err := r.DB.QueryRowContext(ctx, q, workspaceID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thresholds: %w", err)
	}
	var t model.ThresholdSet
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode thresholds: %w", err)
	}
	return &t, nil
}

func (r *PgRepo) Put(ctx context.Context, workspaceID string, t model.ThresholdSet) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}
	const q = `
	INSERT INTO workspace_thresholds(workspace_id, thresholds, updated_at)
	VALUES ($1, $2::jsonb, now())
	ON CONFLICT (workspace_id) DO UPDATE SET
		thresholds = EXCLUDED.thresholds,
		updated_at = now()
	`
	if _, err := r.DB.ExecContext(ctx, q, workspaceID, string(raw)); err != nil {
		return fmt.Errorf("put thresholds: %w", err)
	}
	return nil
}
