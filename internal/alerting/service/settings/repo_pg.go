package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/database"
	"github.com/lib/pq"
)

// PgRepo stores settings one row per workspace and channels one row
// per channel, with severity and server filters as text arrays.
type PgRepo struct {
	DB *database.Database
}

func NewPgRepo(db *database.Database) *PgRepo { return &PgRepo{DB: db} }

func (r *PgRepo) GetSettings(ctx context.Context, workspaceID string) (*model.NotificationSettings, error) {
	const q = `
	SELECT email_enabled, contact_email, severities, server_ids, browser_enabled, browser_severities
	FROM workspace_notification_settings WHERE workspace_id = $1`

	var (
		s                 model.NotificationSettings
		severities        []string
		serverIDs         []string
		browserSeverities []string
	)
	err := r.DB.QueryRowContext(ctx, q, workspaceID).Scan(
		&s.EmailNotificationsEnabled,
		&s.ContactEmail,
		pq.Array(&severities),
		pq.Array(&serverIDs),
		&s.BrowserNotificationsEnabled,
		pq.Array(&browserSeverities),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification settings: %w", err)
	}
	s.NotificationSeverities = toSeverities(severities)
	s.NotificationServerIDs = serverIDs
	s.BrowserSeverities = toSeverities(browserSeverities)
	return &s, nil
}

func (r *PgRepo) PutSettings(ctx context.Context, workspaceID string, s model.NotificationSettings) error {
	const q = `
	INSERT INTO workspace_notification_settings(workspace_id, email_enabled, contact_email, severities, server_ids, browser_enabled, browser_severities, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	ON CONFLICT (workspace_id) DO UPDATE SET
		email_enabled = EXCLUDED.email_enabled,
		contact_email = EXCLUDED.contact_email,
		severities = EXCLUDED.severities,
		server_ids = EXCLUDED.server_ids,
		browser_enabled = EXCLUDED.browser_enabled,
		browser_severities = EXCLUDED.browser_severities,
		updated_at = now()
	`
	_, err := r.DB.ExecContext(ctx, q,
		workspaceID,
		s.EmailNotificationsEnabled,
		s.ContactEmail,
		pq.Array(fromSeverities(s.NotificationSeverities)),
		pq.Array(s.NotificationServerIDs),
		s.BrowserNotificationsEnabled,
		pq.Array(fromSeverities(s.BrowserSeverities)),
	)
	if err != nil {
		return fmt.Errorf("put notification settings: %w", err)
	}
	return nil
}

func (r *PgRepo) ListChannels(ctx context.Context, workspaceID string) ([]model.ChannelConfig, error) {
	const q = `
	SELECT id, type, enabled, endpoint, secret, severities, server_ids
	FROM notification_channels WHERE workspace_id = $1 ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []model.ChannelConfig
	for rows.Next() {
		var (
			c          model.ChannelConfig
			severities []string
		)
		c.WorkspaceID = workspaceID
		if err := rows.Scan(&c.ID, &c.Type, &c.Enabled, &c.Endpoint, &c.Secret, pq.Array(&severities), pq.Array(&c.ServerIDs)); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		c.Severities = toSeverities(severities)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PgRepo) UpsertChannel(ctx context.Context, c model.ChannelConfig) error {
	const q = `
	INSERT INTO notification_channels(id, workspace_id, type, enabled, endpoint, secret, severities, server_ids, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (id) DO UPDATE SET
		type = EXCLUDED.type,
		enabled = EXCLUDED.enabled,
		endpoint = EXCLUDED.endpoint,
		secret = EXCLUDED.secret,
		severities = EXCLUDED.severities,
		server_ids = EXCLUDED.server_ids,
		updated_at = now()
	`
	_, err := r.DB.ExecContext(ctx, q,
		c.ID, c.WorkspaceID, string(c.Type), c.Enabled, c.Endpoint, c.Secret,
		pq.Array(fromSeverities(c.Severities)), pq.Array(c.ServerIDs),
	)
	if err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}
	return nil
}

func (r *PgRepo) DeleteChannel(ctx context.Context, workspaceID, channelID string) error {
	const q = `DELETE FROM notification_channels WHERE workspace_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, q, workspaceID, channelID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrChannelNotFound
	}
	return nil
}

func toSeverities(raw []string) []model.Severity {
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.Severity, 0, len(raw))
	for _, s := range raw {
		out = append(out, model.Severity(s))
	}
	return out
}

func fromSeverities(severities []model.Severity) []string {
	if len(severities) == 0 {
		return nil
	}
	out := make([]string, 0, len(severities))
	for _, s := range severities {
		out = append(out, string(s))
	}
	return out
}
