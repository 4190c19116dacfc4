// Package settings manages per-workspace notification preferences and
// channel configurations.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// ErrChannelNotFound reports a channel id unknown to the workspace.
var ErrChannelNotFound = errors.New("channel not found")

// ErrPermission indicates the caller may not write workspace
// notification settings. Checked before validation runs.
var ErrPermission = errors.New("only the workspace owner may change notification settings")

// OwnerGate is the external collaborator deciding whether the caller
// owns the workspace and may write its settings.
type OwnerGate interface {
	CanManageSettings(ctx context.Context, workspaceID string) (bool, error)
}

// AllowAllGate permits every write; used in tests and when no owner
// collaborator is wired.
type AllowAllGate struct{}

func (AllowAllGate) CanManageSettings(context.Context, string) (bool, error) { return true, nil }

// Repo is the persistence contract for settings and channels.
// GetSettings returns (nil, nil) when the workspace has none stored.
type Repo interface {
	GetSettings(ctx context.Context, workspaceID string) (*model.NotificationSettings, error)
	PutSettings(ctx context.Context, workspaceID string, s model.NotificationSettings) error
	ListChannels(ctx context.Context, workspaceID string) ([]model.ChannelConfig, error)
	UpsertChannel(ctx context.Context, c model.ChannelConfig) error
	DeleteChannel(ctx context.Context, workspaceID, channelID string) error
}

// ValidationError reports which settings fields were rejected.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid notification settings: %s", strings.Join(e.Fields, ", "))
}

// Store wraps a Repo with validation, defaulting, and the owner gate.
type Store struct {
	repo Repo
	gate OwnerGate
}

// NewStore builds a Store over the given repo and owner gate. A nil
// gate allows all writes.
func NewStore(repo Repo, gate OwnerGate) *Store {
	if gate == nil {
		gate = AllowAllGate{}
	}
	return &Store{repo: repo, gate: gate}
}

// GetSettings returns the stored settings, or sane defaults when the
// workspace has never saved any.
func (s *Store) GetSettings(ctx context.Context, workspaceID string) (model.NotificationSettings, error) {
	stored, err := s.repo.GetSettings(ctx, workspaceID)
	if err != nil {
		return model.NotificationSettings{}, fmt.Errorf("get settings: %w", err)
	}
	if stored == nil {
		return DefaultSettings(), nil
	}
	return *stored, nil
}

// UpdateSettings persists a full settings document. The owner gate is
// consulted before any validation.
func (s *Store) UpdateSettings(ctx context.Context, workspaceID string, in model.NotificationSettings) (model.NotificationSettings, error) {
	allowed, err := s.gate.CanManageSettings(ctx, workspaceID)
	if err != nil {
		return model.NotificationSettings{}, fmt.Errorf("owner check: %w", err)
	}
	if !allowed {
		return model.NotificationSettings{}, ErrPermission
	}

	var bad []string
	for _, sev := range in.NotificationSeverities {
		if !sev.Valid() {
			bad = append(bad, "notificationSeverities")
			break
		}
	}
	for _, sev := range in.BrowserSeverities {
		if !sev.Valid() {
			bad = append(bad, "browserNotificationSeverities")
			break
		}
	}
	if in.EmailNotificationsEnabled && !strings.Contains(in.ContactEmail, "@") {
		bad = append(bad, "contactEmail")
	}
	if len(bad) > 0 {
		return model.NotificationSettings{}, &ValidationError{Fields: bad}
	}
	if err := s.repo.PutSettings(ctx, workspaceID, in); err != nil {
		return model.NotificationSettings{}, fmt.Errorf("put settings: %w", err)
	}
	return in, nil
}

// ListChannels returns every configured channel for the workspace.
func (s *Store) ListChannels(ctx context.Context, workspaceID string) ([]model.ChannelConfig, error) {
	channels, err := s.repo.ListChannels(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// SaveChannel validates and persists a channel. A missing id means a
// new channel and gets one assigned.
func (s *Store) SaveChannel(ctx context.Context, c model.ChannelConfig) (model.ChannelConfig, error) {
	var bad []string
	switch c.Type {
	case model.ChannelEmail:
		if !strings.Contains(c.Endpoint, "@") {
			bad = append(bad, "endpoint")
		}
	case model.ChannelSlack, model.ChannelWebhook:
		if u, err := url.Parse(c.Endpoint); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			bad = append(bad, "endpoint")
		}
	default:
		bad = append(bad, "type")
	}
	for _, sev := range c.Severities {
		if !sev.Valid() {
			bad = append(bad, "severities")
			break
		}
	}
	if c.WorkspaceID == "" {
		bad = append(bad, "workspaceId")
	}
	if len(bad) > 0 {
		return model.ChannelConfig{}, &ValidationError{Fields: bad}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.repo.UpsertChannel(ctx, c); err != nil {
		return model.ChannelConfig{}, fmt.Errorf("save channel: %w", err)
	}
	return c, nil
}

// DeleteChannel removes a channel from the workspace.
func (s *Store) DeleteChannel(ctx context.Context, workspaceID, channelID string) error {
	return s.repo.DeleteChannel(ctx, workspaceID, channelID)
}

// DefaultSettings is what a workspace gets before saving anything:
// email on for every severity, browser notifications off.
func DefaultSettings() model.NotificationSettings {
	return model.NotificationSettings{
		EmailNotificationsEnabled: true,
	}
}
