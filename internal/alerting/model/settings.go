package model

// NotificationSettings is the per-workspace email and browser
// notification configuration. Nil or empty NotificationServerIDs means
// every server; nil NotificationSeverities defaults to all three.
type NotificationSettings struct {
	EmailNotificationsEnabled   bool       `json:"emailNotificationsEnabled"`
	ContactEmail                string     `json:"contactEmail,omitempty"`
	NotificationSeverities      []Severity `json:"notificationSeverities,omitempty"`
	NotificationServerIDs       []string   `json:"notificationServerIds,omitempty"`
	BrowserNotificationsEnabled bool       `json:"browserNotificationsEnabled"`
	BrowserSeverities           []Severity `json:"browserNotificationSeverities,omitempty"`
}

// EffectiveSeverities resolves the severity filter, defaulting to all.
func (s NotificationSettings) EffectiveSeverities() []Severity {
	if len(s.NotificationSeverities) == 0 {
		return []Severity{SeverityCritical, SeverityWarning, SeverityInfo}
	}
	return s.NotificationSeverities
}

// AppliesToServer reports whether the workspace server filter matches.
// Empty NotificationServerIDs means every server.
func (s NotificationSettings) AppliesToServer(serverID string) bool {
	if len(s.NotificationServerIDs) == 0 {
		return true
	}
	for _, id := range s.NotificationServerIDs {
		if id == serverID {
			return true
		}
	}
	return false
}

// ChannelType is the closed set of notification transports.
type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelSlack   ChannelType = "slack"
	ChannelWebhook ChannelType = "webhook"
)

// ChannelConfig describes one configured notification channel for a
// workspace. Endpoint is the webhook URL for slack/webhook channels and
// the recipient address for email. Empty ServerIDs means all servers;
// empty Severities means all severities.
type ChannelConfig struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspaceId"`
	Type        ChannelType `json:"type"`
	Enabled     bool        `json:"enabled"`
	Endpoint    string      `json:"endpoint"`
	Secret      string      `json:"secret,omitempty"`
	Severities  []Severity  `json:"severities,omitempty"`
	ServerIDs   []string    `json:"serverIds,omitempty"`
}

// AcceptsSeverity reports whether the channel's severity filter matches.
func (c ChannelConfig) AcceptsSeverity(s Severity) bool {
	if len(c.Severities) == 0 {
		return true
	}
	for _, allowed := range c.Severities {
		if allowed == s {
			return true
		}
	}
	return false
}

// AcceptsServer reports whether the channel's server filter matches.
func (c ChannelConfig) AcceptsServer(serverID string) bool {
	if len(c.ServerIDs) == 0 {
		return true
	}
	for _, id := range c.ServerIDs {
		if id == serverID {
			return true
		}
	}
	return false
}
