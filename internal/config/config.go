// Package config provides configuration types and loading for upliftsync.
package config

import "time"

// Config is the root configuration struct.
type Config struct {
	Backend  BackendConfig  `json:"backend"`
	Mail     MailConfig     `json:"mail"`
	Insights InsightsConfig `json:"insights"`
	Drafts   DraftsConfig   `json:"drafts"`
	Notify   NotifyConfig   `json:"notify"`
	Feed     FeedConfig     `json:"feed"`
}

// BackendConfig points at the activity service.
type BackendConfig struct {
	BaseURL string        `json:"baseUrl" envconfig:"BASE_URL"`
	Token   string        `json:"token" envconfig:"TOKEN"`
	Timeout time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// MailConfig configures the mail-integration collaborator and the
// per-lead unread polling built on it.
type MailConfig struct {
	BaseURL        string        `json:"baseUrl" envconfig:"BASE_URL"`
	UserEmail      string        `json:"userEmail" envconfig:"USER_EMAIL"`
	Timeout        time.Duration `json:"timeout" envconfig:"TIMEOUT"`
	StatusTTL      time.Duration `json:"statusTtl" envconfig:"STATUS_TTL"`
	UnreadInterval time.Duration `json:"unreadInterval" envconfig:"UNREAD_INTERVAL"`
}

// InsightsConfig configures the AI-insight collaborator.
type InsightsConfig struct {
	BaseURL         string        `json:"baseUrl" envconfig:"BASE_URL"`
	Timeout         time.Duration `json:"timeout" envconfig:"TIMEOUT"`
	RefreshInterval time.Duration `json:"refreshInterval" envconfig:"REFRESH_INTERVAL"`
	Days            int           `json:"days" envconfig:"DAYS"`
}

// DraftsConfig locates the local drafts database.
type DraftsConfig struct {
	Path string `json:"path" envconfig:"PATH"`
}

// NotifyConfig configures user-facing notices. Slack delivery is off
// unless a token and channel are set; the structured log always gets
// notices.
type NotifyConfig struct {
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}

// FeedConfig configures the CRM analytics event stream. Publishing is off
// unless brokers are set.
type FeedConfig struct {
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Mail: MailConfig{
			BaseURL:        "http://localhost:8000",
			Timeout:        15 * time.Second,
			StatusTTL:      5 * time.Minute,
			UnreadInterval: 60 * time.Second,
		},
		Insights: InsightsConfig{
			BaseURL:         "http://localhost:8000",
			Timeout:         20 * time.Second,
			RefreshInterval: 60 * time.Second,
			Days:            7,
		},
		Drafts: DraftsConfig{
			Path: "~/.upliftsync/drafts.db",
		},
		Feed: FeedConfig{
			Topic: "crm-activity-events",
		},
	}
}
