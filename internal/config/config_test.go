package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("UPLIFTSYNC_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Mail.StatusTTL)
	assert.Equal(t, 60*time.Second, cfg.Mail.UnreadInterval)
	assert.Equal(t, 20*time.Second, cfg.Insights.Timeout)
	assert.Equal(t, 7, cfg.Insights.Days)
	assert.Equal(t, "crm-activity-events", cfg.Feed.Topic)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"backend": {"baseUrl": "https://crm.internal", "token": "abc", "timeout": 10000000000},
		"mail": {"userEmail": "me@acme.test"},
		"insights": {"days": 30}
	}`), 0600))
	t.Setenv("UPLIFTSYNC_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://crm.internal", cfg.Backend.BaseURL)
	assert.Equal(t, "abc", cfg.Backend.Token)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "me@acme.test", cfg.Mail.UserEmail)
	assert.Equal(t, 30, cfg.Insights.Days)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.Mail.StatusTTL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend": {"token": "from-file"}}`), 0600))
	t.Setenv("UPLIFTSYNC_CONFIG", path)
	t.Setenv("UPLIFTSYNC_BACKEND_TOKEN", "from-env")
	t.Setenv("UPLIFTSYNC_MAIL_USER_EMAIL", "env@acme.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Backend.Token)
	assert.Equal(t, "env@acme.test", cfg.Mail.UserEmail)
}

func TestEnvSubstitutionInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend": {"token": "${CRM_TOKEN}"}, "notify": {"slackToken": "${UNSET_VAR_XYZ}"}}`), 0600))
	t.Setenv("UPLIFTSYNC_CONFIG", path)
	t.Setenv("CRM_TOKEN", "secret-123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret-123", cfg.Backend.Token)
	assert.Equal(t, "${UNSET_VAR_XYZ}", cfg.Notify.SlackToken, "unset variables stay verbatim")
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	t.Setenv("UPLIFTSYNC_CONFIG", path)

	cfg := DefaultConfig()
	cfg.Backend.Token = "persisted"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "persisted", loaded.Backend.Token)
}

func TestConfigPathHomeOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("UPLIFTSYNC_CONFIG", "")
	t.Setenv("UPLIFTSYNC_HOME", home)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ConfigDir, ConfigFile), path)
}
