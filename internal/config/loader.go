package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".upliftsync"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. UPLIFTSYNC_CONFIG
// overrides the file location, UPLIFTSYNC_HOME the home directory.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("UPLIFTSYNC_CONFIG")); explicit != "" {
		return expandHome(explicit)
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("UPLIFTSYNC_HOME")); h != "" {
		return expandHome(h)
	}
	return os.UserHomeDir()
}

func expandHome(p string) (string, error) {
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnv replaces ${VAR} placeholders in file values with the
// process environment. Unset variables are left verbatim.
func substituteEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		if value, ok := os.LookupEnv(string(name)); ok {
			return []byte(value)
		}
		return match
	})
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // use defaults if home cannot be resolved
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(substituteEnv(data), cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	envconfig.Process("UPLIFTSYNC_BACKEND", &cfg.Backend)
	envconfig.Process("UPLIFTSYNC_MAIL", &cfg.Mail)
	envconfig.Process("UPLIFTSYNC_INSIGHTS", &cfg.Insights)
	envconfig.Process("UPLIFTSYNC_DRAFTS", &cfg.Drafts)
	envconfig.Process("UPLIFTSYNC_NOTIFY", &cfg.Notify)
	envconfig.Process("UPLIFTSYNC_FEED", &cfg.Feed)

	if p, err := expandHome(cfg.Drafts.Path); err == nil {
		cfg.Drafts.Path = p
	}
	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
