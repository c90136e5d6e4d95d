package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "TERMRIG_CONFIG"

// GetConfigPath returns the configuration file path. It first checks the
// TERMRIG_CONFIG environment variable, then falls back to ~/.termrig/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".termrig", "config"), nil
}
