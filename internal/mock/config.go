package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads a fake service configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// validateConfig validates the fake service configuration
func validateConfig(config *Config) error {
	for i, s := range config.Statuses {
		if s != "queued" && s != "running" && s != "completed" {
			return fmt.Errorf("status %d: must be 'queued', 'running' or 'completed'", i)
		}
	}
	if config.LoginError != nil && config.LoginError.Code == "" {
		return fmt.Errorf("loginError: error code is required")
	}
	if config.SubmitError != nil && config.SubmitError.Code == "" {
		return fmt.Errorf("submitError: error code is required")
	}
	if config.StatusError != nil && config.StatusError.Code == "" {
		return fmt.Errorf("statusError: error code is required")
	}
	return nil
}
