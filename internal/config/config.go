package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// SecretPermissions is used for files holding API keys
	SecretPermissions = 0600
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755

	localProfilesFile = ".blitzbar.yaml"
	localSessionFile  = ".blitzbar-session.yaml"
)

var (
	// ConfigDir is the global configuration directory (~/.blitzbar)
	ConfigDir string

	// DatabasePath is the SQLite database file for run history
	DatabasePath string

	// SessionFile stores the active profile and history toggle
	SessionFile string

	// ProfilesFile is the credential profiles file
	ProfilesFile string
)

// Initialize sets up the configuration directories and files.
// It creates ~/.blitzbar/ if it doesn't exist.
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return InitializeAt(filepath.Join(homeDir, ".blitzbar"))
}

// InitializeAt is Initialize rooted at dir
func InitializeAt(dir string) error {
	ConfigDir = dir
	DatabasePath = filepath.Join(ConfigDir, "blitzbar.db")
	SessionFile = filepath.Join(ConfigDir, "session.yaml")
	ProfilesFile = filepath.Join(ConfigDir, "profiles.yaml")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}

	if _, err := os.Stat(ProfilesFile); os.IsNotExist(err) {
		defaultProfiles := []byte("profiles:\n  - name: default\n    host: " + DefaultHost + "\n")
		if err := os.WriteFile(ProfilesFile, defaultProfiles, SecretPermissions); err != nil {
			return fmt.Errorf("failed to create profiles file: %w", err)
		}
	}

	return nil
}

// LocalConfigExists checks if there's a local .blitzbar.yaml
func LocalConfigExists() bool {
	_, err := os.Stat(localProfilesFile)
	return err == nil
}

// GetProfilesFilePath returns the profiles file path (local or global)
func GetProfilesFilePath() string {
	if LocalConfigExists() {
		return localProfilesFile
	}
	return ProfilesFile
}

// GetSessionFilePath returns the session file path (local or global)
func GetSessionFilePath() string {
	if _, err := os.Stat(localSessionFile); err == nil {
		return localSessionFile
	}
	return SessionFile
}
