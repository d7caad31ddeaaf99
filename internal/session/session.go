package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/studiowebux/blitzbar/internal/config"
)

const maxRecentFiles = 10

// Session is the persisted CLI state between invocations
type Session struct {
	ActiveProfile  string   `yaml:"activeProfile,omitempty"`
	HistoryEnabled *bool    `yaml:"historyEnabled,omitempty"`
	RecentFiles    []string `yaml:"recentFiles,omitempty"`
}

// Manager handles session and profile management
type Manager struct {
	profilesPath string
	sessionPath  string
	session      *Session
	profiles     []config.Profile
}

// NewManager creates a manager over the local or global config files
func NewManager() *Manager {
	return NewManagerAt(config.GetProfilesFilePath(), config.GetSessionFilePath())
}

// NewManagerAt creates a manager over explicit file paths
func NewManagerAt(profilesPath, sessionPath string) *Manager {
	return &Manager{
		profilesPath: profilesPath,
		sessionPath:  sessionPath,
		session:      &Session{},
	}
}

// Load loads session and profiles from disk
func (m *Manager) Load() error {
	if err := m.LoadSession(); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := m.LoadProfiles(); err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	return nil
}

// LoadSession loads the session file
func (m *Manager) LoadSession() error {
	data, err := os.ReadFile(m.sessionPath)
	if err != nil {
		m.session = &Session{}
		return nil
	}

	var session Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}
	m.session = &session
	return nil
}

// SaveSession saves the session to disk
func (m *Manager) SaveSession() error {
	data, err := yaml.Marshal(m.session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(m.sessionPath, data, config.FilePermissions); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// LoadProfiles loads the profiles file
func (m *Manager) LoadProfiles() error {
	profiles, err := config.LoadProfiles(m.profilesPath)
	if err != nil {
		return err
	}
	m.profiles = profiles
	return nil
}

// SaveProfiles saves the profiles to disk
func (m *Manager) SaveProfiles() error {
	return config.SaveProfiles(m.profilesPath, m.profiles)
}

// GetProfiles returns all profiles
func (m *Manager) GetProfiles() []config.Profile {
	return m.profiles
}

// GetActiveProfile returns the currently active profile, falling back to the
// first one
func (m *Manager) GetActiveProfile() *config.Profile {
	for i := range m.profiles {
		if m.profiles[i].Name == m.session.ActiveProfile {
			return &m.profiles[i]
		}
	}
	if len(m.profiles) > 0 {
		return &m.profiles[0]
	}
	return &config.Profile{Name: "default"}
}

// Resolve returns a copy of the named profile (the active one when name is
// empty) with environment overrides applied
func (m *Manager) Resolve(name string, getenv func(string) string) (*config.Profile, error) {
	var p config.Profile
	if name == "" {
		p = *m.GetActiveProfile()
	} else {
		found := false
		for _, candidate := range m.profiles {
			if candidate.Name == name {
				p, found = candidate, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("profile not found: %s", name)
		}
	}

	if err := p.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetActiveProfile sets the active profile by name
func (m *Manager) SetActiveProfile(name string) error {
	found := false
	for _, profile := range m.profiles {
		if profile.Name == name {
			found = true
			break
		}
	}

	if !found {
		return fmt.Errorf("profile not found: %s", name)
	}

	m.session.ActiveProfile = name
	return m.SaveSession()
}

// AddProfile adds a new profile
func (m *Manager) AddProfile(profile config.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	for _, p := range m.profiles {
		if p.Name == profile.Name {
			return fmt.Errorf("profile already exists: %s", profile.Name)
		}
	}

	m.profiles = append(m.profiles, profile)
	return m.SaveProfiles()
}

// DeleteProfile deletes a profile by name
func (m *Manager) DeleteProfile(name string) error {
	for i := range m.profiles {
		if m.profiles[i].Name == name {
			m.profiles = append(m.profiles[:i], m.profiles[i+1:]...)
			if m.session.ActiveProfile == name {
				m.session.ActiveProfile = ""
				if err := m.SaveSession(); err != nil {
					return err
				}
			}
			return m.SaveProfiles()
		}
	}

	return fmt.Errorf("profile not found: %s", name)
}

// IsHistoryEnabled returns whether run history is recorded
func (m *Manager) IsHistoryEnabled() bool {
	if m.session.HistoryEnabled == nil {
		return true
	}
	return *m.session.HistoryEnabled
}

// SetHistoryEnabled sets whether run history is recorded
func (m *Manager) SetHistoryEnabled(enabled bool) error {
	m.session.HistoryEnabled = &enabled
	return m.SaveSession()
}

// AddRecentFile adds a command file to the front of the MRU list, removing
// duplicates and keeping at most maxRecentFiles entries
func (m *Manager) AddRecentFile(filePath string) error {
	recent := []string{filePath}
	for _, f := range m.session.RecentFiles {
		if f != filePath {
			recent = append(recent, f)
		}
	}
	if len(recent) > maxRecentFiles {
		recent = recent[:maxRecentFiles]
	}

	m.session.RecentFiles = recent
	return m.SaveSession()
}

// GetRecentFiles returns the MRU command file list
func (m *Manager) GetRecentFiles() []string {
	if m.session.RecentFiles == nil {
		return []string{}
	}
	return m.session.RecentFiles
}
