package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/blitzbar/internal/config"
)

func newManager(t *testing.T, profiles string) *Manager {
	t.Helper()
	dir := t.TempDir()
	profilesPath := filepath.Join(dir, "profiles.yaml")
	if profiles != "" {
		require.NoError(t, os.WriteFile(profilesPath, []byte(profiles), 0600))
	}
	m := NewManagerAt(profilesPath, filepath.Join(dir, "session.yaml"))
	require.NoError(t, m.Load())
	return m
}

func noEnv(string) string { return "" }

func TestManager_DefaultProfile(t *testing.T) {
	m := newManager(t, "")
	assert.Equal(t, "default", m.GetActiveProfile().Name)
	assert.True(t, m.IsHistoryEnabled())
	assert.Empty(t, m.GetRecentFiles())
}

func TestManager_ActiveProfilePersists(t *testing.T) {
	m := newManager(t, `
profiles:
  - name: prod
    username: you@example.com
    apiKey: secret
  - name: local
    scheme: http
    host: localhost
    port: 9295
`)
	assert.Equal(t, "prod", m.GetActiveProfile().Name)

	require.NoError(t, m.SetActiveProfile("local"))
	assert.Error(t, m.SetActiveProfile("nope"))

	reloaded := NewManagerAt(m.profilesPath, m.sessionPath)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, "local", reloaded.GetActiveProfile().Name)
	assert.Equal(t, "http://localhost:9295", reloaded.GetActiveProfile().Endpoint().BaseURL())
}

func TestManager_Resolve(t *testing.T) {
	m := newManager(t, `
profiles:
  - name: prod
    username: you@example.com
    apiKey: secret
`)
	env := map[string]string{config.EnvKey: "override", config.EnvHost: "localhost:8080"}
	p, err := m.Resolve("prod", func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "you@example.com", p.Username)
	assert.Equal(t, "override", p.APIKey)
	assert.Equal(t, "localhost", p.Host)
	assert.Equal(t, 8080, p.Port)

	assert.Equal(t, "secret", m.GetProfiles()[0].APIKey)

	_, err = m.Resolve("missing", noEnv)
	assert.EqualError(t, err, "profile not found: missing")
}

func TestManager_AddDeleteProfile(t *testing.T) {
	m := newManager(t, "")
	require.NoError(t, m.AddProfile(config.Profile{Name: "staging", Host: "staging.example.com"}))
	assert.Error(t, m.AddProfile(config.Profile{Name: "staging"}))
	assert.Error(t, m.AddProfile(config.Profile{Name: "bad", Scheme: "ftp"}))

	require.NoError(t, m.SetActiveProfile("staging"))
	require.NoError(t, m.DeleteProfile("staging"))
	assert.Equal(t, "default", m.GetActiveProfile().Name)
	assert.Error(t, m.DeleteProfile("staging"))

	profiles, err := config.LoadProfiles(m.profilesPath)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "default", profiles[0].Name)
}

func TestManager_History(t *testing.T) {
	m := newManager(t, "")
	require.NoError(t, m.SetHistoryEnabled(false))
	assert.False(t, m.IsHistoryEnabled())
}

func TestManager_RecentFiles(t *testing.T) {
	m := newManager(t, "")
	for i := 0; i < 12; i++ {
		require.NoError(t, m.AddRecentFile(filepath.Join("dir", string(rune('a'+i)))))
	}
	require.NoError(t, m.AddRecentFile(filepath.Join("dir", "e")))

	recent := m.GetRecentFiles()
	assert.Len(t, recent, maxRecentFiles)
	assert.Equal(t, filepath.Join("dir", "e"), recent[0])
	assert.Equal(t, filepath.Join("dir", "l"), recent[1])
}
