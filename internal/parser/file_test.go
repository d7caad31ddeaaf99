package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"yaml extension", "a.yaml", "", "yaml"},
		{"yml extension", "a.yml", "", "yaml"},
		{"json extension", "a.json", "", "json"},
		{"yaml document marker", "a.txt", "---\n- command: x", "yaml"},
		{"json array", "cmds", "[{\"command\":\"x\"}]", "json"},
		{"plain", "cmds.blitz", "http://example.com", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(writeTemp(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFile_YAML(t *testing.T) {
	path := writeTemp(t, "cmds.yaml", `
- name: home
  command: http://example.com
  profile: staging
- command: -p 1-10:10 http://example.com
  filter: timeline
`)
	cmds, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, Command{Name: "home", Command: "http://example.com", Profile: "staging"}, cmds[0])
	assert.Equal(t, Command{Name: "#2", Command: "-p 1-10:10 http://example.com", Filter: "timeline"}, cmds[1])
}

func TestParseFile_SingleJSONObject(t *testing.T) {
	path := writeTemp(t, "cmd.json", `{"command":"http://example.com","query":"steps[0]"}`)
	cmds, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "#1", cmds[0].Name)
	assert.Equal(t, "steps[0]", cmds[0].Query)
}

func TestParseFile_InvalidJSON(t *testing.T) {
	_, err := ParseFile(writeTemp(t, "cmd.json", `{"command":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse JSON")
}

func TestParseFile_TextLines(t *testing.T) {
	path := writeTemp(t, "cmds.txt", `# smoke checks
http://example.com

-X POST http://example.com/login
`)
	cmds, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "http://example.com", cmds[0].Command)
	assert.Equal(t, "#1", cmds[0].Name)
	assert.Equal(t, "-X POST http://example.com/login", cmds[1].Command)
}

func TestParseFile_TextSections(t *testing.T) {
	path := writeTemp(t, "cmds.blitz", `### login flow
# @profile staging
# @filter steps
-X POST \
  -d user=a \
  http://example.com/login

### empty

### ramp
# @query timeline[-1].total
-p 1-100:60 http://example.com
`)
	cmds, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	assert.Equal(t, Command{
		Name:    "login flow",
		Command: "-X POST -d user=a http://example.com/login",
		Profile: "staging",
		Filter:  "steps",
	}, cmds[0])
	assert.Equal(t, Command{
		Name:    "ramp",
		Command: "-p 1-100:60 http://example.com",
		Query:   "timeline[-1].total",
	}, cmds[1])
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
