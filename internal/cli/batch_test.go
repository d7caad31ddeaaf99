package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/blitzbar/internal/executor"
	"github.com/studiowebux/blitzbar/internal/mock"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBatch_RunsEveryCommand(t *testing.T) {
	h := newHarness(t, &mock.Config{})
	file := writeFile(t, "smoke.txt", `### homepage
http://example.com

### login
# @query state
-X POST
  http://example.com/login

### broken
-p nope http://example.com
`)

	items, err := h.app.Batch(context.Background(), BatchOptions{File: file, Rate: 1000, Concurrency: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 commands failed")
	assert.Equal(t, ExitUsage, ExitCode(err))

	require.Len(t, items, 3)
	assert.Equal(t, "homepage", items[0].Name)
	assert.Equal(t, "completed", items[0].State)
	assert.Contains(t, items[0].Output, "COMPLETED sprint")

	assert.Equal(t, "completed", items[1].State)
	assert.Equal(t, "\"completed\"\n", items[1].Output)

	assert.Equal(t, "failed", items[2].State)
	assert.Equal(t, "Invalid ramp pattern", items[2].Error)
	assert.Nil(t, items[2].Report)

	assert.Len(t, h.fake.Submissions(), 2)
	assert.Equal(t, []string{file}, h.app.Sessions.GetRecentFiles())

	count, err := h.app.History.GetCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBatch_WriteJSON(t *testing.T) {
	h := newHarness(t, &mock.Config{})
	file := writeFile(t, "cmds.txt", "http://example.com\nhttp://example.com/2\n")

	items, err := h.app.Batch(context.Background(), BatchOptions{File: file, Rate: 1000})
	require.NoError(t, err)

	h.stdout.Reset()
	require.NoError(t, h.app.WriteBatch(h.stdout, items, OutputJSON))

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "#1", docs[0]["name"])
	assert.Equal(t, "completed", docs[1]["state"])
	assert.NotContains(t, docs[0], "Output")
}

func TestBatch_EmptyFile(t *testing.T) {
	h := newHarness(t, &mock.Config{})
	file := writeFile(t, "empty.txt", "# nothing here\n")

	_, err := h.app.Batch(context.Background(), BatchOptions{File: file})
	assert.ErrorContains(t, err, "no commands found")
}

func TestBatch_CancelledContext(t *testing.T) {
	h := newHarness(t, &mock.Config{})
	file := writeFile(t, "cmds.txt", "http://example.com\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items, err := h.app.Batch(ctx, BatchOptions{File: file})
	require.Error(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "skipped", items[0].State)
	assert.Empty(t, h.fake.Submissions())
}

func TestBatch_CancelAbortsRunningJobs(t *testing.T) {
	h := newHarness(t, &mock.Config{Statuses: []string{"running"}})
	file := writeFile(t, "cmds.txt", "-p 1-100:60 http://example.com\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Cancel the batch while the job is being polled
	h.app.EngineOptions = []executor.Option{executor.WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return nil
	})}

	items, err := h.app.Batch(ctx, BatchOptions{File: file, Rate: 1000})
	require.Error(t, err)
	assert.Equal(t, ExitAborted, ExitCode(err))

	require.Len(t, items, 1)
	assert.Equal(t, "aborted", items[0].State)
	require.NotNil(t, items[0].Report)
	assert.Equal(t, 1, items[0].Report.Polls)

	require.Len(t, h.fake.Submissions(), 1)
	assert.Equal(t, []string{h.fake.Submissions()[0].JobID}, h.fake.Aborts())
}
