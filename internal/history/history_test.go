package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/blitzbar/internal/result"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func sampleRun(started time.Time) *Run {
	ended := started.Add(30 * time.Second)
	return &Run{
		Command:   "-p 1-10:30 http://example.com",
		Variant:   "rush",
		Profile:   "default",
		Endpoint:  "https://www.blitz.io",
		Region:    "california",
		JobID:     "job-1",
		State:     "completed",
		Polls:     3,
		StartedAt: started,
		EndedAt:   &ended,
		SpecJSON:  `{"pattern":{"intervals":[{"start":1,"end":10,"duration":30}]},"steps":[{"url":"http://example.com"}]}`,
	}
}

func TestManager_SaveAndGet(t *testing.T) {
	m := newTestManager(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := started.Add(10 * time.Second)

	run := sampleRun(started)
	points := []result.Point{
		{Timestamp: &ts, Duration: 10, Total: 5, Hits: 4, Errors: 1, Volume: 3, TxBytes: 100, RxBytes: 200},
		{Duration: 20, Total: 12, Hits: 11, Timeouts: 1, Volume: 7},
	}
	require.NoError(t, m.Save(run, points))
	assert.NotEmpty(t, run.ID)

	got, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Command, got.Command)
	assert.Equal(t, "rush", got.Variant)
	assert.Equal(t, "california", got.Region)
	assert.Equal(t, 3, got.Polls)
	assert.True(t, started.Equal(got.StartedAt))
	require.NotNil(t, got.EndedAt)
	assert.True(t, run.EndedAt.Equal(*got.EndedAt))

	stored, err := m.Points(run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.NotNil(t, stored[0].Timestamp)
	assert.True(t, ts.Equal(*stored[0].Timestamp))
	assert.Equal(t, 3.0, stored[0].Volume)
	assert.Nil(t, stored[1].Timestamp)
	assert.Equal(t, 7.0, stored[1].Volume)
	assert.Equal(t, 1.0, stored[1].Timeouts)
}

func TestManager_GetByPrefix(t *testing.T) {
	m := newTestManager(t)
	run := sampleRun(time.Now())
	run.ID = "abcdef-1234"
	require.NoError(t, m.Save(run, nil))

	got, err := m.Get("abcd")
	require.NoError(t, err)
	assert.Equal(t, "abcdef-1234", got.ID)

	other := sampleRun(time.Now())
	other.ID = "abcxyz-5678"
	require.NoError(t, m.Save(other, nil))

	_, err = m.Get("abc")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = m.Get("zzz")
	assert.ErrorContains(t, err, "not found")
}

func TestManager_ListFilterAndOrder(t *testing.T) {
	m := newTestManager(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, profile := range []string{"default", "staging", "default"} {
		run := sampleRun(base.Add(time.Duration(i) * time.Hour))
		run.Profile = profile
		if i == 1 {
			run.Variant = "sprint"
		}
		require.NoError(t, m.Save(run, nil))
	}

	all, err := m.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt))

	defaults, err := m.List(Filter{Profile: "default"})
	require.NoError(t, err)
	assert.Len(t, defaults, 2)

	sprints, err := m.List(Filter{Variant: "sprint"})
	require.NoError(t, err)
	require.Len(t, sprints, 1)
	assert.Equal(t, "staging", sprints[0].Profile)

	limited, err := m.List(Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestManager_DeleteAndClear(t *testing.T) {
	m := newTestManager(t)
	run := sampleRun(time.Now())
	require.NoError(t, m.Save(run, []result.Point{{Volume: 1}}))
	require.NoError(t, m.Save(sampleRun(time.Now()), nil))

	count, err := m.GetCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, m.Delete(run.ID))
	points, err := m.Points(run.ID)
	require.NoError(t, err)
	assert.Empty(t, points)

	assert.Error(t, m.Delete(run.ID))

	require.NoError(t, m.Clear())
	count, err = m.GetCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestManager_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blitzbar.db")
	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Save(sampleRun(time.Now()), nil))
	require.NoError(t, m.Close())

	reopened, err := NewManager(path)
	require.NoError(t, err)
	defer reopened.Close()
	count, err := reopened.GetCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
