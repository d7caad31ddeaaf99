package executor

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/blitzbar/internal/mock"
	"github.com/studiowebux/blitzbar/internal/result"
	"github.com/studiowebux/blitzbar/internal/types"
)

const rushBody = `{"pattern":{"intervals":[{"start":1,"end":10,"duration":10}]},"steps":[{"url":"http://example.com"}]}`

func noSleep(context.Context, time.Duration) error { return nil }

type fixture struct {
	fake   *mock.Server
	client *Client
}

func newFixture(t *testing.T, cfg *mock.Config) *fixture {
	t.Helper()
	cfg.Logging = true
	fake := mock.NewServer(cfg, nil)
	ts := httptest.NewServer(fake.Handler())
	t.Cleanup(ts.Close)

	ep, err := ParseEndpoint(ts.URL)
	require.NoError(t, err)
	client, err := NewClient(ep, Credentials{Username: "user", APIKey: "public-key"})
	require.NoError(t, err)
	return &fixture{fake: fake, client: client}
}

func rushSpec(t *testing.T) *types.TestSpec {
	t.Helper()
	b := types.NewBuilder(types.Rush)
	_, err := b.AddURL("http://example.com")
	require.NoError(t, err)
	b.AddInterval(1, 10, 10)
	return b.Build()
}

func sprintSpec(t *testing.T) *types.TestSpec {
	t.Helper()
	b := types.NewBuilder(types.Sprint)
	_, err := b.AddURL("http://example.com")
	require.NoError(t, err)
	return b.Build()
}

func TestEngine_RushCompletes(t *testing.T) {
	f := newFixture(t, &mock.Config{Region: "california"})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	engine := NewEngine(f.client, WithSleep(noSleep), WithMetrics(metrics))

	var statuses []result.Result
	var completed []result.Result
	run, err := engine.Execute(context.Background(), rushSpec(t), Listener{
		OnStatus: func(r result.Result) bool {
			statuses = append(statuses, r)
			return true
		},
		OnComplete: func(r result.Result) {
			completed = append(completed, r)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, Completed, engine.State())
	assert.Equal(t, Completed, run.State)
	assert.Equal(t, "california", run.Region)
	assert.Equal(t, 2, run.Polls)
	assert.Len(t, statuses, 2)
	require.Len(t, completed, 1)

	rush, ok := completed[0].(*result.RushResult)
	require.True(t, ok)
	assert.Equal(t, "california", rush.Region)
	assert.Len(t, rush.Timeline, 2)

	subs := f.fake.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, rushBody, subs[0].Body)
	assert.Equal(t, "private-key", subs[0].Key)
	assert.Empty(t, f.fake.Aborts())

	assert.Equal(t, 1.0, counterValue(t, reg, "blitzbar_executions_total", "state", "completed"))
	assert.Equal(t, 2.0, counterValue(t, reg, "blitzbar_polls_total", "variant", "rush"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func TestEngine_SprintCompletes(t *testing.T) {
	f := newFixture(t, &mock.Config{Statuses: []string{"completed"}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	var final result.Result
	run, err := engine.Execute(context.Background(), sprintSpec(t), Listener{
		OnComplete: func(r result.Result) { final = r },
	})
	require.NoError(t, err)
	assert.Equal(t, Completed, run.State)

	subs := f.fake.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, `{"steps":[{"url":"http://example.com"}]}`, subs[0].Body)

	sprint, ok := final.(*result.SprintResult)
	require.True(t, ok)
	require.Len(t, sprint.Steps, 1)
	require.NotNil(t, sprint.Steps[0].Response)
	assert.Equal(t, 200, *sprint.Steps[0].Response.Status)
}

func TestEngine_AbortFromStatusCallback(t *testing.T) {
	f := newFixture(t, &mock.Config{Statuses: []string{"running"}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	polls := 0
	completeCalled := false
	run, err := engine.Execute(context.Background(), rushSpec(t), Listener{
		OnStatus: func(result.Result) bool {
			polls++
			return polls < 3
		},
		OnComplete: func(result.Result) { completeCalled = true },
	})
	require.NoError(t, err)

	assert.Equal(t, Aborted, run.State)
	assert.Equal(t, Aborted, engine.State())
	assert.Equal(t, 3, polls)
	assert.False(t, completeCalled)
	assert.Equal(t, []string{run.JobID}, f.fake.Aborts())
}

func TestEngine_AbortOnCompletedPoll(t *testing.T) {
	f := newFixture(t, &mock.Config{Statuses: []string{"completed"}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	completeCalled := false
	run, err := engine.Execute(context.Background(), rushSpec(t), Listener{
		OnStatus:   func(result.Result) bool { return false },
		OnComplete: func(result.Result) { completeCalled = true },
	})
	require.NoError(t, err)
	assert.Equal(t, Aborted, run.State)
	assert.False(t, completeCalled)
	assert.Len(t, f.fake.Aborts(), 1)
}

func TestEngine_LoginFailure(t *testing.T) {
	f := newFixture(t, &mock.Config{LoginError: &mock.ErrorDoc{Code: "login", Reason: "test"}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	completeCalled := false
	_, err := engine.Execute(context.Background(), rushSpec(t), Listener{
		OnComplete: func(result.Result) { completeCalled = true },
	})
	require.Error(t, err)

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "login", authErr.Code)
	assert.Equal(t, "test", authErr.Reason)
	assert.Equal(t, types.KindAuthentication, types.KindOf(err))

	assert.Equal(t, Failed, engine.State())
	assert.False(t, completeCalled)
	assert.Empty(t, f.fake.Submissions())

	logs := f.fake.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "public-key", logs[0].Headers["X-Api-Key"])
	assert.Equal(t, "user", logs[0].Headers["X-Api-User"])
}

func TestEngine_SubmitThrottled(t *testing.T) {
	f := newFixture(t, &mock.Config{SubmitError: &mock.ErrorDoc{Code: "throttle", Reason: "Slow down please!"}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	_, err := engine.Execute(context.Background(), sprintSpec(t), Listener{})
	require.Error(t, err)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "throttle", svcErr.Code)
	assert.Equal(t, "Slow down please!", svcErr.Reason)
	assert.Equal(t, types.KindService, types.KindOf(err))
	assert.Equal(t, Failed, engine.State())
}

func TestEngine_ValidationBeforeNetwork(t *testing.T) {
	f := newFixture(t, &mock.Config{})
	engine := NewEngine(f.client, WithSleep(noSleep))

	b := types.NewBuilder(types.Rush)
	_, err := b.AddURL("http://example.com")
	require.NoError(t, err)

	run, err := engine.Execute(context.Background(), b.Build(), Listener{})
	assert.Nil(t, run)
	assert.EqualError(t, err, "validation: A valid pattern is required")
	assert.Equal(t, types.KindValidation, types.KindOf(err))
	assert.Equal(t, Failed, engine.State())
	assert.Empty(t, f.fake.GetLogs())

	_, err = NewEngine(f.client).Execute(context.Background(), types.NewBuilder(types.Sprint).Build(), Listener{})
	assert.EqualError(t, err, "validation: At least one step is required")
	assert.Empty(t, f.fake.GetLogs())
}

func TestEngine_SingleUse(t *testing.T) {
	f := newFixture(t, &mock.Config{Statuses: []string{"completed"}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	_, err := engine.Execute(context.Background(), sprintSpec(t), Listener{})
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), sprintSpec(t), Listener{})
	assert.ErrorIs(t, err, ErrEngineUsed)
	assert.Len(t, f.fake.Submissions(), 1)
}

func TestEngine_TransportFailure(t *testing.T) {
	ts := httptest.NewServer(nil)
	ep, err := ParseEndpoint(ts.URL)
	require.NoError(t, err)
	ts.Close()

	client, err := NewClient(ep, Credentials{Username: "user", APIKey: "public-key"})
	require.NoError(t, err)
	engine := NewEngine(client, WithSleep(noSleep))

	_, err = engine.Execute(context.Background(), sprintSpec(t), Listener{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, types.KindTransport, types.KindOf(err))
	assert.Equal(t, Failed, engine.State())
}

func TestEngine_PollIntervalAndCancellation(t *testing.T) {
	f := newFixture(t, &mock.Config{Statuses: []string{"running"}})

	var waits []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 3 {
			cancel()
		}
		return ctx.Err()
	}
	engine := NewEngine(f.client, WithSleep(sleep), WithPollInterval(5*time.Second))

	run, err := engine.Execute(ctx, rushSpec(t), Listener{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, run.State)
	assert.Equal(t, 2, run.Polls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, waits)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "polling", Polling.String())
	assert.True(t, Aborted.Terminal())
	assert.False(t, Submitting.Terminal())
}

func TestEngine_StatusErrorFails(t *testing.T) {
	f := newFixture(t, &mock.Config{StatusError: &mock.ErrorDoc{Code: "not_found", Reason: "job expired"}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	completed := false
	run, err := engine.Execute(context.Background(), rushSpec(t), Listener{
		OnStatus:   func(result.Result) bool { return true },
		OnComplete: func(result.Result) { completed = true },
	})
	require.Error(t, err)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "status", svcErr.Op)
	assert.Equal(t, "not_found", svcErr.Code)
	assert.Equal(t, "job expired", svcErr.Reason)
	assert.Equal(t, types.KindService, types.KindOf(err))

	require.NotNil(t, run)
	assert.Equal(t, Failed, run.State)
	assert.Equal(t, Failed, engine.State())
	assert.Zero(t, run.Polls)
	assert.False(t, completed)
	assert.Empty(t, f.fake.Aborts())
}

func TestEngine_UndecodableResultFails(t *testing.T) {
	f := newFixture(t, &mock.Config{Results: []map[string]any{{"timeline": "not a list"}}})
	engine := NewEngine(f.client, WithSleep(noSleep))

	completed := false
	statuses := 0
	run, err := engine.Execute(context.Background(), rushSpec(t), Listener{
		OnStatus:   func(result.Result) bool { statuses++; return true },
		OnComplete: func(result.Result) { completed = true },
	})
	require.Error(t, err)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "status", svcErr.Op)
	assert.Equal(t, "decode", svcErr.Code)

	require.NotNil(t, run)
	assert.Equal(t, Failed, run.State)
	assert.Equal(t, 1, run.Polls)
	assert.Zero(t, statuses)
	assert.False(t, completed)
}

func TestEngine_VolumeGaugePerRegion(t *testing.T) {
	f := newFixture(t, &mock.Config{Region: "california"})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	for i := 0; i < 3; i++ {
		engine := NewEngine(f.client, WithSleep(noSleep), WithMetrics(metrics))
		_, err := engine.Execute(context.Background(), rushSpec(t), Listener{})
		require.NoError(t, err)
	}
	require.Len(t, f.fake.Submissions(), 3)

	families, err := reg.Gather()
	require.NoError(t, err)
	var series []string
	for _, mf := range families {
		if mf.GetName() != "blitzbar_rush_volume" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				series = append(series, lp.GetName()+"="+lp.GetValue())
			}
		}
	}
	assert.Equal(t, []string{"region=california"}, series)
}
