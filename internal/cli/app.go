package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/studiowebux/blitzbar/internal/analytics"
	"github.com/studiowebux/blitzbar/internal/config"
	"github.com/studiowebux/blitzbar/internal/executor"
	"github.com/studiowebux/blitzbar/internal/export"
	"github.com/studiowebux/blitzbar/internal/history"
	"github.com/studiowebux/blitzbar/internal/logging"
	"github.com/studiowebux/blitzbar/internal/parser"
	"github.com/studiowebux/blitzbar/internal/result"
	"github.com/studiowebux/blitzbar/internal/session"
	"github.com/studiowebux/blitzbar/internal/types"
)

// ErrAborted is returned when a run was aborted by --timeout or an interrupt
var ErrAborted = errors.New("job aborted")

// App carries what every command needs. The zero value of the optional
// fields disables the matching feature.
type App struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Getenv   func(string) string
	Sessions *session.Manager

	// History records runs when non-nil
	History *history.Manager

	// Registry collects engine metrics for --metrics-textfile
	Registry *prometheus.Registry

	// Interrupt, when set, aborts the running job on the first signal
	Interrupt <-chan os.Signal

	ClientOptions []executor.ClientOption
	EngineOptions []executor.Option
	Color         bool
	Progress      bool
	Version       string

	metricsOnce sync.Once
	metrics     *executor.Metrics
}

// RunOptions are the flags of the run command
type RunOptions struct {
	Command         string
	Variant         string
	Profile         string
	Output          string
	Filter          string
	Query           string
	Timeout         time.Duration
	NoHistory       bool
	Influx          export.Config
	MetricsTextfile string
}

// Report is the outcome of one run in every output format
type Report struct {
	RunID   string             `json:"runId,omitempty" yaml:"runId,omitempty"`
	Command string             `json:"command" yaml:"command"`
	Variant string             `json:"variant" yaml:"variant"`
	Profile string             `json:"profile,omitempty" yaml:"profile,omitempty"`
	JobID   string             `json:"jobId,omitempty" yaml:"jobId,omitempty"`
	Region  string             `json:"region,omitempty" yaml:"region,omitempty"`
	State   string             `json:"state" yaml:"state"`
	Polls   int                `json:"polls" yaml:"polls"`
	Error   string             `json:"error,omitempty" yaml:"error,omitempty"`
	Summary *analytics.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Result  result.Result      `json:"result,omitempty" yaml:"result,omitempty"`
}

// NewApp returns an App writing to the process streams
func NewApp(sessions *session.Manager, logger *slog.Logger) *App {
	return &App{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Logger:   logger,
		Getenv:   os.Getenv,
		Sessions: sessions,
		Color:    IsTerminal(os.Stdout),
		Progress: IsTerminal(os.Stderr),
	}
}

// CompileCommand compiles command, honoring an explicit variant hint
func CompileCommand(command, variant string) (*types.TestSpec, error) {
	switch variant {
	case "":
		return parser.Compile(command)
	case types.Rush.String():
		return parser.CompileAs(command, types.Rush)
	case types.Sprint.String():
		return parser.CompileAs(command, types.Sprint)
	}
	return nil, fmt.Errorf("unknown variant %q (expected rush or sprint)", variant)
}

// Run compiles, executes and reports one command. The report is returned
// even when the execution failed after reaching the service.
func (a *App) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	return a.run(ctx, opts, a.Stdout, true, nil)
}

// run executes one command writing its report to out. Progress lines and
// the Interrupt channel only apply to interactive runs. When stop reports
// true at a status poll the job is aborted on the service.
func (a *App) run(ctx context.Context, opts RunOptions, out io.Writer, interactive bool, stop func() bool) (*Report, error) {
	spec, err := CompileCommand(opts.Command, opts.Variant)
	if err != nil {
		return nil, err
	}

	profile, err := a.Sessions.Resolve(opts.Profile, a.getenv())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}
	if spec.Region() == "" && profile.Region != "" {
		spec = spec.WithRegion(profile.Region)
	}

	rep, run, err := a.execute(ctx, spec, profile, opts, interactive, stop)
	if rep == nil {
		return nil, err
	}

	if !opts.NoHistory && a.History != nil && a.Sessions.IsHistoryEnabled() {
		if herr := a.record(rep, run, spec, profile); herr != nil {
			a.logger().Warn("failed to save history", "error", herr)
		}
	}

	if opts.Influx.Enabled() {
		if xerr := a.exportInflux(ctx, opts.Influx, rep, run); xerr != nil {
			a.logger().Warn("influx export failed", "error", xerr)
		}
	}

	if opts.MetricsTextfile != "" && a.Registry != nil {
		if merr := prometheus.WriteToTextfile(opts.MetricsTextfile, a.Registry); merr != nil {
			a.logger().Warn("failed to write metrics textfile", "path", opts.MetricsTextfile, "error", merr)
		}
	}

	if werr := a.writeReport(out, rep, opts.Output, opts.Filter, opts.Query); werr != nil {
		return rep, werr
	}

	if err == nil && rep.State == executor.Aborted.String() {
		err = ErrAborted
	}
	return rep, err
}

// execute drives the engine. A nil report means the run never reached the
// service.
func (a *App) execute(ctx context.Context, spec *types.TestSpec, profile *config.Profile, opts RunOptions, interactive bool, stop func() bool) (*Report, *executor.Run, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	if err := profile.RequireCredentials(); err != nil {
		return nil, nil, err
	}

	clientOpts := append([]executor.ClientOption{
		executor.WithTLS(profile.TLS),
		executor.WithUserAgent("blitzbar/" + a.Version),
	}, a.ClientOptions...)
	client, err := executor.NewClient(profile.Endpoint(), profile.Credentials(), clientOpts...)
	if err != nil {
		return nil, nil, err
	}

	engineOpts := []executor.Option{
		executor.WithLogger(a.logger()),
		executor.WithPollInterval(profile.PollInterval),
	}
	if m := a.engineMetrics(); m != nil {
		engineOpts = append(engineOpts, executor.WithMetrics(m))
	}
	engine := executor.NewEngine(client, append(engineOpts, a.EngineOptions...)...)

	var interrupted atomic.Bool
	if interactive && a.Interrupt != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-a.Interrupt:
				interrupted.Store(true)
				fmt.Fprintln(a.Stderr, "Interrupt received, aborting job")
			case <-done:
			}
		}()
	}

	started := time.Now()
	polls := 0
	listener := executor.Listener{
		OnStatus: func(res result.Result) bool {
			polls++
			if interactive && a.Progress {
				fmt.Fprintln(a.Stderr, Renderer{Color: a.Color}.Progress(polls, res))
			}
			if opts.Timeout > 0 && time.Since(started) >= opts.Timeout {
				a.logger().Info("timeout reached", "timeout", opts.Timeout)
				return false
			}
			if stop != nil && stop() {
				a.logger().Info("stop requested", "command", opts.Command)
				return false
			}
			return !interrupted.Load()
		},
	}

	run, err := engine.Execute(ctx, spec, listener)
	if run == nil {
		return nil, nil, err
	}

	rep := &Report{
		Command: opts.Command,
		Variant: spec.Variant().String(),
		Profile: profile.Name,
		JobID:   run.JobID,
		Region:  run.Region,
		State:   run.State.String(),
		Polls:   run.Polls,
		Result:  run.Last,
	}
	if err != nil {
		rep.Error = err.Error()
	}
	if rush, ok := run.Last.(*result.RushResult); ok {
		s := analytics.Summarize(rush)
		rep.Summary = &s
	}
	if run.Last != nil && run.Last.RegionName() != "" {
		rep.Region = run.Last.RegionName()
	}
	return rep, run, err
}

func (a *App) record(rep *Report, run *executor.Run, spec *types.TestSpec, profile *config.Profile) error {
	specJSON, err := types.Encode(spec)
	if err != nil {
		return err
	}
	h := &history.Run{
		ID:        uuid.NewString(),
		Command:   rep.Command,
		Variant:   rep.Variant,
		Profile:   profile.Name,
		Endpoint:  profile.Endpoint().BaseURL(),
		Region:    rep.Region,
		JobID:     rep.JobID,
		State:     rep.State,
		Error:     rep.Error,
		Polls:     rep.Polls,
		StartedAt: run.Started,
		EndedAt:   &run.Ended,
		SpecJSON:  string(specJSON),
	}
	var points []result.Point
	if rep.Result != nil {
		data, err := json.Marshal(rep.Result)
		if err != nil {
			return err
		}
		h.ResultJSON = string(data)
		if rush, ok := rep.Result.(*result.RushResult); ok {
			points = rush.Timeline
		}
	}
	if err := a.History.Save(h, points); err != nil {
		return err
	}
	rep.RunID = h.ID
	return nil
}

func (a *App) exportInflux(ctx context.Context, cfg export.Config, rep *Report, run *executor.Run) error {
	rush, ok := rep.Result.(*result.RushResult)
	if !ok {
		return nil
	}
	exp, err := export.New(cfg)
	if err != nil {
		return err
	}
	defer exp.Close()

	n, err := exp.ExportRush(ctx, export.RunInfo{
		RunID:   rep.RunID,
		JobID:   rep.JobID,
		Region:  rep.Region,
		Profile: rep.Profile,
		Started: run.Started,
	}, rush)
	if err != nil {
		return err
	}
	a.logger().Info("exported timeline", "points", n, "bucket", cfg.Bucket)
	return nil
}

// engineMetrics registers the engine collectors once per App
func (a *App) engineMetrics() *executor.Metrics {
	if a.Registry == nil {
		return nil
	}
	a.metricsOnce.Do(func() {
		a.metrics = executor.NewMetrics(a.Registry)
	})
	return a.metrics
}

func (a *App) getenv() func(string) string {
	if a.Getenv != nil {
		return a.Getenv
	}
	return func(string) string { return "" }
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return logging.Discard()
}

// NotifyInterrupt returns a channel receiving os.Interrupt and a stop function
func NotifyInterrupt() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}
