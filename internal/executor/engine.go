package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/studiowebux/blitzbar/internal/result"
	"github.com/studiowebux/blitzbar/internal/types"
)

// DefaultPollInterval is the delay between two status polls
const DefaultPollInterval = 2 * time.Second

var tracer = otel.Tracer("blitzbar.executor")

// State is a step of the execution lifecycle
type State int

const (
	Idle State = iota
	Authenticating
	Submitting
	Polling
	Completed
	Aborted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Submitting:
		return "submitting"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == Completed || s == Aborted || s == Failed
}

// StatusFunc receives every polled result. Returning false aborts the job.
type StatusFunc func(result.Result) bool

// CompleteFunc receives the final result once the job completed
type CompleteFunc func(result.Result)

// Listener holds the caller's callbacks. Both run inline with the polling
// loop, so a slow callback delays the next poll.
type Listener struct {
	OnStatus   StatusFunc
	OnComplete CompleteFunc
}

// Run describes a finished execution
type Run struct {
	JobID   string
	Region  string
	State   State
	Polls   int
	Started time.Time
	Ended   time.Time
	Last    result.Result
}

// Option configures an Engine
type Option func(*Engine)

// WithPollInterval sets the delay between status polls
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithSleep replaces the function used to wait between polls
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithLogger sets the logger for lifecycle transitions
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records executions and polls on m
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer replaces the package tracer
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// Engine drives one test spec through login, submit and polling. An engine
// executes once; callers must not share a spec across concurrent executions.
type Engine struct {
	client   *Client
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	mu    sync.Mutex
	state State
}

// NewEngine creates an engine in the Idle state
func NewEngine(client *Client, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		interval: DefaultPollInterval,
		sleep:    sleepContext,
		logger:   slog.Default(),
		tracer:   tracer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) transition(to State, attrs ...any) {
	e.mu.Lock()
	from := e.state
	e.state = to
	e.mu.Unlock()
	e.logger.Debug("state transition", append([]any{"from", from.String(), "to", to.String()}, attrs...)...)
}

// Execute runs spec to a terminal state. The returned Run is non-nil whenever
// the spec passed validation.
func (e *Engine) Execute(ctx context.Context, spec *types.TestSpec, l Listener) (*Run, error) {
	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		return nil, ErrEngineUsed
	}
	e.state = Authenticating
	e.mu.Unlock()

	variant := spec.Variant().String()
	ctx, span := e.tracer.Start(ctx, "blitzbar.Execute",
		trace.WithAttributes(
			attribute.String("blitz.variant", variant),
			attribute.Int("blitz.steps", len(spec.Steps())),
		),
	)
	defer span.End()

	run := &Run{Started: time.Now()}
	finish := func(state State, err error) (*Run, error) {
		run.State = state
		run.Ended = time.Now()
		e.transition(state, "job_id", run.JobID)
		e.metrics.observeExecution(variant, state.String(), run.Ended.Sub(run.Started).Seconds())
		span.SetAttributes(attribute.String("blitz.state", state.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Warn("execution failed", "variant", variant, "job_id", run.JobID, "error", err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return run, err
	}

	if err := spec.Validate(); err != nil {
		e.transition(Failed)
		e.metrics.observeExecution(variant, Failed.String(), 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.logger.Debug("state transition", "from", Idle.String(), "to", Authenticating.String())
	key, err := e.client.Login(ctx)
	if err != nil {
		return finish(Failed, err)
	}

	e.transition(Submitting)
	sub, err := e.client.Submit(ctx, key, spec)
	if err != nil {
		return finish(Failed, err)
	}
	run.JobID = sub.JobID
	run.Region = sub.Region
	span.SetAttributes(attribute.String("blitz.job_id", sub.JobID), attribute.String("blitz.region", sub.Region))
	e.logger.Info("job queued", "job_id", sub.JobID, "region", sub.Region, "variant", variant)

	e.transition(Polling, "job_id", run.JobID)
	for {
		if err := e.sleep(ctx, e.interval); err != nil {
			return finish(Failed, &TransportError{Op: "status", Err: err})
		}

		status, err := e.client.Status(ctx, key, run.JobID)
		if err != nil {
			return finish(Failed, err)
		}
		run.Polls++
		e.metrics.observePoll(variant)

		res, err := result.Decode(status.Result, spec.Variant())
		if err != nil {
			return finish(Failed, &ServiceError{Op: "status", Code: "decode", Reason: err.Error()})
		}
		switch r := res.(type) {
		case *result.RushResult:
			if r.Region == "" {
				r.Region = run.Region
			}
			if p := r.Last(); p != nil {
				e.metrics.observeVolume(r.Region, p.Volume)
			}
		case *result.SprintResult:
			if r.Region == "" {
				r.Region = run.Region
			}
		}
		run.Last = res
		e.logger.Debug("job status", "job_id", run.JobID, "status", status.Status, "poll", run.Polls)

		if l.OnStatus != nil && !l.OnStatus(res) {
			e.logger.Info("aborting job", "job_id", run.JobID)
			if err := e.client.Abort(ctx, key, run.JobID); err != nil {
				return finish(Aborted, fmt.Errorf("abort failed: %w", err))
			}
			return finish(Aborted, nil)
		}

		if status.Completed() {
			if l.OnComplete != nil {
				l.OnComplete(res)
			}
			return finish(Completed, nil)
		}
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
