package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/studiowebux/blitzbar/internal/parser"
)

const (
	DefaultBatchConcurrency = 4
	DefaultBatchRate        = 1.0
)

// BatchOptions are the flags of the batch command
type BatchOptions struct {
	File        string
	Profile     string
	Variant     string
	Concurrency int
	// Rate caps job submissions per second across all workers
	Rate      float64
	Timeout   time.Duration
	Output    string
	NoHistory bool
}

// BatchItem is the outcome of one command of a batch
type BatchItem struct {
	Name    string  `json:"name" yaml:"name"`
	Command string  `json:"command" yaml:"command"`
	State   string  `json:"state" yaml:"state"`
	Error   string  `json:"error,omitempty" yaml:"error,omitempty"`
	Report  *Report `json:"report,omitempty" yaml:"report,omitempty"`
	Output  string  `json:"-" yaml:"-"`

	err error
}

// Batch runs every command of a command file concurrently. Individual
// failures do not stop the batch; they are joined into the returned error.
// Cancelling ctx skips the commands not started yet and aborts the running
// jobs on the service at their next status poll.
func (a *App) Batch(ctx context.Context, opts BatchOptions) ([]BatchItem, error) {
	commands, err := parser.ParseFile(opts.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("no commands found in %s", opts.File)
	}
	if err := a.Sessions.AddRecentFile(opts.File); err != nil {
		a.logger().Debug("failed to update recent files", "error", err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	perSecond := opts.Rate
	if perSecond <= 0 {
		perSecond = DefaultBatchRate
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)

	// Jobs keep a live context so that an abort can still reach the service
	// once ctx is cancelled.
	runCtx := context.WithoutCancel(ctx)
	stopped := func() bool { return ctx.Err() != nil }

	items := make([]BatchItem, len(commands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, cmd := range commands {
		items[i] = BatchItem{Name: cmd.Name, Command: cmd.Command}
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				items[i].State = "skipped"
				items[i].err = err
				items[i].Error = err.Error()
				return nil
			}

			profile := cmd.Profile
			if profile == "" {
				profile = opts.Profile
			}
			format := opts.Output
			if format == "" {
				format = OutputText
			}

			var buf bytes.Buffer
			a.logger().Debug("batch command", "name", cmd.Name)
			rep, err := a.run(runCtx, RunOptions{
				Command:   cmd.Command,
				Variant:   opts.Variant,
				Profile:   profile,
				Output:    format,
				Filter:    cmd.Filter,
				Query:     cmd.Query,
				Timeout:   opts.Timeout,
				NoHistory: opts.NoHistory,
			}, &buf, false, stopped)

			items[i].Report = rep
			items[i].Output = buf.String()
			items[i].State = "failed"
			if rep != nil {
				items[i].State = rep.State
			}
			if err != nil {
				items[i].err = fmt.Errorf("%s: %w", cmd.Name, err)
				items[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, item := range items {
		if item.err != nil {
			errs = append(errs, item.err)
		}
	}
	if len(errs) > 0 {
		return items, fmt.Errorf("%d of %d commands failed: %w", len(errs), len(items), errors.Join(errs...))
	}
	return items, nil
}

// WriteBatch prints a batch outcome
func (a *App) WriteBatch(w io.Writer, items []BatchItem, format string) error {
	out, err := formatValue(items, format, func() string {
		r := Renderer{Color: a.Color}
		var sb strings.Builder
		for _, item := range items {
			sb.WriteString(r.paint(styleTitle, "### "+item.Name) + " ")
			sb.WriteString(r.paint(r.stateStyle(item.State), item.State) + "\n")
			sb.WriteString(r.paint(styleSubtle, item.Command) + "\n")
			if item.Output != "" {
				sb.WriteString(item.Output)
			} else if item.Error != "" {
				sb.WriteString(r.paint(styleError, "Error: "+item.Error) + "\n")
			}
			sb.WriteString("\n")
		}
		return sb.String()
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
