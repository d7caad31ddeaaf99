package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/studiowebux/blitzbar/internal/analytics"
	"github.com/studiowebux/blitzbar/internal/history"
	"github.com/studiowebux/blitzbar/internal/result"
)

var errNoHistory = errors.New("history is not available")

// HistoryList prints recorded runs, newest first
func (a *App) HistoryList(w io.Writer, f history.Filter, format string) error {
	if a.History == nil {
		return errNoHistory
	}
	runs, err := a.History.List(f)
	if err != nil {
		return err
	}
	return writeFormatted(w, runs, format, func() string {
		if len(runs) == 0 {
			return "No runs recorded\n"
		}
		r := Renderer{Color: a.Color}
		var sb strings.Builder
		for _, run := range runs {
			sb.WriteString(fmt.Sprintf("%s  %s  %-6s  %s  %s\n",
				shortID(run.ID),
				run.StartedAt.Local().Format(time.DateTime),
				run.Variant,
				r.paint(r.stateStyle(run.State), fmt.Sprintf("%-9s", run.State)),
				run.Command,
			))
		}
		return sb.String()
	})
}

// runDetail is the show view of one run
type runDetail struct {
	history.Run `yaml:",inline"`
	Summary     *analytics.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Timeline    []result.Point     `json:"timeline,omitempty" yaml:"timeline,omitempty"`
}

// HistoryShow prints one run and its stored timeline
func (a *App) HistoryShow(w io.Writer, id, format string) error {
	if a.History == nil {
		return errNoHistory
	}
	run, err := a.History.Get(id)
	if err != nil {
		return err
	}
	points, err := a.History.Points(run.ID)
	if err != nil {
		return err
	}

	detail := runDetail{Run: *run, Timeline: points}
	if len(points) > 0 {
		s := analytics.Summarize(&result.RushResult{Region: run.Region, Timeline: points})
		detail.Summary = &s
	}

	return writeFormatted(w, detail, format, func() string {
		r := Renderer{Color: a.Color}
		var sb strings.Builder
		sb.WriteString(r.paint(styleTitle, "Run "+run.ID) + "\n")
		fields := [][2]string{
			{"Command", run.Command},
			{"Variant", run.Variant},
			{"Profile", run.Profile},
			{"Endpoint", run.Endpoint},
			{"Job", run.JobID},
			{"Region", run.Region},
			{"State", r.paint(r.stateStyle(run.State), run.State)},
			{"Polls", fmt.Sprintf("%d", run.Polls)},
			{"Started", run.StartedAt.Local().Format(time.DateTime)},
		}
		if run.EndedAt != nil {
			fields = append(fields, [2]string{"Duration", run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond).String()})
		}
		if run.Error != "" {
			fields = append(fields, [2]string{"Error", r.paint(styleError, run.Error)})
		}
		for _, f := range fields {
			if f[1] == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %-9s %s\n", f[0], f[1]))
		}
		if detail.Summary != nil {
			r.writeRush(&sb, detail.Summary)
		}
		return sb.String()
	})
}

// HistoryStats prints per-command aggregates
func (a *App) HistoryStats(w io.Writer, profile, format string) error {
	if a.History == nil {
		return errNoHistory
	}
	stats, err := analytics.NewManager(a.History.DB(), 0).PerCommand(profile)
	if err != nil {
		return err
	}
	return writeFormatted(w, stats, format, func() string {
		if len(stats) == 0 {
			return "No runs recorded\n"
		}
		var sb strings.Builder
		for _, s := range stats {
			sb.WriteString(fmt.Sprintf("%s [%s]\n", s.Command, s.Variant))
			sb.WriteString(fmt.Sprintf("  runs=%d completed=%d aborted=%d failed=%d avg_polls=%.1f\n",
				s.Runs, s.Completed, s.Aborted, s.Failed, s.AvgPolls))
			if s.Variant == "rush" {
				sb.WriteString(fmt.Sprintf("  peak_volume=%.0f hits=%.0f errors=%.0f timeouts=%.0f\n",
					s.PeakVolume, s.TotalHits, s.TotalErrors, s.TotalTimeouts))
			}
		}
		return sb.String()
	})
}

// HistoryClear removes every recorded run
func (a *App) HistoryClear() error {
	if a.History == nil {
		return errNoHistory
	}
	return a.History.Clear()
}

func writeFormatted(w io.Writer, v any, format string, text func() string) error {
	out, err := formatValue(v, format, text)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
