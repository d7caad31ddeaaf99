package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/studiowebux/blitzbar/internal/analytics"
	"github.com/studiowebux/blitzbar/internal/result"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleSubtle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Renderer formats progress and reports as text
type Renderer struct {
	Color bool
}

func (r Renderer) paint(s lipgloss.Style, text string) string {
	if !r.Color {
		return text
	}
	return s.Render(text)
}

func (r Renderer) stateStyle(state string) lipgloss.Style {
	switch state {
	case "completed":
		return styleSuccess
	case "aborted":
		return styleWarning
	default:
		return styleError
	}
}

func (r Renderer) statusStyle(code int) lipgloss.Style {
	switch {
	case code >= 200 && code < 300:
		return styleSuccess
	case code >= 300 && code < 400:
		return styleWarning
	default:
		return styleError
	}
}

// Progress renders one poll as a single line
func (r Renderer) Progress(poll int, res result.Result) string {
	switch v := res.(type) {
	case *result.RushResult:
		p := v.Last()
		if p == nil {
			return r.paint(styleSubtle, fmt.Sprintf("[%d] %s waiting for first sample", poll, v.Region))
		}
		return fmt.Sprintf("[%d] %s volume=%.0f hits=%.0f errors=%.0f timeouts=%.0f resp=%.3fs",
			poll, v.Region, p.Volume, p.Hits, p.Errors, p.Timeouts, p.Duration)
	case *result.SprintResult:
		return fmt.Sprintf("[%d] %s %d step(s)", poll, v.Region, len(v.Steps))
	}
	return fmt.Sprintf("[%d]", poll)
}

// Report renders a finished run
func (r Renderer) Report(rep *Report) string {
	var sb strings.Builder

	sb.WriteString(r.paint(r.stateStyle(rep.State), strings.ToUpper(rep.State)))
	sb.WriteString(fmt.Sprintf(" %s", rep.Variant))
	if rep.JobID != "" {
		sb.WriteString(r.paint(styleSubtle, fmt.Sprintf(" job=%s", rep.JobID)))
	}
	if rep.Region != "" {
		sb.WriteString(r.paint(styleSubtle, fmt.Sprintf(" region=%s", rep.Region)))
	}
	sb.WriteString(r.paint(styleSubtle, fmt.Sprintf(" polls=%d", rep.Polls)))
	sb.WriteString("\n")

	if rep.Error != "" {
		sb.WriteString(r.paint(styleError, "Error: "+rep.Error) + "\n")
	}

	switch res := rep.Result.(type) {
	case *result.RushResult:
		r.writeRush(&sb, rep.Summary)
	case *result.SprintResult:
		r.writeSprint(&sb, res)
	}
	return sb.String()
}

func (r Renderer) writeRush(sb *strings.Builder, s *analytics.Summary) {
	if s == nil || s.Points == 0 {
		sb.WriteString(r.paint(styleSubtle, "No timeline samples") + "\n")
		return
	}
	sb.WriteString(r.paint(styleTitle, "Summary") + "\n")
	rows := [][2]string{
		{"Samples", fmt.Sprintf("%d", s.Points)},
		{"Elapsed", fmt.Sprintf("%.0fs", s.Elapsed)},
		{"Peak volume", fmt.Sprintf("%.0f", s.PeakVolume)},
		{"Hits", fmt.Sprintf("%.0f (%.1f/s)", s.Hits, s.HitsPerSecond)},
		{"Errors", fmt.Sprintf("%.0f", s.Errors)},
		{"Timeouts", fmt.Sprintf("%.0f", s.Timeouts)},
		{"Error rate", fmt.Sprintf("%.2f%%", s.ErrorRate*100)},
		{"Response", fmt.Sprintf("mean %.3fs, max %.3fs", s.MeanResponse, s.MaxResponse)},
		{"Transfer", fmt.Sprintf("tx %s, rx %s", formatBytes(s.TxBytes), formatBytes(s.RxBytes))},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  %-12s %s\n", row[0], row[1]))
	}
}

func (r Renderer) writeSprint(sb *strings.Builder, res *result.SprintResult) {
	if res.Duration != nil {
		sb.WriteString(fmt.Sprintf("Duration: %.3fs\n", *res.Duration))
	}
	for i, step := range res.Steps {
		sb.WriteString(r.paint(styleTitle, fmt.Sprintf("Step %d", i+1)))
		if step.Duration != nil {
			sb.WriteString(r.paint(styleSubtle, fmt.Sprintf(" %.3fs", *step.Duration)))
		}
		if step.Connect != nil {
			sb.WriteString(r.paint(styleSubtle, fmt.Sprintf(" (connect %.3fs)", *step.Connect)))
		}
		sb.WriteString("\n")
		if step.Request != nil {
			sb.WriteString("  > " + step.Request.Line + "\n")
			for _, name := range result.HeaderNames(step.Request.Headers) {
				sb.WriteString(r.paint(styleSubtle, fmt.Sprintf("  > %s: %s", name, step.Request.Headers[name])) + "\n")
			}
		}
		if step.Response != nil {
			line := step.Response.Line
			if step.Response.Status != nil {
				line = r.paint(r.statusStyle(*step.Response.Status), line)
			}
			sb.WriteString("  < " + line + "\n")
			for _, name := range result.HeaderNames(step.Response.Headers) {
				sb.WriteString(r.paint(styleSubtle, fmt.Sprintf("  < %s: %s", name, step.Response.Headers[name])) + "\n")
			}
		}
	}
}

func formatBytes(n float64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%.0fB", n)
	}
	div, exp := float64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", n/div, "KMGTPE"[exp])
}
