package analytics

import (
	"github.com/studiowebux/blitzbar/internal/result"
)

// Summary condenses a rush timeline. Counters on a timeline are cumulative, so
// totals come from the last point while peaks scan every point.
type Summary struct {
	Points        int     `json:"points" yaml:"points"`
	Elapsed       float64 `json:"elapsed" yaml:"elapsed"`
	Total         float64 `json:"total" yaml:"total"`
	Hits          float64 `json:"hits" yaml:"hits"`
	Errors        float64 `json:"errors" yaml:"errors"`
	Timeouts      float64 `json:"timeouts" yaml:"timeouts"`
	PeakVolume    float64 `json:"peakVolume" yaml:"peakVolume"`
	MeanResponse  float64 `json:"meanResponse" yaml:"meanResponse"`
	MaxResponse   float64 `json:"maxResponse" yaml:"maxResponse"`
	ErrorRate     float64 `json:"errorRate" yaml:"errorRate"`
	HitsPerSecond float64 `json:"hitsPerSecond" yaml:"hitsPerSecond"`
	TxBytes       float64 `json:"txBytes" yaml:"txBytes"`
	RxBytes       float64 `json:"rxBytes" yaml:"rxBytes"`
}

// Summarize reduces a rush result. A nil or empty timeline yields a zero summary.
func Summarize(r *result.RushResult) Summary {
	var s Summary
	if r == nil || len(r.Timeline) == 0 {
		return s
	}

	s.Points = len(r.Timeline)
	var responseSum float64
	var sampled int
	for _, p := range r.Timeline {
		if p.Volume > s.PeakVolume {
			s.PeakVolume = p.Volume
		}
		if p.Duration > s.MaxResponse {
			s.MaxResponse = p.Duration
		}
		if p.Hits > 0 {
			responseSum += p.Duration
			sampled++
		}
	}
	if sampled > 0 {
		s.MeanResponse = responseSum / float64(sampled)
	}

	last := r.Timeline[len(r.Timeline)-1]
	s.Total = last.Total
	s.Hits = last.Hits
	s.Errors = last.Errors
	s.Timeouts = last.Timeouts
	s.TxBytes = last.TxBytes
	s.RxBytes = last.RxBytes
	if s.Total > 0 {
		s.ErrorRate = (s.Errors + s.Timeouts) / s.Total
	}

	first := r.Timeline[0]
	if first.Timestamp != nil && last.Timestamp != nil {
		s.Elapsed = last.Timestamp.Sub(*first.Timestamp).Seconds()
	}
	if s.Elapsed > 0 {
		s.HitsPerSecond = s.Hits / s.Elapsed
	}
	return s
}
