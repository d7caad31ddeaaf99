package result

import (
	"time"

	"github.com/studiowebux/blitzbar/internal/types"
)

// Result is the decoded outcome of one poll or completion. Results are built
// fresh for every poll and never mutated afterwards.
type Result interface {
	Variant() types.Variant
	RegionName() string
}

// RushResult is the timeline of a load test so far
type RushResult struct {
	Region   string  `json:"region,omitempty" yaml:"region,omitempty"`
	Timeline []Point `json:"timeline" yaml:"timeline"`
}

func (r *RushResult) Variant() types.Variant { return types.Rush }
func (r *RushResult) RegionName() string     { return r.Region }

// Last returns the most recent timeline point, or nil for an empty timeline
func (r *RushResult) Last() *Point {
	if len(r.Timeline) == 0 {
		return nil
	}
	p := r.Timeline[len(r.Timeline)-1]
	return &p
}

// Point is one sample of a rush timeline
type Point struct {
	Timestamp *time.Time  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Duration  float64     `json:"duration" yaml:"duration"`
	Total     float64     `json:"total" yaml:"total"`
	Hits      float64     `json:"hits" yaml:"hits"`
	Errors    float64     `json:"errors" yaml:"errors"`
	Timeouts  float64     `json:"timeouts" yaml:"timeouts"`
	Volume    float64     `json:"volume" yaml:"volume"`
	TxBytes   float64     `json:"txBytes" yaml:"txBytes"`
	RxBytes   float64     `json:"rxBytes" yaml:"rxBytes"`
	Steps     []PointStep `json:"steps" yaml:"steps"`
}

// PointStep is the per-step breakdown of a timeline point
type PointStep struct {
	Duration float64 `json:"duration" yaml:"duration"`
	Connect  float64 `json:"connect" yaml:"connect"`
	Errors   float64 `json:"errors" yaml:"errors"`
	Timeouts float64 `json:"timeouts" yaml:"timeouts"`
	Asserts  float64 `json:"asserts" yaml:"asserts"`
}

// SprintResult is the request/response detail of a probe
type SprintResult struct {
	Region   string       `json:"region,omitempty" yaml:"region,omitempty"`
	Duration *float64     `json:"duration,omitempty" yaml:"duration,omitempty"`
	Steps    []SprintStep `json:"steps" yaml:"steps"`
}

func (r *SprintResult) Variant() types.Variant { return types.Sprint }
func (r *SprintResult) RegionName() string     { return r.Region }

// SprintStep is one executed step of a sprint
type SprintStep struct {
	Duration *float64  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Connect  *float64  `json:"connect,omitempty" yaml:"connect,omitempty"`
	Request  *Request  `json:"request,omitempty" yaml:"request,omitempty"`
	Response *Response `json:"response,omitempty" yaml:"response,omitempty"`
}

// Request is the request the service sent for a step
type Request struct {
	Line    string            `json:"line,omitempty" yaml:"line,omitempty"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// Response is the response the service received for a step
type Response struct {
	Line    string            `json:"line,omitempty" yaml:"line,omitempty"`
	Status  *int              `json:"status,omitempty" yaml:"status,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
}
