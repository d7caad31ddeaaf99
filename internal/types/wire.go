package types

import (
	"bytes"
	"encoding/json"

	"github.com/studiowebux/blitzbar/internal/generator"
)

// Submission payload. Only fields that were set are emitted.
type wireSpec struct {
	Pattern   *wirePattern                   `json:"pattern,omitempty"`
	Region    string                         `json:"region,omitempty"`
	Variables map[string]generator.Generator `json:"variables,omitempty"`
	Steps     []wireStep                     `json:"steps"`
}

type wirePattern struct {
	Intervals  []Interval `json:"intervals"`
	Iterations int        `json:"iterations,omitempty"`
}

type wireContent struct {
	Data []string `json:"data"`
}

type wireStep struct {
	URL       string                         `json:"url"`
	Request   string                         `json:"request,omitempty"`
	UserAgent string                         `json:"user_agent,omitempty"`
	Referer   string                         `json:"referer,omitempty"`
	Content   *wireContent                   `json:"content,omitempty"`
	Headers   []string                       `json:"headers,omitempty"`
	Cookies   []string                       `json:"cookies,omitempty"`
	User      string                         `json:"user,omitempty"`
	Status    *int                           `json:"status,omitempty"`
	Timeout   *int                           `json:"timeout,omitempty"`
	SSL       string                         `json:"ssl,omitempty"`
	Variables map[string]generator.Generator `json:"variables,omitempty"`
}

func (t *TestSpec) toWire() wireSpec {
	w := wireSpec{
		Region:    t.region,
		Variables: t.variables,
		Steps:     make([]wireStep, 0, len(t.steps)),
	}
	if t.pattern != nil {
		w.Pattern = &wirePattern{Intervals: t.pattern.Intervals}
		if w.Pattern.Intervals == nil {
			w.Pattern.Intervals = []Interval{}
		}
		// A single pass is the service default
		if t.pattern.Iterations > 1 {
			w.Pattern.Iterations = t.pattern.Iterations
		}
	}
	for _, s := range t.steps {
		w.Steps = append(w.Steps, s.toWire())
	}
	return w
}

func (s Step) toWire() wireStep {
	w := wireStep{
		Request:   s.method,
		UserAgent: s.userAgent,
		Status:    s.status,
		Timeout:   s.timeout,
		SSL:       s.ssl,
		Variables: s.variables,
	}
	if s.url != nil {
		w.URL = s.url.String()
	}
	if s.referrer != nil {
		w.Referer = s.referrer.String()
	}
	if len(s.content) > 0 {
		w.Content = &wireContent{Data: s.content}
	}
	for _, h := range s.headers {
		w.Headers = append(w.Headers, h.String())
	}
	for _, c := range s.cookies {
		w.Cookies = append(w.Cookies, c.String())
	}
	if s.user != nil {
		w.User = s.user.String()
	}
	return w
}

// MarshalJSON encodes the spec in the service submission format
func (t *TestSpec) MarshalJSON() ([]byte, error) {
	return Encode(t)
}

// Encode returns the submission body for t without HTML escaping, so URLs
// with query strings are sent verbatim
func Encode(t *TestSpec) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t.toWire()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
