package mock

import "time"

// Config describes how the fake testing service behaves
type Config struct {
	Port    int    `json:"port" yaml:"port"`       // Server port (default: 9295)
	Host    string `json:"host" yaml:"host"`       // Server host (default: localhost)
	Logging bool   `json:"logging" yaml:"logging"` // Record requests for inspection

	Username string `json:"username,omitempty" yaml:"username,omitempty"` // Required X-API-User, any when empty
	APIKey   string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`     // Required long-lived key, any when empty
	JobKey   string `json:"jobKey,omitempty" yaml:"jobKey,omitempty"`     // Short-lived key handed out at login
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`     // Region reported for queued jobs

	LoginError  *ErrorDoc `json:"loginError,omitempty" yaml:"loginError,omitempty"`   // Reject every login
	SubmitError *ErrorDoc `json:"submitError,omitempty" yaml:"submitError,omitempty"` // Reject every submission
	StatusError *ErrorDoc `json:"statusError,omitempty" yaml:"statusError,omitempty"` // Answer every status poll with an error document

	// Statuses is the status reported on successive polls; the last one repeats.
	// Defaults to running, completed.
	Statuses []string `json:"statuses,omitempty" yaml:"statuses,omitempty"`

	// Results are the raw result objects returned on successive polls; the last
	// one repeats. When empty a result is synthesized from the submitted spec.
	Results []map[string]any `json:"results,omitempty" yaml:"results,omitempty"`
}

// ErrorDoc is the service error document
type ErrorDoc struct {
	Code   string `json:"error" yaml:"error"`
	Reason string `json:"reason" yaml:"reason"`
}

// Submission is one accepted or rejected submit call
type Submission struct {
	JobID string `json:"jobId,omitempty"`
	Key   string `json:"key"`
	Body  string `json:"body"`
}

// RequestLog represents a logged request
type RequestLog struct {
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Headers   map[string]string `json:"headers"`
	Status    int               `json:"status"`
	Duration  time.Duration     `json:"duration"`
}
