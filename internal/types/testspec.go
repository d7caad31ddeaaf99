package types

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/studiowebux/blitzbar/internal/generator"
)

// Variant selects between a ramped load test and a single-pass probe
type Variant int

const (
	// Sprint is a single-pass functional check of one or more sequential steps
	Sprint Variant = iota
	// Rush is a load test ramping concurrency across one or more intervals
	Rush
)

func (v Variant) String() string {
	switch v {
	case Rush:
		return "rush"
	case Sprint:
		return "sprint"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// SSL protocol hints accepted by the service
const (
	SSLTLSv1 = "tlsv1"
	SSLSSLv2 = "sslv2"
	SSLSSLv3 = "sslv3"
)

// Header is one request header. Duplicates are allowed and kept in order.
type Header struct {
	Name  string
	Value string
}

func (h Header) String() string { return h.Name + ": " + h.Value }

// ParseHeader splits a name:value pair on the first colon
func ParseHeader(s string) (Header, error) {
	name, value, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return Header{}, errors.New("Invalid header. Format: name:value")
	}
	return Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}, nil
}

// Cookie is one request cookie
type Cookie struct {
	Name  string
	Value string
}

func (c Cookie) String() string { return c.Name + "=" + c.Value }

// ParseCookie splits a name=value pair on the first equals sign. Both sides
// must be non-empty.
func ParseCookie(s string) (Cookie, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" || value == "" {
		return Cookie{}, errors.New("Invalid cookie. Format: name=value")
	}
	return Cookie{Name: name, Value: value}, nil
}

// BasicAuth holds basic-auth credentials for a step
type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) String() string { return b.Username + ":" + b.Password }

// ParseBasicAuth splits a username:password pair on the first colon
func ParseBasicAuth(s string) (BasicAuth, error) {
	user, pass, ok := strings.Cut(s, ":")
	if !ok || user == "" {
		return BasicAuth{}, errors.New("Invalid user. Format: username:password")
	}
	return BasicAuth{Username: user, Password: pass}, nil
}

// Interval is one concurrency ramp segment. Ordering and overlap are
// interpreted by the service.
type Interval struct {
	Start    int `json:"start"`
	End      int `json:"end"`
	Duration int `json:"duration"` // seconds
}

// Pattern is the ordered set of ramp intervals of a rush
type Pattern struct {
	Iterations int
	Intervals  []Interval
}

// Step is one HTTP request description within a spec
type Step struct {
	url       *url.URL
	method    string
	userAgent string
	referrer  *url.URL
	content   []string
	headers   []Header
	cookies   []Cookie
	user      *BasicAuth
	status    *int
	timeout   *int
	ssl       string
	variables map[string]generator.Generator
}

func (s Step) URL() *url.URL { return cloneURL(s.url) }
func (s Step) Method() string { return s.method }
func (s Step) UserAgent() string { return s.userAgent }
func (s Step) Referrer() *url.URL { return cloneURL(s.referrer) }
func (s Step) Content() []string { return append([]string(nil), s.content...) }
func (s Step) Headers() []Header { return append([]Header(nil), s.headers...) }
func (s Step) Cookies() []Cookie { return append([]Cookie(nil), s.cookies...) }
func (s Step) SSL() string { return s.ssl }
func (s Step) HasURL() bool { return s.url != nil }
func (s Step) Variables() map[string]generator.Generator {
	return maps.Clone(s.variables)
}

// User returns the basic-auth credentials, or nil when none were set
func (s Step) User() *BasicAuth {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Status returns the expected status code and whether one was set
func (s Step) Status() (int, bool) {
	if s.status == nil {
		return 0, false
	}
	return *s.status, true
}

// Timeout returns the step timeout in milliseconds and whether one was set
func (s Step) Timeout() (int, bool) {
	if s.timeout == nil {
		return 0, false
	}
	return *s.timeout, true
}

// TestSpec is a compiled rush or sprint. It is immutable once built.
//
// A TestSpec must not be shared across concurrent executions.
type TestSpec struct {
	variant   Variant
	region    string
	steps     []Step
	variables map[string]generator.Generator
	pattern   *Pattern
}

func (t *TestSpec) Variant() Variant { return t.variant }
func (t *TestSpec) Region() string { return t.region }
func (t *TestSpec) Steps() []Step { return append([]Step(nil), t.steps...) }

// WithRegion returns a copy of the spec bound to region. The receiver is
// left unchanged.
func (t *TestSpec) WithRegion(region string) *TestSpec {
	c := *t
	c.region = region
	return &c
}

// Variables returns the spec-wide variable bindings
func (t *TestSpec) Variables() map[string]generator.Generator {
	return maps.Clone(t.variables)
}

// Pattern returns a copy of the ramp pattern, or nil for sprints and
// rushes built without one
func (t *TestSpec) Pattern() *Pattern {
	if t.pattern == nil {
		return nil
	}
	return &Pattern{
		Iterations: t.pattern.Iterations,
		Intervals:  append([]Interval(nil), t.pattern.Intervals...),
	}
}

// Validate checks the structural requirements for execution. It must run
// before any network call.
func (t *TestSpec) Validate() error {
	if len(t.steps) == 0 {
		return &ValidationError{Reason: "At least one step is required"}
	}
	for _, step := range t.steps {
		if step.url == nil {
			return &ValidationError{Reason: "Url is required"}
		}
	}
	if t.variant == Rush {
		if t.pattern == nil || len(t.pattern.Intervals) == 0 {
			return &ValidationError{Reason: "A valid pattern is required"}
		}
	}
	return nil
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
