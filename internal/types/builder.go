package types

import (
	"maps"
	"net/url"

	"github.com/studiowebux/blitzbar/internal/generator"
)

// StepBuilder accumulates the options of one step
type StepBuilder struct {
	step Step
}

// NewStepBuilder starts an empty step
func NewStepBuilder() *StepBuilder {
	return &StepBuilder{}
}

func (b *StepBuilder) SetURL(u *url.URL) *StepBuilder {
	b.step.url = cloneURL(u)
	return b
}

func (b *StepBuilder) SetMethod(method string) *StepBuilder {
	b.step.method = method
	return b
}

func (b *StepBuilder) SetUserAgent(agent string) *StepBuilder {
	b.step.userAgent = agent
	return b
}

func (b *StepBuilder) SetReferrer(u *url.URL) *StepBuilder {
	b.step.referrer = cloneURL(u)
	return b
}

// AddContent appends a raw body fragment
func (b *StepBuilder) AddContent(data string) *StepBuilder {
	b.step.content = append(b.step.content, data)
	return b
}

func (b *StepBuilder) AddHeader(h Header) *StepBuilder {
	b.step.headers = append(b.step.headers, h)
	return b
}

func (b *StepBuilder) AddCookie(c Cookie) *StepBuilder {
	b.step.cookies = append(b.step.cookies, c)
	return b
}

func (b *StepBuilder) SetUser(auth BasicAuth) *StepBuilder {
	b.step.user = &auth
	return b
}

// SetStatus sets the expected HTTP status code assertion
func (b *StepBuilder) SetStatus(code int) *StepBuilder {
	b.step.status = &code
	return b
}

// SetTimeout sets the step timeout in milliseconds. The service enforces it.
func (b *StepBuilder) SetTimeout(ms int) *StepBuilder {
	b.step.timeout = &ms
	return b
}

func (b *StepBuilder) SetSSL(protocol string) *StepBuilder {
	b.step.ssl = protocol
	return b
}

// SetVariable binds a generator to name for this step. A later binding of
// the same name replaces the earlier one.
func (b *StepBuilder) SetVariable(name string, gen generator.Generator) *StepBuilder {
	if b.step.variables == nil {
		b.step.variables = make(map[string]generator.Generator)
	}
	b.step.variables[name] = gen
	return b
}

// Build returns a frozen copy of the step
func (b *StepBuilder) Build() Step {
	s := b.step
	s.content = append([]string(nil), s.content...)
	s.headers = append([]Header(nil), s.headers...)
	s.cookies = append([]Cookie(nil), s.cookies...)
	s.variables = maps.Clone(s.variables)
	if s.user != nil {
		u := *s.user
		s.user = &u
	}
	if s.status != nil {
		v := *s.status
		s.status = &v
	}
	if s.timeout != nil {
		v := *s.timeout
		s.timeout = &v
	}
	return s
}

// Builder accumulates a TestSpec. It is not safe for concurrent use.
type Builder struct {
	variant   Variant
	region    string
	steps     []Step
	variables map[string]generator.Generator
	pattern   *Pattern
	current   *StepBuilder
}

// NewBuilder starts a spec of the given variant
func NewBuilder(v Variant) *Builder {
	return &Builder{variant: v, current: NewStepBuilder()}
}

func (b *Builder) Variant() Variant { return b.variant }

// Step returns the step currently accumulating options
func (b *Builder) Step() *StepBuilder { return b.current }

func (b *Builder) SetRegion(region string) *Builder {
	b.region = region
	return b
}

// SetVariable binds a spec-wide generator
func (b *Builder) SetVariable(name string, gen generator.Generator) *Builder {
	if b.variables == nil {
		b.variables = make(map[string]generator.Generator)
	}
	b.variables[name] = gen
	return b
}

// AddInterval appends a ramp interval. Calling it on a sprint builder is a
// programming error.
func (b *Builder) AddInterval(start, end, duration int) *Builder {
	if b.variant != Rush {
		panic("types: ramp interval added to a " + b.variant.String() + " spec")
	}
	if b.pattern == nil {
		b.pattern = &Pattern{Iterations: 1}
	}
	b.pattern.Intervals = append(b.pattern.Intervals, Interval{Start: start, End: end, Duration: duration})
	return b
}

// SetIterations sets how many times the service replays the pattern
func (b *Builder) SetIterations(n int) *Builder {
	if b.variant != Rush {
		panic("types: pattern iterations set on a " + b.variant.String() + " spec")
	}
	if b.pattern == nil {
		b.pattern = &Pattern{}
	}
	b.pattern.Iterations = n
	return b
}

// EndStep sets u on the current step, appends it and starts a new one
func (b *Builder) EndStep(u *url.URL) *Builder {
	b.current.SetURL(u)
	return b.AppendStep(b.current)
}

// AppendStep appends a built step as is, even one without a URL, and starts
// a new current step
func (b *Builder) AppendStep(s *StepBuilder) *Builder {
	b.steps = append(b.steps, s.Build())
	b.current = NewStepBuilder()
	return b
}

// AddURL is a shorthand for appending a step that only carries a URL
func (b *Builder) AddURL(rawURL string) (*Builder, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return b, err
	}
	return b.AppendStep(NewStepBuilder().SetURL(u)), nil
}

// Build freezes the accumulated state. Options set on the current step
// after the last EndStep are not included.
func (b *Builder) Build() *TestSpec {
	spec := &TestSpec{
		variant:   b.variant,
		region:    b.region,
		steps:     append([]Step(nil), b.steps...),
		variables: maps.Clone(b.variables),
	}
	if b.pattern != nil {
		spec.pattern = &Pattern{
			Iterations: b.pattern.Iterations,
			Intervals:  append([]Interval(nil), b.pattern.Intervals...),
		}
	}
	return spec
}
