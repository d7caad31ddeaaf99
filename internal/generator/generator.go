package generator

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind identifies the generator variant on the wire
type Kind string

const (
	KindList   Kind = "list"
	KindAlpha  Kind = "alpha"
	KindNumber Kind = "number"
	KindUdid   Kind = "udid"
)

const (
	// DefaultAlphaMin is the shortest string produced by an unbounded alpha generator
	DefaultAlphaMin = 1
	// DefaultAlphaMax is the longest string produced by an unbounded alpha generator
	DefaultAlphaMax = 10
	// DefaultNumberMin is the lower bound of an unbounded number generator
	DefaultNumberMin = math.MinInt32
	// DefaultNumberMax is the upper bound of an unbounded number generator
	DefaultNumberMax = math.MaxInt32
)

// Generator describes how the testing service produces a value for a
// template variable. Values are materialized remotely, never here.
type Generator interface {
	Kind() Kind
	// String returns the generator in command-line form (e.g. alpha[1,5])
	String() string
}

// List picks one of a fixed ordered set of literal values
type List struct {
	entries []string
}

// NewList creates a list generator over a copy of entries
func NewList(entries ...string) *List {
	return &List{entries: append([]string(nil), entries...)}
}

func (l *List) Kind() Kind { return KindList }

// Entries returns a copy of the list entries in order
func (l *List) Entries() []string {
	return append([]string(nil), l.entries...)
}

func (l *List) String() string {
	return "list[" + strings.Join(l.entries, ",") + "]"
}

func (l *List) MarshalJSON() ([]byte, error) {
	entries := l.entries
	if entries == nil {
		entries = []string{}
	}
	return json.Marshal(struct {
		Type    Kind     `json:"type"`
		Entries []string `json:"entries"`
	}{KindList, entries})
}

// Alpha produces a random alphabetic string with a length in [Min, Max]
type Alpha struct {
	min, max int
}

// NewAlpha creates an alpha generator with the default length bounds
func NewAlpha() *Alpha {
	return &Alpha{min: DefaultAlphaMin, max: DefaultAlphaMax}
}

// NewAlphaRange creates an alpha generator with explicit length bounds
func NewAlphaRange(min, max int) *Alpha {
	return &Alpha{min: min, max: max}
}

func (a *Alpha) Kind() Kind { return KindAlpha }
func (a *Alpha) Min() int { return a.min }
func (a *Alpha) Max() int { return a.max }

func (a *Alpha) String() string {
	return fmt.Sprintf("alpha[%d,%d]", a.min, a.max)
}

func (a *Alpha) MarshalJSON() ([]byte, error) {
	return marshalBounded(KindAlpha, a.min, a.max)
}

// Number produces a random integer in [Min, Max]
type Number struct {
	min, max int
}

// NewNumber creates a number generator over the default integer range
func NewNumber() *Number {
	return &Number{min: DefaultNumberMin, max: DefaultNumberMax}
}

// NewNumberRange creates a number generator with explicit bounds. Bounds may be negative.
func NewNumberRange(min, max int) *Number {
	return &Number{min: min, max: max}
}

func (n *Number) Kind() Kind { return KindNumber }
func (n *Number) Min() int { return n.min }
func (n *Number) Max() int { return n.max }

func (n *Number) String() string {
	return fmt.Sprintf("number[%d,%d]", n.min, n.max)
}

func (n *Number) MarshalJSON() ([]byte, error) {
	return marshalBounded(KindNumber, n.min, n.max)
}

// Udid produces a unique device/session identifier
type Udid struct{}

// NewUdid creates a udid generator
func NewUdid() *Udid { return &Udid{} }

func (u *Udid) Kind() Kind { return KindUdid }
func (u *Udid) String() string { return "udid" }

func (u *Udid) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Kind `json:"type"`
	}{KindUdid})
}

func marshalBounded(kind Kind, min, max int) ([]byte, error) {
	return json.Marshal(struct {
		Type Kind `json:"type"`
		Min  int  `json:"min"`
		Max  int  `json:"max"`
	}{kind, min, max})
}
