package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/studiowebux/blitzbar/internal/generator"
)

var (
	// -v:name / --variable:name
	variableFlagPattern = regexp.MustCompile(`^(?:-v|--variable):(\S+)$`)

	variableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// variableRule maps one value form to a generator. Rules are tried in order
// and the first match wins.
type variableRule struct {
	pattern *regexp.Regexp
	build   func(m []string) (generator.Generator, error)
}

var variableGrammar = []variableRule{
	{
		// [a,b,c] or list[a,b,c]
		pattern: regexp.MustCompile(`(?i)^(list)?\[([^\]]+)\]$`),
		build: func(m []string) (generator.Generator, error) {
			return generator.NewList(strings.Split(m[2], ",")...), nil
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(a|alpha)$`),
		build: func(m []string) (generator.Generator, error) {
			return generator.NewAlpha(), nil
		},
	},
	{
		// The optional third group is accepted and has no meaning yet
		pattern: regexp.MustCompile(`(?i)^(a|alpha)\[(\d+),(\d+)(,(\d+))?\]$`),
		build: func(m []string) (generator.Generator, error) {
			min, max, err := bounds(m[2], m[3])
			if err != nil {
				return nil, err
			}
			return generator.NewAlphaRange(min, max), nil
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(n|number)$`),
		build: func(m []string) (generator.Generator, error) {
			return generator.NewNumber(), nil
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(n|number)\[(-?\d+),(-?\d+)(,(\d+))?\]$`),
		build: func(m []string) (generator.Generator, error) {
			min, max, err := bounds(m[2], m[3])
			if err != nil {
				return nil, err
			}
			return generator.NewNumberRange(min, max), nil
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(u|udid)$`),
		build: func(m []string) (generator.Generator, error) {
			return generator.NewUdid(), nil
		},
	},
}

func bounds(lo, hi string) (int, int, error) {
	min, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, err
	}
	max, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

// ParseVariable converts a variable value such as "alpha[1,5]" into a generator
func ParseVariable(name, value string) (generator.Generator, error) {
	if !variableNamePattern.MatchString(name) {
		return nil, fmt.Errorf("Variable name must be alphanumeric: %s", name)
	}
	for _, rule := range variableGrammar {
		m := rule.pattern.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		gen, err := rule.build(m)
		if err != nil {
			return nil, fmt.Errorf("Invalid variable args for %s: %s: %w", name, value, err)
		}
		return gen, nil
	}
	return nil, fmt.Errorf("Invalid variable args for %s: %s", name, value)
}
