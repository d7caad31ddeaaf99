package parser

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/studiowebux/blitzbar/internal/types"
)

var intervalPattern = regexp.MustCompile(`^(\d+)-(\d+):(\d+)$`)

// CompileError reports a malformed command. It is never retried.
type CompileError struct {
	Msg string
	Err error
}

func (e *CompileError) Error() string { return e.Msg }

func (e *CompileError) Unwrap() error { return e.Err }

func (e *CompileError) Kind() types.ErrorKind { return types.KindCompile }

func compileErr(err error, format string, args ...any) *CompileError {
	return &CompileError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// flagHandler applies one option to the spec under construction
type flagHandler struct {
	long       string
	short      string
	takesValue bool
	apply      func(b *types.Builder, value string) error
}

// flagTable is the dispatch table of every recognized option, keyed by both
// short and long spelling. Variable bindings (-v:name) are matched separately.
var flagTable = map[string]*flagHandler{}

func init() {
	for _, h := range flagHandlers {
		flagTable[h.short] = h
		flagTable[h.long] = h
	}
}

var flagHandlers = []*flagHandler{
	{long: "--user-agent", short: "-A", takesValue: true, apply: func(b *types.Builder, v string) error {
		b.Step().SetUserAgent(v)
		return nil
	}},
	{long: "--cookie", short: "-b", takesValue: true, apply: func(b *types.Builder, v string) error {
		c, err := types.ParseCookie(v)
		if err != nil {
			return err
		}
		b.Step().AddCookie(c)
		return nil
	}},
	{long: "--data", short: "-d", takesValue: true, apply: func(b *types.Builder, v string) error {
		b.Step().AddContent(v)
		return nil
	}},
	{long: "--referer", short: "-e", takesValue: true, apply: func(b *types.Builder, v string) error {
		u, err := parseAbsoluteURL(v)
		if err != nil {
			return compileErr(err, "Invalid referer URL")
		}
		b.Step().SetReferrer(u)
		return nil
	}},
	{long: "--header", short: "-H", takesValue: true, apply: func(b *types.Builder, v string) error {
		h, err := types.ParseHeader(v)
		if err != nil {
			return err
		}
		b.Step().AddHeader(h)
		return nil
	}},
	{long: "--region", short: "-r", takesValue: true, apply: func(b *types.Builder, v string) error {
		if v == "" {
			return errors.New("Missing value for region")
		}
		b.SetRegion(v)
		return nil
	}},
	{long: "--status", short: "-s", takesValue: true, apply: func(b *types.Builder, v string) error {
		code, err := strconv.Atoi(v)
		if err != nil {
			return compileErr(err, "Wrong HTTP status code format")
		}
		b.Step().SetStatus(code)
		return nil
	}},
	{long: "--timeout", short: "-T", takesValue: true, apply: func(b *types.Builder, v string) error {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return compileErr(err, "Timeout must be an integer")
		}
		b.Step().SetTimeout(ms)
		return nil
	}},
	{long: "--user", short: "-u", takesValue: true, apply: func(b *types.Builder, v string) error {
		auth, err := types.ParseBasicAuth(v)
		if err != nil {
			return err
		}
		b.Step().SetUser(auth)
		return nil
	}},
	{long: "--request", short: "-X", takesValue: true, apply: func(b *types.Builder, v string) error {
		b.Step().SetMethod(v)
		return nil
	}},
	{long: "--pattern", short: "-p", takesValue: true, apply: applyPattern},
	{long: "--tlsv1", short: "-1", apply: func(b *types.Builder, _ string) error {
		b.Step().SetSSL(types.SSLTLSv1)
		return nil
	}},
	{long: "--sslv2", short: "-2", apply: func(b *types.Builder, _ string) error {
		b.Step().SetSSL(types.SSLSSLv2)
		return nil
	}},
	{long: "--sslv3", short: "-3", apply: func(b *types.Builder, _ string) error {
		b.Step().SetSSL(types.SSLSSLv3)
		return nil
	}},
}

// applyPattern appends every comma separated start-end:duration interval
func applyPattern(b *types.Builder, value string) error {
	if b.Variant() != types.Rush {
		return compileErr(nil, "Ramp pattern is only valid for a rush")
	}
	items := strings.Split(value, ",")
	intervals := make([][3]int, 0, len(items))
	for _, item := range items {
		m := intervalPattern.FindStringSubmatch(item)
		if m == nil {
			return errors.New("Invalid ramp pattern")
		}
		var iv [3]int
		for i := range iv {
			n, err := strconv.Atoi(m[i+1])
			if err != nil {
				return compileErr(err, "Invalid ramp pattern")
			}
			iv[i] = n
		}
		intervals = append(intervals, iv)
	}
	for _, iv := range intervals {
		b.AddInterval(iv[0], iv[1], iv[2])
	}
	return nil
}

// DetectVariant reports the variant a command compiles to: a rush when an
// unquoted pattern flag appears among its words, a sprint otherwise. It splits
// words exactly like the compiler does.
func DetectVariant(command string) types.Variant {
	tokens, err := tokenize(command)
	if err != nil {
		return types.Sprint
	}
	for _, tok := range tokens {
		if !tok.quoted && (tok.text == "-p" || tok.text == "--pattern") {
			return types.Rush
		}
	}
	return types.Sprint
}

// Compile parses a blitz bar command into a test spec
func Compile(command string) (*types.TestSpec, error) {
	return compile(command, DetectVariant(command))
}

// CompileAs parses command as the given variant. A sprint hint on a command
// carrying a pattern flag is rejected.
func CompileAs(command string, v types.Variant) (*types.TestSpec, error) {
	detected := DetectVariant(command)
	if v == types.Sprint && detected == types.Rush {
		return nil, compileErr(nil, "Ramp pattern is only valid for a rush")
	}
	return compile(command, v)
}

func compile(command string, variant types.Variant) (*types.TestSpec, error) {
	if strings.TrimSpace(command) == "" {
		return nil, compileErr(nil, "No command line provided")
	}

	tokens, err := tokenize(command)
	if err != nil {
		return nil, compileErr(err, "Invalid command: %v", err)
	}

	b := types.NewBuilder(variant)
	pos := 0
	next := func(flag string) (string, error) {
		if pos >= len(tokens) {
			return "", compileErr(nil, "Missing value for %s", flag)
		}
		v := tokens[pos].text
		pos++
		return v, nil
	}

	for pos < len(tokens) {
		urlFound := false

		for pos < len(tokens) {
			tok := tokens[pos]
			pos++

			if tok.quoted || !strings.HasPrefix(tok.text, "-") {
				u, err := parseAbsoluteURL(tok.text)
				if err != nil {
					return nil, compileErr(err, "Malformed URL")
				}
				b.EndStep(u)
				urlFound = true
				break
			}

			if m := variableFlagPattern.FindStringSubmatch(tok.text); m != nil {
				value, err := next(tok.text)
				if err != nil {
					return nil, err
				}
				gen, err := ParseVariable(m[1], value)
				if err != nil {
					return nil, asCompileError(err)
				}
				b.Step().SetVariable(m[1], gen)
				continue
			}

			h, ok := flagTable[tok.text]
			if !ok {
				return nil, unknownOption(tok.text)
			}
			value := ""
			if h.takesValue {
				if value, err = next(tok.text); err != nil {
					return nil, err
				}
			}
			if err := h.apply(b, value); err != nil {
				return nil, asCompileError(err)
			}
		}

		if !urlFound {
			return nil, compileErr(nil, "No URL specified")
		}
	}

	return b.Build(), nil
}

func asCompileError(err error) *CompileError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompileError{Msg: err.Error(), Err: err}
}

// unknownOption builds the single error path for unrecognized flags, with a
// suggestion for misspelled long options
func unknownOption(flag string) *CompileError {
	msg := "Unknown option " + flag
	if strings.HasPrefix(flag, "--") {
		longs := make([]string, 0, len(flagHandlers)+1)
		for _, h := range flagHandlers {
			longs = append(longs, h.long)
		}
		longs = append(longs, "--variable")
		sort.Strings(longs)
		if matches := fuzzy.Find(flag, longs); len(matches) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", matches[0].Str)
		}
	}
	return &CompileError{Msg: msg}
}

// parseAbsoluteURL accepts only URLs carrying both a scheme and a host
func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}
