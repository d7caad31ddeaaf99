package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/blitzbar/internal/generator"
	"github.com/studiowebux/blitzbar/internal/types"
)

func compileOne(t *testing.T, cmd string) types.Step {
	t.Helper()
	spec, err := Compile(cmd)
	require.NoError(t, err)
	steps := spec.Steps()
	require.Len(t, steps, 1)
	return steps[0]
}

func TestCompile_SingleURL(t *testing.T) {
	spec, err := Compile("http://example.com")
	require.NoError(t, err)
	assert.Equal(t, types.Sprint, spec.Variant())

	steps := spec.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "http://example.com", steps[0].URL().String())
	assert.Empty(t, steps[0].Method())
	assert.Empty(t, steps[0].Headers())
	assert.Empty(t, steps[0].Cookies())
	assert.Nil(t, steps[0].User())
	_, ok := steps[0].Status()
	assert.False(t, ok)
}

func TestCompile_URLsOnly(t *testing.T) {
	spec, err := Compile("http://example.com http://example.com/test  https://example.org/a?b=c")
	require.NoError(t, err)

	steps := spec.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "http://example.com", steps[0].URL().String())
	assert.Equal(t, "http://example.com/test", steps[1].URL().String())
	assert.Equal(t, "https://example.org/a?b=c", steps[2].URL().String())
	for _, s := range steps {
		assert.Empty(t, s.UserAgent())
		assert.Empty(t, s.Content())
		assert.Empty(t, s.Variables())
	}
}

func TestCompile_UserAgent(t *testing.T) {
	step := compileOne(t, `--user-agent "Mozilla Firefox 3.6" http://example.com`)
	assert.Equal(t, "Mozilla Firefox 3.6", step.UserAgent())

	step = compileOne(t, `-A 'it\'s me' http://example.com`)
	assert.Equal(t, "it's me", step.UserAgent())
}

func TestCompile_Cookies(t *testing.T) {
	step := compileOne(t, "--cookie a=b -b c=d http://example.com")
	assert.Equal(t, []types.Cookie{{Name: "a", Value: "b"}, {Name: "c", Value: "d"}}, step.Cookies())

	for _, cmd := range []string{"-b broken http://example.com", "-b a= http://example.com"} {
		_, err := Compile(cmd)
		require.Error(t, err, cmd)
		assert.Equal(t, "Invalid cookie. Format: name=value", err.Error())
	}
}

func TestCompile_Data(t *testing.T) {
	step := compileOne(t, "--data form_field=123 -d other=1 http://example.com")
	assert.Equal(t, []string{"form_field=123", "other=1"}, step.Content())
}

func TestCompile_Referer(t *testing.T) {
	step := compileOne(t, "-e http://www.google.com http://example.com")
	assert.Equal(t, "http://www.google.com", step.Referrer().String())

	_, err := Compile("-e notaurl http://example.com")
	assert.EqualError(t, err, "Invalid referer URL")
}

func TestCompile_Header(t *testing.T) {
	step := compileOne(t, `--header h1:v1 -H "Accept: text/html" -H h1:v2 http://example.com`)
	assert.Equal(t, []types.Header{
		{Name: "h1", Value: "v1"},
		{Name: "Accept", Value: "text/html"},
		{Name: "h1", Value: "v2"},
	}, step.Headers())

	_, err := Compile("-H nocolon http://example.com")
	assert.EqualError(t, err, "Invalid header. Format: name:value")
}

func TestCompile_Region(t *testing.T) {
	spec, err := Compile("--region california http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "california", spec.Region())

	_, err = Compile(`-r "" http://example.com`)
	assert.EqualError(t, err, "Missing value for region")
}

func TestCompile_StatusAndTimeout(t *testing.T) {
	step := compileOne(t, "-s 200 -T 5000 http://example.com")
	status, ok := step.Status()
	require.True(t, ok)
	assert.Equal(t, 200, status)
	timeout, ok := step.Timeout()
	require.True(t, ok)
	assert.Equal(t, 5000, timeout)

	_, err := Compile("-s abc http://example.com")
	assert.EqualError(t, err, "Wrong HTTP status code format")

	_, err = Compile("--timeout 1.5 http://example.com")
	assert.EqualError(t, err, "Timeout must be an integer")
}

func TestCompile_User(t *testing.T) {
	step := compileOne(t, "-u john:smith http://example.com")
	require.NotNil(t, step.User())
	assert.Equal(t, "john", step.User().Username)
	assert.Equal(t, "smith", step.User().Password)

	_, err := Compile("-u john http://example.com")
	assert.EqualError(t, err, "Invalid user. Format: username:password")
}

func TestCompile_Request(t *testing.T) {
	step := compileOne(t, "-X GET http://example.com")
	assert.Equal(t, "GET", step.Method())
}

func TestCompile_SSL(t *testing.T) {
	assert.Equal(t, "tlsv1", compileOne(t, "-1 http://example.com").SSL())
	assert.Equal(t, "sslv2", compileOne(t, "--sslv2 http://example.com").SSL())
	assert.Equal(t, "sslv3", compileOne(t, "-3 http://example.com").SSL())
}

func TestCompile_OnePattern(t *testing.T) {
	spec, err := Compile("-p 10-20:30 http://example.com")
	require.NoError(t, err)
	assert.Equal(t, types.Rush, spec.Variant())
	require.NotNil(t, spec.Pattern())
	assert.Equal(t, []types.Interval{{Start: 10, End: 20, Duration: 30}}, spec.Pattern().Intervals)
}

func TestCompile_TwoPatterns(t *testing.T) {
	spec, err := Compile("-p 10-20:30,4-5:6 http://example.com")
	require.NoError(t, err)
	assert.Equal(t, []types.Interval{
		{Start: 10, End: 20, Duration: 30},
		{Start: 4, End: 5, Duration: 6},
	}, spec.Pattern().Intervals)
}

func TestCompile_PatternPositionIndependent(t *testing.T) {
	for _, cmd := range []string{
		"-p 1-2:3 http://example.com",
		"http://example.com --pattern 1-2:3 http://example.com/2",
		"-X POST -H a:b --pattern 1-2:3 http://example.com",
	} {
		spec, err := Compile(cmd)
		require.NoError(t, err, cmd)
		assert.Equal(t, types.Rush, spec.Variant(), cmd)
	}
}

func TestCompile_PatternInQuotedValueIsNotRush(t *testing.T) {
	spec, err := Compile(`-A "agent -p 1-2:3" http://example.com`)
	require.NoError(t, err)
	assert.Equal(t, types.Sprint, spec.Variant())
	assert.Equal(t, "agent -p 1-2:3", spec.Steps()[0].UserAgent())
}

func TestCompile_DecreasingIntervalAccepted(t *testing.T) {
	spec, err := Compile("-p 20-10:5 http://example.com")
	require.NoError(t, err)
	assert.Equal(t, []types.Interval{{Start: 20, End: 10, Duration: 5}}, spec.Pattern().Intervals)
}

func TestCompile_InvalidPattern(t *testing.T) {
	for _, v := range []string{"10-20", "10-20:30,abc", "a-b:c", "10-20:30,"} {
		_, err := Compile("-p " + v + " http://example.com")
		assert.EqualError(t, err, "Invalid ramp pattern", v)
	}
}

func TestCompile_Variables(t *testing.T) {
	step := compileOne(t, "-v:var list[a,b,c] http://example.com")
	list, ok := step.Variables()["var"].(*generator.List)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, list.Entries())

	step = compileOne(t, "-v:var alpha[1,2] http://example.com")
	alpha, ok := step.Variables()["var"].(*generator.Alpha)
	require.True(t, ok)
	assert.Equal(t, 1, alpha.Min())
	assert.Equal(t, 2, alpha.Max())

	step = compileOne(t, "--variable:var number[1,2] http://example.com")
	number, ok := step.Variables()["var"].(*generator.Number)
	require.True(t, ok)
	assert.Equal(t, 1, number.Min())
	assert.Equal(t, 2, number.Max())

	step = compileOne(t, "-v:var udid http://example.com")
	assert.IsType(t, &generator.Udid{}, step.Variables()["var"])
}

func TestCompile_VariableErrors(t *testing.T) {
	_, err := Compile("-v:1var udid http://example.com")
	assert.EqualError(t, err, "Variable name must be alphanumeric: 1var")

	_, err = Compile("-v:var bogus http://example.com")
	assert.EqualError(t, err, "Invalid variable args for var: bogus")
}

func TestCompile_MultistepWithOptions(t *testing.T) {
	spec, err := Compile("-s 200 -X POST http://example.com -X GET http://example.com/test")
	require.NoError(t, err)
	steps := spec.Steps()
	require.Len(t, steps, 2)

	status, ok := steps[0].Status()
	assert.True(t, ok)
	assert.Equal(t, 200, status)
	assert.Equal(t, "POST", steps[0].Method())

	_, ok = steps[1].Status()
	assert.False(t, ok)
	assert.Equal(t, "GET", steps[1].Method())
	assert.Equal(t, "http://example.com/test", steps[1].URL().String())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"", "No command line provided"},
		{"   ", "No command line provided"},
		{"-X GET", "No URL specified"},
		{"http://example.com -X GET", "No URL specified"},
		{"-Z http://example.com", "Unknown option -Z"},
		{"example.com", "Malformed URL"},
		{`"-p" 1-2:3 http://example.com`, "Malformed URL"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			_, err := Compile(tt.cmd)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())

			var ce *CompileError
			assert.True(t, errors.As(err, &ce))
			assert.Equal(t, types.KindCompile, types.KindOf(err))
		})
	}
}

func TestCompile_UnicodeWhitespaceAroundPattern(t *testing.T) {
	for _, cmd := range []string{
		"-p\v1-2:3 http://example.com",
		"-p\u00a01-2:3\u0085http://example.com",
	} {
		var spec *types.TestSpec
		var err error
		require.NotPanics(t, func() { spec, err = Compile(cmd) }, "%q", cmd)
		require.NoError(t, err, "%q", cmd)
		assert.Equal(t, types.Rush, spec.Variant())
		require.NotNil(t, spec.Pattern())
		assert.Len(t, spec.Pattern().Intervals, 1)
	}
}

func TestApplyPattern_SprintBuilder(t *testing.T) {
	var err error
	require.NotPanics(t, func() { err = applyPattern(types.NewBuilder(types.Sprint), "1-2:3") })
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Ramp pattern is only valid for a rush", ce.Msg)
}

func TestCompile_UnknownLongOptionSuggestion(t *testing.T) {
	_, err := Compile("--heder a:b http://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown option --heder")
	assert.Contains(t, err.Error(), "did you mean --header?")
}

func TestCompile_UnclosedQuote(t *testing.T) {
	_, err := Compile(`-A "open http://example.com`)
	require.Error(t, err)
	assert.Equal(t, types.KindCompile, types.KindOf(err))
}

func TestCompileAs(t *testing.T) {
	spec, err := CompileAs("http://example.com", types.Rush)
	require.NoError(t, err)
	assert.Equal(t, types.Rush, spec.Variant())
	assert.EqualError(t, spec.Validate(), "validation: A valid pattern is required")

	_, err = CompileAs("-p 1-2:3 http://example.com", types.Sprint)
	require.Error(t, err)
	assert.Equal(t, types.KindCompile, types.KindOf(err))
}

func TestCompile_WireRoundTrip(t *testing.T) {
	spec, err := Compile("http://example.com")
	require.NoError(t, err)
	data, err := types.Encode(spec)
	require.NoError(t, err)
	assert.Equal(t, `{"steps":[{"url":"http://example.com"}]}`, string(data))
}

func TestCompile_MissingValue(t *testing.T) {
	_, err := Compile("http://example.com -H")
	assert.EqualError(t, err, "Missing value for -H")

	_, err = Compile("http://example.com --variable:x")
	assert.EqualError(t, err, "Missing value for --variable:x")
}
