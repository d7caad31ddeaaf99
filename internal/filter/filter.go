// Package filter narrows and reshapes result documents with JMESPath
// expressions. A query written as $(cmd) is piped through a shell instead.
package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"
)

// ShellTimeout bounds a $(...) query
const ShellTimeout = 30 * time.Second

var shellPattern = regexp.MustCompile(`^\$\((.+)\)$`)

// Apply runs filter and then query over a JSON document and returns the
// indented JSON (or shell output) that remains. Empty expressions are skipped.
func Apply(body, filter, query string) (string, error) {
	if filter == "" && query == "" {
		return body, nil
	}

	var data any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return ApplyValue(data, filter, query)
}

// ApplyValue is Apply over an already decoded value. The value must be made of
// the generic JSON types (maps, slices, float64, string, bool, nil).
func ApplyValue(data any, filter, query string) (string, error) {
	var err error
	if filter != "" {
		if data, err = search(data, filter); err != nil {
			return "", fmt.Errorf("failed to apply filter: %w", err)
		}
	}

	if m := shellPattern.FindStringSubmatch(query); m != nil {
		input, err := json.Marshal(data)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		out, err := runShell(string(input), m[1])
		if err != nil {
			return "", fmt.Errorf("failed to execute query shell command: %w", err)
		}
		return out, nil
	}

	if query != "" {
		if data, err = search(data, query); err != nil {
			return "", fmt.Errorf("failed to apply query: %w", err)
		}
	}

	if data == nil {
		return "null", nil
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(out), nil
}

// Generic converts a typed value into the generic JSON form JMESPath walks
func Generic(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func search(data any, expression string) (any, error) {
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}
	out, err := jp.Search(data)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}
	return out, nil
}

func runShell(input, command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ShellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = strings.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := err.Error()
		if stderr.Len() > 0 {
			msg = strings.TrimSpace(stderr.String())
		}
		return "", fmt.Errorf("command '%s' failed: %s", command, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsValidJMESPath reports whether expression compiles
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}

// IsShellCommand reports whether query is a $(...) shell query
func IsShellCommand(query string) bool {
	return shellPattern.MatchString(query)
}
