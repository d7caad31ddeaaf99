package result

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/studiowebux/blitzbar/internal/types"
)

// Decode maps the raw "result" object of a status response into the typed
// result for the variant. Missing fields are left unset; only a container of
// the wrong shape is an error. raw is not modified.
func Decode(raw map[string]any, v types.Variant) (Result, error) {
	switch v {
	case types.Rush:
		return decodeRush(raw)
	case types.Sprint:
		return decodeSprint(raw)
	}
	return nil, fmt.Errorf("unknown variant: %s", v)
}

func decodeRush(raw map[string]any) (*RushResult, error) {
	res := &RushResult{Region: str(raw["region"]), Timeline: []Point{}}

	items, err := list(raw, "timeline")
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("timeline[%d]: expected object, got %T", i, item)
		}
		point, err := decodePoint(obj)
		if err != nil {
			return nil, fmt.Errorf("timeline[%d]: %w", i, err)
		}
		res.Timeline = append(res.Timeline, point)
	}
	return res, nil
}

func decodePoint(obj map[string]any) (Point, error) {
	p := Point{
		Duration: num(obj["duration"]),
		Total:    num(obj["total"]),
		Hits:     num(obj["executed"]),
		Errors:   num(obj["errors"]),
		Timeouts: num(obj["timeouts"]),
		Volume:   num(obj["volume"]),
		TxBytes:  num(obj["txBytes"]),
		RxBytes:  num(obj["rxBytes"]),
		Steps:    []PointStep{},
	}
	if ts, ok := optNum(obj["timestamp"]); ok {
		t := time.Unix(int64(ts), 0)
		p.Timestamp = &t
	}

	steps, err := list(obj, "steps")
	if err != nil {
		return p, err
	}
	for i, s := range steps {
		so, ok := s.(map[string]any)
		if !ok {
			return p, fmt.Errorf("steps[%d]: expected object, got %T", i, s)
		}
		p.Steps = append(p.Steps, PointStep{
			Duration: num(so["d"]),
			Connect:  num(so["c"]),
			Errors:   num(so["e"]),
			Timeouts: num(so["t"]),
			Asserts:  num(so["a"]),
		})
	}
	return p, nil
}

func decodeSprint(raw map[string]any) (*SprintResult, error) {
	res := &SprintResult{Region: str(raw["region"]), Steps: []SprintStep{}}
	if d, ok := optNum(raw["duration"]); ok {
		res.Duration = &d
	}

	items, err := list(raw, "steps")
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("steps[%d]: expected object, got %T", i, item)
		}
		step, err := decodeSprintStep(obj)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		res.Steps = append(res.Steps, step)
	}
	return res, nil
}

func decodeSprintStep(obj map[string]any) (SprintStep, error) {
	var step SprintStep
	if d, ok := optNum(obj["duration"]); ok {
		step.Duration = &d
	}
	if c, ok := optNum(obj["connect"]); ok {
		step.Connect = &c
	}

	req, err := object(obj, "request")
	if err != nil {
		return step, err
	}
	if req != nil {
		step.Request = &Request{
			Line:    str(req["line"]),
			Method:  str(req["method"]),
			URL:     str(req["url"]),
			Headers: headers(req["headers"]),
			Body:    str(req["content"]),
		}
	}

	resp, err := object(obj, "response")
	if err != nil {
		return step, err
	}
	if resp != nil {
		step.Response = &Response{
			Line:    str(resp["line"]),
			Message: str(resp["message"]),
			Headers: headers(resp["headers"]),
			Body:    str(resp["content"]),
		}
		if s, ok := optNum(resp["status"]); ok {
			code := int(s)
			step.Response.Status = &code
		}
	}
	return step, nil
}

// list returns obj[key] as an array; absent or null yields nil
func list(obj map[string]any, key string) ([]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected array, got %T", key, v)
	}
	return items, nil
}

// object returns obj[key] as an object; absent or null yields nil
func object(obj map[string]any, key string) (map[string]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %T", key, v)
	}
	return m, nil
}

func num(v any) float64 {
	f, _ := optNum(v)
	return f
}

// optNum normalizes every numeric representation the JSON layer can produce
func optNum(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return fmt.Sprint(v)
}

// headers flattens a header object; multi-valued headers are joined with ", "
func headers(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if vals, ok := val.([]any); ok {
			parts := make([]string, 0, len(vals))
			for _, p := range vals {
				parts = append(parts, str(p))
			}
			out[k] = strings.Join(parts, ", ")
			continue
		}
		out[k] = str(val)
	}
	return out
}

// HeaderNames returns the header names in sorted order
func HeaderNames(h map[string]string) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
