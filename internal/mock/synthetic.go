package mock

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// synthesize builds the result reported on poll n (1-based) for a job that
// was not given canned results. Rush jobs grow one timeline point per poll,
// following the submitted ramp; sprint jobs echo every submitted step.
func synthesize(spec map[string]any, region string, created int64, n int) map[string]any {
	if pattern, ok := spec["pattern"].(map[string]any); ok {
		return rushTimeline(pattern, region, created, n)
	}
	return sprintSteps(spec, region)
}

func rushTimeline(pattern map[string]any, region string, created int64, n int) map[string]any {
	intervals, _ := pattern["intervals"].([]any)
	timeline := make([]any, 0, n)
	var total float64
	for i := 0; i < n; i++ {
		volume := volumeAt(intervals, float64(i))
		total += volume
		errors := float64(int(volume) / 50)
		timeline = append(timeline, map[string]any{
			"timestamp": created + int64(i),
			"duration":  0.1 + volume/1000,
			"total":     total,
			"executed":  total - errors,
			"errors":    errors,
			"timeouts":  0,
			"volume":    volume,
			"txBytes":   total * 120,
			"rxBytes":   total * 1024,
			"steps": []any{
				map[string]any{"d": 0.1 + volume/1000, "c": 0.01, "e": errors, "t": 0, "a": 0},
			},
		})
	}
	return map[string]any{"region": region, "timeline": timeline}
}

// volumeAt interpolates the concurrency at second t of the ramp
func volumeAt(intervals []any, t float64) float64 {
	var last float64
	for _, raw := range intervals {
		iv, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		start, end, dur := toFloat(iv["start"]), toFloat(iv["end"]), toFloat(iv["duration"])
		last = end
		if dur <= 0 {
			continue
		}
		if t < dur {
			return start + (end-start)*t/dur
		}
		t -= dur
	}
	return last
}

func sprintSteps(spec map[string]any, region string) map[string]any {
	raw, _ := spec["steps"].([]any)
	steps := make([]any, 0, len(raw))
	for _, s := range raw {
		step, ok := s.(map[string]any)
		if !ok {
			continue
		}
		method, _ := step["request"].(string)
		if method == "" {
			method = http.MethodGet
		}
		target, _ := step["url"].(string)
		path := "/"
		if u, err := url.Parse(target); err == nil && u.RequestURI() != "" {
			path = u.RequestURI()
		}

		reqHeaders := map[string]any{}
		if hs, ok := step["headers"].([]any); ok {
			for _, h := range hs {
				if line, ok := h.(string); ok {
					name, value, _ := strings.Cut(line, ":")
					reqHeaders[strings.TrimSpace(name)] = strings.TrimSpace(value)
				}
			}
		}
		if ua, ok := step["user_agent"].(string); ok {
			reqHeaders["User-Agent"] = ua
		}

		status := http.StatusOK
		if want, ok := step["status"]; ok {
			status = int(toFloat(want))
		}

		steps = append(steps, map[string]any{
			"duration": 0.12,
			"connect":  0.02,
			"request": map[string]any{
				"line":    method + " " + path + " HTTP/1.1",
				"method":  method,
				"url":     target,
				"headers": reqHeaders,
				"content": "",
			},
			"response": map[string]any{
				"line":    "HTTP/1.1 " + strconv.Itoa(status) + " " + http.StatusText(status),
				"status":  status,
				"message": http.StatusText(status),
				"headers": map[string]any{"Content-Type": "text/html"},
				"content": "",
			},
		})
	}
	return map[string]any{"region": region, "duration": 0.12 * float64(len(steps)), "steps": steps}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
