package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/studiowebux/blitzbar/internal/filter"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// writeReport prints rep to w. A filter or query always produces JSON,
// since it selects from the JSON form of the report.
func (a *App) writeReport(w io.Writer, rep *Report, format, filterExpr, queryExpr string) error {
	if filterExpr != "" || queryExpr != "" {
		data, err := filter.Generic(rep)
		if err != nil {
			return fmt.Errorf("failed to prepare report: %w", err)
		}
		out, err := filter.ApplyValue(data, filterExpr, queryExpr)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	}

	out, err := formatValue(rep, format, func() string {
		return Renderer{Color: a.Color}.Report(rep)
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// formatValue renders v as json or yaml, or through text for the text format
func formatValue(v any, format string, text func() string) (string, error) {
	switch format {
	case OutputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case OutputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case OutputText, "":
		return text(), nil
	}
	return "", fmt.Errorf("unknown output format %q (expected text, json or yaml)", format)
}
