package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Command is one named blitz bar command read from a command file
type Command struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Command string `json:"command" yaml:"command"`
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`
	Filter  string `json:"filter,omitempty" yaml:"filter,omitempty"`
	Query   string `json:"query,omitempty" yaml:"query,omitempty"`
}

// DetectFormat detects whether a command file is plain text, YAML or JSON
func DetectFormat(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, "---") {
		return "yaml", nil
	}
	if strings.HasPrefix(content, "[") || strings.HasPrefix(content, "{") {
		return "json", nil
	}
	return "text", nil
}

// ParseFile is the main entry point for reading commands from any supported format
func ParseFile(filePath string) ([]Command, error) {
	format, err := DetectFormat(filePath)
	if err != nil {
		return nil, err
	}

	var commands []Command
	switch format {
	case "yaml", "json":
		commands, err = parseStructured(filePath, format)
	default:
		commands, err = parseText(filePath)
	}
	if err != nil {
		return nil, err
	}

	for i := range commands {
		if commands[i].Name == "" {
			commands[i].Name = fmt.Sprintf("#%d", i+1)
		}
	}
	return commands, nil
}

func parseStructured(filePath, format string) ([]Command, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	unmarshal := yaml.Unmarshal
	if format == "json" {
		unmarshal = json.Unmarshal
	}

	// Try to unmarshal as array first
	var commands []Command
	if err := unmarshal(data, &commands); err == nil {
		return commands, nil
	}

	var single Command
	if err := unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", strings.ToUpper(format), err)
	}
	return []Command{single}, nil
}

// parseText reads a plain command file. Without ### separators every
// non-comment line is a command; with them, the lines of each section are
// joined into one command and "# @name value" annotations apply to it.
func parseText(filePath string) ([]Command, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var commands []Command
	var current *Command
	var lines []string

	flush := func() {
		if current != nil {
			current.Command = strings.TrimSpace(strings.Join(lines, " "))
			if current.Command != "" {
				commands = append(commands, *current)
			}
		}
		lines = nil
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "###") {
			flush()
			current = &Command{Name: strings.TrimSpace(strings.TrimPrefix(line, "###"))}
			continue
		}

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if current != nil {
				applyAnnotation(current, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			}
			continue
		}

		line = strings.TrimSuffix(line, "\\")
		if current == nil {
			commands = append(commands, Command{Command: strings.TrimSpace(line)})
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	flush()

	return commands, nil
}

func applyAnnotation(cmd *Command, annotation string) {
	key, value, _ := strings.Cut(annotation, " ")
	value = strings.TrimSpace(value)
	switch key {
	case "@profile":
		cmd.Profile = value
	case "@filter":
		cmd.Filter = value
	case "@query":
		cmd.Query = value
	}
}
