// Utility functions for the pantheon CLI
//
// Format detection, configuration loading and writing, dotted key access
// and file templates.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// configFormat is a supported configuration file format.
type configFormat string

const (
	formatUnknown configFormat = "unknown"
	formatJSON    configFormat = "json"
	formatYAML    configFormat = "yaml"
)

// detectFormat returns the explicit format unless it is empty or "auto", in
// which case the file extension decides.
func detectFormat(filePath, explicit string) configFormat {
	switch strings.ToLower(explicit) {
	case "json":
		return formatJSON
	case "yaml", "yml":
		return formatYAML
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return formatJSON
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatUnknown
	}
}

// loadConfig reads a configuration file. JSON is decoded with the YAML
// decoder, which accepts it as a subset.
func loadConfig(filePath string, format configFormat) (map[string]interface{}, error) {
	if format == formatUnknown {
		return nil, errors.New(ErrCodeInvalidConfig,
			fmt.Sprintf("cannot detect the format of %s, use --format", filePath))
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(ErrCodeIOError, fmt.Sprintf("configuration file does not exist: %s", filePath))
		}
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to read configuration").
			WithContext("file", filePath)
	}

	config := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, fmt.Sprintf("failed to parse %s", format)).
			WithContext("file", filePath)
	}
	return config, nil
}

// writeConfig encodes config in format and writes it to filePath.
func writeConfig(filePath string, format configFormat, config map[string]interface{}) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case formatJSON:
		data, err = json.MarshalIndent(config, "", "  ")
		data = append(data, '\n')
	case formatYAML:
		data, err = yaml.Marshal(config)
	default:
		return errors.New(ErrCodeInvalidConfig, fmt.Sprintf("unsupported output format for %s", filePath))
	}
	if err != nil {
		return errors.Wrap(err, ErrCodeInvalidConfig, "failed to encode configuration")
	}

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.Wrap(err, ErrCodeIOError, "failed to create directory")
		}
	}
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to write configuration").
			WithContext("file", filePath)
	}
	return nil
}

// getValue resolves a dotted key such as "server.port".
func getValue(config map[string]interface{}, key string) (interface{}, bool) {
	var current interface{} = config
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// setValue stores value at a dotted key, creating intermediate maps.
func setValue(config map[string]interface{}, key string, value interface{}) error {
	parts := strings.Split(key, ".")
	current := config
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			child := make(map[string]interface{})
			current[part] = child
			current = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return errors.New(ErrCodeInvalidConfig,
				fmt.Sprintf("cannot set '%s': '%s' is not a section", key, part))
		}
		current = child
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// flatten writes every leaf of config into out under its dotted key.
func flatten(prefix string, config map[string]interface{}, out map[string]interface{}) {
	for k, v := range config {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]interface{}); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

// parseValue types a command-line value as bool, int, float or string.
// Only "true" and "false" are booleans, so "0" and "1" stay integers.
func parseValue(value string) interface{} {
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return lower == "true"
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

var templateNames = []string{"default", "server", "minimal"}

// generateTemplate returns the content of a named template.
func generateTemplate(name string) map[string]interface{} {
	switch name {
	case "server":
		return map[string]interface{}{
			"server": map[string]interface{}{
				"host":    "0.0.0.0",
				"port":    8080,
				"timeout": "30s",
			},
			"logging": map[string]interface{}{
				"level":  "info",
				"format": "json",
			},
		}
	case "minimal":
		return map[string]interface{}{
			"app_name": "my-application",
			"version":  "1.0.0",
		}
	default:
		return map[string]interface{}{
			"app": map[string]interface{}{
				"name":        "pantheon-app",
				"environment": "development",
			},
			"audit": map[string]interface{}{
				"enabled":     false,
				"output_file": "audit.db",
			},
		}
	}
}
