// Command implementations for the pantheon CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/agilira/pantheon"
	"go.yaml.in/yaml/v3"
)

// Error codes for CLI operations
const (
	ErrCodeIOError       = "PANTHEON_CLI_IO_ERROR"
	ErrCodeInvalidConfig = "PANTHEON_CLI_INVALID_CONFIG"
	ErrCodeKeyNotFound   = "PANTHEON_CLI_KEY_NOT_FOUND"
	ErrCodeAuditDisabled = "PANTHEON_CLI_AUDIT_DISABLED"
	ErrCodeUnknownGroup  = "PANTHEON_CLI_UNKNOWN_GROUP"
)

// ConfigCommands is the "config" group.
type ConfigCommands struct {
	pantheon.GroupBase
	manager *Manager
}

// Get prints the value stored at a dotted key.
func (c *ConfigCommands) Get(inv *pantheon.Invocation) error {
	file, key := inv.Arg("file"), inv.Arg("key")

	format := detectFormat(file, inv.Options.String("format"))
	config, err := loadConfig(file, format)
	if err != nil {
		return err
	}

	value, ok := getValue(config, key)
	if !ok {
		return errors.New(ErrCodeKeyNotFound, fmt.Sprintf("key '%s' not found", key)).
			WithContext("file", file)
	}
	_, err = fmt.Fprintf(c.manager.out, "%v\n", value)
	return err
}

// Set stores a value at a dotted key and rewrites the file.
func (c *ConfigCommands) Set(inv *pantheon.Invocation) error {
	file, key, raw := inv.Arg("file"), inv.Arg("key"), inv.Arg("value")

	format := detectFormat(file, inv.Options.String("format"))
	config, err := loadConfig(file, format)
	if err != nil {
		return err
	}

	if err := setValue(config, key, parseValue(raw)); err != nil {
		return err
	}
	if err := writeConfig(file, format, config); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.manager.out, "%s = %v\n", key, parseValue(raw))
	return err
}

// List prints every leaf key with its value, sorted by key.
func (c *ConfigCommands) List(inv *pantheon.Invocation) error {
	file := inv.Arg("file")
	prefix := inv.Options.String("prefix")

	format := detectFormat(file, inv.Options.String("format"))
	config, err := loadConfig(file, format)
	if err != nil {
		return err
	}

	flat := make(map[string]interface{})
	flatten("", config, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		if prefix != "" {
			_, err = fmt.Fprintf(c.manager.out, "No keys found with prefix '%s'\n", prefix)
			return err
		}
		_, err = fmt.Fprintln(c.manager.out, "No configuration keys found")
		return err
	}

	for _, k := range keys {
		if _, err := fmt.Fprintf(c.manager.out, "%s = %v\n", k, flat[k]); err != nil {
			return err
		}
	}
	return nil
}

// Convert reads input in one format and writes output in another.
func (c *ConfigCommands) Convert(inv *pantheon.Invocation) error {
	input, output := inv.Arg("input"), inv.Arg("output")
	from := detectFormat(input, inv.Options.String("from"))
	to := detectFormat(output, inv.Options.String("to"))

	config, err := loadConfig(input, from)
	if err != nil {
		return err
	}
	if err := writeConfig(output, to, config); err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.manager.out, "Converted %s (%s) -> %s (%s)\n", input, from, output, to)
	return err
}

// Init writes a template to a new file. Existing files are never replaced.
func (c *ConfigCommands) Init(inv *pantheon.Invocation) error {
	file, template := inv.Arg("file"), inv.Arg("template")

	format := detectFormat(file, inv.Options.String("format"))
	if format == formatUnknown {
		format = formatJSON
	}

	if _, err := os.Stat(file); err == nil {
		return errors.New(ErrCodeIOError, fmt.Sprintf("file already exists: %s", file))
	}

	if err := writeConfig(file, format, generateTemplate(template)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.manager.out, "Created %s configuration: %s (template: %s)\n", format, file, template)
	return err
}

// AuditCommands is the "audit" group.
type AuditCommands struct {
	pantheon.GroupBase
	manager *Manager
}

// Stats prints audit backend statistics.
func (a *AuditCommands) Stats(inv *pantheon.Invocation) error {
	al := a.manager.registry.Audit()
	if al == nil {
		return errors.New(ErrCodeAuditDisabled, "audit trail is disabled, set PANTHEON_AUDIT_ENABLED=true")
	}

	stats, err := al.Stats()
	if err != nil {
		return err
	}

	out := a.manager.out
	switch inv.Options.String("output") {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(stats)
	}

	fmt.Fprintf(out, "Backend:        %s\n", stats.Backend)
	fmt.Fprintf(out, "Schema version: %d\n", stats.SchemaVersion)
	fmt.Fprintf(out, "Total events:   %d\n", stats.TotalEvents)
	printCounts(out, "By event", stats.EventsByName)
	printCounts(out, "By level", stats.EventsByLevel)
	printCounts(out, "By group", stats.EventsByGroup)
	return nil
}

// Flush writes buffered audit events to the backend.
func (a *AuditCommands) Flush(inv *pantheon.Invocation) error {
	al := a.manager.registry.Audit()
	if al == nil {
		return errors.New(ErrCodeAuditDisabled, "audit trail is disabled, set PANTHEON_AUDIT_ENABLED=true")
	}
	if err := al.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.manager.out, "Audit trail flushed")
	return err
}

// Maintenance runs backend housekeeping on the audit trail.
func (a *AuditCommands) Maintenance(inv *pantheon.Invocation) error {
	al := a.manager.registry.Audit()
	if al == nil {
		return errors.New(ErrCodeAuditDisabled, "audit trail is disabled, set PANTHEON_AUDIT_ENABLED=true")
	}
	if err := al.Maintenance(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.manager.out, "Audit maintenance complete")
	return err
}

func printCounts(out io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s %d\n", k, counts[k])
	}
}

// TreeCommands is the "tree" group. It also carries the About commands.
type TreeCommands struct {
	pantheon.GroupBase
	manager *Manager
	about   *About
}

// Show prints the built trees.
func (t *TreeCommands) Show(inv *pantheon.Invocation) error {
	only := inv.Arg("group")
	hidden := inv.Options.Bool("hidden")
	out := t.manager.out

	found := false
	for _, g := range t.manager.groups {
		if only != "" && g.Name != only {
			continue
		}
		found = true

		fmt.Fprintf(out, "%s  %s\n", g.Name, g.Description)
		for _, c := range g.Commands {
			fmt.Fprintf(out, "  %s", c.Name)
			for _, a := range c.Arguments {
				fmt.Fprintf(out, " %s", a.Name)
			}
			fmt.Fprintf(out, "  %s\n", c.Description)

			for _, o := range c.Options {
				if o.Hidden && !hidden {
					continue
				}
				line := fmt.Sprintf("    %s  %s", o.Flags, o.Description)
				if d := o.DefaultDisplay(); d != "" {
					line += fmt.Sprintf(" (default: %s)", d)
				}
				fmt.Fprintln(out, line)
			}
			for _, e := range c.Env {
				fmt.Fprintf(out, "    $%s -> %s\n", e.Variable, e.Key)
			}
		}
	}

	if !found {
		return errors.New(ErrCodeUnknownGroup, fmt.Sprintf("unknown group '%s'", only))
	}
	return nil
}

// Mixins prints the providers recorded for a group.
func (t *TreeCommands) Mixins(inv *pantheon.Invocation) error {
	name := inv.Arg("group")
	for _, g := range t.manager.groups {
		if g.Name != name {
			continue
		}
		for _, m := range pantheon.Mixins(t.manager.registry, g.Target) {
			if _, err := fmt.Fprintln(t.manager.out, m); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.New(ErrCodeUnknownGroup, fmt.Sprintf("unknown group '%s'", name))
}

// About holds commands shared with other groups through a mixin.
type About struct {
	out io.Writer
}

// Version prints the tool version.
func (a *About) Version(inv *pantheon.Invocation) error {
	_, err := fmt.Fprintf(a.out, "pantheon %s\n", Version)
	return err
}
