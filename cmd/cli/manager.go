// Package cli provides the pantheon command-line tool.
//
// The tool is itself declared with pantheon: each command group is a Go type
// embedding pantheon.GroupBase, its commands are methods, and the resulting
// trees are mounted on an Orpheus application.
//
// Groups:
//   - config: read, write and convert JSON or YAML configuration files
//   - audit:  inspect, flush and prune the audit trail
//   - tree:   show the command trees and their mixins
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/pantheon"
	"github.com/agilira/pantheon/engine/orpheusengine"
	"github.com/charmbracelet/log"
)

// Version is reported by the version command and the Orpheus application.
const Version = "1.0.0"

// Manager owns the registry, the built command trees and the Orpheus app.
type Manager struct {
	app      *orpheus.App
	registry *pantheon.Registry
	logger   *log.Logger
	out      io.Writer

	config *ConfigCommands
	audit  *AuditCommands
	tree   *TreeCommands
	groups []*pantheon.GroupNode
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOutput redirects command output, which goes to stdout by default.
func WithOutput(w io.Writer) ManagerOption {
	return func(m *Manager) {
		m.out = w
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager declares the CLI groups in reg, builds their trees and mounts
// them on an Orpheus app. reg must not hold the CLI groups already.
func NewManager(ctx context.Context, reg *pantheon.Registry, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		registry: reg,
		out:      os.Stdout,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix:          "pantheon",
			ReportTimestamp: false,
		}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.app = orpheus.New("pantheon").
		SetDescription("Declarative command groups, inspected and exercised").
		SetVersion(Version)

	about := &About{out: m.out}
	m.config = &ConfigCommands{manager: m}
	m.audit = &AuditCommands{manager: m}
	m.tree = &TreeCommands{manager: m, about: about}

	declare(reg, m.logger)

	config, err := pantheon.ToCommand(reg, m.config)
	if err != nil {
		return nil, err
	}
	audit, err := pantheon.ToCommand(reg, m.audit)
	if err != nil {
		return nil, err
	}
	tree, err := pantheon.ToCommand(reg, m.tree)
	if err != nil {
		return nil, err
	}
	m.groups = []*pantheon.GroupNode{config, audit, tree}

	orpheusengine.Mount(m.app, m.groups, orpheusengine.WithContext(ctx))
	return m, nil
}

// Run executes the CLI with args, excluding the program name.
func (m *Manager) Run(args []string) error {
	return m.app.Run(orpheusengine.NormalizeArgs(m.groups, args))
}

// Groups returns the built command trees.
func (m *Manager) Groups() []*pantheon.GroupNode {
	return m.groups
}

// Close flushes and releases the registry.
func (m *Manager) Close() error {
	return m.registry.Close()
}

// declare registers the three CLI groups and the About component.
func declare(reg *pantheon.Registry, logger *log.Logger) {
	logged := logMiddleware(logger)

	aboutDef := pantheon.Define[*About](reg)
	aboutDef.Command("Version", (*About).Version, "", "Print the version")

	config := pantheon.NewGroup[*ConfigCommands](reg, "config", "Read, write and convert configuration files").
		Use("log", logged)
	config.Command("Get", (*ConfigCommands).Get, "", "Print the value at a dotted key").
		Argument("<file>", "Configuration file", pantheon.ArgumentConfig{}).
		Argument("<key>", "Dotted key, e.g. server.port", pantheon.ArgumentConfig{}).
		Option(formatFlag, "File format", formatOption).
		Env("PANTHEON_CONFIG_FORMAT", pantheon.MapTo("format"))
	config.Command("Set", (*ConfigCommands).Set, "", "Set the value at a dotted key").
		Argument("<file>", "Configuration file", pantheon.ArgumentConfig{}).
		Argument("<key>", "Dotted key", pantheon.ArgumentConfig{}).
		Argument("<value>", "New value, typed as bool, int, float or string", pantheon.ArgumentConfig{}).
		Option(formatFlag, "File format", formatOption).
		Env("PANTHEON_CONFIG_FORMAT", pantheon.MapTo("format"))
	config.Command("List", (*ConfigCommands).List, "", "List keys and values").
		Argument("<file>", "Configuration file", pantheon.ArgumentConfig{}).
		Option("-p, --prefix <prefix>", "Only keys starting with prefix", pantheon.OptionConfig{}).
		Option(formatFlag, "File format", formatOption).
		Env("PANTHEON_CONFIG_FORMAT", pantheon.MapTo("format"))
	config.Command("Convert", (*ConfigCommands).Convert, "", "Convert between JSON and YAML").
		Argument("<input>", "Source file", pantheon.ArgumentConfig{}).
		Argument("<output>", "Destination file", pantheon.ArgumentConfig{}).
		Option("--from <format>", "Input format", formatOption).
		Option("--to <format>", "Output format", formatOption)
	config.Command("Init", (*ConfigCommands).Init, "", "Create a configuration file from a template").
		Argument("<file>", "File to create", pantheon.ArgumentConfig{}).
		Argument("[template]", "Template name", pantheon.ArgumentConfig{
			DefaultValue: "default",
			ValidValues:  templateNames,
		}).
		Option(formatFlag, "File format", formatOption)

	audit := pantheon.NewGroup[*AuditCommands](reg, "audit", "Inspect the audit trail").
		Use("log", logged)
	audit.Command("Stats", (*AuditCommands).Stats, "", "Print audit statistics").
		Option("-o, --output <format>", "Output format", pantheon.OptionConfig{
			DefaultValue: "text",
			ValidValues:  []string{"text", "json", "yaml"},
		})
	audit.Command("Flush", (*AuditCommands).Flush, "", "Write buffered audit events")
	audit.Command("Maintenance", (*AuditCommands).Maintenance, "", "Drop expired audit events")

	tree := pantheon.NewGroup[*TreeCommands](reg, "tree", "Show command trees").
		Use("log", logged)
	tree.Command("Show", (*TreeCommands).Show, "", "Print groups, commands, options and arguments").
		Argument("[group]", "Only this group", pantheon.ArgumentConfig{}).
		Option("--hidden", "Include hidden options", pantheon.OptionConfig{})
	tree.Command("Mixins", (*TreeCommands).Mixins, "", "Print the providers mixed into a group").
		Argument("<group>", "Group name", pantheon.ArgumentConfig{})
	tree.Mixin(pantheon.From(aboutDef, func(t *TreeCommands) *About { return t.about }))
}

const formatFlag = "-f, --format <format>"

var formatOption = pantheon.OptionConfig{
	DefaultValue: "auto",
	ValidValues:  []string{"auto", "json", "yaml"},
}

// logMiddleware logs each command at debug level.
func logMiddleware(logger *log.Logger) pantheon.Middleware {
	return func(next pantheon.Handler) pantheon.Handler {
		return func(inv *pantheon.Invocation) error {
			start := time.Now()
			err := next(inv)
			if err != nil {
				logger.Error("command failed", "group", inv.Command.Group, "command", inv.Command.Name, "err", err)
				return err
			}
			logger.Debug("command completed", "group", inv.Command.Group, "command", inv.Command.Name,
				"elapsed", time.Since(start))
			return nil
		}
	}
}
