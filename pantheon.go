// pantheon: Declarative command groups assembled into runnable command trees
//
// Philosophy:
// - Metadata is declared once, at registration time, and read many times
// - Capability by composition: groups embed GroupBase, nothing is inherited
// - The command engine is a collaborator, never a dependency of the core
// - Configuration mistakes fail at build time, not at invocation time
//
// Example Usage:
//   reg := pantheon.NewRegistry()
//
//   files := pantheon.NewGroup[*Files](reg, "files", "File operations")
//   files.Command("List", (*Files).List, "", "List a directory").
//       Option("-a, --all", "Include hidden entries", pantheon.OptionConfig{}).
//       Argument("[dir]", "Directory to list", pantheon.ArgumentConfig{DefaultValue: "."})
//
//   group, err := pantheon.ToCommand(reg, &Files{})
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"context"
	"fmt"
	"strings"
)

// Error codes for Pantheon operations
const (
	ErrCodeMissingGroup      = "PANTHEON_MISSING_GROUP"
	ErrCodeMissingCommands   = "PANTHEON_MISSING_COMMANDS"
	ErrCodeInvalidDefinition = "PANTHEON_INVALID_DEFINITION"
	ErrCodeInvalidChoice     = "PANTHEON_INVALID_CHOICE"
	ErrCodeEnvNormalize      = "PANTHEON_ENV_NORMALIZE"
	ErrCodeArity             = "PANTHEON_ARITY"
	ErrCodeUsage             = "PANTHEON_USAGE"
	ErrCodeInvalidManifest   = "PANTHEON_INVALID_MANIFEST"
	ErrCodeInvalidSettings   = "PANTHEON_INVALID_SETTINGS"
	ErrCodeAudit             = "PANTHEON_AUDIT_ERROR"
)

// Handler executes a command against a resolved invocation.
type Handler func(inv *Invocation) error

// Middleware wraps a Handler. Middleware is composed at registration time,
// the first registered middleware runs first.
type Middleware func(next Handler) Handler

// Chain composes middleware around h so that mws[0] is the outermost wrapper.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// Options holds option values keyed by their attribute name (see OptionDescriptor.Key).
// A key is present only when a value was supplied explicitly, injected by an
// environment binding, or filled from a descriptor default.
type Options map[string]any

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the value for key formatted as a string, or "" when absent.
func (o Options) String(key string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the value for key as a boolean. String values "true", "1",
// "yes" and "on" are considered true.
func (o Options) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		return parseBool(v)
	default:
		return false
	}
}

// Invocation carries everything a command handler receives. It replaces the
// positional calling convention of dynamic command engines with an explicit,
// typed argument list.
type Invocation struct {
	Context context.Context
	Command *CommandNode

	// Args holds positional values in argument declaration order. Engines fill
	// the raw values; defaults are applied before the bound method runs.
	Args []string

	// Rest holds the values captured by a trailing variadic argument.
	Rest []string

	Options Options

	// Env is the environment source consulted by environment bindings.
	// When nil the registry's environment is used.
	Env Environment

	audit *AuditLogger
}

// Arg returns the positional value declared under key, or "" when absent.
func (inv *Invocation) Arg(key string) string {
	if inv.Command == nil {
		return ""
	}
	for i, arg := range inv.Command.Arguments {
		if arg.Key() == key && i < len(inv.Args) {
			return inv.Args[i]
		}
	}
	return ""
}

// Ctx returns the invocation context, or context.Background when none was set.
func (inv *Invocation) Ctx() context.Context {
	if inv.Context == nil {
		return context.Background()
	}
	return inv.Context
}

// parseBool parses boolean values from environment variables and flags
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}
