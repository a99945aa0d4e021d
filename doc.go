// Package pantheon builds command-line interfaces from declarations.
//
// A Go type represents a group of related commands and its methods
// implement the commands. Markers attach names, descriptions, options,
// positional arguments and environment bindings to the type. The
// declarations are stored in a Registry and assembled on demand into a
// command tree that a command engine (Orpheus, cobra, FlashFlags) executes.
//
// # Declaring a group
//
//	type Files struct {
//		pantheon.GroupBase
//	}
//
//	func (f *Files) List(inv *pantheon.Invocation) error {
//		dir := inv.Arg("dir")
//		all := inv.Options.Bool("all")
//		...
//	}
//
//	reg := pantheon.NewRegistry()
//	files := pantheon.NewGroup[*Files](reg, "", "File operations")
//	files.Command("List", (*Files).List, "", "List a directory").
//		Argument("[dir]", "Directory", pantheon.ArgumentConfig{DefaultValue: "."}).
//		Option("-a, --all", "Include hidden entries", pantheon.OptionConfig{}).
//		Env("FILES_ALL", pantheon.MapTo("all"))
//
// Canonical names are kebab-cased: the group above is "files" and its command
// is "list". Arguments and options keep their declaration order.
//
// # Building the tree
//
//	group, err := pantheon.ToCommand(reg, &Files{})
//
// ToCommand fails with ErrCodeMissingGroup when the type has no group marker
// and with ErrCodeMissingCommands when it declares no command. The tree is
// cached on the instance through its embedded GroupBase; pass Force() to
// rebuild it.
//
// # Value precedence
//
// An option value given on the command line wins over an environment
// binding, which wins over the declared default. Environment bindings read
// the Registry environment (the process environment unless WithEnvironment
// or Settings.EnvFiles say otherwise).
//
// # Composition
//
// Commands declared on one type can be shared with another through a
// provider:
//
//	group.Mixin(pantheon.From(aboutDef, func(t *Tools) *About { return t.about }))
//
// Contributed commands never replace commands the receiving group declares
// itself. The providers of a group are listed by Mixins.
//
// # Engines
//
// Package engine/orpheusengine mounts trees on an orpheus.App, package
// engine/cobraengine turns them into cobra commands, and RunFlat runs a
// single command with a FlashFlags flag set.
//
// # Audit trail
//
// A Registry created with WithAuditLogger, or from Settings with auditing
// enabled, records tree builds, mixins, command outcomes and environment
// fallbacks to SQLite or JSON lines.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package pantheon
