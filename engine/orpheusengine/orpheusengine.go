// Package orpheusengine runs Pantheon command trees on the Orpheus CLI framework.
//
// Each GroupNode becomes an Orpheus command whose subcommands are the
// group's commands. Positional values and explicit options are read from
// the parsed FlashFlags set, so an option given with an empty value still
// counts as given. The flag set is reset after each invocation because
// Orpheus reuses it across runs. Hidden options are registered like any
// other option.
//
// FlashFlags has no optional-value flags. NormalizeArgs rewrites a bare
// "--opt" declared as "--opt [value]" to carry pantheon.OptionPresent and
// is meant to wrap the arguments given to app.Run.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package orpheusengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/pantheon"
)

// Option configures the translation.
type Option func(*settings)

type settings struct {
	ctx context.Context
}

// WithContext sets the context passed to every invocation.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		s.ctx = ctx
	}
}

// NewCommand translates group into an Orpheus command with one subcommand
// per group command.
func NewCommand(group *pantheon.GroupNode, opts ...Option) *orpheus.Command {
	s := settings{ctx: context.Background()}
	for _, opt := range opts {
		opt(&s)
	}

	root := orpheus.NewCommand(group.Name, group.Description)
	for _, node := range group.Commands {
		sub := root.Subcommand(node.Name, usage(node), handlerFor(s.ctx, node))
		for _, opt := range node.Options {
			addFlag(sub, opt)
		}
	}
	return root
}

// Mount adds one command per group to app.
func Mount(app *orpheus.App, groups []*pantheon.GroupNode, opts ...Option) {
	for _, g := range groups {
		app.AddCommand(NewCommand(g, opts...))
	}
}

// flagName returns the long name, or the short name for short-only options.
func flagName(opt pantheon.OptionDescriptor) (name, short string) {
	if opt.Long == "" {
		return opt.Short, ""
	}
	return opt.Long, opt.Short
}

func addFlag(cmd *orpheus.Command, opt pantheon.OptionDescriptor) {
	name, short := flagName(opt)
	if opt.IsBool() {
		cmd.AddBoolFlag(name, short, false, flagUsage(opt))
		return
	}
	cmd.AddFlag(name, short, "", flagUsage(opt))
}

// flagUsage appends choices and the default to the description. Defaults are
// applied by the command itself, so the Orpheus default stays empty.
func flagUsage(opt pantheon.OptionDescriptor) string {
	text := opt.Description
	if len(opt.Choices) > 0 {
		text += fmt.Sprintf(" (choices: %s)", strings.Join(opt.Choices, "|"))
	}
	if d := opt.DefaultDisplay(); d != "" {
		text += fmt.Sprintf(" (default: %s)", d)
	}
	return text
}

// usage is the subcommand description followed by its argument synopsis.
func usage(node *pantheon.CommandNode) string {
	if len(node.Arguments) == 0 {
		return node.Description
	}
	names := make([]string, len(node.Arguments))
	for i, a := range node.Arguments {
		names[i] = a.Name
	}
	return fmt.Sprintf("%s  %s", node.Description, strings.Join(names, " "))
}

func handlerFor(ctx context.Context, node *pantheon.CommandNode) func(*orpheus.Context) error {
	return func(octx *orpheus.Context) error {
		if octx.Flags != nil {
			defer octx.Flags.Reset()
		}
		args := positional(octx)

		min, max := node.Arity()
		if len(args) < min || (max >= 0 && len(args) > max) {
			return pantheon.ArityError(node, len(args))
		}

		return node.Run(&pantheon.Invocation{
			Context: ctx,
			Args:    args,
			Options: explicitOptions(octx, node),
		})
	}
}

// positional returns the non-flag values left by the flag parser, empty
// strings included.
func positional(octx *orpheus.Context) []string {
	if octx.Flags == nil {
		return nil
	}
	return append([]string(nil), octx.Flags.Args()...)
}

func explicitOptions(octx *orpheus.Context, node *pantheon.CommandNode) pantheon.Options {
	opts := pantheon.Options{}
	if octx.Flags == nil {
		return opts
	}
	for _, opt := range node.Options {
		name, _ := flagName(opt)
		if !octx.Flags.Changed(name) {
			continue
		}
		if opt.IsBool() {
			v := octx.Flags.GetBool(name)
			if opt.Negate {
				v = !v
			}
			opts[opt.Key()] = v
			continue
		}
		opts[opt.Key()] = octx.Flags.GetString(name)
	}
	return opts
}

// NormalizeArgs rewrites bare optional-value options in args to carry
// pantheon.OptionPresent. args is what app.Run receives: the group name, the command
// name, then the command line. An option is bare when it is the last token
// or the next token starts with "-". Unknown groups and commands leave args
// untouched.
func NormalizeArgs(groups []*pantheon.GroupNode, args []string) []string {
	if len(args) < 2 {
		return args
	}
	node := findCommand(groups, args[0], args[1])
	if node == nil {
		return args
	}

	out := append([]string(nil), args[:2]...)
	rest := args[2:]
	for i, token := range rest {
		if token == "--" {
			return append(out, rest[i:]...)
		}
		out = append(out, token)
		if !strings.HasPrefix(token, "-") || strings.Contains(token, "=") {
			continue
		}
		opt, ok := node.LookupFlag(strings.TrimLeft(token, "-"))
		if !ok || !opt.ValueOptional {
			continue
		}
		if i+1 == len(rest) || strings.HasPrefix(rest[i+1], "-") {
			out[len(out)-1] = token + "=" + pantheon.OptionPresent
		}
	}
	return out
}

func findCommand(groups []*pantheon.GroupNode, group, command string) *pantheon.CommandNode {
	for _, g := range groups {
		if g.Name != group {
			continue
		}
		for _, c := range g.Commands {
			if c.Name == command {
				return c
			}
		}
	}
	return nil
}
