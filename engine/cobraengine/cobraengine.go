// Package cobraengine runs Pantheon command trees on spf13/cobra.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cobraengine

import (
	"fmt"
	"strings"

	"github.com/agilira/pantheon"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewCommand translates group into a cobra command with one subcommand per
// group command. Explicit flags are detected with pflag's Changed, so an
// option given with an empty value still counts as given.
func NewCommand(group *pantheon.GroupNode) *cobra.Command {
	root := &cobra.Command{
		Use:   group.Name,
		Short: group.Description,
	}
	for _, node := range group.Commands {
		root.AddCommand(newLeaf(node))
	}
	return root
}

// AddGroups adds one command per group to parent.
func AddGroups(parent *cobra.Command, groups ...*pantheon.GroupNode) {
	for _, g := range groups {
		parent.AddCommand(NewCommand(g))
	}
}

func newLeaf(node *pantheon.CommandNode) *cobra.Command {
	cmd := &cobra.Command{
		Use:               buildUse(node),
		Short:             node.Description,
		Args:              buildArgsValidator(node),
		ValidArgsFunction: completeArguments(node),
		RunE: func(cmd *cobra.Command, args []string) error {
			return node.Run(&pantheon.Invocation{
				Context: cmd.Context(),
				Args:    args,
				Options: explicitOptions(cmd.Flags(), node),
			})
		},
	}

	for _, opt := range node.Options {
		name, short := flagName(opt)
		if opt.IsBool() {
			cmd.Flags().BoolP(name, short, false, opt.Description)
		} else {
			cmd.Flags().StringP(name, short, "", flagUsage(opt))
			if opt.ValueOptional {
				cmd.Flags().Lookup(name).NoOptDefVal = pantheon.OptionPresent
			}
		}
		if opt.Hidden {
			_ = cmd.Flags().MarkHidden(name)
		}
		if len(opt.Choices) > 0 {
			choices := opt.Choices
			_ = cmd.RegisterFlagCompletionFunc(name, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
				return choices, cobra.ShellCompDirectiveNoFileComp
			})
		}
	}
	return cmd
}

// flagName returns the pflag name and shorthand. A short-only option uses
// its letter for both so that -a and --a work.
func flagName(opt pantheon.OptionDescriptor) (name, short string) {
	if opt.Long == "" {
		return opt.Short, opt.Short
	}
	return opt.Long, opt.Short
}

func flagUsage(opt pantheon.OptionDescriptor) string {
	text := opt.Description
	if len(opt.Choices) > 0 {
		text += fmt.Sprintf(" (%s)", strings.Join(opt.Choices, "|"))
	}
	if d := opt.DefaultDisplay(); d != "" {
		text += fmt.Sprintf(" (default %s)", d)
	}
	return text
}

// buildUse renders "name <required> [optional] [rest...]".
func buildUse(node *pantheon.CommandNode) string {
	parts := []string{node.Name}
	for _, a := range node.Arguments {
		name := a.Key()
		if a.Variadic {
			name += "..."
		}
		if a.Required {
			parts = append(parts, "<"+name+">")
		} else {
			parts = append(parts, "["+name+"]")
		}
	}
	return strings.Join(parts, " ")
}

func buildArgsValidator(node *pantheon.CommandNode) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		min, max := node.Arity()
		if len(args) < min || (max >= 0 && len(args) > max) {
			return pantheon.ArityError(node, len(args))
		}
		return nil
	}
}

// completeArguments offers the choices of the argument at the cursor.
func completeArguments(node *pantheon.CommandNode) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		pos := len(args)
		for i, a := range node.Arguments {
			if i == pos || (a.Variadic && pos >= i) {
				if len(a.Choices) == 0 {
					return nil, cobra.ShellCompDirectiveDefault
				}
				var out []string
				for _, c := range a.Choices {
					if strings.HasPrefix(c, toComplete) {
						out = append(out, c)
					}
				}
				return out, cobra.ShellCompDirectiveNoFileComp
			}
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

func explicitOptions(flags *pflag.FlagSet, node *pantheon.CommandNode) pantheon.Options {
	opts := pantheon.Options{}
	for _, opt := range node.Options {
		name, _ := flagName(opt)
		if !flags.Changed(name) {
			continue
		}
		if opt.IsBool() {
			v, _ := flags.GetBool(name)
			if opt.Negate {
				v = !v
			}
			opts[opt.Key()] = v
			continue
		}
		v, _ := flags.GetString(name)
		opts[opt.Key()] = v
	}
	return opts
}
