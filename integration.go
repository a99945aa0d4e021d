// integration.go: Running a single command with FlashFlags
//
// RunFlat is the engine for tools that expose one command without a
// subcommand level, e.g. a group with a single command wired to main.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"context"
	"fmt"
	"strings"

	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// RunFlat parses args for node with a FlashFlags flag set and runs it.
// -h and --help print the flag set help and return without running the
// command. A "--" token ends option parsing.
func RunFlat(ctx context.Context, node *CommandNode, args []string) error {
	fs := newFlatFlagSet(node)

	parsed, err := splitFlat(node, args)
	if err != nil {
		return err
	}
	if parsed.help {
		fs.PrintHelp()
		return nil
	}

	if err := fs.Parse(parsed.flags); err != nil {
		return errors.Wrap(err, ErrCodeUsage, "failed to parse command-line flags").
			WithContext("command", node.Name)
	}

	min, max := node.Arity()
	if len(parsed.positional) < min || (max >= 0 && len(parsed.positional) > max) {
		return ArityError(node, len(parsed.positional))
	}

	opts := Options{}
	for _, opt := range parsed.seen {
		name := flatFlagName(opt)
		switch {
		case opt.Negate:
			opts[opt.Key()] = !fs.GetBool(name)
		case opt.IsBool():
			opts[opt.Key()] = fs.GetBool(name)
		default:
			opts[opt.Key()] = fs.GetString(name)
		}
	}

	return node.Run(&Invocation{Context: ctx, Args: parsed.positional, Options: opts})
}

func newFlatFlagSet(node *CommandNode) *flashflags.FlagSet {
	fs := flashflags.New(node.Name)
	fs.SetDescription(node.Description)
	for _, opt := range node.Options {
		if opt.IsBool() {
			fs.Bool(flatFlagName(opt), false, opt.Description)
			continue
		}
		fs.String(flatFlagName(opt), "", opt.Description)
	}
	return fs
}

// flatFlagName is the single name an option is registered under. Short
// flags are rewritten to it before parsing.
func flatFlagName(opt OptionDescriptor) string {
	if opt.Long != "" {
		return opt.Long
	}
	return opt.Short
}

type flatArgs struct {
	flags      []string
	positional []string
	seen       []OptionDescriptor
	help       bool
}

// splitFlat separates option tokens from positional values using the
// command's descriptors and normalizes every option to its long name.
func splitFlat(node *CommandNode, args []string) (*flatArgs, error) {
	out := &flatArgs{}
	seen := make(map[string]bool)

	for i := 0; i < len(args); i++ {
		token := args[i]
		switch {
		case token == "--":
			out.positional = append(out.positional, args[i+1:]...)
			return out, nil
		case token == "-h" || token == "--help":
			out.help = true
			return out, nil
		case token == "-" || !strings.HasPrefix(token, "-"):
			out.positional = append(out.positional, token)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(token, "-"), "=")
		opt, ok := node.LookupFlag(name)
		if !ok {
			return nil, errors.New(ErrCodeUsage, fmt.Sprintf("unknown option '%s'", token)).
				WithContext("command", node.Name)
		}

		flag := "--" + flatFlagName(opt)
		if opt.IsBool() {
			if hasValue {
				flag += "=" + value
			}
			out.flags = append(out.flags, flag)
		} else {
			if !hasValue {
				switch {
				case i+1 < len(args) && !strings.HasPrefix(args[i+1], "-"):
					i++
					value = args[i]
				case opt.ValueRequired:
					return nil, errors.New(ErrCodeUsage,
						fmt.Sprintf("option '%s' argument missing", opt.Flags)).
						WithContext("command", node.Name)
				default:
					value = OptionPresent
				}
			}
			out.flags = append(out.flags, flag, value)
		}

		if !seen[opt.Key()] {
			seen[opt.Key()] = true
			out.seen = append(out.seen, opt)
		}
	}
	return out, nil
}

// ArityError reports a positional value count outside the arity of node.
func ArityError(node *CommandNode, got int) error {
	min, max := node.Arity()
	var msg string
	switch {
	case got < min:
		msg = fmt.Sprintf("missing required argument: %s expects at least %d, got %d", node.Name, min, got)
	default:
		msg = fmt.Sprintf("too many arguments: %s expects at most %d, got %d", node.Name, max, got)
	}
	return errors.New(ErrCodeArity, msg).
		WithContext("command", node.Name).
		WithContext("got", got)
}
