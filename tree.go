// tree.go: Command tree construction
//
// ToCommand turns the metadata registered for a group type into a GroupNode
// whose commands are bound to one instance. Trees are cached on the instance
// and rebuilt only when forced.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
)

// GroupBase gives a group type the ability to be turned into a command tree.
// Embed it by value:
//
//	type Files struct {
//	    pantheon.GroupBase
//	    Root string
//	}
//
// GroupBase holds the per-instance tree cache and must not be copied after
// first use.
type GroupBase struct {
	mu       sync.Mutex
	cache    *GroupNode
	registry *Registry
}

func (g *GroupBase) groupBase() *GroupBase { return g }

// Buildable is implemented by every type embedding GroupBase.
type Buildable interface {
	groupBase() *GroupBase
}

// BuildOption configures a tree build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	force bool
}

// Force discards the cached tree and builds a new one.
func Force() BuildOption {
	return func(o *buildOptions) {
		o.force = true
	}
}

// GroupNode is the root of a built command tree.
type GroupNode struct {
	Name        string
	Description string
	Target      reflect.Type
	Commands    []*CommandNode
}

// Command returns the child command with the given canonical name.
func (g *GroupNode) Command(name string) *CommandNode {
	for _, c := range g.Commands {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// CommandNode is one runnable command of a group.
type CommandNode struct {
	Group       string
	Name        string
	Description string
	Member      string
	Options     []OptionDescriptor
	Arguments   []ArgumentDescriptor
	Env         []EnvBinding

	// Handler runs the fully composed command. Engines call it through Run.
	Handler Handler
}

// Run executes the command. A nil inv is treated as an invocation without
// arguments or options.
func (c *CommandNode) Run(inv *Invocation) error {
	if inv == nil {
		inv = &Invocation{}
	}
	return c.Handler(inv)
}

// Arity returns the minimum and maximum number of positional values the
// command accepts. max is -1 when the last argument is variadic.
func (c *CommandNode) Arity() (min, max int) {
	for _, a := range c.Arguments {
		if a.Required {
			min++
		}
		if a.Variadic {
			return min, -1
		}
	}
	return min, len(c.Arguments)
}

// LookupFlag returns the option declared with the given long or short name,
// without dashes. "no-color" finds the negated "--no-color" option.
func (c *CommandNode) LookupFlag(name string) (OptionDescriptor, bool) {
	for _, opt := range c.Options {
		if (opt.Long != "" && opt.Long == name) || (opt.Short != "" && opt.Short == name) {
			return opt, true
		}
	}
	return OptionDescriptor{}, false
}

// ToCommand builds the command tree for instance from the metadata
// registered for its type. The result is cached on the instance; later calls
// return the same tree unless Force is given.
//
// It fails with ErrCodeMissingGroup when the type has no group marker, with
// ErrCodeMissingCommands when no command is declared, and with
// ErrCodeInvalidDefinition when a marker was misused.
func ToCommand[T Buildable](reg *Registry, instance T, opts ...BuildOption) (*GroupNode, error) {
	v := reflect.ValueOf(instance)
	if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return nil, errors.New(ErrCodeInvalidDefinition, "cannot build a command tree for a nil instance")
	}
	return build(reg, v.Type(), instance, opts...)
}

func build(reg *Registry, target reflect.Type, instance Buildable, opts ...BuildOption) (*GroupNode, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	gb := instance.groupBase()
	if gb == nil {
		return nil, errors.New(ErrCodeInvalidDefinition,
			fmt.Sprintf("%s has a nil GroupBase", target))
	}

	gb.mu.Lock()
	defer gb.mu.Unlock()

	if !o.force && gb.cache != nil && gb.registry == reg {
		return gb.cache, nil
	}

	group, ok := Lookup[*GroupDescriptor](reg, KeyGroup, target)
	if !ok {
		return nil, errors.New(ErrCodeMissingGroup,
			fmt.Sprintf("%s is not a command group: declare it with Group or NewGroup", target)).
			WithContext("target", target.String())
	}

	commands, ok := Lookup[*commandSet](reg, KeyCommands, target)
	if !ok || commands.len() == 0 {
		return nil, errors.New(ErrCodeMissingCommands,
			fmt.Sprintf("command group %q declares no commands", group.Name)).
			WithContext("target", target.String())
	}

	if err := definitionError(reg, target); err != nil {
		return nil, err
	}

	var groupMiddleware []Middleware
	if nl, ok := Lookup[*namedList](reg, KeyGroupMiddleware, target); ok {
		for _, item := range nl.snapshot() {
			groupMiddleware = append(groupMiddleware, item.mw)
		}
	}

	node := &GroupNode{Name: group.Name, Description: group.Description, Target: target}
	for _, member := range commands.members() {
		entry, _ := commands.get(member)
		cmd := &CommandNode{
			Group:       group.Name,
			Name:        entry.Name,
			Description: entry.Description,
			Member:      member,
			Options:     snapshotOf[OptionDescriptor](reg, KeyOptions, target, member),
			Arguments:   snapshotOf[ArgumentDescriptor](reg, KeyArguments, target, member),
			Env:         snapshotOf[EnvBinding](reg, keyEnvBindings, target, member),
		}

		chain := []Middleware{prepare(reg, cmd)}
		chain = append(chain, groupMiddleware...)
		chain = append(chain, snapshotOf[Middleware](reg, KeyMiddleware, target, member)...)
		chain = append(chain, cmd.finalize)
		cmd.Handler = Chain(entry.bind(instance), chain...)

		node.Commands = append(node.Commands, cmd)
	}

	reg.audit.LogTreeBuilt(target.String(), node.Name, len(node.Commands), gb.cache != nil)

	gb.cache = node
	gb.registry = reg
	return node, nil
}

// definitionError folds the recorded marker misuse into one error.
func definitionError(reg *Registry, target reflect.Type) error {
	errs, ok := Lookup[*list[error]](reg, keyDefinitionErrors, target)
	if !ok {
		return nil
	}
	all := errs.snapshot()
	if len(all) == 0 {
		return nil
	}
	if len(all) == 1 {
		return all[0]
	}
	msgs := make([]string, len(all))
	for i, err := range all {
		msgs[i] = err.Error()
	}
	return errors.New(ErrCodeInvalidDefinition,
		fmt.Sprintf("%s has %d invalid declarations: %s", target, len(all), strings.Join(msgs, "; "))).
		WithContext("target", target.String())
}

func snapshotOf[E any](reg *Registry, key MetadataKey, target reflect.Type, member string) []E {
	l, ok := Lookup[*list[E]](reg, key, target, member)
	if !ok {
		return nil
	}
	return l.snapshot()
}

// prepare is the outermost wrapper of every command. It completes the
// invocation, stops on a cancelled context, and records the outcome.
func prepare(reg *Registry, cmd *CommandNode) Middleware {
	return func(next Handler) Handler {
		return func(inv *Invocation) error {
			inv.Command = cmd
			if inv.Options == nil {
				inv.Options = Options{}
			}
			if inv.Env == nil {
				inv.Env = reg.env
			}
			inv.audit = reg.audit

			if err := inv.Ctx().Err(); err != nil {
				return err
			}

			if reg.audit == nil {
				return next(inv)
			}
			start := time.Now()
			err := next(inv)
			reg.audit.LogInvocation(cmd.Group, cmd.Name, time.Since(start), err)
			return err
		}
	}
}

// finalize fills defaults, resolves positional values and enforces
// enumerated choices. It runs after every other middleware, so an explicit
// value or an environment binding always wins over a default.
func (c *CommandNode) finalize(next Handler) Handler {
	return func(inv *Invocation) error {
		for _, opt := range c.Options {
			key := opt.Key()
			if !inv.Options.Has(key) {
				switch {
				case opt.HasDefault():
					inv.Options[key] = opt.DefaultValue
				case opt.Negate:
					inv.Options[key] = true
				}
			}
			if len(opt.Choices) > 0 && inv.Options.Has(key) {
				if err := checkChoice("option", opt.Flags, inv.Options.String(key), opt.Choices); err != nil {
					return err
				}
			}
		}

		args, rest, err := c.resolveArgs(inv.Args)
		if err != nil {
			return err
		}
		inv.Args = args
		inv.Rest = rest

		return next(inv)
	}
}

// resolveArgs maps raw positional values onto the declared arguments. args
// holds one value per declared argument; a variadic argument contributes its
// first value to args and all of its values to rest. Values beyond the
// declared arguments go to rest as well.
func (c *CommandNode) resolveArgs(raw []string) (args, rest []string, err error) {
	for i, a := range c.Arguments {
		if a.Variadic {
			var values []string
			if i < len(raw) {
				values = append(values, raw[i:]...)
			} else {
				values = variadicDefault(a.DefaultValue)
			}
			if len(values) == 0 && a.Required {
				return nil, nil, missingArgument(c, a)
			}
			for _, v := range values {
				if err := checkChoice("argument", a.Key(), v, a.Choices); err != nil {
					return nil, nil, err
				}
			}
			first := ""
			if len(values) > 0 {
				first = values[0]
			}
			return append(args, first), values, nil
		}

		value := ""
		switch {
		case i < len(raw):
			value = raw[i]
		case a.HasDefault():
			value = fmt.Sprint(a.DefaultValue)
		case a.Required:
			return nil, nil, missingArgument(c, a)
		}
		if value != "" || i < len(raw) {
			if err := checkChoice("argument", a.Key(), value, a.Choices); err != nil {
				return nil, nil, err
			}
		}
		args = append(args, value)
	}

	if len(raw) > len(c.Arguments) {
		rest = append(rest, raw[len(c.Arguments):]...)
	}
	return args, rest, nil
}

func variadicDefault(v any) []string {
	switch d := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), d...)
	case []any:
		out := make([]string, len(d))
		for i, item := range d {
			out[i] = fmt.Sprint(item)
		}
		return out
	default:
		return []string{fmt.Sprint(d)}
	}
}

func missingArgument(c *CommandNode, a ArgumentDescriptor) error {
	return errors.New(ErrCodeArity, fmt.Sprintf("missing required argument '%s'", a.Key())).
		WithContext("command", c.Name).
		WithContext("argument", a.Key())
}

// newChoiceError builds the error for a value outside the allowed choices.
func newChoiceError(kind, name, value string, choices []string) error {
	var msg string
	if kind == "option" {
		msg = fmt.Sprintf("option '%s' argument '%s' is invalid. Allowed choices are %s.",
			name, value, strings.Join(choices, ", "))
	} else {
		msg = fmt.Sprintf("%s value '%s' is invalid for argument '%s'. Allowed choices are %s.",
			kind, value, name, strings.Join(choices, ", "))
	}
	return errors.New(ErrCodeInvalidChoice, msg).
		WithContext(kind, name).
		WithContext("value", value)
}
