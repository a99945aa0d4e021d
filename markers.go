// markers.go: Declarative markers for command groups and their commands
//
// Markers write descriptors into a Registry. They never fail: misuse is
// recorded against the target type and reported when the command tree is
// built, so a broken declaration is caught before any command runs.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/agilira/go-errors"
)

// keyDefinitionErrors accumulates marker misuse for a target.
const keyDefinitionErrors MetadataKey = "class:errors"

// GroupDescriptor is the metadata written by the group marker.
type GroupDescriptor struct {
	Name        string
	Description string
}

// CommandDescriptor is the metadata written by the command marker.
type CommandDescriptor struct {
	Name        string
	Description string
}

// Method is a command implementation expressed as a method expression,
// e.g. (*Files).List.
type Method[T any] func(T, *Invocation) error

// OptionConfig holds the optional parts of an option marker.
type OptionConfig struct {
	DefaultValue            any
	DefaultValueDescription string
	ValidValues             []string
	HideFromHelp            bool
}

// ArgumentConfig holds the optional parts of an argument marker.
type ArgumentConfig struct {
	DefaultValue            any
	DefaultValueDescription string
	ValidValues             []string
}

// Definition is the registration handle for the command group type T.
// T is normally a pointer type such as *Files, since command methods and
// the embedded GroupBase need pointer receivers.
type Definition[T any] struct {
	reg    *Registry
	target reflect.Type
}

// Define returns the registration handle for T without marking it as a group.
func Define[T any](reg *Registry) *Definition[T] {
	return &Definition[T]{reg: reg, target: reflect.TypeFor[T]()}
}

// NewGroup returns the registration handle for T with the group marker applied.
func NewGroup[T any](reg *Registry, name, description string) *Definition[T] {
	return Define[T](reg).Group(name, description)
}

// Target returns the type the definition writes metadata for.
func (d *Definition[T]) Target() reflect.Type {
	return d.target
}

// Registry returns the registry the definition writes to.
func (d *Definition[T]) Registry() *Registry {
	return d.reg
}

// Group applies the group marker. The canonical name is derived from name,
// or from the type name when name is empty. Every group also receives the
// GroupBase provider so it can be turned into a command tree.
func (d *Definition[T]) Group(name, description string) *Definition[T] {
	if name == "" {
		name = typeName(d.target)
	}
	Set(d.reg, KeyGroup, &GroupDescriptor{Name: KebabCase(name), Description: description}, d.target)
	d.Mixin(baseProvider[T]{})
	return d
}

// Command applies the command marker to member. The canonical command name is
// derived from name, or from member when name is empty. Marking the same
// member again updates its descriptor in place.
func (d *Definition[T]) Command(member string, method Method[T], name, description string) *CommandDefinition[T] {
	if name == "" {
		name = member
	}

	entry := &commandEntry{
		CommandDescriptor: CommandDescriptor{Name: KebabCase(name), Description: description},
	}
	if method == nil {
		d.fail(errors.New(ErrCodeInvalidDefinition,
			fmt.Sprintf("command %q of %s has no method", member, d.target)).
			WithContext("member", member))
	} else {
		entry.bind = func(instance any) Handler {
			t, _ := instance.(T)
			return func(inv *Invocation) error {
				return method(t, inv)
			}
		}
	}

	Ensure(d.reg, KeyCommands, newCommandSet(), d.target).put(member, entry)
	return &CommandDefinition[T]{def: d, member: member}
}

// Use registers a named group-level middleware that wraps every command of
// the group. A name that is already registered keeps its first middleware.
func (d *Definition[T]) Use(name string, mw Middleware) *Definition[T] {
	Ensure(d.reg, KeyGroupMiddleware, newNamedList(), d.target).addIfAbsent(name, mw)
	return d
}

// Members returns the command members in declaration order.
func (d *Definition[T]) Members() []string {
	cs, ok := Lookup[*commandSet](d.reg, KeyCommands, d.target)
	if !ok {
		return nil
	}
	return cs.members()
}

// Build builds the command tree for instance. It is the method form of
// ToCommand and fails with ErrCodeInvalidDefinition when T does not embed
// GroupBase or instance is nil.
func (d *Definition[T]) Build(instance T, opts ...BuildOption) (*GroupNode, error) {
	if v := reflect.ValueOf(instance); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return nil, errors.New(ErrCodeInvalidDefinition, "cannot build a command tree for a nil instance")
	}
	b, ok := any(instance).(Buildable)
	if !ok {
		return nil, errors.New(ErrCodeInvalidDefinition,
			fmt.Sprintf("%s does not embed pantheon.GroupBase", d.target))
	}
	return build(d.reg, d.target, b, opts...)
}

func (d *Definition[T]) fail(err error) {
	Ensure(d.reg, keyDefinitionErrors, newList[error](), d.target).append(err)
}

// CommandDefinition is the registration handle for one command member.
type CommandDefinition[T any] struct {
	def    *Definition[T]
	member string
}

// Member returns the member name the command was declared for.
func (c *CommandDefinition[T]) Member() string {
	return c.member
}

// Option applies the option marker. Options keep their declaration order.
func (c *CommandDefinition[T]) Option(flags, description string, cfg OptionConfig) *CommandDefinition[T] {
	opt := NewOptionDescriptor(flags, description)
	if cfg.DefaultValue != nil {
		opt.DefaultValue = cfg.DefaultValue
		opt.DefaultValueDescription = cfg.DefaultValueDescription
	}
	if len(cfg.ValidValues) > 0 {
		opt.Choices = append([]string(nil), cfg.ValidValues...)
	}
	if cfg.HideFromHelp {
		opt.Hidden = true
	}

	Ensure(c.def.reg, KeyOptions, newList[OptionDescriptor](), c.def.target, c.member).append(opt)
	return c
}

// Argument applies the argument marker. Arguments keep their declaration
// order: the first declared argument is the first positional value.
func (c *CommandDefinition[T]) Argument(name, description string, cfg ArgumentConfig) *CommandDefinition[T] {
	arg := NewArgumentDescriptor(name, description)
	if cfg.DefaultValue != nil {
		arg.DefaultValue = cfg.DefaultValue
		arg.DefaultValueDescription = cfg.DefaultValueDescription
	}
	if len(cfg.ValidValues) > 0 {
		arg.Choices = append([]string(nil), cfg.ValidValues...)
	}

	Ensure(c.def.reg, KeyArguments, newList[ArgumentDescriptor](), c.def.target, c.member).append(arg)
	return c
}

// Env applies the environment-binding marker: when variable is set and the
// mapped option was not supplied, its value becomes the option value.
func (c *CommandDefinition[T]) Env(variable string, opts ...EnvOption) *CommandDefinition[T] {
	binding := NewEnvBinding(variable, opts...)
	Ensure(c.def.reg, keyEnvBindings, newList[EnvBinding](), c.def.target, c.member).append(binding)
	return c.Use(binding.Middleware())
}

// Use appends a middleware to this command only.
func (c *CommandDefinition[T]) Use(mw Middleware) *CommandDefinition[T] {
	Ensure(c.def.reg, KeyMiddleware, newList[Middleware](), c.def.target, c.member).append(mw)
	return c
}

// Command continues the declaration with another member of the same group.
func (c *CommandDefinition[T]) Command(member string, method Method[T], name, description string) *CommandDefinition[T] {
	return c.def.Command(member, method, name, description)
}

// typeName returns the name of t with pointers removed.
func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// commandEntry is one element of the commands mapping.
type commandEntry struct {
	CommandDescriptor
	bind func(instance any) Handler
}

// commandSet is an insertion-ordered mapping from member to commandEntry.
type commandSet struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*commandEntry
}

func newCommandSet() *commandSet {
	return &commandSet{entries: make(map[string]*commandEntry)}
}

// put inserts or updates member. Updates keep the original position.
func (cs *commandSet) put(member string, e *commandEntry) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.entries[member]; !ok {
		cs.order = append(cs.order, member)
	}
	cs.entries[member] = e
}

// putIfAbsent inserts member only when it is not defined yet.
func (cs *commandSet) putIfAbsent(member string, e *commandEntry) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.entries[member]; ok {
		return false
	}
	cs.order = append(cs.order, member)
	cs.entries[member] = e
	return true
}

func (cs *commandSet) get(member string) (*commandEntry, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	e, ok := cs.entries[member]
	return e, ok
}

func (cs *commandSet) members() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return append([]string(nil), cs.order...)
}

func (cs *commandSet) len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.order)
}

// list is an append-only sequence that preserves insertion order.
type list[E any] struct {
	mu    sync.RWMutex
	items []E
}

func newList[E any](items ...E) *list[E] {
	return &list[E]{items: items}
}

func (l *list[E]) append(items ...E) {
	l.mu.Lock()
	l.items = append(l.items, items...)
	l.mu.Unlock()
}

func (l *list[E]) snapshot() []E {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]E(nil), l.items...)
}

// namedMiddleware is a group-level middleware registered under a name.
type namedMiddleware struct {
	name string
	mw   Middleware
}

// namedList keeps named middleware in registration order, first name wins.
type namedList struct {
	mu    sync.RWMutex
	items []namedMiddleware
}

func newNamedList() *namedList {
	return &namedList{}
}

func (nl *namedList) addIfAbsent(name string, mw Middleware) bool {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	for _, item := range nl.items {
		if item.name == name {
			return false
		}
	}
	nl.items = append(nl.items, namedMiddleware{name: name, mw: mw})
	return true
}

func (nl *namedList) snapshot() []namedMiddleware {
	nl.mu.RLock()
	defer nl.mu.RUnlock()
	return append([]namedMiddleware(nil), nl.items...)
}
