// registry.go: Metadata registry for Pantheon command groups
//
// The registry is the registration context shared by markers, mixins and the
// tree builder. It replaces an ambient, process-wide metadata table with an
// explicit object that is populated during startup and read afterwards.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"reflect"
	"sort"
	"sync"
)

// MetadataKey identifies a metadata category.
type MetadataKey string

const (
	KeyGroup           MetadataKey = "command:group"
	KeyCommands        MetadataKey = "command:commands"
	KeyOptions         MetadataKey = "command:options"
	KeyArguments       MetadataKey = "command:arguments"
	KeyMiddleware      MetadataKey = "command:middleware"
	KeyMixins          MetadataKey = "class:mixins"
	KeyGroupMiddleware MetadataKey = "class:middleware"
)

// metadataSlot addresses one stored value: (target, member, key).
// An empty member addresses the target itself.
type metadataSlot struct {
	target reflect.Type
	member string
	key    MetadataKey
}

// Registry stores metadata for command group types.
//
// Writes happen while groups are declared; the tree builder only reads.
// All operations are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[metadataSlot]any
	targets []reflect.Type

	env       Environment
	audit     *AuditLogger
	ownsAudit bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEnvironment sets the environment source consulted by environment bindings.
func WithEnvironment(env Environment) RegistryOption {
	return func(r *Registry) {
		r.env = env
	}
}

// WithAuditLogger attaches an audit logger that records tree builds,
// mixins and command invocations.
func WithAuditLogger(al *AuditLogger) RegistryOption {
	return func(r *Registry) {
		r.audit = al
	}
}

// NewRegistry creates an empty registry. The process environment is used
// unless WithEnvironment says otherwise.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[metadataSlot]any),
		env:     OSEnvironment{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Environment returns the registry's environment source.
func (r *Registry) Environment() Environment {
	return r.env
}

// Audit returns the registry's audit logger, or nil.
func (r *Registry) Audit() *AuditLogger {
	return r.audit
}

// Close releases the audit logger when the registry created it
// (see NewRegistryFromSettings). Loggers passed with WithAuditLogger are
// left to their owner.
func (r *Registry) Close() error {
	if !r.ownsAudit {
		return nil
	}
	return r.audit.Close()
}

// Targets returns every type that has metadata, sorted by type name.
func (r *Registry) Targets() []reflect.Type {
	r.mu.RLock()
	out := make([]reflect.Type, len(r.targets))
	copy(out, r.targets)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func slotFor(key MetadataKey, target reflect.Type, member []string) metadataSlot {
	slot := metadataSlot{target: target, key: key}
	if len(member) > 0 {
		slot.member = member[0]
	}
	return slot
}

// trackLocked records target the first time it receives metadata (caller holds mu).
func (r *Registry) trackLocked(target reflect.Type) {
	for _, t := range r.targets {
		if t == target {
			return
		}
	}
	r.targets = append(r.targets, target)
}

// Ensure returns the metadata stored under key for (target, member). When
// nothing is stored yet, initial is stored and returned. An existing value is
// never replaced, so callers pass pointer values and mutate them in place to
// accumulate.
func Ensure[V any](r *Registry, key MetadataKey, initial V, target reflect.Type, member ...string) V {
	slot := slotFor(key, target, member)

	r.mu.RLock()
	existing, ok := r.entries[slot]
	r.mu.RUnlock()
	if ok {
		return existingOr(existing, initial)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[slot]; ok {
		return existingOr(existing, initial)
	}
	r.entries[slot] = initial
	r.trackLocked(target)
	return initial
}

// existingOr returns the stored value when it has the requested type. A value
// stored under a different type is left untouched.
func existingOr[V any](existing any, initial V) V {
	if v, ok := existing.(V); ok {
		return v
	}
	return initial
}

// Lookup returns the metadata stored under key for (target, member).
func Lookup[V any](r *Registry, key MetadataKey, target reflect.Type, member ...string) (V, bool) {
	var zero V
	r.mu.RLock()
	existing, ok := r.entries[slotFor(key, target, member)]
	r.mu.RUnlock()
	if !ok {
		return zero, false
	}
	v, ok := existing.(V)
	return v, ok
}

// Set stores value under key for (target, member), replacing any previous value.
func Set[V any](r *Registry, key MetadataKey, value V, target reflect.Type, member ...string) {
	r.mu.Lock()
	r.entries[slotFor(key, target, member)] = value
	r.trackLocked(target)
	r.mu.Unlock()
}
