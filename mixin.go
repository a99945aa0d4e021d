// mixin.go: Composition of command groups from reusable providers
//
// A provider contributes the commands and group middleware of one definition
// to another. Contributions never replace what the receiving group declares
// itself, and the first provider to contribute a member wins.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"fmt"
	"reflect"

	"github.com/agilira/go-errors"
)

// Provider contributes members to the group type T. Providers are created
// with From; the group marker adds the GroupBase provider automatically.
type Provider[T any] interface {
	providerName() string
	providerType() reflect.Type
	contribute(reg *Registry, target reflect.Type) int
}

// fromProvider contributes the declarations of S to T, binding every
// contributed command to the S component returned by via.
type fromProvider[T, S any] struct {
	source *Definition[S]
	via    func(T) S
}

// From returns a provider for the commands declared on source. At call time a
// contributed command runs on via(instance), the component of the receiving
// group that holds the S value.
//
// Contributions are copied when the provider is mixed in, so source must be
// fully declared by then.
func From[T, S any](source *Definition[S], via func(T) S) Provider[T] {
	return fromProvider[T, S]{source: source, via: via}
}

func (p fromProvider[T, S]) providerName() string {
	return p.source.target.String()
}

func (p fromProvider[T, S]) providerType() reflect.Type {
	return p.source.target
}

func (p fromProvider[T, S]) contribute(reg *Registry, target reflect.Type) int {
	src := p.source
	merged := 0

	if cs, ok := Lookup[*commandSet](src.reg, KeyCommands, src.target); ok {
		dst := Ensure(reg, KeyCommands, newCommandSet(), target)
		for _, member := range cs.members() {
			entry, _ := cs.get(member)
			if entry.bind == nil {
				Ensure(reg, keyDefinitionErrors, newList[error](), target).append(
					errors.New(ErrCodeInvalidDefinition,
						fmt.Sprintf("command %q of provider %s has no method", member, p.providerName())).
						WithContext("member", member))
				continue
			}
			if !dst.putIfAbsent(member, p.delegate(entry)) {
				continue
			}
			copyMemberList[OptionDescriptor](src.reg, reg, KeyOptions, src.target, target, member)
			copyMemberList[ArgumentDescriptor](src.reg, reg, KeyArguments, src.target, target, member)
			copyMemberList[Middleware](src.reg, reg, KeyMiddleware, src.target, target, member)
			copyMemberList[EnvBinding](src.reg, reg, keyEnvBindings, src.target, target, member)
			merged++
		}
	}

	if nl, ok := Lookup[*namedList](src.reg, KeyGroupMiddleware, src.target); ok {
		dst := Ensure(reg, KeyGroupMiddleware, newNamedList(), target)
		for _, item := range nl.snapshot() {
			if dst.addIfAbsent(item.name, item.mw) {
				merged++
			}
		}
	}

	return merged
}

// delegate rebinds a source command to the component of a T instance.
func (p fromProvider[T, S]) delegate(entry *commandEntry) *commandEntry {
	out := &commandEntry{CommandDescriptor: entry.CommandDescriptor}
	out.bind = func(instance any) Handler {
		t, _ := instance.(T)
		return entry.bind(p.via(t))
	}
	return out
}

// copyMemberList copies the list stored for member on from into to, unless
// to already has one.
func copyMemberList[E any](fromReg, toReg *Registry, key MetadataKey, from, to reflect.Type, member string) {
	src, ok := Lookup[*list[E]](fromReg, key, from, member)
	if !ok {
		return
	}
	if _, exists := Lookup[*list[E]](toReg, key, to, member); exists {
		return
	}
	Ensure(toReg, key, newList(src.snapshot()...), to, member)
}

// baseProvider stands for GroupBase, the capability every group gains. It has
// no declarations of its own: instances gain the capability by embedding.
type baseProvider[T any] struct{}

func (baseProvider[T]) providerName() string { return "pantheon.GroupBase" }

func (baseProvider[T]) providerType() reflect.Type { return reflect.TypeFor[GroupBase]() }

func (baseProvider[T]) contribute(*Registry, reflect.Type) int { return 0 }

// MergeDefinitions copies the contributions of providers into target. A
// provider whose type is related to target, by being the same type or by
// one embedding the other, is skipped. It returns the number of members
// merged.
func MergeDefinitions[T any](target *Definition[T], providers ...Provider[T]) int {
	merged := 0
	for _, p := range providers {
		if p == nil || related(target.target, p.providerType()) {
			continue
		}
		merged += p.contribute(target.reg, target.target)
	}
	return merged
}

// Mixin merges providers into the definition and records them, in order,
// under KeyMixins. Skipped providers are recorded too.
func (d *Definition[T]) Mixin(providers ...Provider[T]) *Definition[T] {
	trail := Ensure(d.reg, KeyMixins, newList[string](), d.target)
	for _, p := range providers {
		if p == nil {
			continue
		}
		merged := MergeDefinitions(d, p)
		trail.append(p.providerName())
		d.reg.audit.LogMixin(d.target.String(), p.providerName(), merged)
	}
	return d
}

// Mixins returns the provider names recorded for the definition.
func (d *Definition[T]) Mixins() []string {
	return Mixins(d.reg, d.target)
}

// Mixins returns the provider names recorded for target, in mixing order.
func Mixins(reg *Registry, target reflect.Type) []string {
	trail, ok := Lookup[*list[string]](reg, KeyMixins, target)
	if !ok {
		return nil
	}
	return trail.snapshot()
}

// related reports whether a and b are the same type or one embeds the other,
// directly or through further embedded fields. Pointers are looked through.
func related(a, b reflect.Type) bool {
	a, b = deref(a), deref(b)
	return a == b || embeds(a, b, 0) || embeds(b, a, 0)
}

func embeds(outer, inner reflect.Type, depth int) bool {
	if outer.Kind() != reflect.Struct || depth > 8 {
		return false
	}
	for i := 0; i < outer.NumField(); i++ {
		f := outer.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := deref(f.Type)
		if ft == inner || embeds(ft, inner, depth+1) {
			return true
		}
	}
	return false
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
