// registry_test.go: Tests for the metadata registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"reflect"
	"sync"
	"testing"
)

type registryTarget struct{}
type otherTarget struct{}

func TestEnsureStoresInitialOnlyOnce(t *testing.T) {
	reg := NewRegistry()
	target := reflect.TypeFor[registryTarget]()

	first := Ensure(reg, KeyOptions, newList[string]("a"), target, "List")
	first.append("b")

	second := Ensure(reg, KeyOptions, newList[string]("ignored"), target, "List")
	if second != first {
		t.Fatal("Ensure must return the stored value on later calls")
	}
	if got := second.snapshot(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected accumulated [a b], got %v", got)
	}
}

func TestEnsureSeparatesMembersAndKeys(t *testing.T) {
	reg := NewRegistry()
	target := reflect.TypeFor[registryTarget]()

	Ensure(reg, KeyOptions, newList[string]("list"), target, "List")
	Ensure(reg, KeyOptions, newList[string]("remove"), target, "Remove")
	Ensure(reg, KeyArguments, newList[string]("args"), target, "List")
	Ensure(reg, KeyOptions, newList[string]("class"), target)

	tests := []struct {
		key    MetadataKey
		member []string
		want   string
	}{
		{KeyOptions, []string{"List"}, "list"},
		{KeyOptions, []string{"Remove"}, "remove"},
		{KeyArguments, []string{"List"}, "args"},
		{KeyOptions, nil, "class"},
	}

	for _, tt := range tests {
		l, ok := Lookup[*list[string]](reg, tt.key, target, tt.member...)
		if !ok {
			t.Fatalf("Lookup(%s, %v) found nothing", tt.key, tt.member)
		}
		if got := l.snapshot(); len(got) != 1 || got[0] != tt.want {
			t.Errorf("Lookup(%s, %v) = %v, want [%s]", tt.key, tt.member, got, tt.want)
		}
	}
}

func TestEnsureKeepsValueOfDifferentType(t *testing.T) {
	reg := NewRegistry()
	target := reflect.TypeFor[registryTarget]()

	Set(reg, KeyGroup, "stored", target)
	got := Ensure(reg, KeyGroup, 42, target)
	if got != 42 {
		t.Errorf("Expected initial value for mismatched type, got %v", got)
	}
	if s, ok := Lookup[string](reg, KeyGroup, target); !ok || s != "stored" {
		t.Errorf("Stored value was replaced: %q, %v", s, ok)
	}
}

func TestLookupMissing(t *testing.T) {
	reg := NewRegistry()
	if _, ok := Lookup[*GroupDescriptor](reg, KeyGroup, reflect.TypeFor[registryTarget]()); ok {
		t.Error("Expected no metadata on an empty registry")
	}
}

func TestSetOverwrites(t *testing.T) {
	reg := NewRegistry()
	target := reflect.TypeFor[registryTarget]()

	Set(reg, KeyGroup, &GroupDescriptor{Name: "one"}, target)
	Set(reg, KeyGroup, &GroupDescriptor{Name: "two"}, target)

	g, ok := Lookup[*GroupDescriptor](reg, KeyGroup, target)
	if !ok || g.Name != "two" {
		t.Errorf("Expected overwritten descriptor, got %+v", g)
	}
}

func TestTargetsSorted(t *testing.T) {
	reg := NewRegistry()
	Set(reg, KeyGroup, 1, reflect.TypeFor[registryTarget]())
	Set(reg, KeyGroup, 1, reflect.TypeFor[otherTarget]())
	Set(reg, KeyMixins, 1, reflect.TypeFor[otherTarget]())

	targets := reg.Targets()
	if len(targets) != 2 {
		t.Fatalf("Expected 2 targets, got %d", len(targets))
	}
	if targets[0].String() > targets[1].String() {
		t.Errorf("Targets not sorted: %v", targets)
	}
}

func TestEnsureConcurrent(t *testing.T) {
	reg := NewRegistry()
	target := reflect.TypeFor[registryTarget]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Ensure(reg, KeyOptions, newList[int](), target, "List").append(1)
		}()
	}
	wg.Wait()

	l, _ := Lookup[*list[int]](reg, KeyOptions, target, "List")
	if got := len(l.snapshot()); got != 50 {
		t.Errorf("Expected 50 appended values, got %d", got)
	}
}

func TestRegistryEnvironmentDefault(t *testing.T) {
	if _, ok := NewRegistry().Environment().(OSEnvironment); !ok {
		t.Error("Expected the process environment by default")
	}

	env := MapEnvironment{"A": "1"}
	reg := NewRegistry(WithEnvironment(env))
	if v, ok := reg.Environment().LookupEnv("A"); !ok || v != "1" {
		t.Errorf("Expected configured environment, got %q, %v", v, ok)
	}
}
