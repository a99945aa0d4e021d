// mixin_test.go: Tests for provider merging
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"reflect"
	"testing"
)

type Greeter struct {
	greeted string
}

func (g *Greeter) Hello(inv *Invocation) error {
	g.greeted = inv.Arg("name")
	return nil
}

func (g *Greeter) List(*Invocation) error {
	g.greeted = "greeter-list"
	return nil
}

type Counter struct {
	count int
}

func (c *Counter) Count(*Invocation) error {
	c.count++
	return nil
}

type Toolbox struct {
	GroupBase
	greeter *Greeter
	counter *Counter
	listed  bool
}

func (t *Toolbox) List(*Invocation) error {
	t.listed = true
	return nil
}

func declareProviders(reg *Registry) (*Definition[*Greeter], *Definition[*Counter]) {
	greeter := Define[*Greeter](reg)
	greeter.Command("Hello", (*Greeter).Hello, "", "Say hello").
		Argument("<name>", "Who to greet", ArgumentConfig{})
	greeter.Command("List", (*Greeter).List, "", "Greeter list")
	greeter.Use("greeter-mw", func(next Handler) Handler { return next })

	counter := Define[*Counter](reg)
	counter.Command("Count", (*Counter).Count, "", "Count")
	return greeter, counter
}

func TestMixinMergesUnrelatedProviders(t *testing.T) {
	reg := NewRegistry()
	greeter, counter := declareProviders(reg)

	toolbox := NewGroup[*Toolbox](reg, "toolbox", "")
	toolbox.Command("List", (*Toolbox).List, "", "Toolbox list")
	toolbox.Mixin(
		From(greeter, func(t *Toolbox) *Greeter { return t.greeter }),
		From(counter, func(t *Toolbox) *Counter { return t.counter }),
	)

	if got := toolbox.Members(); !reflect.DeepEqual(got, []string{"List", "Hello", "Count"}) {
		t.Fatalf("Members() = %v", got)
	}

	instance := &Toolbox{greeter: &Greeter{}, counter: &Counter{}}
	group, err := ToCommand(reg, instance)
	if err != nil {
		t.Fatalf("ToCommand failed: %v", err)
	}

	if err := group.Command("list").Run(nil); err != nil {
		t.Fatal(err)
	}
	if !instance.listed || instance.greeter.greeted != "" {
		t.Error("The target's own List must not be overwritten by the provider")
	}

	hello := group.Command("hello")
	if hello == nil || len(hello.Arguments) != 1 {
		t.Fatalf("Expected merged hello command with its argument, got %+v", hello)
	}
	if err := hello.Run(&Invocation{Args: []string{"ada"}}); err != nil {
		t.Fatal(err)
	}
	if instance.greeter.greeted != "ada" {
		t.Errorf("Expected delegation to the held Greeter, got %q", instance.greeter.greeted)
	}

	_ = group.Command("count").Run(nil)
	if instance.counter.count != 1 {
		t.Errorf("Expected count 1, got %d", instance.counter.count)
	}

	nl, ok := Lookup[*namedList](reg, KeyGroupMiddleware, toolbox.Target())
	if !ok || len(nl.snapshot()) != 1 {
		t.Error("Expected the provider's group middleware to be merged")
	}
}

func TestMixinRejectsCommandWithoutMethod(t *testing.T) {
	reg := NewRegistry()
	counter := Define[*Counter](reg)
	counter.Command("Count", nil, "", "Count")

	toolbox := NewGroup[*Toolbox](reg, "toolbox", "")
	toolbox.Command("List", (*Toolbox).List, "", "Toolbox list")
	merged := MergeDefinitions(toolbox, From(counter, func(t *Toolbox) *Counter { return t.counter }))

	if merged != 0 {
		t.Errorf("Expected nothing merged, got %d", merged)
	}
	if got := toolbox.Members(); !reflect.DeepEqual(got, []string{"List"}) {
		t.Errorf("Members() = %v, want [List]", got)
	}

	_, err := ToCommand(reg, &Toolbox{counter: &Counter{}})
	if code := errorCode(err); code != ErrCodeInvalidDefinition {
		t.Errorf("Expected %s, got %q (%v)", ErrCodeInvalidDefinition, code, err)
	}
}

func TestMixinTrail(t *testing.T) {
	reg := NewRegistry()
	greeter, counter := declareProviders(reg)

	toolbox := NewGroup[*Toolbox](reg, "toolbox", "")
	toolbox.Mixin(From(greeter, func(t *Toolbox) *Greeter { return t.greeter }))
	toolbox.Mixin(From(counter, func(t *Toolbox) *Counter { return t.counter }))

	want := []string{"pantheon.GroupBase", "*pantheon.Greeter", "*pantheon.Counter"}
	if got := Mixins(reg, toolbox.Target()); !reflect.DeepEqual(got, want) {
		t.Errorf("Mixins = %v, want %v", got, want)
	}
}

func TestFirstProviderWins(t *testing.T) {
	reg := NewRegistry()
	first := Define[*Greeter](reg)
	first.Command("Hello", (*Greeter).Hello, "first", "")
	second := Define[*Counter](reg)
	second.Command("Hello", (*Counter).Count, "second", "")

	toolbox := NewGroup[*Toolbox](reg, "toolbox", "")
	MergeDefinitions(toolbox,
		From(first, func(t *Toolbox) *Greeter { return t.greeter }),
		From(second, func(t *Toolbox) *Counter { return t.counter }),
	)

	cs, _ := Lookup[*commandSet](reg, KeyCommands, toolbox.Target())
	e, _ := cs.get("Hello")
	if e.Name != "first" {
		t.Errorf("Expected the first provider's command, got %q", e.Name)
	}
}

type BaseTool struct {
	GroupBase
}

func (b *BaseTool) Ping(*Invocation) error { return nil }

type ExtendedTool struct {
	BaseTool
}

func (e *ExtendedTool) Pong(*Invocation) error { return nil }

func TestMergeSkipsRelatedTypes(t *testing.T) {
	reg := NewRegistry()
	base := NewGroup[*BaseTool](reg, "base", "")
	base.Command("Ping", (*BaseTool).Ping, "", "")

	extended := NewGroup[*ExtendedTool](reg, "extended", "")
	extended.Command("Pong", (*ExtendedTool).Pong, "", "")

	if n := MergeDefinitions(extended, From(base, func(e *ExtendedTool) *BaseTool { return &e.BaseTool })); n != 0 {
		t.Errorf("Merging an embedded type merged %d members", n)
	}
	if n := MergeDefinitions(base, From(extended, func(*BaseTool) *ExtendedTool { return nil })); n != 0 {
		t.Errorf("Merging an embedding type merged %d members", n)
	}
	if n := MergeDefinitions(base, From(base, func(b *BaseTool) *BaseTool { return b })); n != 0 {
		t.Errorf("Merging a type into itself merged %d members", n)
	}

	if got := extended.Members(); !reflect.DeepEqual(got, []string{"Pong"}) {
		t.Errorf("Members() = %v", got)
	}
	// Skipped providers are still recorded by Mixin.
	extended.Mixin(From(base, func(e *ExtendedTool) *BaseTool { return &e.BaseTool }))
	if got := extended.Mixins(); len(got) != 2 || got[1] != "*pantheon.BaseTool" {
		t.Errorf("Mixins() = %v", got)
	}
}

func TestRelated(t *testing.T) {
	tests := []struct {
		a, b reflect.Type
		want bool
	}{
		{reflect.TypeFor[*BaseTool](), reflect.TypeFor[BaseTool](), true},
		{reflect.TypeFor[ExtendedTool](), reflect.TypeFor[BaseTool](), true},
		{reflect.TypeFor[BaseTool](), reflect.TypeFor[*ExtendedTool](), true},
		{reflect.TypeFor[ExtendedTool](), reflect.TypeFor[GroupBase](), true},
		{reflect.TypeFor[Greeter](), reflect.TypeFor[Counter](), false},
		{reflect.TypeFor[Toolbox](), reflect.TypeFor[Greeter](), false},
	}
	for _, tt := range tests {
		if got := related(tt.a, tt.b); got != tt.want {
			t.Errorf("related(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
