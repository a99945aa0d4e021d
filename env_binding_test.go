// env_binding_test.go: Tests for environment bindings
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"fmt"
	"strconv"
	"testing"
)

func TestEnvBindingDefaultKey(t *testing.T) {
	b := NewEnvBinding("FOO_BAR")
	if b.Key != "fooBar" {
		t.Errorf("Key = %q, want fooBar", b.Key)
	}
	if NewEnvBinding("FOO_BAR", MapTo("custom")).Key != "custom" {
		t.Error("MapTo did not override the key")
	}
}

func TestEnvBindingFallback(t *testing.T) {
	reached := false
	var got *Invocation
	next := func(inv *Invocation) error {
		reached = true
		got = inv
		return nil
	}

	tests := []struct {
		name    string
		env     MapEnvironment
		options Options
		want    any
		present bool
	}{
		{"set and absent", MapEnvironment{"FOO_BAR": "42"}, nil, "42", true},
		{"explicit wins", MapEnvironment{"FOO_BAR": "42"}, Options{"fooBar": "7"}, "7", true},
		{"unset", MapEnvironment{}, Options{}, nil, false},
		{"empty value is set", MapEnvironment{"FOO_BAR": ""}, nil, "", true},
	}

	handler := NewEnvBinding("FOO_BAR").Middleware()(next)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			if err := handler(&Invocation{Env: tt.env, Options: tt.options}); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reached {
				t.Fatal("Next handler not called")
			}
			if got.Options == nil {
				t.Fatal("Options map was not synthesized")
			}
			v, ok := got.Options["fooBar"]
			if ok != tt.present || (ok && v != tt.want) {
				t.Errorf("fooBar = %v (present %v), want %v (present %v)", v, ok, tt.want, tt.present)
			}
		})
	}
}

func TestEnvBindingNormalize(t *testing.T) {
	atoi := NormalizeWith(func(raw string) (any, error) {
		return strconv.Atoi(raw)
	})

	var got Options
	handler := NewEnvBinding("FOO_BAR", atoi).Middleware()(func(inv *Invocation) error {
		got = inv.Options
		return nil
	})

	if err := handler(&Invocation{Env: MapEnvironment{"FOO_BAR": "42"}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got["fooBar"] != 42 {
		t.Errorf("Expected normalized 42, got %#v", got["fooBar"])
	}

	err := handler(&Invocation{Env: MapEnvironment{"FOO_BAR": "forty-two"}})
	if errorCode(err) != ErrCodeEnvNormalize {
		t.Errorf("Expected %s, got %v", ErrCodeEnvNormalize, err)
	}
}

func TestEnvBindingProcessEnvironment(t *testing.T) {
	t.Setenv("PANTHEON_TEST_FOO_BAR", "from-process")

	var got Options
	handler := NewEnvBinding("PANTHEON_TEST_FOO_BAR", MapTo("value")).Middleware()(func(inv *Invocation) error {
		got = inv.Options
		return nil
	})
	if err := handler(&Invocation{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got["value"] != "from-process" {
		t.Errorf("Expected process value, got %v", got["value"])
	}
}

func TestEnvMarkerOnCommand(t *testing.T) {
	reg := NewRegistry(WithEnvironment(MapEnvironment{"FOO_BAR": "42"}))
	def := NewGroup[*Files](reg, "files", "")
	def.Command("List", (*Files).List, "", "").
		Option("--foo-bar <n>", "", OptionConfig{}).
		Env("FOO_BAR")

	files := &Files{}
	group, err := ToCommand(reg, files)
	if err != nil {
		t.Fatalf("ToCommand failed: %v", err)
	}
	list := group.Commands[0]

	if len(list.Env) != 1 || list.Env[0].Variable != "FOO_BAR" || list.Env[0].Key != "fooBar" {
		t.Errorf("Unexpected bindings: %+v", list.Env)
	}

	_ = list.Run(nil)
	if files.last.Options["fooBar"] != "42" {
		t.Errorf("Expected fooBar=42, got %v", files.last.Options["fooBar"])
	}

	_ = list.Run(&Invocation{Options: Options{"fooBar": "explicit"}})
	if files.last.Options["fooBar"] != "explicit" {
		t.Errorf("Expected explicit value, got %v", files.last.Options["fooBar"])
	}
}

func ExampleNewEnvBinding() {
	b := NewEnvBinding("FOO_BAR")
	fmt.Println(b.Key)
	// Output: fooBar
}
