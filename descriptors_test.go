// descriptors_test.go: Tests for option and argument syntax parsing
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import "testing"

func TestNewOptionDescriptor(t *testing.T) {
	tests := []struct {
		flags     string
		short     string
		long      string
		valueName string
		required  bool
		optional  bool
		negate    bool
		key       string
	}{
		{"-a, --all", "a", "all", "", false, false, false, "all"},
		{"-f, --format <type>", "f", "format", "type", true, false, false, "format"},
		{"--dry-run", "", "dry-run", "", false, false, false, "dryRun"},
		{"--no-color", "", "no-color", "", false, false, true, "color"},
		{"-o [file]", "o", "", "file", false, true, false, "o"},
		{"-p|--port <n>", "p", "port", "n", true, false, false, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.flags, func(t *testing.T) {
			opt := NewOptionDescriptor(tt.flags, "desc")
			if opt.Flags != tt.flags {
				t.Errorf("Flags = %q, want %q", opt.Flags, tt.flags)
			}
			if opt.Short != tt.short || opt.Long != tt.long {
				t.Errorf("Short/Long = %q/%q, want %q/%q", opt.Short, opt.Long, tt.short, tt.long)
			}
			if opt.ValueName != tt.valueName {
				t.Errorf("ValueName = %q, want %q", opt.ValueName, tt.valueName)
			}
			if opt.ValueRequired != tt.required || opt.ValueOptional != tt.optional {
				t.Errorf("ValueRequired/Optional = %v/%v, want %v/%v",
					opt.ValueRequired, opt.ValueOptional, tt.required, tt.optional)
			}
			if opt.Negate != tt.negate {
				t.Errorf("Negate = %v, want %v", opt.Negate, tt.negate)
			}
			if opt.Key() != tt.key {
				t.Errorf("Key() = %q, want %q", opt.Key(), tt.key)
			}
			if opt.IsBool() != (!tt.required && !tt.optional) {
				t.Errorf("IsBool() = %v", opt.IsBool())
			}
		})
	}
}

func TestNewArgumentDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		required bool
		variadic bool
	}{
		{"<dir>", "dir", true, false},
		{"[dir]", "dir", false, false},
		{"dir", "dir", true, false},
		{"<files...>", "files", true, true},
		{"[rest...]", "rest", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arg := NewArgumentDescriptor(tt.name, "")
			if arg.Name != tt.name {
				t.Errorf("Name = %q, want %q", arg.Name, tt.name)
			}
			if arg.Key() != tt.key {
				t.Errorf("Key() = %q, want %q", arg.Key(), tt.key)
			}
			if arg.Required != tt.required || arg.Variadic != tt.variadic {
				t.Errorf("Required/Variadic = %v/%v, want %v/%v",
					arg.Required, arg.Variadic, tt.required, tt.variadic)
			}
		})
	}
}

func TestDefaultDisplay(t *testing.T) {
	arg := NewArgumentDescriptor("[dir]", "")
	if arg.DefaultDisplay() != "" || arg.HasDefault() {
		t.Error("Expected no default")
	}

	arg.DefaultValue = "."
	if arg.DefaultDisplay() != "." {
		t.Errorf("DefaultDisplay() = %q", arg.DefaultDisplay())
	}

	arg.DefaultValueDescription = "current directory"
	if arg.DefaultDisplay() != "current directory" {
		t.Errorf("DefaultDisplay() = %q", arg.DefaultDisplay())
	}

	opt := NewOptionDescriptor("--retries <n>", "")
	opt.DefaultValue = 3
	if opt.DefaultDisplay() != "3" {
		t.Errorf("DefaultDisplay() = %q", opt.DefaultDisplay())
	}
}

func TestCasing(t *testing.T) {
	kebab := map[string]string{
		"ListAll":  "list-all",
		"list_all": "list-all",
		"Files":    "files",
		"list":     "list",
	}
	for in, want := range kebab {
		if got := KebabCase(in); got != want {
			t.Errorf("KebabCase(%q) = %q, want %q", in, got, want)
		}
	}

	camel := map[string]string{
		"FOO_BAR": "fooBar",
		"dry-run": "dryRun",
		"format":  "format",
	}
	for in, want := range camel {
		if got := CamelCase(in); got != want {
			t.Errorf("CamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}
