// descriptors.go: Option and argument descriptors
//
// Descriptors use the flag and argument syntax familiar from command-line
// help text: "-f, --format <type>" for options and "<dir>", "[dir]" or
// "<files...>" for arguments. The syntax is parsed once, when the descriptor
// is created, so command engines only read structured fields.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"fmt"
	"strings"
)

// OptionDescriptor describes a named, non-positional command input.
type OptionDescriptor struct {
	Flags                   string // Raw flag syntax, e.g. "-f, --format <type>"
	Description             string
	DefaultValue            any
	DefaultValueDescription string
	Choices                 []string
	Hidden                  bool

	Short         string // Short flag without dash ("f")
	Long          string // Long flag without dashes ("format")
	ValueName     string // Placeholder name ("type")
	ValueRequired bool   // <value>
	ValueOptional bool   // [value]
	Negate        bool   // --no-<name>
}

// OptionPresent is the value an optional-value option ("--opt [value]")
// holds when it is given without a value.
const OptionPresent = "true"

// NewOptionDescriptor parses flags and returns the resulting descriptor.
func NewOptionDescriptor(flags, description string) OptionDescriptor {
	opt := OptionDescriptor{Flags: flags, Description: description}

	for _, token := range strings.FieldsFunc(flags, func(r rune) bool {
		return r == ' ' || r == ',' || r == '|'
	}) {
		switch {
		case strings.HasPrefix(token, "<"):
			opt.ValueRequired = true
			opt.ValueName = strings.Trim(token, "<>.")
		case strings.HasPrefix(token, "["):
			opt.ValueOptional = true
			opt.ValueName = strings.Trim(token, "[].")
		case strings.HasPrefix(token, "--"):
			opt.Long = strings.TrimPrefix(token, "--")
		case strings.HasPrefix(token, "-"):
			opt.Short = strings.TrimPrefix(token, "-")
		}
	}

	if strings.HasPrefix(opt.Long, "no-") {
		opt.Negate = true
	}
	return opt
}

// Key returns the attribute name the option value is stored under:
// "--dry-run" is "dryRun", "--no-color" is "color".
func (o OptionDescriptor) Key() string {
	name := o.Long
	if o.Negate {
		name = strings.TrimPrefix(name, "no-")
	}
	if name == "" {
		name = o.Short
	}
	return CamelCase(name)
}

// IsBool reports whether the option is a switch that takes no value.
func (o OptionDescriptor) IsBool() bool {
	return !o.ValueRequired && !o.ValueOptional
}

// HasDefault reports whether a default value was attached.
func (o OptionDescriptor) HasDefault() bool {
	return o.DefaultValue != nil
}

// DefaultDisplay returns the text shown for the default value in help output.
func (o OptionDescriptor) DefaultDisplay() string {
	return defaultDisplay(o.DefaultValue, o.DefaultValueDescription)
}

// ArgumentDescriptor describes a positional command input.
type ArgumentDescriptor struct {
	Name                    string // Raw syntax, e.g. "<dir>", "[dir]", "<files...>"
	Description             string
	DefaultValue            any
	DefaultValueDescription string
	Choices                 []string

	key      string
	Required bool
	Variadic bool
}

// NewArgumentDescriptor parses name and returns the resulting descriptor.
// A bare name without brackets is required.
func NewArgumentDescriptor(name, description string) ArgumentDescriptor {
	arg := ArgumentDescriptor{Name: name, Description: description}

	inner := strings.TrimSpace(name)
	switch {
	case strings.HasPrefix(inner, "["):
		inner = strings.TrimSuffix(strings.TrimPrefix(inner, "["), "]")
	case strings.HasPrefix(inner, "<"):
		inner = strings.TrimSuffix(strings.TrimPrefix(inner, "<"), ">")
		arg.Required = true
	default:
		arg.Required = true
	}

	if strings.HasSuffix(inner, "...") {
		arg.Variadic = true
		inner = strings.TrimSuffix(inner, "...")
	}
	arg.key = inner
	return arg
}

// Key returns the argument name without brackets or ellipsis.
func (a ArgumentDescriptor) Key() string {
	return a.key
}

// HasDefault reports whether a default value was attached.
func (a ArgumentDescriptor) HasDefault() bool {
	return a.DefaultValue != nil
}

// DefaultDisplay returns the text shown for the default value in help output.
func (a ArgumentDescriptor) DefaultDisplay() string {
	return defaultDisplay(a.DefaultValue, a.DefaultValueDescription)
}

func defaultDisplay(value any, description string) string {
	if description != "" {
		return description
	}
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// checkChoice returns an ErrCodeInvalidChoice error when choices is non-empty
// and value is not one of them.
func checkChoice(kind, name, value string, choices []string) error {
	if len(choices) == 0 {
		return nil
	}
	for _, c := range choices {
		if c == value {
			return nil
		}
	}
	return newChoiceError(kind, name, value, choices)
}
