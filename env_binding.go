// env_binding.go: Environment variables as fallback option values
//
// An environment binding lets a variable act as the default of a command
// option without ever overriding a value given on the command line.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"fmt"

	"github.com/agilira/go-errors"
)

// keyEnvBindings records the bindings of a command for introspection.
const keyEnvBindings MetadataKey = "command:env"

// NormalizeFunc converts a raw environment value into the option value.
type NormalizeFunc func(raw string) (any, error)

// EnvBinding maps an environment variable to an option key.
type EnvBinding struct {
	Variable  string
	Key       string
	Normalize NormalizeFunc
}

// EnvOption configures an EnvBinding.
type EnvOption func(*EnvBinding)

// MapTo sets the option key explicitly instead of camel-casing the variable name.
func MapTo(key string) EnvOption {
	return func(b *EnvBinding) {
		b.Key = key
	}
}

// NormalizeWith converts the raw value before it is injected.
func NormalizeWith(fn NormalizeFunc) EnvOption {
	return func(b *EnvBinding) {
		b.Normalize = fn
	}
}

// NewEnvBinding creates a binding for variable. Without MapTo the option key
// is the camel-cased variable name, so FOO_BAR maps to fooBar.
func NewEnvBinding(variable string, opts ...EnvOption) EnvBinding {
	b := EnvBinding{Variable: variable}
	for _, opt := range opts {
		opt(&b)
	}
	if b.Key == "" {
		b.Key = CamelCase(variable)
	}
	return b
}

// Middleware returns the handler wrapper that applies the binding.
func (b EnvBinding) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(inv *Invocation) error {
			if err := b.apply(inv); err != nil {
				return err
			}
			return next(inv)
		}
	}
}

// apply injects the environment value when the variable is set and the
// option is not already present.
func (b EnvBinding) apply(inv *Invocation) error {
	if inv.Options == nil {
		inv.Options = Options{}
	}

	env := inv.Env
	if env == nil {
		env = OSEnvironment{}
	}

	raw, ok := env.LookupEnv(b.Variable)
	if !ok || inv.Options.Has(b.Key) {
		return nil
	}

	var value any = raw
	if b.Normalize != nil {
		normalized, err := b.Normalize(raw)
		if err != nil {
			return errors.Wrap(err, ErrCodeEnvNormalize,
				fmt.Sprintf("invalid value for environment variable %s", b.Variable)).
				WithContext("variable", b.Variable).
				WithContext("option", b.Key)
		}
		value = normalized
	}
	inv.Options[b.Key] = value

	if inv.audit != nil && inv.Command != nil {
		inv.audit.LogEnvFallback(inv.Command.Group, inv.Command.Name, b.Variable, b.Key)
	}
	return nil
}
