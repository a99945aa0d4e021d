// manifest.go: Declaring command groups from YAML
//
// A manifest carries the same declarations as the markers. Handlers cannot
// be expressed in YAML, so each command names a member that is resolved
// against a method table supplied by the caller:
//
//	group:
//	  name: files
//	  description: File operations
//	commands:
//	  - member: List
//	    description: List a directory
//	    options:
//	      - flags: "-a, --all"
//	        description: Include hidden entries
//	    arguments:
//	      - name: "[dir]"
//	        default: "."
//	    env:
//	      - variable: FILES_ROOT
//	        key: root
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"bytes"
	"fmt"
	"os"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// Manifest is the YAML form of a group declaration.
type Manifest struct {
	Group    *ManifestGroup    `yaml:"group"`
	Commands []ManifestCommand `yaml:"commands"`
}

type ManifestGroup struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type ManifestCommand struct {
	Member      string             `yaml:"member"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Options     []ManifestOption   `yaml:"options"`
	Arguments   []ManifestArgument `yaml:"arguments"`
	Env         []ManifestEnv      `yaml:"env"`
}

type ManifestOption struct {
	Flags              string   `yaml:"flags"`
	Description        string   `yaml:"description"`
	Default            any      `yaml:"default"`
	DefaultDescription string   `yaml:"default_description"`
	Choices            []string `yaml:"choices"`
	Hidden             bool     `yaml:"hidden"`
}

type ManifestArgument struct {
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	Default            any      `yaml:"default"`
	DefaultDescription string   `yaml:"default_description"`
	Choices            []string `yaml:"choices"`
}

type ManifestEnv struct {
	Variable string `yaml:"variable"`
	Key      string `yaml:"key"`
}

// ParseManifest decodes a YAML manifest. Unknown fields are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidManifest, "failed to parse manifest")
	}
	for i, c := range m.Commands {
		if c.Member == "" {
			return nil, errors.New(ErrCodeInvalidManifest,
				fmt.Sprintf("command %d has no member", i)).WithContext("index", i)
		}
	}
	return &m, nil
}

// ApplyManifest applies the declarations in data to def. Each command member
// is looked up in methods; a member without a method is recorded as a
// definition error and reported when the tree is built.
func ApplyManifest[T any](def *Definition[T], data []byte, methods map[string]Method[T]) error {
	m, err := ParseManifest(data)
	if err != nil {
		return err
	}
	applyManifest(def, m, methods)
	return nil
}

// ApplyManifestFile reads path and applies it like ApplyManifest.
func ApplyManifestFile[T any](def *Definition[T], path string, methods map[string]Method[T]) error {
	data, err := os.ReadFile(path) // #nosec G304 -- manifest path is chosen by the program author
	if err != nil {
		return errors.Wrap(err, ErrCodeInvalidManifest, "failed to read manifest").
			WithContext("path", path)
	}
	return ApplyManifest(def, data, methods)
}

func applyManifest[T any](def *Definition[T], m *Manifest, methods map[string]Method[T]) {
	if m.Group != nil {
		def.Group(m.Group.Name, m.Group.Description)
	}

	for _, c := range m.Commands {
		method, ok := methods[c.Member]
		if !ok {
			def.fail(errors.New(ErrCodeInvalidDefinition,
				fmt.Sprintf("manifest command %q of %s has no method", c.Member, def.target)).
				WithContext("member", c.Member))
			continue
		}

		cmd := def.Command(c.Member, method, c.Name, c.Description)
		for _, o := range c.Options {
			cmd.Option(o.Flags, o.Description, OptionConfig{
				DefaultValue:            o.Default,
				DefaultValueDescription: o.DefaultDescription,
				ValidValues:             o.Choices,
				HideFromHelp:            o.Hidden,
			})
		}
		for _, a := range c.Arguments {
			cmd.Argument(a.Name, a.Description, ArgumentConfig{
				DefaultValue:            a.Default,
				DefaultValueDescription: a.DefaultDescription,
				ValidValues:             a.Choices,
			})
		}
		for _, e := range c.Env {
			var opts []EnvOption
			if e.Key != "" {
				opts = append(opts, MapTo(e.Key))
			}
			cmd.Env(e.Variable, opts...)
		}
	}
}
