// config.go: Settings for Pantheon registries
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"fmt"
	"time"

	"github.com/agilira/go-errors"
)

// Settings configures a registry created with NewRegistryFromSettings.
type Settings struct {
	// Audit configures the audit trail. Disabled by default.
	Audit AuditConfig

	// EnvFiles are dotenv files layered over the process environment for
	// environment bindings. Later files win over earlier ones, the process
	// environment wins over all files.
	EnvFiles []string
}

// WithDefaults applies sensible defaults to the settings
func (s *Settings) WithDefaults() *Settings {
	settings := *s

	if settings.Audit.BufferSize <= 0 {
		settings.Audit.BufferSize = 100
	}

	if settings.Audit.FlushInterval <= 0 {
		settings.Audit.FlushInterval = 5 * time.Second
	}

	if len(settings.EnvFiles) > 0 {
		settings.EnvFiles = append([]string(nil), settings.EnvFiles...)
	}

	return &settings
}

// Validate reports settings that cannot produce a working registry.
func (s *Settings) Validate() error {
	if s.Audit.BufferSize < 0 {
		return errors.New(ErrCodeInvalidSettings, "audit buffer size cannot be negative").
			WithContext("buffer_size", s.Audit.BufferSize)
	}
	if s.Audit.FlushInterval < 0 {
		return errors.New(ErrCodeInvalidSettings, "audit flush interval cannot be negative").
			WithContext("flush_interval", s.Audit.FlushInterval.String())
	}
	if s.Audit.MinLevel < AuditInfo || s.Audit.MinLevel > AuditSecurity {
		return errors.New(ErrCodeInvalidSettings, fmt.Sprintf("unknown audit level %d", s.Audit.MinLevel))
	}
	return nil
}

// NewRegistryFromSettings creates a registry with the environment source and
// audit logger described by settings. The caller owns the registry and must
// Close it to flush the audit trail.
func NewRegistryFromSettings(settings *Settings) (*Registry, error) {
	if settings == nil {
		settings = &Settings{}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings = settings.WithDefaults()

	opts := []RegistryOption{}

	if len(settings.EnvFiles) > 0 {
		env, err := DotenvEnvironment(settings.EnvFiles...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithEnvironment(env))
	}

	var auditLogger *AuditLogger
	if settings.Audit.Enabled {
		al, err := NewAuditLogger(settings.Audit)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeAudit, "failed to create audit logger")
		}
		auditLogger = al
		opts = append(opts, WithAuditLogger(al))
	}

	reg := NewRegistry(opts...)
	reg.ownsAudit = auditLogger != nil
	return reg, nil
}
