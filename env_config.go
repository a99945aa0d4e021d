// env_config.go: Environment sources and environment-based settings
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/joho/godotenv"
)

// Environment is a read-only mapping from variable name to value.
type Environment interface {
	LookupEnv(name string) (string, bool)
}

// OSEnvironment reads the process environment.
type OSEnvironment struct{}

// LookupEnv implements Environment
func (OSEnvironment) LookupEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapEnvironment is an Environment backed by a map, mostly useful in tests.
type MapEnvironment map[string]string

// LookupEnv implements Environment
func (m MapEnvironment) LookupEnv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// layeredEnvironment consults its layers in order, first hit wins.
type layeredEnvironment []Environment

func (l layeredEnvironment) LookupEnv(name string) (string, bool) {
	for _, env := range l {
		if v, ok := env.LookupEnv(name); ok {
			return v, true
		}
	}
	return "", false
}

// DotenvEnvironment returns an Environment that consults the process
// environment first and then the variables read from the dotenv files.
// Later files override earlier ones.
func DotenvEnvironment(paths ...string) (Environment, error) {
	values, err := godotenv.Read(paths...)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidSettings, "failed to read env files").
			WithContext("files", strings.Join(paths, ","))
	}
	return layeredEnvironment{OSEnvironment{}, MapEnvironment(values)}, nil
}

// LoadSettingsFromEnv loads registry settings from PANTHEON_* variables.
//
//	PANTHEON_AUDIT_ENABLED          true/false
//	PANTHEON_AUDIT_OUTPUT_FILE      .db (SQLite) or .jsonl path
//	PANTHEON_AUDIT_MIN_LEVEL        info, warn, critical, security
//	PANTHEON_AUDIT_BUFFER_SIZE      events buffered before a flush
//	PANTHEON_AUDIT_FLUSH_INTERVAL   Go duration
//	PANTHEON_ENV_FILES              comma separated dotenv files
func LoadSettingsFromEnv() (*Settings, error) {
	settings := &Settings{}

	if enabled := os.Getenv("PANTHEON_AUDIT_ENABLED"); enabled != "" {
		settings.Audit.Enabled = parseBool(enabled)
	}

	settings.Audit.OutputFile = os.Getenv("PANTHEON_AUDIT_OUTPUT_FILE")

	if levelStr := os.Getenv("PANTHEON_AUDIT_MIN_LEVEL"); levelStr != "" {
		level, err := parseAuditLevel(levelStr)
		if err != nil {
			return nil, err
		}
		settings.Audit.MinLevel = level
	}

	if bufferStr := os.Getenv("PANTHEON_AUDIT_BUFFER_SIZE"); bufferStr != "" {
		buffer, err := strconv.Atoi(bufferStr)
		if err != nil || buffer <= 0 {
			return nil, errors.New(ErrCodeInvalidSettings, "invalid PANTHEON_AUDIT_BUFFER_SIZE value")
		}
		settings.Audit.BufferSize = buffer
	}

	if flushStr := os.Getenv("PANTHEON_AUDIT_FLUSH_INTERVAL"); flushStr != "" {
		duration, err := time.ParseDuration(flushStr)
		if err != nil {
			return nil, errors.New(ErrCodeInvalidSettings, "invalid PANTHEON_AUDIT_FLUSH_INTERVAL format")
		}
		settings.Audit.FlushInterval = duration
	}

	if files := os.Getenv("PANTHEON_ENV_FILES"); files != "" {
		for _, f := range strings.Split(files, ",") {
			if f = strings.TrimSpace(f); f != "" {
				settings.EnvFiles = append(settings.EnvFiles, f)
			}
		}
	}

	return settings.WithDefaults(), nil
}

// parseAuditLevel parses audit level string to AuditLevel type
func parseAuditLevel(levelStr string) (AuditLevel, error) {
	switch strings.ToLower(levelStr) {
	case "info":
		return AuditInfo, nil
	case "warn", "warning":
		return AuditWarn, nil
	case "critical", "error":
		return AuditCritical, nil
	case "security":
		return AuditSecurity, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidSettings, "invalid audit level").
			WithContext("level", levelStr)
	}
}
