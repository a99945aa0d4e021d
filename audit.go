// audit.go: Audit trail for command tree construction and invocation
//
// Records when command trees are built or rebuilt, which providers were
// mixed into a group, which commands ran, and when an environment variable
// supplied an option value. Events are buffered and written by a pluggable
// backend (SQLite or JSONL).
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
	AuditSecurity
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	case AuditSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// Audit event names
const (
	EventTreeBuilt      = "tree_built"
	EventTreeRebuilt    = "tree_rebuilt"
	EventCommandInvoked = "command_invoked"
	EventCommandFailed  = "command_failed"
	EventEnvFallback    = "env_fallback"
	EventMixinMerged    = "mixin_merged"
)

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	Target      string                 `json:"target,omitempty"`
	Group       string                 `json:"group,omitempty"`
	Command     string                 `json:"command,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"`
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	OutputFile    string        `json:"output_file" yaml:"output_file"`
	MinLevel      AuditLevel    `json:"min_level" yaml:"min_level"`
	BufferSize    int           `json:"buffer_size" yaml:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
}

// DefaultAuditConfig returns an enabled configuration writing to the default
// SQLite database. Use an OutputFile with a .jsonl extension for JSON lines.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger buffers audit events and flushes them to a backend, either
// when the buffer is full or on a fixed interval.
//
// A nil *AuditLogger is valid and discards every event.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger creates an audit logger. Backend selection follows the
// OutputFile extension: .jsonl selects JSON lines, anything else SQLite with
// a JSON lines fallback.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}

	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to initialize audit backend")
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: getProcessName(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event.
func (al *AuditLogger) Log(level AuditLevel, event, target, group, command string, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Target:      target,
		Group:       group,
		Command:     command,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = al.generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // next flush retries
	}
	al.bufferMu.Unlock()
}

// LogTreeBuilt records a tree build. forced marks a rebuild that bypassed the cache.
func (al *AuditLogger) LogTreeBuilt(target, group string, commands int, forced bool) {
	event := EventTreeBuilt
	if forced {
		event = EventTreeRebuilt
	}
	al.Log(AuditInfo, event, target, group, "", map[string]interface{}{
		"commands": commands,
	})
}

// LogMixin records a provider merged into target.
func (al *AuditLogger) LogMixin(target, provider string, merged int) {
	al.Log(AuditInfo, EventMixinMerged, target, "", "", map[string]interface{}{
		"provider": provider,
		"merged":   merged,
	})
}

// LogInvocation records the outcome of a command run.
func (al *AuditLogger) LogInvocation(group, command string, elapsed time.Duration, err error) {
	if err != nil {
		al.Log(AuditWarn, EventCommandFailed, "", group, command, map[string]interface{}{
			"error":       err.Error(),
			"duration_ns": elapsed.Nanoseconds(),
		})
		return
	}
	al.Log(AuditInfo, EventCommandInvoked, "", group, command, map[string]interface{}{
		"duration_ns": elapsed.Nanoseconds(),
	})
}

// LogEnvFallback records an option value taken from the environment. The
// value itself is not recorded.
func (al *AuditLogger) LogEnvFallback(group, command, variable, key string) {
	al.Log(AuditInfo, EventEnvFallback, "", group, command, map[string]interface{}{
		"variable": variable,
		"option":   key,
	})
}

// AuditMiddleware records every invocation of the wrapped command on al.
// Registries created with WithAuditLogger do this for all commands already;
// use it to audit selected commands against a separate logger.
func AuditMiddleware(al *AuditLogger) Middleware {
	return func(next Handler) Handler {
		return func(inv *Invocation) error {
			start := time.Now()
			err := next(inv)
			group, command := "", ""
			if inv.Command != nil {
				group, command = inv.Command.Group, inv.Command.Name
			}
			al.LogInvocation(group, command, time.Since(start), err)
			return err
		}
	}
}

// Stats returns statistics from the backend after flushing pending events.
func (al *AuditLogger) Stats() (*AuditDatabaseStats, error) {
	if al == nil || al.backend == nil {
		return nil, errors.New(ErrCodeAudit, "audit logger is not configured")
	}
	if err := al.Flush(); err != nil {
		return nil, err
	}
	stats, err := al.backend.GetStats()
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to read audit statistics")
	}
	return stats, nil
}

// Flush immediately writes all buffered events and commits them to storage.
func (al *AuditLogger) Flush() error {
	if al == nil || al.backend == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	if err := al.flushBufferUnsafe(); err != nil {
		return err
	}
	if err := al.backend.Flush(); err != nil {
		return errors.Wrap(err, ErrCodeAudit, "failed to commit audit backend")
	}
	return nil
}

// Maintenance flushes pending events and runs backend housekeeping. The
// SQLite backend drops events past the retention period; JSON lines files
// are left to external rotation.
func (al *AuditLogger) Maintenance() error {
	if al == nil || al.backend == nil {
		return errors.New(ErrCodeAudit, "audit logger is not configured")
	}
	if err := al.Flush(); err != nil {
		return err
	}
	if err := al.backend.Maintenance(); err != nil {
		return errors.Wrap(err, ErrCodeAudit, "failed to run audit maintenance")
	}
	return nil
}

// Close stops the background flusher, flushes, and releases the backend.
// Calling Close more than once is safe.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}

	var closeErr error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}

		if err := al.Flush(); err != nil {
			closeErr = errors.Wrap(err, ErrCodeAudit, "failed to flush audit logger during close")
			return
		}

		if al.backend != nil {
			if err := al.backend.Close(); err != nil {
				closeErr = errors.Wrap(err, ErrCodeAudit, "failed to close audit backend")
			}
		}
	})
	return closeErr
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes buffer to the backend (caller must hold bufferMu).
// The buffer is kept on failure.
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}

	if err := al.backend.Write(al.buffer); err != nil {
		return errors.Wrap(err, ErrCodeAudit, "failed to write audit events to backend")
	}

	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func (al *AuditLogger) generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%v",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Target, event.Group, event.Command, event.Context)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func getProcessName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "pantheon"
	}
	return filepath.Base(os.Args[0])
}
