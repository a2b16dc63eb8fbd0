package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// validRegistrationKinds lists recognized RegistrationEntry.Kind values.
var validRegistrationKinds = map[string]bool{
	"static":    true,
	"directory": true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.Coordinator.Hosts == "" {
		errs = append(errs, ValidationError{
			Field:   "coordinator.hosts",
			Message: "must not be empty",
		})
	}

	if cfg.Coordinator.SessionTimeoutMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "coordinator.session_timeout_ms",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Coordinator.SessionTimeoutMs),
		})
	}

	if cfg.Coordinator.ConnectTimeoutMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "coordinator.connect_timeout_ms",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Coordinator.ConnectTimeoutMs),
		})
	}

	if cfg.Daemon.HTTPPort < 1 || cfg.Daemon.HTTPPort > 65535 {
		errs = append(errs, ValidationError{
			Field:   "daemon.http_port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Daemon.HTTPPort),
		})
	}

	if cfg.Daemon.HTTPBind == "" {
		errs = append(errs, ValidationError{
			Field:   "daemon.http_bind",
			Message: "must not be empty",
		})
	}

	if cfg.Daemon.ShutdownTimeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.shutdown_timeout",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Daemon.ShutdownTimeout),
		})
	}

	if cfg.Daemon.PIDFile == "" {
		errs = append(errs, ValidationError{
			Field:   "daemon.pid_file",
			Message: "must not be empty",
		})
	}

	if cfg.Daemon.Metrics.CollectionInterval < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.metrics.collection_interval",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Daemon.Metrics.CollectionInterval),
		})
	}

	if cfg.Daemon.EventBus.BufferSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.event_bus.buffer_size",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Daemon.EventBus.BufferSize),
		})
	}

	for i, reg := range cfg.Registrations {
		if reg.Path == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("registrations[%d].path", i),
				Message: "must not be empty",
			})
		}
		if !validRegistrationKinds[reg.Kind] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("registrations[%d].kind", i),
				Message: fmt.Sprintf("must be one of: static, directory; got %q", reg.Kind),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
