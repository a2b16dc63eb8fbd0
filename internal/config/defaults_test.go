package config

import "testing"

func TestNewDefaultConfig_PopulatesAllSections(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Coordinator.Hosts != DefaultCoordinatorHosts {
		t.Errorf("Coordinator.Hosts = %q, want %q", cfg.Coordinator.Hosts, DefaultCoordinatorHosts)
	}
	if cfg.Coordinator.SessionTimeoutMs != DefaultCoordinatorSessionTimeoutMs {
		t.Errorf("Coordinator.SessionTimeoutMs = %d, want %d", cfg.Coordinator.SessionTimeoutMs, DefaultCoordinatorSessionTimeoutMs)
	}
	if cfg.Daemon.HTTPPort != DefaultDaemonHTTPPort {
		t.Errorf("Daemon.HTTPPort = %d, want %d", cfg.Daemon.HTTPPort, DefaultDaemonHTTPPort)
	}
	if cfg.Daemon.EventBus.BufferSize != DefaultDaemonEventBusBufferSize {
		t.Errorf("Daemon.EventBus.BufferSize = %d, want %d", cfg.Daemon.EventBus.BufferSize, DefaultDaemonEventBusBufferSize)
	}
	if cfg.Registrations != nil {
		t.Errorf("Registrations = %v, want nil by default", cfg.Registrations)
	}
}

func TestNewDefaultConfig_PassesValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := Validate(&cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil for default config", err)
	}
}
