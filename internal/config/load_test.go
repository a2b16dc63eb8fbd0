package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig_ReturnsTypedConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: debug
log_file: /var/log/test.log
coordinator:
  hosts: zk1:2181,zk2:2181,zk3:2181
  session_timeout_ms: 8000
  connect_timeout_ms: 3000
daemon:
  http_port: 8080
  http_bind: "0.0.0.0"
  shutdown_timeout: 60
  pid_file: /tmp/test.pid
  metrics:
    collection_interval: 30
  event_bus:
    buffer_size: 200
registrations:
  - path: /feature/dark_mode
    kind: static
    default: "off"
  - path: /pool/workers
    kind: directory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Daemon.HTTPPort != 8080 {
		t.Errorf("Daemon.HTTPPort = %d, want %d", cfg.Daemon.HTTPPort, 8080)
	}
	if cfg.Daemon.EventBus.BufferSize != 200 {
		t.Errorf("Daemon.EventBus.BufferSize = %d, want %d", cfg.Daemon.EventBus.BufferSize, 200)
	}
	if cfg.Coordinator.Hosts != "zk1:2181,zk2:2181,zk3:2181" {
		t.Errorf("Coordinator.Hosts = %q, want %q", cfg.Coordinator.Hosts, "zk1:2181,zk2:2181,zk3:2181")
	}
	if len(cfg.Registrations) != 2 {
		t.Fatalf("Registrations = %d entries, want 2", len(cfg.Registrations))
	}
	if cfg.Registrations[0].Path != "/feature/dark_mode" || cfg.Registrations[0].Default != "off" {
		t.Errorf("Registrations[0] = %+v, want path /feature/dark_mode default off", cfg.Registrations[0])
	}
	if cfg.Registrations[1].Kind != "directory" {
		t.Errorf("Registrations[1].Kind = %q, want directory", cfg.Registrations[1].Kind)
	}
}

func TestLoad_InvalidConfig_ReturnsValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `daemon:
  http_port: 99999
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	_, err := LoadFromPath(configPath)
	if err == nil {
		t.Fatal("LoadFromPath() expected error for invalid port")
	}

	if !IsValidationError(err) {
		t.Errorf("expected validation error, got %T: %v", err, err)
	}
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("LoadFromPath() expected error for missing file")
	}
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `invalid: [yaml: content`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	_, err := LoadFromPath(configPath)
	if err == nil {
		t.Fatal("LoadFromPath() expected error for invalid YAML")
	}
}

func TestLoadWithDefaults_ReturnsDefaultConfig(t *testing.T) {
	cfg := LoadWithDefaults()

	if cfg == nil {
		t.Fatal("LoadWithDefaults() returned nil")
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Daemon.HTTPPort != DefaultDaemonHTTPPort {
		t.Errorf("Daemon.HTTPPort = %d, want %d", cfg.Daemon.HTTPPort, DefaultDaemonHTTPPort)
	}
	if cfg.Coordinator.Hosts != DefaultCoordinatorHosts {
		t.Errorf("Coordinator.Hosts = %q, want %q", cfg.Coordinator.Hosts, DefaultCoordinatorHosts)
	}
}

func TestLoad_UsesViperDefaults_WhenKeysNotInFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}

	if cfg.Daemon.HTTPPort != DefaultDaemonHTTPPort {
		t.Errorf("Daemon.HTTPPort = %d, want default %d", cfg.Daemon.HTTPPort, DefaultDaemonHTTPPort)
	}
	if cfg.Coordinator.Hosts != DefaultCoordinatorHosts {
		t.Errorf("Coordinator.Hosts = %q, want default %q", cfg.Coordinator.Hosts, DefaultCoordinatorHosts)
	}
}
