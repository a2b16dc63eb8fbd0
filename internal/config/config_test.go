package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit_NoConfigFile_UsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	t.Setenv("HOME", tmpDir)

	origDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	t.Cleanup(func() { os.Chdir(origDir) })

	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error when no config file exists: %v", err)
	}

	if path := ConfigFilePath(); path != "" {
		t.Errorf("ConfigFilePath() = %q, want empty string when no config file", path)
	}
}

func TestInit_ConfigInEnvDir_LoadsFromEnvDir(t *testing.T) {
	envDir := t.TempDir()
	configPath := filepath.Join(envDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 9999\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("ZKRECIPES_CONFIG_DIR", envDir)
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	loadedPath := ConfigFilePath()
	if loadedPath != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", loadedPath, configPath)
	}
}

func TestInit_InvalidYAML_ReturnsFatalError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	invalidYAML := "daemon:\n  http_port: [invalid yaml"
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	Reset()

	err := Init()
	if err == nil {
		t.Fatal("Init() should return error for invalid YAML, got nil")
	}
}

func TestInit_UnreadableFile_ReturnsFatalError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping test when running as root")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 1234\n"), 0000); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer func() { _ = os.Chmod(configPath, 0644) }()

	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	Reset()

	err := Init()
	if err == nil {
		t.Fatal("Init() should return error for unreadable file, got nil")
	}
}

func TestEnvOverride_SimpleKey_OverridesFileValue(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 8080\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	t.Setenv("ZKRECIPES_DAEMON_HTTP_PORT", "9999")
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Daemon.HTTPPort != 9999 {
		t.Errorf("Get().Daemon.HTTPPort = %d, want 9999 (env override)", cfg.Daemon.HTTPPort)
	}
}

func TestEnvOverride_NestedKey_MapsCorrectly(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("daemon:\n  metrics:\n    collection_interval: 30\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	t.Setenv("ZKRECIPES_DAEMON_METRICS_COLLECTION_INTERVAL", "120")
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Daemon.Metrics.CollectionInterval != 120 {
		t.Errorf("Get().Daemon.Metrics.CollectionInterval = %d, want 120 (env override)", cfg.Daemon.Metrics.CollectionInterval)
	}
}

func TestEnvOverride_NoFileValue_UsesEnvValue(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	t.Setenv("HOME", tmpDir)

	origDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ZKRECIPES_DAEMON_HTTP_BIND", "0.0.0.0")
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Daemon.HTTPBind != "0.0.0.0" {
		t.Errorf("Get().Daemon.HTTPBind = %q, want 0.0.0.0 (env value)", cfg.Daemon.HTTPBind)
	}
}

func TestGet_ReturnsTypedConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `daemon:
  http_port: 8080
  http_bind: 127.0.0.1
coordinator:
  hosts: zk1:2181,zk2:2181
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	Reset()

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	if cfg.Daemon.HTTPPort != 8080 {
		t.Errorf("Get().Daemon.HTTPPort = %d, want 8080", cfg.Daemon.HTTPPort)
	}
	if cfg.Coordinator.Hosts != "zk1:2181,zk2:2181" {
		t.Errorf("Get().Coordinator.Hosts = %q, want zk1:2181,zk2:2181", cfg.Coordinator.Hosts)
	}
}

func TestGet_BeforeInit_ReturnsNil(t *testing.T) {
	Reset()
	if cfg := Get(); cfg != nil {
		t.Errorf("Get() before Init() = %v, want nil", cfg)
	}
}

func TestMustGet_BeforeInit_Panics(t *testing.T) {
	Reset()
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustGet() before Init() should panic")
		}
	}()
	_ = MustGet()
}

func TestReload_ValidConfig_UpdatesValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 8080\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	Reset()

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Daemon.HTTPPort != 8080 {
		t.Errorf("Get().Daemon.HTTPPort = %d, want 8080", cfg.Daemon.HTTPPort)
	}

	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 9999\n"), 0644); err != nil {
		t.Fatalf("failed to update config file: %v", err)
	}

	if err := Reload(); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}

	cfg = Get()
	if cfg.Daemon.HTTPPort != 9999 {
		t.Errorf("Get().Daemon.HTTPPort = %d after reload, want 9999", cfg.Daemon.HTTPPort)
	}
}

func TestReload_InvalidConfig_RetainsPreviousValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 8080\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("ZKRECIPES_CONFIG_DIR", tmpDir)
	Reset()

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Daemon.HTTPPort != 8080 {
		t.Errorf("Get().Daemon.HTTPPort = %d, want 8080", cfg.Daemon.HTTPPort)
	}

	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: [invalid yaml"), 0644); err != nil {
		t.Fatalf("failed to corrupt config file: %v", err)
	}

	err := Reload()
	if err == nil {
		t.Error("Reload() should return error for invalid YAML")
	}

	cfg = Get()
	if cfg.Daemon.HTTPPort != 8080 {
		t.Errorf("Get().Daemon.HTTPPort = %d after failed reload, want 8080 (retained)", cfg.Daemon.HTTPPort)
	}
}

func TestExpandHome(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME environment variable not set")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"no tilde", "/absolute/path", "/absolute/path"},
		{"relative path", "relative/path", "relative/path"},
		{"tilde only", "~", home},
		{"tilde with slash", "~/config", filepath.Join(home, "config")},
		{"tilde with nested path", "~/.config/zk-recipes", filepath.Join(home, ".config/zk-recipes")},
		{"tilde not at start", "/path/to/~", "/path/to/~"},
		{"tilde without slash", "~invalid", "~invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandHome(tt.input)
			if got != tt.want {
				t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandHome_NoHome(t *testing.T) {
	origHome := os.Getenv("HOME")
	defer func() { _ = os.Setenv("HOME", origHome) }()

	_ = os.Unsetenv("HOME")

	input := "~/.config/zk-recipes"
	got := expandHome(input)
	if got != input {
		t.Errorf("expandHome(%q) with no HOME = %q, want %q (unchanged)", input, got, input)
	}
}

func TestExpandPath_ExpandsTilde(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME environment variable not set")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tilde path", "~/.config/zk-recipes/app.log", filepath.Join(home, ".config/zk-recipes/app.log")},
		{"absolute path", "/var/log/zk-recipes.log", "/var/log/zk-recipes.log"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPath(tt.input)
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
