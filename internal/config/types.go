package config

// Config is the root configuration structure for the daemon.
type Config struct {
	LogLevel      string              `yaml:"log_level" mapstructure:"log_level"`
	LogFile       string              `yaml:"log_file" mapstructure:"log_file"`
	Coordinator   CoordinatorConfig   `yaml:"coordinator" mapstructure:"coordinator"`
	Daemon        DaemonConfig        `yaml:"daemon" mapstructure:"daemon"`
	Registrations []RegistrationEntry `yaml:"registrations" mapstructure:"registrations"`
}

// CoordinatorConfig holds ZooKeeper ensemble connection configuration.
type CoordinatorConfig struct {
	// Hosts is the comma-separated ensemble member list, e.g.
	// "zk1:2181,zk2:2181,zk3:2181".
	Hosts string `yaml:"hosts" mapstructure:"hosts"`

	// SessionTimeoutMs is the ZooKeeper session timeout in milliseconds.
	SessionTimeoutMs int `yaml:"session_timeout_ms" mapstructure:"session_timeout_ms"`

	// ConnectTimeoutMs bounds the initial dial attempt.
	ConnectTimeoutMs int `yaml:"connect_timeout_ms" mapstructure:"connect_timeout_ms"`
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	HTTPPort        int            `yaml:"http_port" mapstructure:"http_port"`
	HTTPBind        string         `yaml:"http_bind" mapstructure:"http_bind"`
	ShutdownTimeout int            `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	PIDFile         string         `yaml:"pid_file" mapstructure:"pid_file"`
	Metrics         MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	EventBus        EventBusConfig `yaml:"event_bus" mapstructure:"event_bus"`
}

// MetricsConfig holds metrics collection configuration.
type MetricsConfig struct {
	CollectionInterval int `yaml:"collection_interval" mapstructure:"collection_interval"` // seconds
}

// EventBusConfig holds event bus configuration.
type EventBusConfig struct {
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// RegistrationEntry declares a static or directory path the daemon warms at
// startup. Kind selects which CacheFacade registration method is called;
// Default is only meaningful for static entries.
type RegistrationEntry struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Kind    string `yaml:"kind" mapstructure:"kind"` // "static" or "directory"
	Default string `yaml:"default,omitempty" mapstructure:"default"`
}
