package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	// Logging defaults.
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/zk-recipes/zk-recipes.log"

	// Coordinator configuration defaults.
	DefaultCoordinatorHosts            = "localhost:2181"
	DefaultCoordinatorSessionTimeoutMs = 10000
	DefaultCoordinatorConnectTimeoutMs = 5000

	// Daemon configuration defaults.
	DefaultDaemonHTTPPort           = 7610
	DefaultDaemonHTTPBind           = "127.0.0.1"
	DefaultDaemonShutdownTimeout    = 30 // seconds
	DefaultDaemonPIDFile            = "~/.config/zk-recipes/daemon.pid"
	DefaultDaemonMetricsInterval    = 15 // seconds
	DefaultDaemonEventBusBufferSize = 256
)

// NewDefaultConfig returns a Config populated with all default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Coordinator: CoordinatorConfig{
			Hosts:            DefaultCoordinatorHosts,
			SessionTimeoutMs: DefaultCoordinatorSessionTimeoutMs,
			ConnectTimeoutMs: DefaultCoordinatorConnectTimeoutMs,
		},
		Daemon: DaemonConfig{
			HTTPPort:        DefaultDaemonHTTPPort,
			HTTPBind:        DefaultDaemonHTTPBind,
			ShutdownTimeout: DefaultDaemonShutdownTimeout,
			PIDFile:         DefaultDaemonPIDFile,
			Metrics: MetricsConfig{
				CollectionInterval: DefaultDaemonMetricsInterval,
			},
			EventBus: EventBusConfig{
				BufferSize: DefaultDaemonEventBusBufferSize,
			},
		},
		Registrations: nil,
	}
}

// setDefaults registers all default configuration values with viper.
// Called during Init() before reading config files.
func setDefaults() {
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("log_file", DefaultLogFile)

	viper.SetDefault("coordinator.hosts", DefaultCoordinatorHosts)
	viper.SetDefault("coordinator.session_timeout_ms", DefaultCoordinatorSessionTimeoutMs)
	viper.SetDefault("coordinator.connect_timeout_ms", DefaultCoordinatorConnectTimeoutMs)

	viper.SetDefault("daemon.http_port", DefaultDaemonHTTPPort)
	viper.SetDefault("daemon.http_bind", DefaultDaemonHTTPBind)
	viper.SetDefault("daemon.shutdown_timeout", DefaultDaemonShutdownTimeout)
	viper.SetDefault("daemon.pid_file", DefaultDaemonPIDFile)
	viper.SetDefault("daemon.metrics.collection_interval", DefaultDaemonMetricsInterval)
	viper.SetDefault("daemon.event_bus.buffer_size", DefaultDaemonEventBusBufferSize)
}
