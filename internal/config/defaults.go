package config

const (
	defaultConfigPath       = "~/.config/encodegate/config.toml"
	defaultStateDir         = "~/.local/share/encodegate"
	defaultLogDir           = "~/.local/share/encodegate/logs"
	defaultAPIBind          = "127.0.0.1:7580"
	defaultWorkerImage      = "encodegate/worker:latest"
	defaultContainerPrefix  = "transcode-"
	defaultMaintenanceEvery = 300
	defaultRedisAddr        = "127.0.0.1:6379"
	defaultLeaseTTLSeconds  = 600
	defaultLeasePollMillis  = 500
	defaultDispatchTopic    = "transcode-jobs"
	defaultDispatchTimeout  = 10
	defaultLogFormat        = "auto"
	defaultLogLevel         = "info"
	minMaintenanceInterval  = 10
	minLeaseTTLSeconds      = 5
	minLeasePollMillis      = 50
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Worker: Worker{
			Image:           defaultWorkerImage,
			ContainerPrefix: defaultContainerPrefix,
			Prewarm:         true,
		},
		Maintenance: Maintenance{
			Enabled:         true,
			IntervalSeconds: defaultMaintenanceEvery,
		},
		PullLease: PullLease{
			RedisAddr:  defaultRedisAddr,
			TTLSeconds: defaultLeaseTTLSeconds,
			PollMillis: defaultLeasePollMillis,
		},
		Dispatch: Dispatch{
			Topic:               defaultDispatchTopic,
			WriteTimeoutSeconds: defaultDispatchTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
