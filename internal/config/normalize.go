package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRuntime()
	c.normalizeWorker()
	c.normalizeMaintenance()
	c.normalizePullLease()
	c.normalizeDispatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if value, ok := lookupEnv("ENCODEGATE_API_BIND"); ok {
		c.Paths.APIBind = value
	}
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeRuntime() {
	c.Runtime.Host = strings.TrimSpace(c.Runtime.Host)
	if c.Runtime.Host == "" {
		if value, ok := lookupEnv("DOCKER_HOST"); ok {
			c.Runtime.Host = value
		}
	}
	c.Runtime.APIVersion = strings.TrimPrefix(strings.TrimSpace(c.Runtime.APIVersion), "v")
}

func (c *Config) normalizeWorker() {
	c.Worker.Image = strings.TrimSpace(c.Worker.Image)
	if value, ok := lookupEnv("ENCODEGATE_WORKER_IMAGE"); ok {
		c.Worker.Image = value
	}
	c.Worker.ContainerPrefix = strings.TrimSpace(c.Worker.ContainerPrefix)
}

func (c *Config) normalizeMaintenance() {
	prefixes := make([]string, 0, len(c.Maintenance.Prefixes))
	for _, prefix := range c.Maintenance.Prefixes {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			prefixes = append(prefixes, trimmed)
		}
	}
	c.Maintenance.Prefixes = prefixes
	if c.Maintenance.IntervalSeconds == 0 {
		c.Maintenance.IntervalSeconds = defaultMaintenanceEvery
	}
}

func (c *Config) normalizePullLease() {
	if value, ok := lookupEnv("ENCODEGATE_REDIS_ADDR"); ok {
		c.PullLease.RedisAddr = value
	}
	if value, ok := lookupEnv("ENCODEGATE_REDIS_PASSWORD"); ok {
		c.PullLease.RedisPassword = value
	}
	c.PullLease.RedisAddr = strings.TrimSpace(c.PullLease.RedisAddr)
	if c.PullLease.TTLSeconds == 0 {
		c.PullLease.TTLSeconds = defaultLeaseTTLSeconds
	}
	if c.PullLease.PollMillis == 0 {
		c.PullLease.PollMillis = defaultLeasePollMillis
	}
}

func (c *Config) normalizeDispatch() {
	if value, ok := lookupEnv("ENCODEGATE_KAFKA_BROKERS"); ok {
		c.Dispatch.Brokers = strings.Split(value, ",")
	}
	brokers := make([]string, 0, len(c.Dispatch.Brokers))
	for _, broker := range c.Dispatch.Brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	c.Dispatch.Brokers = brokers
	c.Dispatch.Topic = strings.TrimSpace(c.Dispatch.Topic)
	if c.Dispatch.WriteTimeoutSeconds == 0 {
		c.Dispatch.WriteTimeoutSeconds = defaultDispatchTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// lookupEnv treats set-but-blank variables as unset.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
