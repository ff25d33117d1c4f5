package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/distribution/reference"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRuntime(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateMaintenance(); err != nil {
		return err
	}
	if err := c.validatePullLease(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port (%v)", err)
	}
	return nil
}

func (c *Config) validateRuntime() error {
	if c.Runtime.Host == "" {
		return nil
	}
	parsed, err := url.Parse(c.Runtime.Host)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("runtime.host must be a URL such as unix:///var/run/docker.sock, got %q", c.Runtime.Host)
	}
	switch parsed.Scheme {
	case "unix", "tcp", "http", "https", "npipe", "ssh":
	default:
		return fmt.Errorf("runtime.host scheme %q is not supported", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Image == "" {
		return errors.New("worker.image must be set (or ENCODEGATE_WORKER_IMAGE)")
	}
	if _, err := reference.ParseNormalizedNamed(c.Worker.Image); err != nil {
		return fmt.Errorf("worker.image must be a valid image reference: %v", err)
	}
	if c.Worker.ContainerPrefix == "" {
		return errors.New("worker.container_prefix must be set")
	}
	return nil
}

func (c *Config) validateMaintenance() error {
	if c.Maintenance.IntervalSeconds < minMaintenanceInterval {
		return fmt.Errorf("maintenance.interval_seconds must be at least %d", minMaintenanceInterval)
	}
	if c.Maintenance.Enabled && len(c.ReapPrefixes()) == 0 {
		return errors.New("maintenance.prefixes must be set when worker.container_prefix is empty")
	}
	return nil
}

func (c *Config) validatePullLease() error {
	if !c.PullLease.Enabled {
		return nil
	}
	if c.PullLease.RedisAddr == "" {
		return errors.New("pull_lease.redis_addr must be set when pull_lease.enabled is true")
	}
	if c.PullLease.RedisDB < 0 {
		return errors.New("pull_lease.redis_db must be non-negative")
	}
	if c.PullLease.TTLSeconds < minLeaseTTLSeconds {
		return fmt.Errorf("pull_lease.ttl_seconds must be at least %d", minLeaseTTLSeconds)
	}
	if c.PullLease.PollMillis < minLeasePollMillis {
		return fmt.Errorf("pull_lease.poll_millis must be at least %d", minLeasePollMillis)
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if !c.Dispatch.Enabled {
		return nil
	}
	if len(c.Dispatch.Brokers) == 0 {
		return errors.New("dispatch.brokers must be set when dispatch.enabled is true")
	}
	for _, broker := range c.Dispatch.Brokers {
		if _, _, err := net.SplitHostPort(broker); err != nil {
			return fmt.Errorf("dispatch.brokers entry %q must be host:port", broker)
		}
	}
	if c.Dispatch.Topic == "" {
		return errors.New("dispatch.topic must be set when dispatch.enabled is true")
	}
	if c.Dispatch.WriteTimeoutSeconds <= 0 {
		return errors.New("dispatch.write_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be one of auto, console, json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of %s (got %q)", strings.Join([]string{"debug", "info", "warn", "error"}, ", "), c.Logging.Level)
	}
	return nil
}
