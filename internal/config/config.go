package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// Runtime selects the container engine endpoint.
type Runtime struct {
	// Host is a Docker endpoint such as unix:///var/run/docker.sock. Empty
	// falls back to DOCKER_HOST and then the SDK default.
	Host       string `toml:"host"`
	APIVersion string `toml:"api_version"`
}

// Admission tunes job request validation.
type Admission struct {
	// StrictStreamCopy rejects encoder settings on streams that are copied
	// rather than re-encoded.
	StrictStreamCopy bool `toml:"strict_stream_copy"`
}

// Worker describes the encoder container image and naming convention.
type Worker struct {
	Image           string `toml:"image"`
	ContainerPrefix string `toml:"container_prefix"`
	Prewarm         bool   `toml:"prewarm"`
}

// Maintenance controls the daemon's periodic container cleanup.
type Maintenance struct {
	Enabled         bool     `toml:"enabled"`
	IntervalSeconds int      `toml:"interval_seconds"`
	Prefixes        []string `toml:"prefixes"`
}

// PullLease configures the Redis-backed lease that serializes image pulls
// across replicas.
type PullLease struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
	PollMillis    int    `toml:"poll_millis"`
}

// Dispatch configures the Kafka hand-off of accepted job requests.
type Dispatch struct {
	Enabled             bool     `toml:"enabled"`
	Brokers             []string `toml:"brokers"`
	Topic               string   `toml:"topic"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for encodegate.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories, API bind address
//   - Runtime: container engine endpoint
//   - Admission: optional job validation rules
//   - Worker: encoder image and container naming
//   - Maintenance: periodic cleanup of stale worker containers
//   - PullLease: cross-replica pull serialization via Redis
//   - Dispatch: Kafka hand-off of accepted requests
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Runtime     Runtime     `toml:"runtime"`
	Admission   Admission   `toml:"admission"`
	Worker      Worker      `toml:"worker"`
	Maintenance Maintenance `toml:"maintenance"`
	PullLease   PullLease   `toml:"pull_lease"`
	Dispatch    Dispatch    `toml:"dispatch"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in
// the working directory or beside the config file is loaded first; variables
// already set in the environment win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	loadDotEnv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		// Missing or malformed .env files never block startup.
		_ = godotenv.Load(abs)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("encodegate.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the daemon's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "encodegated.lock")
}

// CleanupLockPath serializes manual and scheduled container cleanup runs.
func (c *Config) CleanupLockPath() string {
	return filepath.Join(c.Paths.StateDir, "cleanup.lock")
}

// MaintenanceInterval returns the cleanup period as a duration.
func (c *Config) MaintenanceInterval() time.Duration {
	return time.Duration(c.Maintenance.IntervalSeconds) * time.Second
}

// LeaseTTL returns the pull lease expiry.
func (c *Config) LeaseTTL() time.Duration {
	return time.Duration(c.PullLease.TTLSeconds) * time.Second
}

// LeasePoll returns how often a waiting replica retries the pull lease.
func (c *Config) LeasePoll() time.Duration {
	return time.Duration(c.PullLease.PollMillis) * time.Millisecond
}

// DispatchWriteTimeout bounds one Kafka write.
func (c *Config) DispatchWriteTimeout() time.Duration {
	return time.Duration(c.Dispatch.WriteTimeoutSeconds) * time.Second
}

// ReapPrefixes returns the prefixes the maintenance loop cleans. The worker
// container prefix is used when none are configured.
func (c *Config) ReapPrefixes() []string {
	if len(c.Maintenance.Prefixes) > 0 {
		return append([]string(nil), c.Maintenance.Prefixes...)
	}
	if c.Worker.ContainerPrefix == "" {
		return nil
	}
	return []string{c.Worker.ContainerPrefix}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration.
func Sample() string {
	return sampleConfig
}
