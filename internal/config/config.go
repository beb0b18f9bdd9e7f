package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. RESUMABLE_FETCH_CONCURRENCY
const EnvPrefix = "RESUMABLE"

// Config represents the entire application configuration
type Config struct {
	Transport   TransportConfig   `mapstructure:"transport"`
	Resume      ResumeConfig      `mapstructure:"resume"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// TransportConfig contains HTTP client settings
type TransportConfig struct {
	UserAgent             string `mapstructure:"user_agent"`
	SkipTLSVerify         bool   `mapstructure:"skip_tls_verify"`
	BufferSizeKB          int    `mapstructure:"buffer_size_kb"`
	MaxIdleConnsPerHost   int    `mapstructure:"max_idle_conns_per_host"`
	DialTimeout           string `mapstructure:"dial_timeout"`
	ResponseHeaderTimeout string `mapstructure:"response_header_timeout"`
}

// ResumeConfig contains stream resumption settings
type ResumeConfig struct {
	MaxResumes           int    `mapstructure:"max_resumes"` // 0 = unbounded
	Interval             string `mapstructure:"interval"`
	StrictPartialContent bool   `mapstructure:"strict_partial_content"`
}

// FetchConfig contains batch download settings
type FetchConfig struct {
	OutputDir           string `mapstructure:"output_dir"`
	Concurrency         int    `mapstructure:"concurrency"`
	ProgressInterval    string `mapstructure:"progress_interval"`
	Overwrite           bool   `mapstructure:"overwrite"`
	BufferSizeKB        int    `mapstructure:"buffer_size_kb"`
	ReserveMB           int64  `mapstructure:"reserve_mb"`
	MaxDiskUsagePercent int    `mapstructure:"max_disk_usage_percent"` // 0 disables the check
}

// ServerConfig contains origin server settings
type ServerConfig struct {
	BindAddr       string `mapstructure:"bind_addr"`
	RootDir        string `mapstructure:"root_dir"`
	FailAfterBytes int64  `mapstructure:"fail_after_bytes"`
	DisableRanges  bool   `mapstructure:"disable_ranges"`
	DebugUsername  string `mapstructure:"debug_username"`
	DebugPassword  string `mapstructure:"debug_password"`
	ReadTimeout    string `mapstructure:"read_timeout"`
	WriteTimeout   string `mapstructure:"write_timeout"`
	IdleTimeout    string `mapstructure:"idle_timeout"`
}

// DatabaseConfig contains history database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // empty disables history
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MaintenanceConfig contains cleanup settings
type MaintenanceConfig struct {
	CleanupInterval string `mapstructure:"cleanup_interval"`
	HistoryMaxAge   string `mapstructure:"history_max_age"`
	TempFileMaxAge  string `mapstructure:"temp_file_max_age"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.user_agent", "resumable-get/1.0")
	v.SetDefault("transport.skip_tls_verify", false)
	v.SetDefault("transport.buffer_size_kb", 256)
	v.SetDefault("transport.max_idle_conns_per_host", 50)
	v.SetDefault("transport.dial_timeout", "30s")
	v.SetDefault("transport.response_header_timeout", "30s")
	v.SetDefault("resume.max_resumes", 0)
	v.SetDefault("resume.interval", "0s")
	v.SetDefault("resume.strict_partial_content", true)
	v.SetDefault("fetch.output_dir", ".")
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.progress_interval", "5s")
	v.SetDefault("fetch.overwrite", false)
	v.SetDefault("fetch.buffer_size_kb", 1024)
	v.SetDefault("fetch.reserve_mb", 0)
	v.SetDefault("fetch.max_disk_usage_percent", 0)
	v.SetDefault("server.bind_addr", "127.0.0.1:8080")
	v.SetDefault("server.root_dir", ".")
	v.SetDefault("server.fail_after_bytes", 0)
	v.SetDefault("server.disable_ranges", false)
	v.SetDefault("server.debug_username", "")
	v.SetDefault("server.debug_password", "")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("database.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("maintenance.cleanup_interval", "1h")
	v.SetDefault("maintenance.history_max_age", "720h")
	v.SetDefault("maintenance.temp_file_max_age", "24h")
}

// Load loads configuration from the specified file path. An empty path
// uses defaults and environment overrides only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	durations := map[string]string{
		"transport.dial_timeout":            c.Transport.DialTimeout,
		"transport.response_header_timeout": c.Transport.ResponseHeaderTimeout,
		"resume.interval":                   c.Resume.Interval,
		"fetch.progress_interval":           c.Fetch.ProgressInterval,
		"server.read_timeout":               c.Server.ReadTimeout,
		"server.write_timeout":              c.Server.WriteTimeout,
		"server.idle_timeout":               c.Server.IdleTimeout,
		"maintenance.cleanup_interval":      c.Maintenance.CleanupInterval,
		"maintenance.history_max_age":       c.Maintenance.HistoryMaxAge,
		"maintenance.temp_file_max_age":     c.Maintenance.TempFileMaxAge,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	if c.Resume.MaxResumes < 0 {
		return fmt.Errorf("resume.max_resumes must not be negative")
	}

	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > 64 {
		return fmt.Errorf("fetch.concurrency must be between 1 and 64")
	}
	if c.Fetch.MaxDiskUsagePercent < 0 || c.Fetch.MaxDiskUsagePercent > 100 {
		return fmt.Errorf("fetch.max_disk_usage_percent must be between 0 and 100")
	}
	if c.Fetch.ReserveMB < 0 {
		return fmt.Errorf("fetch.reserve_mb must not be negative")
	}

	if c.Server.FailAfterBytes < 0 {
		return fmt.Errorf("server.fail_after_bytes must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

func parseOr(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d == 0 {
		return def
	}
	return d
}

// GetDialTimeout returns the dial timeout as time.Duration
func (c *TransportConfig) GetDialTimeout() time.Duration {
	return parseOr(c.DialTimeout, 30*time.Second)
}

// GetResponseHeaderTimeout returns the response header timeout as time.Duration
func (c *TransportConfig) GetResponseHeaderTimeout() time.Duration {
	return parseOr(c.ResponseHeaderTimeout, 30*time.Second)
}

// GetInterval returns the minimum time between resumptions, 0 for none
func (c *ResumeConfig) GetInterval() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// GetProgressInterval returns the progress report interval as time.Duration
func (c *FetchConfig) GetProgressInterval() time.Duration {
	return parseOr(c.ProgressInterval, 5*time.Second)
}

// GetBufferSize returns the disk write buffer size in bytes
func (c *FetchConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 1024 * 1024
	}
	return c.BufferSizeKB * 1024
}

// GetReserveBytes returns the free space to keep on the output disk
func (c *FetchConfig) GetReserveBytes() int64 {
	return c.ReserveMB * 1024 * 1024
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseOr(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the write timeout, 0 for none. Large files need
// no write deadline.
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *ServerConfig) GetIdleTimeout() time.Duration {
	return parseOr(c.IdleTimeout, 60*time.Second)
}

// GetCleanupInterval returns the cleanup interval as time.Duration
func (c *MaintenanceConfig) GetCleanupInterval() time.Duration {
	return parseOr(c.CleanupInterval, time.Hour)
}

// GetHistoryMaxAge returns the history retention as time.Duration
func (c *MaintenanceConfig) GetHistoryMaxAge() time.Duration {
	return parseOr(c.HistoryMaxAge, 30*24*time.Hour)
}

// GetTempFileMaxAge returns the temp file retention as time.Duration
func (c *MaintenanceConfig) GetTempFileMaxAge() time.Duration {
	return parseOr(c.TempFileMaxAge, 24*time.Hour)
}
