package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageEtcd   = "etcd"
	StorageMemory = "memory"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	JobName         string `mapstructure:"job_name"`
	Storage         string `mapstructure:"storage"`
	WatchContainers bool   `mapstructure:"watch_containers"`
	WatchImages     bool   `mapstructure:"watch_images"`
	EventBuffer     int    `mapstructure:"event_buffer"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

// EtcdConfig holds etcd-related configuration.
type EtcdConfig struct {
	Endpoints         []string `mapstructure:"endpoints"`
	PathPrefix        string   `mapstructure:"path_prefix"`
	DialTimeout       float64  `mapstructure:"dial_timeout"`
	LockTTL           float64  `mapstructure:"lock_ttl"`
	LockTimeout       float64  `mapstructure:"lock_timeout"`
	LockRetryInterval float64  `mapstructure:"lock_retry_interval"`
}

// Config is the top-level configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Logging LoggingConfig `mapstructure:"log"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.job_name", "docker-traceability")
	v.SetDefault("app.storage", StorageEtcd)
	v.SetDefault("app.watch_containers", true)
	v.SetDefault("app.watch_images", true)
	v.SetDefault("app.event_buffer", 100)
	v.SetDefault("log.log_level", "INFO")
	v.SetDefault("log.log_format", "console")
	v.SetDefault("etcd.endpoints", []string{"localhost:2379"})
	v.SetDefault("etcd.path_prefix", "/docker-traceability")
	v.SetDefault("etcd.dial_timeout", 2.0)
	v.SetDefault("etcd.lock_ttl", 5.0)
	v.SetDefault("etcd.lock_timeout", 2.0)
	v.SetDefault("etcd.lock_retry_interval", 0.1)
}

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig(configFile string) error {
	return initConfig(viper.GetViper(), configFile)
}

func initConfig(v *viper.Viper, configFile string) error {
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config") // Looks for config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.JobName) == "" {
		return fmt.Errorf("app.job_name must not be empty")
	}
	switch c.App.Storage {
	case StorageEtcd:
		if len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("etcd.endpoints must not be empty when app.storage is %q", StorageEtcd)
		}
		// Lease TTLs are whole seconds.
		if c.Etcd.LockTTL < 1 {
			return fmt.Errorf("etcd.lock_ttl must be at least 1 second, got %v", c.Etcd.LockTTL)
		}
		if c.Etcd.LockTimeout <= 0 {
			return fmt.Errorf("etcd.lock_timeout must be positive, got %v", c.Etcd.LockTimeout)
		}
		if c.Etcd.LockRetryInterval < 0 {
			return fmt.Errorf("etcd.lock_retry_interval must not be negative, got %v", c.Etcd.LockRetryInterval)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported app.storage %q", c.App.Storage)
	}
	if c.App.EventBuffer < 0 {
		return fmt.Errorf("app.event_buffer must not be negative")
	}
	return nil
}
