package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/XavierBriggs/Argus/pkg/models"
)

// Config holds all application configuration.
type Config struct {
	Env     string
	Sports  []string
	Sources []models.SourceConfig

	Collector CollectorConfig
	Minerva   MinervaConfig
	DB        DBConfig
	Redis     RedisConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// CollectorConfig holds collection loop settings.
type CollectorConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec"`
	CacheTTLSec     int `mapstructure:"cache_ttl_sec"`
}

// PollInterval returns the collection cycle period.
func (c CollectorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// CacheTTL returns how long per-source quote lists are cached.
func (c CollectorConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// MinervaConfig holds settings for the remote name normalization service.
type MinervaConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// Timeout returns the per-request deadline for normalization calls.
func (m MinervaConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// DBConfig holds PostgreSQL connection settings for the history writer.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MetricsConfig holds the ops listener settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from an optional argus.yaml and environment
// variables prefixed with ARGUS_. The source list can only come from the
// file; scalar settings may be overridden through the environment.
// ARGUS_CONFIG points at an explicit config file path.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARGUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path := os.Getenv("ARGUS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("argus")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/argus")
		if err := v.ReadInConfig(); err != nil {
			// Missing file is fine; defaults and env still apply
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("env")
	cfg.Sports = v.GetStringSlice("sports")

	if err := v.UnmarshalKey("sources", &cfg.Sources); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	cfg.Collector = CollectorConfig{
		PollIntervalSec: v.GetInt("collector.poll_interval_sec"),
		CacheTTLSec:     v.GetInt("collector.cache_ttl_sec"),
	}

	cfg.Minerva = MinervaConfig{
		Enabled:    v.GetBool("minerva.enabled"),
		BaseURL:    v.GetString("minerva.base_url"),
		APIKey:     v.GetString("minerva.api_key"),
		TimeoutSec: v.GetInt("minerva.timeout_sec"),
	}

	cfg.DB = DBConfig{
		Enabled:  v.GetBool("db.enabled"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		DBName:   v.GetString("db.dbname"),
		SSLMode:  v.GetString("db.sslmode"),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		File:   v.GetString("log.file"),
	}

	cfg.Metrics = MetricsConfig{
		Addr: v.GetString("metrics.addr"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("sports", []string{"basketball_nba"})

	v.SetDefault("collector.poll_interval_sec", 60)
	v.SetDefault("collector.cache_ttl_sec", 300)

	v.SetDefault("minerva.enabled", false)
	v.SetDefault("minerva.base_url", "")
	v.SetDefault("minerva.api_key", "")
	v.SetDefault("minerva.timeout_sec", 5)

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "argus")
	v.SetDefault("db.password", "argus")
	v.SetDefault("db.dbname", "argus")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks the loaded configuration for contradictions that would
// break collection at runtime.
func (c *Config) Validate() error {
	if len(c.Sports) == 0 {
		return fmt.Errorf("no sports configured")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured: provide a sources list in argus.yaml")
	}

	enabled := 0
	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("source with blank name")
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = struct{}{}

		if src.BaseURL == "" {
			return fmt.Errorf("source %q has no base_url", src.Name)
		}
		if src.RequestsPerMinute <= 0 {
			return fmt.Errorf("source %q has non-positive requests_per_minute", src.Name)
		}
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no sources enabled")
	}

	if c.Collector.PollIntervalSec <= 0 {
		return fmt.Errorf("collector.poll_interval_sec must be positive")
	}
	if c.Collector.CacheTTLSec <= 0 {
		return fmt.Errorf("collector.cache_ttl_sec must be positive")
	}

	if c.Minerva.Enabled && (c.Minerva.BaseURL == "" || c.Minerva.APIKey == "") {
		return fmt.Errorf("minerva enabled without base_url and api_key")
	}

	return nil
}
