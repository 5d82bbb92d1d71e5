package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port           int      `mapstructure:"port"`
	DatabaseDriver string   `mapstructure:"database_driver"` // "sqlite" or "postgres"
	DatabaseDSN    string   `mapstructure:"database_dsn"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	JWTSecret      string   `mapstructure:"jwt_secret"`

	RequestTimeoutSec  int `mapstructure:"request_timeout_sec"`  // HTTP read/write; 0 = use server default
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec"` // Graceful shutdown wait
	MaxBodyBytes       int `mapstructure:"max_body_bytes"`       // Max request body for mutating requests

	// Rate limiter thresholds. Each limiter admits threshold requests per
	// window per client address.
	GlobalRateWindowSec    int `mapstructure:"global_rate_window_sec"`
	GlobalRateThreshold    int `mapstructure:"global_rate_threshold"`
	AuthRateWindowSec      int `mapstructure:"auth_rate_window_sec"`
	AuthRateThreshold      int `mapstructure:"auth_rate_threshold"`
	SensitiveRateWindowSec int `mapstructure:"sensitive_rate_window_sec"`
	SensitiveRateThreshold int `mapstructure:"sensitive_rate_threshold"`

	SessionMonitorCapacity int `mapstructure:"session_monitor_capacity"` // Max tracked sessions

	OTLPEndpoint string `mapstructure:"otlp_endpoint"` // Trace exporter target; empty = tracing disabled
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/veriscase/")
	viper.AddConfigPath("$HOME/.veriscase")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("database_driver", "sqlite")
	viper.SetDefault("database_dsn", "./veriscase.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("max_body_bytes", 10*1024*1024)
	viper.SetDefault("global_rate_window_sec", 900)
	viper.SetDefault("global_rate_threshold", 1000)
	viper.SetDefault("auth_rate_window_sec", 900)
	viper.SetDefault("auth_rate_threshold", 20)
	viper.SetDefault("sensitive_rate_window_sec", 60)
	viper.SetDefault("sensitive_rate_threshold", 60)
	viper.SetDefault("session_monitor_capacity", 10000)
	viper.SetDefault("otlp_endpoint", "")

	// Environment variables
	viper.SetEnvPrefix("VERISCASE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
