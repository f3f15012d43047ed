// Package config loads service configuration from a config file and
// environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	HTTPAddr        string `mapstructure:"HTTP_ADDR"`
	DataDir         string `mapstructure:"DATA_DIR"`
	DatabasePath    string `mapstructure:"DATABASE_PATH"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	MaxPerDay       int    `mapstructure:"MAX_PER_DAY"`
	WhatsAppDataDir string `mapstructure:"WHATSAPP_DATA_DIR"`
}

// Load reads configuration from config.yaml (if present) and RSVP_-prefixed
// environment variables, falling back to defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.AutomaticEnv()
	v.SetEnvPrefix("RSVP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("DATABASE_PATH", "data/rsvp.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_PER_DAY", 250)
	v.SetDefault("WHATSAPP_DATA_DIR", "data")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
