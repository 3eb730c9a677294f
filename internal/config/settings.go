package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read into Settings.
const EnvPrefix = "HARVESTER"

// Settings are the application-wide options, as opposed to the per-run crawl
// document.
type Settings struct {
	ConfigDir      string        `mapstructure:"config_dir"`
	DBPath         string        `mapstructure:"db_path"`
	MetricsPath    string        `mapstructure:"metrics_path"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	// RequestTimeout applies to ad-hoc requests and to crawl documents that
	// leave request_timeout_ms unset.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NewViper returns a viper instance wired for settings: defaults, HARVESTER_
// environment variables and an optional settings file. An empty file looks
// for harvester.yaml in the working directory.
func NewViper(file string) *viper.Viper {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_dir", "configs")
	v.SetDefault("db_path", "harvester.db")
	v.SetDefault("metrics_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("request_timeout", "10s")
}

// LoadSettings reads the settings file, if any, and decodes v. A missing
// default settings file is not an error; a missing explicit one is.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		return nil, &ValidationError{Field: "log_format", Reason: "must be text or json"}
	}
	if s.RequestTimeout < 0 {
		return nil, &ValidationError{Field: "request_timeout", Reason: "must be >= 0"}
	}
	return &s, nil
}
