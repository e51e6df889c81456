package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SHEETDESK"

// keys lists every setting so that environment variables are bound even
// for keys without a default.
var keys = []string{
	"server.port",
	"server.log_level",
	"server.read_timeout",
	"server.write_timeout",
	"server.shutdown_timeout",
	"server.allowed_origins",
	"auth.api_key",
	"auth.header",
	"sheets.spreadsheet_id",
	"sheets.sheet_name",
	"sheets.credentials_file",
	"sheets.credentials_json",
	"sheets.endpoint",
	"sheets.max_retries",
	"sheets.retry_base_delay",
	"sheets.request_timeout",
	"app.timezone",
	"app.timestamp_layout",
	"bot.enabled",
	"bot.token",
	"bot.webhook_secret",
	"bot.admin_chat_ids",
	"bot.api_endpoint",
	"notify.worker_count",
	"notify.queue_size",
	"notify.rate_per_second",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("auth.header", "X-API-Key")
	v.SetDefault("sheets.sheet_name", "Records")
	v.SetDefault("sheets.max_retries", 4)
	v.SetDefault("sheets.retry_base_delay", "250ms")
	v.SetDefault("sheets.request_timeout", "20s")
	v.SetDefault("app.timezone", "Asia/Bangkok")
	v.SetDefault("app.timestamp_layout", "02/01/2006 15:04:05")
	v.SetDefault("bot.enabled", false)
	v.SetDefault("notify.worker_count", 2)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.rate_per_second", 20.0)
}

// Load reads configuration from environment variables and, if present, a
// config.yaml in the working directory.
// Environment variables take precedence over values from config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path looks
// for an optional config.yaml in the working directory; a non-empty path
// must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
