package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Auth   AuthConfig   `mapstructure:"auth" validate:"required"`
	Sheets SheetsConfig `mapstructure:"sheets" validate:"required"`
	App    AppConfig    `mapstructure:"app" validate:"required"`
	Bot    BotConfig    `mapstructure:"bot"`
	Notify NotifyConfig `mapstructure:"notify" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"required"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// AuthConfig holds the shared secret the dashboard sends on every request.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key" validate:"required,min=16"`
	Header string `mapstructure:"header" validate:"required"`
}

// SheetsConfig locates the spreadsheet and controls how it is called.
type SheetsConfig struct {
	SpreadsheetID   string        `mapstructure:"spreadsheet_id" validate:"required"`
	SheetName       string        `mapstructure:"sheet_name" validate:"required"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	CredentialsJSON string        `mapstructure:"credentials_json"`
	Endpoint        string        `mapstructure:"endpoint" validate:"omitempty,url"`
	MaxRetries      int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay" validate:"required"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"required"`
}

// AppConfig contains presentation settings shared by every client.
type AppConfig struct {
	Timezone        string `mapstructure:"timezone" validate:"required,timezone"`
	TimestampLayout string `mapstructure:"timestamp_layout" validate:"required"`
}

// BotConfig configures the Telegram bot. Token and webhook secret are only
// required when the bot is enabled.
type BotConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Token         string  `mapstructure:"token" validate:"required_if=Enabled true"`
	WebhookSecret string  `mapstructure:"webhook_secret" validate:"required_if=Enabled true,omitempty,min=16,max=256"`
	AdminChatIDs  []int64 `mapstructure:"admin_chat_ids"`
	APIEndpoint   string  `mapstructure:"api_endpoint"`
}

// NotifyConfig sizes the outbound notification pipeline.
type NotifyConfig struct {
	WorkerCount   int     `mapstructure:"worker_count" validate:"gte=1,lte=32"`
	QueueSize     int     `mapstructure:"queue_size" validate:"gte=1"`
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gt=0"`
}
