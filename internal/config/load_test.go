package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets up environment variables for testing
func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for name, value := range envVars {
		t.Setenv(name, value)
	}
}

func requiredEnv() map[string]string {
	return map[string]string{
		"SHEETDESK_AUTH_API_KEY":          "dashboard-shared-secret",
		"SHEETDESK_SHEETS_SPREADSHEET_ID": "1AbCdEfGhIjKlMnOp",
	}
}

func withEnv(extra map[string]string) map[string]string {
	env := requiredEnv()
	for k, v := range extra {
		env[k] = v
	}
	return env
}

// TestLoadDefaults verifies that Load fills every optional setting.
func TestLoadDefaults(t *testing.T) {
	setupEnv(t, withEnv(map[string]string{
		"SHEETDESK_SERVER_PORT":      "",
		"SHEETDESK_SERVER_LOG_LEVEL": "",
	}))
	chdir(t, t.TempDir())

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "X-API-Key", cfg.Auth.Header)
	assert.Equal(t, "Records", cfg.Sheets.SheetName)
	assert.Equal(t, 4, cfg.Sheets.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Sheets.RetryBaseDelay)
	assert.Equal(t, "Asia/Bangkok", cfg.App.Timezone)
	assert.Equal(t, "02/01/2006 15:04:05", cfg.App.TimestampLayout)
	assert.False(t, cfg.Bot.Enabled)
	assert.Equal(t, 2, cfg.Notify.WorkerCount)
	assert.Equal(t, 20.0, cfg.Notify.RatePerSecond)
}

// TestLoadFromEnv verifies that Load reads values from environment variables.
func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, withEnv(map[string]string{
		"SHEETDESK_SERVER_PORT":             "9090",
		"SHEETDESK_SERVER_LOG_LEVEL":        "debug",
		"SHEETDESK_SHEETS_SHEET_NAME":       "Requests",
		"SHEETDESK_APP_TIMEZONE":            "UTC",
		"SHEETDESK_BOT_ENABLED":             "true",
		"SHEETDESK_BOT_TOKEN":               "123456:telegram-token",
		"SHEETDESK_BOT_WEBHOOK_SECRET":      "webhook-secret-value",
		"SHEETDESK_BOT_ADMIN_CHAT_IDS":      "42,-1001234567890",
		"SHEETDESK_NOTIFY_WORKER_COUNT":     "4",
		"SHEETDESK_SHEETS_RETRY_BASE_DELAY": "1s",
	}))
	chdir(t, t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "dashboard-shared-secret", cfg.Auth.APIKey)
	assert.Equal(t, "1AbCdEfGhIjKlMnOp", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "Requests", cfg.Sheets.SheetName)
	assert.Equal(t, time.Second, cfg.Sheets.RetryBaseDelay)
	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.True(t, cfg.Bot.Enabled)
	assert.Equal(t, "123456:telegram-token", cfg.Bot.Token)
	assert.Equal(t, []int64{42, -1001234567890}, cfg.Bot.AdminChatIDs)
	assert.Equal(t, 4, cfg.Notify.WorkerCount)
}

func TestLoadFile(t *testing.T) {
	setupEnv(t, map[string]string{"SHEETDESK_SERVER_PORT": "7070"})

	path := filepath.Join(t.TempDir(), "sheetdesk.yaml")
	content := `
server:
  port: 8081
  log_level: warn
auth:
  api_key: file-based-shared-secret
sheets:
  spreadsheet_id: sheet-from-file
  sheet_name: Desk
app:
  timezone: Europe/London
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, "sheet-from-file", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "Desk", cfg.Sheets.SheetName)
	assert.Equal(t, "Europe/London", cfg.App.Timezone)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestLoadValidationErrors verifies that Load validates the configuration.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name: "Missing required fields",
			envVars: map[string]string{
				"SHEETDESK_SERVER_PORT": "9090",
			},
		},
		{
			name:    "Invalid port number",
			envVars: withEnv(map[string]string{"SHEETDESK_SERVER_PORT": "999999"}),
		},
		{
			name:    "Invalid log level",
			envVars: withEnv(map[string]string{"SHEETDESK_SERVER_LOG_LEVEL": "verbose"}),
		},
		{
			name:    "Short API key",
			envVars: withEnv(map[string]string{"SHEETDESK_AUTH_API_KEY": "tooshort"}),
		},
		{
			name:    "Unknown timezone",
			envVars: withEnv(map[string]string{"SHEETDESK_APP_TIMEZONE": "Mars/Olympus"}),
		},
		{
			name:    "Bot enabled without token",
			envVars: withEnv(map[string]string{"SHEETDESK_BOT_ENABLED": "true", "SHEETDESK_BOT_WEBHOOK_SECRET": "webhook-secret-value"}),
		},
		{
			name: "Bot enabled with short secret",
			envVars: withEnv(map[string]string{
				"SHEETDESK_BOT_ENABLED":        "true",
				"SHEETDESK_BOT_TOKEN":          "123456:telegram-token",
				"SHEETDESK_BOT_WEBHOOK_SECRET": "short",
			}),
		},
		{
			name:    "Zero notification workers",
			envVars: withEnv(map[string]string{"SHEETDESK_NOTIFY_WORKER_COUNT": "0"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupEnv(t, tc.envVars)
			chdir(t, t.TempDir())

			cfg, err := Load()

			require.Error(t, err, "Load() should return an error with invalid configuration")
			assert.Contains(t, err.Error(), "validation failed")
			assert.Nil(t, cfg, "Config should be nil when an error occurs")
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
