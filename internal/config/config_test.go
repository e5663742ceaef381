package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// salesEnvVars lists every environment variable Load consults, so tests can
// isolate themselves from the surrounding environment.
var salesEnvVars = []string{
	"SALES_SERVER_HOST", "SALES_SERVER_PORT", "SALES_SERVER_READ_TIMEOUT",
	"SALES_SERVER_WRITE_TIMEOUT", "SALES_SERVER_SHUTDOWN_TIMEOUT",
	"SALES_DATA_BASE_DIR", "SALES_DATA_DIR", "SALES_DATA_FILE",
	"SALES_DATA_WATCH", "SALES_DATA_WATCH_INTERVAL",
	"SALES_REPORTS_DIR", "SALES_REPORTS_FORMATS",
	"SALES_SECURITY_ALLOWED_ORIGINS", "SALES_SECURITY_ENABLE_CORS",
	"SALES_SECURITY_RATE_LIMIT_ENABLED", "SALES_SECURITY_RATE_LIMIT_RPS",
	"SALES_LOGGING_LEVEL", "SALES_LOGGING_FORMAT", "SALES_LOGGING_OUTPUT",
	"SALES_WEBSOCKET_READ_BUFFER_SIZE", "SALES_WEBSOCKET_WRITE_BUFFER_SIZE",
}

func clearSalesEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range salesEnvVars {
		if val, ok := os.LookupEnv(envVar); ok {
			// restore after the test
			envVar, val := envVar, val
			t.Cleanup(func() { os.Setenv(envVar, val) })
			os.Unsetenv(envVar)
		}
	}
}

// chdir moves the test into dir and restores the working directory afterwards.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		wantErr     bool
		errContains string
		validateCfg func(t *testing.T, cfg *Config)
	}{
		{
			name:     "default configuration with no env vars",
			setupEnv: func(t *testing.T) {},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

				assert.Equal(t, "csv_files", cfg.Data.Dir)
				assert.Equal(t, "supermarket_sales.csv", cfg.Data.File)
				assert.True(t, cfg.Data.Watch)
				assert.Equal(t, 30*time.Second, cfg.Data.WatchInterval)

				assert.Equal(t, "reports", cfg.Reports.Dir)
				assert.Equal(t, []string{"csv", "xlsx"}, cfg.Reports.Formats)

				assert.True(t, cfg.Security.EnableCORS)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "environment variables override defaults",
			setupEnv: func(t *testing.T) {
				t.Setenv("SALES_SERVER_PORT", "9090")
				t.Setenv("SALES_DATA_FILE", "sales.csv")
				t.Setenv("SALES_DATA_WATCH_INTERVAL", "2m")
				t.Setenv("SALES_LOGGING_LEVEL", "debug")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "sales.csv", cfg.Data.File)
				assert.Equal(t, 2*time.Minute, cfg.Data.WatchInterval)
				assert.Equal(t, "debug", cfg.Logging.Level)
				// Untouched sections keep their defaults
				assert.Equal(t, "csv_files", cfg.Data.Dir)
			},
		},
		{
			name: "invalid port rejected",
			setupEnv: func(t *testing.T) {
				t.Setenv("SALES_SERVER_PORT", "70000")
			},
			wantErr:     true,
			errContains: "invalid server port",
		},
		{
			name: "watch interval below one second rejected",
			setupEnv: func(t *testing.T) {
				t.Setenv("SALES_DATA_WATCH_INTERVAL", "100ms")
			},
			wantErr:     true,
			errContains: "watch interval",
		},
		{
			name: "invalid log level rejected",
			setupEnv: func(t *testing.T) {
				t.Setenv("SALES_LOGGING_LEVEL", "verbose")
			},
			wantErr:     true,
			errContains: "invalid log level",
		},
		{
			name: "unsupported report format rejected",
			setupEnv: func(t *testing.T) {
				t.Setenv("SALES_REPORTS_FORMATS", "csv,pdf")
			},
			wantErr:     true,
			errContains: "unsupported report format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSalesEnv(t)
			tt.setupEnv(t)

			// Run from a directory without a config.yaml so only env applies
			chdir(t, t.TempDir())

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearSalesEnv(t)

	dir := t.TempDir()
	configYAML := `
server:
  port: 9999
data:
  file: other_sales.csv
  watch: false
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "other_sales.csv", cfg.Data.File)
	assert.False(t, cfg.Data.Watch)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Defaults survive for fields the file does not mention
	assert.Equal(t, "csv_files", cfg.Data.Dir)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearSalesEnv(t)

	dir := t.TempDir()
	configYAML := "server:\n  port: 9999\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644))
	chdir(t, dir)
	t.Setenv("SALES_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port, "environment must win over the config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	clearSalesEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [not a map"), 0644))
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config from file")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.validate())

	assert.Equal(t, DefaultDataDir, cfg.Data.Dir)
	assert.Equal(t, DefaultDataFile, cfg.Data.File)
	assert.Equal(t, DefaultReportsDir, cfg.Reports.Dir)
}
