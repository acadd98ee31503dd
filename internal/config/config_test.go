package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "/data/lending.db"},
		Loans: LoansConfig{
			OverdueDays:           4,
			LateLoanCheckInterval: 24 * time.Hour,
			NotifyLateLoans:       true,
		},
		RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 20, Burst: 40},
	}
}

// clearEnv blanks every variable Load reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"SERVER_IDLE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT", "CORS_ORIGINS",
		"DATABASE_DRIVER", "DATABASE_PATH", "DATABASE_URL",
		"LOAN_OVERDUE_DAYS", "LATE_LOAN_CHECK_INTERVAL", "LATE_LOAN_MESSAGE", "NOTIFY_LATE_LOANS",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func noEnvFile(t *testing.T) string {
	t.Helper()
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		cfg := validConfig()
		cfg.Logger.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}

	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Database(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{"sqlite with path", DatabaseConfig{Driver: "sqlite", Path: "/x.db"}, ""},
		{"sqlite without path", DatabaseConfig{Driver: "sqlite"}, "database path"},
		{"postgres with url", DatabaseConfig{Driver: "postgres", URL: "postgres://localhost/lending"}, ""},
		{"postgres without url", DatabaseConfig{Driver: "postgres"}, "DATABASE_URL"},
		{"unknown driver", DatabaseConfig{Driver: "mysql"}, "invalid database driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Loans(t *testing.T) {
	cfg := validConfig()
	cfg.Loans.OverdueDays = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Loans.LateLoanCheckInterval = 0
	assert.Error(t, cfg.Validate())

	// Interval is irrelevant when the job is off.
	cfg.Loans.NotifyLateLoans = false
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Burst = 0
	assert.Error(t, cfg.Validate())

	cfg.RateLimit.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	assert.Equal(t, "/x.db", DatabaseConfig{Driver: "sqlite", Path: "/x.db", URL: "ignored"}.DSN())
	assert.Equal(t, "postgres://db", DatabaseConfig{Driver: "postgres", Path: "ignored", URL: "postgres://db"}.DSN())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, filepath.IsAbs(cfg.Database.Path))
	assert.Equal(t, "lending.db", filepath.Base(cfg.Database.Path))
	assert.Equal(t, 4, cfg.Loans.OverdueDays)
	assert.Equal(t, 24*time.Hour, cfg.Loans.LateLoanCheckInterval)
	assert.True(t, cfg.Loans.NotifyLateLoans)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOAN_OVERDUE_DAYS", "7")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load([]string{noEnvFile(t), "--port=9100", "--late-loan-interval=1h"})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 7, cfg.Loans.OverdueDays)
	assert.Equal(t, time.Hour, cfg.Loans.LateLoanCheckInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_Postgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://lending@localhost/lending")

	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.Path)
	assert.Equal(t, "postgres://lending@localhost/lending", cfg.Database.DSN())
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("LATE_LOAN_CHECK_INTERVAL", "daily")

	_, err := Load([]string{noEnvFile(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LATE_LOAN_CHECK_INTERVAL")
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOAN_OVERDUE_DAYS=9\nLATE_LOAN_MESSAGE=\"Bring it back\"\n"), 0o644))

	cfg, err := Load([]string{"--env-file=" + envFile})
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Loans.OverdueDays)
	assert.Equal(t, "Bring it back", cfg.Loans.LateLoanMessage)
}

func TestLoad_UnknownFlag(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/data/lending.db", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "lending.db"), got)

	got, err = expandPath("", "/default.db")
	require.NoError(t, err)
	assert.Equal(t, "/default.db", got)

	got, err = expandPath("relative/lending.db", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetBoolAndIntConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("YES", "UNUSED_KEY", false))
	assert.False(t, getBoolConfigValue("off", "UNUSED_KEY", true))
	assert.True(t, getBoolConfigValue("", "UNUSED_KEY", true))

	assert.Equal(t, 12, getIntConfigValue("12", "UNUSED_KEY", 3))
	assert.Equal(t, 3, getIntConfigValue("twelve", "UNUSED_KEY", 3))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `# Test env file
TEST_LOAD_A=staging

# Comment line
TEST_LOAD_QUOTED="some value"
  TEST_LOAD_SPACES  =  value with spaces  
TEST_LOAD_SINGLE='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))
	for _, key := range []string{"TEST_LOAD_A", "TEST_LOAD_QUOTED", "TEST_LOAD_SPACES", "TEST_LOAD_SINGLE"} {
		t.Setenv(key, "")
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("TEST_LOAD_A"))
	assert.Equal(t, "some value", os.Getenv("TEST_LOAD_QUOTED"))
	assert.Equal(t, "value with spaces", os.Getenv("TEST_LOAD_SPACES"))
	assert.Equal(t, "another value", os.Getenv("TEST_LOAD_SINGLE"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VALID_KEY=valid_value\nINVALID LINE WITHOUT EQUALS\n"), 0o644))

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}
