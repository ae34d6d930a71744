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
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Storage: StorageConfig{
			DataPath: "/some/path",
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		Directory: DirectoryConfig{
			RequestTimeout: 10 * time.Second,
			PaceRPS:        2,
			PaceBurst:      1,
		},
		Ops: OpsConfig{
			Port: "8090",
		},
	}
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
		{"DEVELOPMENT", false}, // case sensitive
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
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"WARN", true}, // level check is case-insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RejectsBadTunables(t *testing.T) {
	cfg := validConfig()
	cfg.Sweep.Interval = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Directory.RequestTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Directory.PaceRPS = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Directory.PaceBurst = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	expanded, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", expanded)

	expanded, err = expandPath("/abs/./path", "")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", expanded)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expanded, err = expandPath("~/data", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), expanded)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("HS_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "HS_TEST_KEY", "fallback"))
	assert.Equal(t, "from-env", getConfigValue("", "HS_TEST_KEY", "fallback"))

	t.Setenv("HS_TEST_KEY", "")
	assert.Equal(t, "fallback", getConfigValue("", "HS_TEST_KEY", "fallback"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("true", "HS_UNSET", false))
	assert.True(t, getBoolConfigValue("YES", "HS_UNSET", false))
	assert.True(t, getBoolConfigValue("1", "HS_UNSET", false))
	assert.False(t, getBoolConfigValue("no", "HS_UNSET", true))
	assert.True(t, getBoolConfigValue("", "HS_UNSET", true))
}

func TestGetFloatConfigValue(t *testing.T) {
	assert.Equal(t, 2.5, getFloatConfigValue("2.5", "HS_UNSET", 1))
	assert.Equal(t, 1.0, getFloatConfigValue("", "HS_UNSET", 1))
	assert.Equal(t, 1.0, getFloatConfigValue("nope", "HS_UNSET", 1))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nHS_ENVFILE_A=hello\nHS_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("HS_ENVFILE_A", "")
	t.Setenv("HS_ENVFILE_B", "")
	os.Unsetenv("HS_ENVFILE_A")
	os.Unsetenv("HS_ENVFILE_B")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("HS_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("HS_ENVFILE_B"))
}

func TestLoadEnvFile_BadLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pair\n"), 0o600))

	assert.Error(t, loadEnvFile(path))
}
