// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Sweep     SweepConfig
	Directory DirectoryConfig
	Ops       OpsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds assignment store configuration.
type StorageConfig struct {
	DataPath string
}

// SweepConfig holds the background repair loop configuration.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration // delay between guild sweeps (default: 5m)
}

// DirectoryConfig holds remote directory client configuration.
type DirectoryConfig struct {
	RequestTimeout time.Duration // per remote call (default: 10s)
	PaceRPS        float64       // per-guild write pacing (default: 2)
	PaceBurst      int           // burst allowance (default: 1)
}

// OpsConfig holds the operational HTTP endpoint configuration.
type OpsConfig struct {
	Enabled      bool
	Port         string        // ops listener port (default: 8090)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for the assignment store")

	sweepEnabled := flag.String("sweep-enabled", "", "Run the periodic repair sweep (default: true)")
	sweepInterval := flag.String("sweep-interval", "", "Delay between repair sweeps (default: 5m)")

	requestTimeout := flag.String("request-timeout", "", "Per-call directory timeout (default: 10s)")
	paceRPS := flag.String("pace-rps", "", "Per-guild directory writes per second (default: 2)")
	paceBurst := flag.String("pace-burst", "", "Per-guild pacing burst (default: 1)")

	opsEnabled := flag.String("ops-enabled", "", "Serve the ops HTTP endpoint (default: true)")
	opsPort := flag.String("ops-port", "", "Ops listener port (default: 8090)")
	readTimeout := flag.String("read-timeout", "", "Ops HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "Ops HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "Ops HTTP idle timeout (default: 60s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Sweep: SweepConfig{
			Enabled: getBoolConfigValue(*sweepEnabled, "SWEEP_ENABLED", true),
		},
		Directory: DirectoryConfig{
			PaceRPS:   getFloatConfigValue(*paceRPS, "PACE_RPS", 2),
			PaceBurst: getIntConfigValue(*paceBurst, "PACE_BURST", 1),
		},
		Ops: OpsConfig{
			Enabled: getBoolConfigValue(*opsEnabled, "OPS_ENABLED", true),
			Port:    getConfigValue(*opsPort, "OPS_PORT", "8090"),
		},
	}

	durations := []struct {
		dst        *time.Duration
		flagValue  string
		envKey     string
		defaultStr string
		what       string
	}{
		{&cfg.Sweep.Interval, *sweepInterval, "SWEEP_INTERVAL", "5m", "sweep interval"},
		{&cfg.Directory.RequestTimeout, *requestTimeout, "REQUEST_TIMEOUT", "10s", "request timeout"},
		{&cfg.Ops.ReadTimeout, *readTimeout, "OPS_READ_TIMEOUT", "15s", "read timeout"},
		{&cfg.Ops.WriteTimeout, *writeTimeout, "OPS_WRITE_TIMEOUT", "15s", "write timeout"},
		{&cfg.Ops.IdleTimeout, *idleTimeout, "OPS_IDLE_TIMEOUT", "60s", "idle timeout"},
	}
	for _, d := range durations {
		str := getConfigValue(d.flagValue, d.envKey, d.defaultStr)
		parsed, err := time.ParseDuration(str)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.what, str, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.Sweep.Interval)
	}

	if c.Directory.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Directory.RequestTimeout)
	}

	if c.Directory.PaceRPS <= 0 {
		return fmt.Errorf("pace rps must be positive, got %v", c.Directory.PaceRPS)
	}

	if c.Directory.PaceBurst < 1 {
		return fmt.Errorf("pace burst must be at least 1, got %d", c.Directory.PaceBurst)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute, defaulting to
// ~/handlesync/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "handlesync", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
