package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "artificer.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ARTIFICER_PORT")
	setString(&cfg.Server.CORSOrigin, "ARTIFICER_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ARTIFICER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ARTIFICER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ARTIFICER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ARTIFICER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ARTIFICER_PG_HEALTH_CHECK")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.Generator.Model, "ARTIFICER_GEN_MODEL")
	setInt(&cfg.Generator.MaxTokens, "ARTIFICER_GEN_MAX_TOKENS")
	setBool(&cfg.Generator.AutoApprove, "ARTIFICER_GEN_AUTO_APPROVE")
	setDuration(&cfg.Executor.Timeout, "ARTIFICER_EXEC_TIMEOUT")
	setString(&cfg.Executor.Python, "ARTIFICER_EXEC_PYTHON")
	setString(&cfg.Executor.Shell, "ARTIFICER_EXEC_SHELL")
	setInt64(&cfg.Cache.MaxSizeMB, "ARTIFICER_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "ARTIFICER_CACHE_TTL")
	setStringSlice(&cfg.Auth.APIKeyHashes, "ARTIFICER_API_KEY_HASHES")
	setFloat64(&cfg.Rate.RequestsPerSecond, "ARTIFICER_RATE_RPS")
	setInt(&cfg.Rate.Burst, "ARTIFICER_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "ARTIFICER_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "ARTIFICER_RATE_MAX_IDLE_TIME")
	setInt(&cfg.Breaker.MaxFailures, "ARTIFICER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ARTIFICER_BREAKER_TIMEOUT")
	setBool(&cfg.MCP.Enabled, "ARTIFICER_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "ARTIFICER_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "ARTIFICER_MCP_API_KEY")
	setBool(&cfg.OTel.Enabled, "ARTIFICER_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Logging.Level, "ARTIFICER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ARTIFICER_LOG_SERVICE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Executor.Timeout <= 0 {
		return errors.New("executor.timeout must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
