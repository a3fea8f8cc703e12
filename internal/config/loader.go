package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "parley.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
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

// loadEnv overlays environment variables onto cfg. SERVICE_NAME,
// SERVICE_PORT and RANDOM_SEED keep their legacy names; everything else
// is namespaced under PARLEY_.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SERVICE_PORT")
	setString(&cfg.Server.ServiceName, "SERVICE_NAME")
	setInt64(&cfg.Skill.Seed, "RANDOM_SEED")

	setString(&cfg.Pipeline.File, "PARLEY_PIPELINE_FILE")
	setDuration(&cfg.Pipeline.StageTimeout, "PARLEY_STAGE_TIMEOUT")
	setInt(&cfg.Pipeline.MaxParallel, "PARLEY_MAX_PARALLEL")

	setString(&cfg.Scorer.ModelPath, "PARLEY_SCORER_MODEL")
	setInt64(&cfg.Scorer.CacheSizeMB, "PARLEY_SCORE_CACHE_MB")
	setDuration(&cfg.Scorer.CacheTTL, "PARLEY_SCORE_CACHE_TTL")

	setString(&cfg.Skill.UpstreamURL, "PARLEY_SKILL_UPSTREAM_URL")
	setDuration(&cfg.Skill.ReadyInterval, "PARLEY_READY_INTERVAL")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Telemetry.OTLPEndpoint, "PARLEY_OTLP_ENDPOINT")

	setString(&cfg.Logging.Level, "PARLEY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PARLEY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PARLEY_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "PARLEY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PARLEY_BREAKER_TIMEOUT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Pipeline.File == "" {
		return errors.New("pipeline.file is required")
	}
	if cfg.Pipeline.MaxParallel < 1 {
		return errors.New("pipeline.max_parallel must be >= 1")
	}
	if cfg.Pipeline.StageTimeout <= 0 {
		return errors.New("pipeline.stage_timeout must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
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
