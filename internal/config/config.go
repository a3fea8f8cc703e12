// Package config provides hierarchical configuration loading for Parley
// services. Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds runtime configuration shared by the Parley binaries.
// The pipeline topology itself lives in its own file (see Pipeline.File)
// and is loaded by the pipeline package.
type Config struct {
	Server    Server    `yaml:"server"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Scorer    Scorer    `yaml:"scorer"`
	Skill     Skill     `yaml:"skill"`
	NATS      NATS      `yaml:"nats"`
	Telemetry Telemetry `yaml:"telemetry"`
	Logging   Logging   `yaml:"logging"`
	Breaker   Breaker   `yaml:"breaker"`
}

// Server holds HTTP server and service identity configuration. The
// service name is left empty by Defaults; each binary fills in its own
// when neither YAML nor SERVICE_NAME set one.
type Server struct {
	Port        string `yaml:"port"`
	ServiceName string `yaml:"service_name"`
}

// Pipeline holds orchestrator dispatch configuration.
type Pipeline struct {
	File         string        `yaml:"file"`          // pipeline topology YAML
	StageTimeout time.Duration `yaml:"stage_timeout"` // default per-call timeout
	MaxParallel  int           `yaml:"max_parallel"`  // fan-out concurrency bound
}

// Scorer holds hypothesis scorer configuration.
type Scorer struct {
	ModelPath   string        `yaml:"model_path"`
	CacheSizeMB int64         `yaml:"cache_size_mb"` // 0 disables the score cache
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// Skill holds skill-service configuration.
type Skill struct {
	UpstreamURL   string        `yaml:"upstream_url"` // readiness-gated dependency, optional
	ReadyInterval time.Duration `yaml:"ready_interval"`
	Seed          int64         `yaml:"seed"` // default random seed for deterministic replay
}

// NATS holds the telemetry bus configuration. An empty URL disables it.
type NATS struct {
	URL string `yaml:"url"`
}

// Telemetry holds OTLP exporter configuration. An empty endpoint leaves
// tracing and metrics on the no-op providers.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for stage calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port: "4242",
		},
		Pipeline: Pipeline{
			File:         "configs/pipeline.yaml",
			StageTimeout: 2 * time.Second,
			MaxParallel:  8,
		},
		Scorer: Scorer{
			ModelPath:   "configs/scorer_model.json",
			CacheSizeMB: 32,
			CacheTTL:    time.Hour,
		},
		Skill: Skill{
			ReadyInterval: 5 * time.Second,
			Seed:          2718,
		},
		Logging: Logging{
			Level:   "info",
			Service: "parley",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
	}
}
