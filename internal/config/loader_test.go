package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "4242" {
		t.Errorf("port = %q, want 4242", cfg.Server.Port)
	}
	if cfg.Skill.Seed != 2718 {
		t.Errorf("seed = %d, want 2718", cfg.Skill.Seed)
	}
	if cfg.Pipeline.MaxParallel != 8 {
		t.Errorf("max parallel = %d, want 8", cfg.Pipeline.MaxParallel)
	}
	if cfg.Pipeline.StageTimeout != 2*time.Second {
		t.Errorf("stage timeout = %v, want 2s", cfg.Pipeline.StageTimeout)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	yaml := `
server:
  port: "9000"
  service_name: custom
pipeline:
  stage_timeout: 5s
scorer:
  cache_size_mb: 64
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Server.ServiceName != "custom" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Pipeline.StageTimeout != 5*time.Second {
		t.Errorf("stage timeout = %v", cfg.Pipeline.StageTimeout)
	}
	if cfg.Scorer.CacheSizeMB != 64 {
		t.Errorf("cache size = %d", cfg.Scorer.CacheSizeMB)
	}
	// Untouched fields keep defaults.
	if cfg.Pipeline.MaxParallel != 8 {
		t.Errorf("max parallel = %d, want default", cfg.Pipeline.MaxParallel)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVICE_PORT", "8010")
	t.Setenv("SERVICE_NAME", "movie_skill")
	t.Setenv("RANDOM_SEED", "31415")
	t.Setenv("PARLEY_MAX_PARALLEL", "4")
	t.Setenv("PARLEY_STAGE_TIMEOUT", "750ms")
	t.Setenv("PARLEY_LOG_ASYNC", "true")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8010" {
		t.Errorf("port = %q, want env override", cfg.Server.Port)
	}
	if cfg.Server.ServiceName != "movie_skill" {
		t.Errorf("service name = %q", cfg.Server.ServiceName)
	}
	if cfg.Skill.Seed != 31415 {
		t.Errorf("seed = %d", cfg.Skill.Seed)
	}
	if cfg.Pipeline.MaxParallel != 4 {
		t.Errorf("max parallel = %d", cfg.Pipeline.MaxParallel)
	}
	if cfg.Pipeline.StageTimeout != 750*time.Millisecond {
		t.Errorf("stage timeout = %v", cfg.Pipeline.StageTimeout)
	}
	if !cfg.Logging.Async {
		t.Error("expected async logging enabled")
	}
}

func TestLoadInvalidEnvIgnored(t *testing.T) {
	t.Setenv("RANDOM_SEED", "not-a-number")
	t.Setenv("PARLEY_STAGE_TIMEOUT", "soon")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Skill.Seed != 2718 {
		t.Errorf("seed = %d, want default kept", cfg.Skill.Seed)
	}
	if cfg.Pipeline.StageTimeout != 2*time.Second {
		t.Errorf("stage timeout = %v, want default kept", cfg.Pipeline.StageTimeout)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty pipeline file", func(c *Config) { c.Pipeline.File = "" }},
		{"zero max parallel", func(c *Config) { c.Pipeline.MaxParallel = 0 }},
		{"zero stage timeout", func(c *Config) { c.Pipeline.StageTimeout = 0 }},
		{"zero breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := validate(&cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
