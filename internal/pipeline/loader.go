package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads, resolves and validates a pipeline Config from a YAML
// file. Unlike the process config, the pipeline file is mandatory: an
// unreadable or invalid topology keeps the service from starting.
func LoadFromFile(path string, reg *FormatterRegistry) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read pipeline file %s: %w", path, err)
	}

	cfg, err := Parse(data, reg)
	if err != nil {
		return nil, fmt.Errorf("pipeline file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals a pipeline Config, resolves formatter references and
// validates the topology.
func Parse(data []byte, reg *FormatterRegistry) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if err := cfg.resolve(reg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
