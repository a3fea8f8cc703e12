// Package pipeline defines the validated, immutable description of the
// dialog pipeline topology: which stage services exist, how to reach them
// and which formatter normalizes their raw responses. The configuration is
// loaded once at process start and is read-only afterwards; a topology that
// fails validation must never run partially.
package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNameRequired     = errors.New("stage name is required")
	ErrDuplicateName    = errors.New("duplicate stage name within stage kind")
	ErrUnknownFormatter = errors.New("formatter reference does not resolve")
	ErrFormatterKind    = errors.New("formatter kind does not match stage kind")
	ErrBadTarget        = errors.New("transport target is malformed")
)

// Kind identifies the stage kind a service belongs to. Stage kinds run in
// a fixed order; services within a kind are independent but keep their
// configured order for reproducible tie-breaking.
type Kind string

const (
	KindAnnotator        Kind = "annotator"
	KindSkillSelector    Kind = "skill_selector"
	KindSkill            Kind = "skill"
	KindScorer           Kind = "scorer"
	KindResponseSelector Kind = "response_selector"
	KindPostprocessor    Kind = "postprocessor"
)

// StageSpec describes one stage service binding. GPU, Env and Path are
// deployment metadata carried through for tooling; orchestration logic
// never reads them.
type StageSpec struct {
	Name      string            `yaml:"name"`
	Protocol  string            `yaml:"protocol"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	Endpoint  string            `yaml:"endpoint"`
	Formatter string            `yaml:"formatter"`
	Timeout   time.Duration     `yaml:"timeout,omitempty"`
	GPU       bool              `yaml:"gpu,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	Path      string            `yaml:"path,omitempty"`

	kind   Kind
	format FormatterFunc
}

// URL returns the full transport target for the stage.
func (s *StageSpec) URL() string {
	return fmt.Sprintf("%s://%s:%d/%s", s.Protocol, s.Host, s.Port, s.Endpoint)
}

// Kind returns the stage kind assigned during load.
func (s *StageSpec) Kind() Kind { return s.kind }

// CallTimeout returns the per-call timeout for this stage, or fallback
// when the spec does not override it.
func (s *StageSpec) CallTimeout(fallback time.Duration) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return fallback
}

// Config holds the ordered stage lists for every stage kind plus the
// scorer binding. Field order mirrors dispatch order within a turn.
type Config struct {
	Annotators        []StageSpec `yaml:"annotators"`
	SkillSelectors    []StageSpec `yaml:"skill_selectors"`
	Skills            []StageSpec `yaml:"skills"`
	Scorer            *StageSpec  `yaml:"scorer"`
	ResponseSelectors []StageSpec `yaml:"response_selectors"`
	Postprocessors    []StageSpec `yaml:"postprocessors"`
}

// SkillByName returns the skill spec with the given name.
func (c *Config) SkillByName(name string) (*StageSpec, bool) {
	for i := range c.Skills {
		if c.Skills[i].Name == name {
			return &c.Skills[i], true
		}
	}
	return nil, false
}

// StageCount returns the total number of configured stage services.
func (c *Config) StageCount() int {
	n := len(c.Annotators) + len(c.SkillSelectors) + len(c.Skills) +
		len(c.ResponseSelectors) + len(c.Postprocessors)
	if c.Scorer != nil {
		n++
	}
	return n
}

// resolve assigns stage kinds and resolves formatter references against
// the registry. Called once during load, before validation.
func (c *Config) resolve(reg *FormatterRegistry) error {
	groups := []struct {
		kind  Kind
		specs []StageSpec
	}{
		{KindAnnotator, c.Annotators},
		{KindSkillSelector, c.SkillSelectors},
		{KindSkill, c.Skills},
		{KindResponseSelector, c.ResponseSelectors},
		{KindPostprocessor, c.Postprocessors},
	}

	for _, g := range groups {
		for i := range g.specs {
			if err := resolveSpec(&g.specs[i], g.kind, reg); err != nil {
				return err
			}
		}
	}
	if c.Scorer != nil {
		if err := resolveSpec(c.Scorer, KindScorer, reg); err != nil {
			return err
		}
	}
	return nil
}

func resolveSpec(s *StageSpec, kind Kind, reg *FormatterRegistry) error {
	s.kind = kind
	f, ok := reg.Lookup(s.Formatter)
	if !ok {
		return fmt.Errorf("stage %q: formatter %q: %w", s.Name, s.Formatter, ErrUnknownFormatter)
	}
	if f.Kind != kind {
		return fmt.Errorf("stage %q: formatter %q is for %s stages: %w",
			s.Name, s.Formatter, f.Kind, ErrFormatterKind)
	}
	s.format = f.Func
	return nil
}

// Validate checks structural correctness: unique names per stage kind and
// well-formed transport targets. Violations are ConfigErrors; the caller
// must refuse to start serving.
func (c *Config) Validate() error {
	groups := map[Kind][]StageSpec{
		KindAnnotator:        c.Annotators,
		KindSkillSelector:    c.SkillSelectors,
		KindSkill:            c.Skills,
		KindResponseSelector: c.ResponseSelectors,
		KindPostprocessor:    c.Postprocessors,
	}
	if c.Scorer != nil {
		groups[KindScorer] = []StageSpec{*c.Scorer}
	}

	for kind, specs := range groups {
		seen := make(map[string]bool, len(specs))
		for i := range specs {
			s := &specs[i]
			if s.Name == "" {
				return fmt.Errorf("%s stage %d: %w", kind, i, ErrNameRequired)
			}
			if seen[s.Name] {
				return fmt.Errorf("%s stage %q: %w", kind, s.Name, ErrDuplicateName)
			}
			seen[s.Name] = true
			if err := validateTarget(s); err != nil {
				return fmt.Errorf("%s stage %q: %w", kind, s.Name, err)
			}
		}
	}
	return nil
}

func validateTarget(s *StageSpec) error {
	if s.Protocol != "http" && s.Protocol != "https" {
		return fmt.Errorf("protocol %q: %w", s.Protocol, ErrBadTarget)
	}
	if s.Host == "" {
		return fmt.Errorf("empty host: %w", ErrBadTarget)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port %d: %w", s.Port, ErrBadTarget)
	}
	if s.Endpoint == "" {
		return fmt.Errorf("empty endpoint: %w", ErrBadTarget)
	}
	return nil
}
