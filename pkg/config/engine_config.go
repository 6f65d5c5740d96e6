// Package config provides configuration loading for the flow engine.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MultiChoicePolicy decides what happens when more than one path of a
// MULTI_CHOICE_BRANCH matches at the same time.
type MultiChoicePolicy string

const (
	// MultiChoiceFanOut activates every matching path, sharing one
	// parallel group like a PARALLEL_BRANCH.
	MultiChoiceFanOut MultiChoicePolicy = "fan-out"
	// MultiChoiceFirstMatch activates only the first matching path.
	MultiChoiceFirstMatch MultiChoicePolicy = "first-match"
)

// TerminatePolicy decides how far a TERMINATE step reaches.
type TerminatePolicy string

const (
	// TerminateScope exhausts only the enclosing branch path or outcome
	// and leaves the declared status as a run annotation.
	TerminateScope TerminatePolicy = "scope"
	// TerminateRun short-circuits the whole run into a terminal status.
	TerminateRun TerminatePolicy = "run"
)

// EngineConfig carries the advancement engine's tunable policies.
type EngineConfig struct {
	MultiChoice MultiChoicePolicy `yaml:"multi_choice_policy"`
	Terminate   TerminatePolicy   `yaml:"terminate_policy"`
}

// DefaultEngineConfig returns the policies the engine ships with.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MultiChoice: MultiChoiceFanOut,
		Terminate:   TerminateScope,
	}
}

// LoadEngineConfig loads engine policies from a YAML file. Missing fields
// fall back to defaults; unknown policy values are an error.
func LoadEngineConfig(filepath string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(filepath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if cfg.MultiChoice == "" {
		cfg.MultiChoice = MultiChoiceFanOut
	}

	if cfg.Terminate == "" {
		cfg.Terminate = TerminateScope
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects unknown policy values.
func (c EngineConfig) Validate() error {
	switch c.MultiChoice {
	case MultiChoiceFanOut, MultiChoiceFirstMatch:
	default:
		return fmt.Errorf("invalid multi_choice_policy: %s", c.MultiChoice)
	}

	switch c.Terminate {
	case TerminateScope, TerminateRun:
	default:
		return fmt.Errorf("invalid terminate_policy: %s", c.Terminate)
	}

	return nil
}
