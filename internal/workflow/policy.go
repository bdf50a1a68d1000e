package workflow

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed stagepolicy.yaml
var defaultPolicyYAML []byte

const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

type StageDef struct {
	Name       string `yaml:"name"`
	Reviewer   string `yaml:"reviewer"`
	DueInHours int    `yaml:"due_in_hours"`
}

type Policy struct {
	Mode   string     `yaml:"mode"`
	Stages []StageDef `yaml:"stages"`
}

type PolicySet struct {
	Default Policy            `yaml:"default"`
	Kinds   map[string]Policy `yaml:"kinds"`
}

// For returns the policy for a template kind, falling back to the default.
func (ps PolicySet) For(kind string) Policy {
	if p, ok := ps.Kinds[kind]; ok && len(p.Stages) > 0 {
		return p
	}
	return ps.Default
}

// LoadPolicies parses a stage-policy YAML document. Empty input loads the
// embedded default file.
func LoadPolicies(raw []byte) (PolicySet, error) {
	if len(raw) == 0 {
		raw = defaultPolicyYAML
	}
	var ps PolicySet
	if err := yaml.Unmarshal(raw, &ps); err != nil {
		return PolicySet{}, fmt.Errorf("parse stage policy: %w", err)
	}
	if len(ps.Default.Stages) == 0 {
		return PolicySet{}, fmt.Errorf("stage policy has no default stages")
	}
	if ps.Default.Mode != ModeSequential && ps.Default.Mode != ModeParallel {
		return PolicySet{}, fmt.Errorf("default stage policy: unknown mode %q", ps.Default.Mode)
	}
	for kind, p := range ps.Kinds {
		if p.Mode != ModeSequential && p.Mode != ModeParallel {
			return PolicySet{}, fmt.Errorf("stage policy for %q: unknown mode %q", kind, p.Mode)
		}
	}
	return ps, nil
}
