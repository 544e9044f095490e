package optimizer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teilomillet/promptopt/llm"
)

// EvaluatorSpec declares one evaluator in a profile.
type EvaluatorSpec struct {
	Name         string `yaml:"name" validate:"required"`
	Type         string `yaml:"type" validate:"required,oneof=accuracy brevity style format"`
	TargetLength int    `yaml:"target_length,omitempty" validate:"gte=0"`
	Unit         string `yaml:"unit,omitempty" validate:"omitempty,oneof=characters tokens"`
}

// BatchItem is one prompt of a batch run.
type BatchItem struct {
	Name      string     `yaml:"name" json:"name"`
	Prompt    string     `yaml:"prompt" json:"prompt" validate:"required"`
	TestCases []TestCase `yaml:"test_cases,omitempty" json:"test_cases,omitempty"`
}

// Profile is a YAML file bundling objectives, evaluators and test cases.
type Profile struct {
	Name          string                  `yaml:"name"`
	Focus         string                  `yaml:"focus,omitempty"`
	BrevityTarget int                     `yaml:"brevity_target,omitempty" validate:"gte=0"`
	Objectives    []OptimizationObjective `yaml:"objectives,omitempty" validate:"dive"`
	Evaluators    []EvaluatorSpec         `yaml:"evaluators,omitempty" validate:"dive"`
	TestCases     []TestCase              `yaml:"test_cases,omitempty"`
	Prompts       []BatchItem             `yaml:"prompts,omitempty" validate:"dive"`
}

// LoadProfile reads and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	for i := range p.Objectives {
		if p.Objectives[i].Weight == 0 {
			p.Objectives[i].Weight = DefaultWeight
		}
	}
	if err := llm.Validate(&p); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

// BuildObjectives returns the profile's objectives, or DefaultObjectives when
// it declares none.
func (p *Profile) BuildObjectives() (*PromptObjectives, error) {
	if len(p.Objectives) == 0 {
		return DefaultObjectives(), nil
	}
	return NewPromptObjectives(p.Objectives...)
}

// Apply registers the profile's evaluators on o, or the default evaluators
// when it declares none. counter serves brevity evaluators in token units.
func (p *Profile) Apply(o *Optimizer, counter llm.TokenCounter) error {
	if len(p.Evaluators) == 0 {
		return RegisterDefaultEvaluators(o, p.BrevityTarget, nil)
	}
	for _, spec := range p.Evaluators {
		ev, err := p.buildEvaluator(spec, counter)
		if err != nil {
			return err
		}
		if err := o.AddEvaluator(spec.Name, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Profile) buildEvaluator(spec EvaluatorSpec, counter llm.TokenCounter) (Evaluator, error) {
	switch spec.Type {
	case "accuracy":
		return NewAccuracyEvaluator(), nil
	case "style":
		return NewStyleEvaluator(), nil
	case "format":
		return NewFormatComplianceEvaluator(), nil
	case "brevity":
		target := spec.TargetLength
		if target == 0 {
			target = p.BrevityTarget
		}
		if target == 0 {
			target = DefaultBrevityTarget
		}
		if spec.Unit == "tokens" {
			if counter == nil {
				return nil, fmt.Errorf("%w: %s: token unit needs a token counter", ErrInvalidEvaluator, spec.Name)
			}
			return NewTokenBrevityEvaluator(target, counter), nil
		}
		return NewBrevityEvaluator(target), nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvaluator, spec.Type)
	}
}

// NeedsTokenCounter reports whether any evaluator measures tokens.
func (p *Profile) NeedsTokenCounter() bool {
	for _, spec := range p.Evaluators {
		if spec.Type == "brevity" && spec.Unit == "tokens" {
			return true
		}
	}
	return false
}

// NewOptimizerFromProfile combines settings with a profile. A nil profile
// behaves like an empty one.
func NewOptimizerFromProfile(client llm.LLM, p *Profile, settings OptimizationConfig, counter llm.TokenCounter, opts ...OptimizerOption) (*Optimizer, error) {
	if p == nil {
		p = &Profile{}
	}
	objectives, err := p.BuildObjectives()
	if err != nil {
		return nil, fmt.Errorf("invalid objectives: %w", err)
	}
	if p.Focus != "" {
		settings.Focus = p.Focus
	}
	applied := *p
	if applied.BrevityTarget == 0 {
		applied.BrevityTarget = settings.BrevityTarget
	}

	o := NewOptimizer(client, objectives, append(settings.Options(), opts...)...)
	if err := applied.Apply(o, counter); err != nil {
		return nil, err
	}
	return o, nil
}
