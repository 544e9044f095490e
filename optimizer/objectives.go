// Package optimizer scores prompts against weighted objectives and drives the
// analyze, improve and re-score cycle that proposes better prompts.
package optimizer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateObjective = errors.New("duplicate objective")
	ErrObjectiveNotFound  = errors.New("objective not found")
	ErrInvalidObjective   = errors.New("invalid objective")
)

// Priority is the tier an objective belongs to.
type Priority int

const (
	PriorityMustHave Priority = iota + 1
	PriorityShouldHave
	PriorityNiceToHave
)

func (p Priority) String() string {
	switch p {
	case PriorityMustHave:
		return "MUST_HAVE"
	case PriorityShouldHave:
		return "SHOULD_HAVE"
	case PriorityNiceToHave:
		return "NICE_TO_HAVE"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts MUST_HAVE, must_have, must-have or the short form must.
func (p *Priority) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(string(text)), "-", "_"))
	switch s {
	case "MUST_HAVE", "MUST":
		*p = PriorityMustHave
	case "SHOULD_HAVE", "SHOULD":
		*p = PriorityShouldHave
	case "NICE_TO_HAVE", "NICE":
		*p = PriorityNiceToHave
	default:
		return fmt.Errorf("unknown priority %q", string(text))
	}
	return nil
}

// OptimizationObjective is a named, weighted quality dimension. Weight must
// be positive; profiles that omit it get DefaultWeight. TargetValue is
// informational and never enters the score.
type OptimizationObjective struct {
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Weight      float64  `json:"weight" yaml:"weight" validate:"gt=0"`
	TargetValue *float64 `json:"target_value,omitempty" yaml:"target_value,omitempty"`
}

// NewObjective builds an objective. The registry rejects a weight that is
// not positive.
func NewObjective(name, description string, priority Priority, weight float64) OptimizationObjective {
	return OptimizationObjective{
		Name:        name,
		Description: description,
		Priority:    priority,
		Weight:      weight,
	}
}

// WithTarget returns a copy of o with the given target value.
func (o OptimizationObjective) WithTarget(v float64) OptimizationObjective {
	o.TargetValue = &v
	return o
}

// PromptObjectives maps objective names to objectives. It is not safe for
// concurrent mutation; scoring runs work on a Clone.
type PromptObjectives struct {
	objectives map[string]OptimizationObjective
	order      []string
}

func NewPromptObjectives(objectives ...OptimizationObjective) (*PromptObjectives, error) {
	po := &PromptObjectives{objectives: make(map[string]OptimizationObjective)}
	for _, obj := range objectives {
		if err := po.AddObjective(obj); err != nil {
			return nil, err
		}
	}
	return po, nil
}

func (po *PromptObjectives) AddObjective(obj OptimizationObjective) error {
	if strings.TrimSpace(obj.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidObjective)
	}
	if obj.Weight <= 0 {
		return fmt.Errorf("%w: %s: weight must be positive, got %v", ErrInvalidObjective, obj.Name, obj.Weight)
	}
	if obj.Priority == 0 {
		obj.Priority = PriorityShouldHave
	}
	if po.objectives == nil {
		po.objectives = make(map[string]OptimizationObjective)
	}
	if _, exists := po.objectives[obj.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateObjective, obj.Name)
	}
	if obj.TargetValue != nil {
		v := *obj.TargetValue
		obj.TargetValue = &v
	}
	po.objectives[obj.Name] = obj
	po.order = append(po.order, obj.Name)
	return nil
}

func (po *PromptObjectives) GetObjective(name string) (OptimizationObjective, error) {
	obj, ok := po.objectives[name]
	if !ok {
		return OptimizationObjective{}, fmt.Errorf("%w: %s", ErrObjectiveNotFound, name)
	}
	return obj, nil
}

func (po *PromptObjectives) RemoveObjective(name string) error {
	if _, ok := po.objectives[name]; !ok {
		return fmt.Errorf("%w: %s", ErrObjectiveNotFound, name)
	}
	delete(po.objectives, name)
	for i, n := range po.order {
		if n == name {
			po.order = append(po.order[:i], po.order[i+1:]...)
			break
		}
	}
	return nil
}

// WeightFor returns the weight of the named objective, or DefaultWeight.
func (po *PromptObjectives) WeightFor(name string) float64 {
	if po == nil {
		return DefaultWeight
	}
	if obj, ok := po.objectives[name]; ok {
		return obj.Weight
	}
	return DefaultWeight
}

// Objectives lists objectives in insertion order.
func (po *PromptObjectives) Objectives() []OptimizationObjective {
	if po == nil {
		return nil
	}
	out := make([]OptimizationObjective, 0, len(po.order))
	for _, name := range po.order {
		out = append(out, po.objectives[name])
	}
	return out
}

func (po *PromptObjectives) Len() int {
	if po == nil {
		return 0
	}
	return len(po.order)
}

// Clone returns a deep copy.
func (po *PromptObjectives) Clone() *PromptObjectives {
	clone := &PromptObjectives{objectives: make(map[string]OptimizationObjective)}
	if po == nil {
		return clone
	}
	for _, name := range po.order {
		obj := po.objectives[name]
		if obj.TargetValue != nil {
			v := *obj.TargetValue
			obj.TargetValue = &v
		}
		clone.objectives[name] = obj
		clone.order = append(clone.order, name)
	}
	return clone
}
