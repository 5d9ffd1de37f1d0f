package registry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Classification describes who may transition a step.
type Classification struct {
	HROnly              bool
	CandidateAccessible bool
}

// Catalog is the ordered, fixed list of onboarding steps.
type Catalog struct {
	steps []model.Step
	index map[model.StepID]int
}

type catalogFile struct {
	Steps []model.Step `yaml:"steps"`
}

// Parse decodes a catalog document. Step ids must be unique and statuses valid.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode step catalog: %w", err)
	}
	if len(file.Steps) == 0 {
		return nil, fmt.Errorf("step catalog is empty")
	}

	index := make(map[model.StepID]int, len(file.Steps))
	for i, step := range file.Steps {
		if step.ID == "" {
			return nil, fmt.Errorf("step at position %d has no id", i)
		}
		if _, exists := index[step.ID]; exists {
			return nil, fmt.Errorf("duplicate step id %q", step.ID)
		}
		if !step.Status.Valid() {
			return nil, fmt.Errorf("step %q has invalid initial status %q", step.ID, step.Status)
		}
		index[step.ID] = i
	}

	return &Catalog{steps: file.Steps, index: index}, nil
}

var defaultCatalog = mustParse(catalogYAML)

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in onboarding catalog.
func Default() *Catalog {
	return defaultCatalog
}

// InitialSteps returns a fresh copy of the catalog with seeded statuses.
func (c *Catalog) InitialSteps() []model.Step {
	steps := make([]model.Step, len(c.steps))
	copy(steps, c.steps)
	return steps
}

// Len returns the number of steps in the catalog.
func (c *Catalog) Len() int {
	return len(c.steps)
}

// IndexOf returns the position of id in the catalog.
func (c *Catalog) IndexOf(id model.StepID) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// IsKnown reports whether id belongs to the catalog.
func (c *Catalog) IsKnown(id model.StepID) bool {
	_, ok := c.index[id]
	return ok
}

// Definition returns the catalog entry for id.
func (c *Catalog) Definition(id model.StepID) (model.Step, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Step{}, false
	}
	return c.steps[i], true
}

// Classify reports whether a step is HR-only. Steps outside the catalog are
// treated as candidate-accessible; the store rejects them separately.
func (c *Catalog) Classify(id model.StepID) Classification {
	if step, ok := c.Definition(id); ok && step.HROnly {
		return Classification{HROnly: true}
	}
	return Classification{CandidateAccessible: true}
}

// DeriveCurrentIndex returns the index of the first step that is not completed,
// the last index when every step is completed, and 0 for an empty list.
func DeriveCurrentIndex(steps []model.Step) int {
	if len(steps) == 0 {
		return 0
	}
	for i, step := range steps {
		if step.Status != model.StepStatusCompleted {
			return i
		}
	}
	return len(steps) - 1
}

// CompletedCount returns how many steps are completed.
func CompletedCount(steps []model.Step) int {
	n := 0
	for _, step := range steps {
		if step.Status == model.StepStatusCompleted {
			n++
		}
	}
	return n
}

// Percentage returns completed steps as a rounded percentage of all steps.
func Percentage(steps []model.Step) int {
	if len(steps) == 0 {
		return 0
	}
	return (CompletedCount(steps)*200 + len(steps)) / (2 * len(steps))
}
