package guard

import (
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
)

// Guard decides whether an actor may transition a step.
// It must be consulted before any store mutation.
type Guard struct {
	catalog *registry.Catalog
}

func New(catalog *registry.Catalog) *Guard {
	if catalog == nil {
		catalog = registry.Default()
	}
	return &Guard{catalog: catalog}
}

// CanTransition returns false only for a non-HR actor on an HR-only step.
func (g *Guard) CanTransition(actor model.Actor, stepID model.StepID) bool {
	if actor.Role.IsHR() {
		return true
	}
	return !g.catalog.Classify(stepID).HROnly
}

// Require is the hard-failing form of CanTransition used by dedicated actions.
func (g *Guard) Require(actor model.Actor, stepID model.StepID) error {
	if g.CanTransition(actor, stepID) {
		return nil
	}
	return &model.PermissionDeniedError{Role: actor.Role, StepID: stepID}
}

// RequireHR rejects non-HR actors attempting an HR dashboard action.
func (g *Guard) RequireHR(actor model.Actor, action string) error {
	if actor.Role.IsHR() {
		return nil
	}
	return &model.PermissionDeniedError{Role: actor.Role, Action: action}
}
