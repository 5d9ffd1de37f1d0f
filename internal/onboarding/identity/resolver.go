package identity

import (
	"context"
	"log/slog"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

// ResolveCandidateID derives the subject candidate for an operation.
//
// HR actors use the explicit selection when it is numeric, then the persisted
// selection; there is no implicit self-identity for HR. Candidates always act on
// their own id. Nothing is inferred when the sources are absent or malformed.
func ResolveCandidateID(actor model.Actor, explicit, persisted string) (model.CandidateID, bool) {
	if actor.Role.IsHR() {
		if id, ok := model.ParseCandidateID(explicit); ok {
			return id, true
		}
		return model.ParseCandidateID(persisted)
	}
	return model.ParseCandidateID(actor.ID)
}

// ActorSource yields the authenticated actor for the session.
type ActorSource interface {
	CurrentActor() (model.Actor, bool)
}

// PersistedSelection reads the HR selection from durable client storage.
type PersistedSelection interface {
	SelectedCandidateID(ctx context.Context) (string, error)
}

// Resolver binds ResolveCandidateID to the session's actor, in-memory selection
// and persisted selection.
type Resolver struct {
	actors    ActorSource
	selection *Selection
	persisted PersistedSelection
}

func NewResolver(actors ActorSource, selection *Selection, persisted PersistedSelection) *Resolver {
	if selection == nil {
		selection = NewSelection()
	}
	return &Resolver{actors: actors, selection: selection, persisted: persisted}
}

// Selection returns the in-memory HR selection context the resolver reads.
func (r *Resolver) Selection() *Selection {
	return r.selection
}

// Resolve returns the candidate id for the current operation or an
// IdentityResolutionError. Callers must abort on error.
func (r *Resolver) Resolve(ctx context.Context) (model.CandidateID, error) {
	actor, ok := r.actors.CurrentActor()
	if !ok {
		slog.WarnContext(ctx, "candidate id resolution failed: no authenticated actor")
		return 0, &model.IdentityResolutionError{}
	}

	explicit := r.selection.Raw()
	persisted := ""
	if actor.Role.IsHR() && r.persisted != nil {
		value, err := r.persisted.SelectedCandidateID(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to read persisted candidate selection", "error", err)
		}
		persisted = value
	}

	id, ok := ResolveCandidateID(actor, explicit, persisted)
	if !ok {
		slog.WarnContext(ctx, "candidate id resolution failed",
			"role", actor.Role,
			"actor_id", actor.ID,
			"explicit", explicit,
			"persisted", persisted,
		)
		return 0, &model.IdentityResolutionError{
			Role:      actor.Role,
			Explicit:  explicit,
			Persisted: persisted,
		}
	}
	return id, nil
}
