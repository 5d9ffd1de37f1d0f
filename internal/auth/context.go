package auth

import (
	"context"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

// AuthContext represents the authentication context available in a request.
// It is injected by the auth middleware from the bearer token claims.
type AuthContext struct {
	UserID uint
	Email  string
	Role   model.Role

	// CandidateID is set for candidate accounts only.
	CandidateID uint
}

// IsHR reports whether the caller carries HR rights.
func (ac *AuthContext) IsHR() bool {
	return ac != nil && ac.Role.IsHR()
}

// CanAccessCandidate reports whether the caller may read or write candidateID's data.
func (ac *AuthContext) CanAccessCandidate(candidateID uint) bool {
	if ac == nil {
		return false
	}
	return ac.IsHR() || ac.CandidateID == candidateID
}

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AuthContextKey is the key for storing AuthContext in request context
	AuthContextKey ContextKey = "authContext"
)

// WithAuthContext returns a copy of ctx carrying authCtx.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetAuthContext extracts the AuthContext from a request context.
// Returns nil if no auth context is available (request had no valid token).
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
