package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/onboardhr/onboarding/internal/notify"
	"github.com/onboardhr/onboarding/internal/onboarding/guard"
	"github.com/onboardhr/onboarding/internal/onboarding/identity"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
	"github.com/onboardhr/onboarding/internal/onboarding/store"
	"github.com/onboardhr/onboarding/internal/remote"
)

// Backend is everything a session needs from the onboarding backend.
type Backend interface {
	store.StepSyncer
	store.CompletionNotifier
	notify.Backend

	Login(ctx context.Context, email, password string) (*remote.LoginResponse, error)
	SetToken(token string)
	FetchCandidates(ctx context.Context) ([]remote.CandidateSummary, error)
	FetchCandidate(ctx context.Context, candidateID model.CandidateID) (*remote.CandidateSummary, error)
	UpdateCandidateProgress(ctx context.Context, candidateID model.CandidateID, update remote.ProgressUpdate) (*remote.CandidateSummary, error)
	UploadDocument(ctx context.Context, candidateID model.CandidateID, fileName string, content io.Reader) (*remote.DocumentUpload, error)
	HealthCheck(ctx context.Context) error
}

var _ Backend = (*remote.Client)(nil)

// Session is one signed-in user's onboarding client. It owns the step store,
// the HR selection context and the notification list.
type Session struct {
	backend       Backend
	state         *StateStore
	catalog       *registry.Catalog
	guard         *guard.Guard
	selection     *identity.Selection
	resolver      *identity.Resolver
	steps         *store.Store
	notifications *notify.Emitter

	mu            sync.RWMutex
	actor         *model.Actor
	lastSelection string
}

type Config struct {
	Catalog    *registry.Catalog
	ResetIndex int
}

func New(backend Backend, state *StateStore, cfg Config) *Session {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = registry.Default()
	}

	s := &Session{
		backend:       backend,
		state:         state,
		catalog:       catalog,
		guard:         guard.New(catalog),
		selection:     identity.NewSelection(),
		notifications: notify.NewEmitter(backend),
	}
	s.resolver = identity.NewResolver(s, s.selection, state)
	s.steps = store.New(backend, s.resolver,
		store.WithCatalog(catalog),
		store.WithResetIndex(cfg.ResetIndex),
		store.WithNotifier(backend),
	)
	return s
}

// CurrentActor implements identity.ActorSource.
func (s *Session) CurrentActor() (model.Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.actor == nil {
		return model.Actor{}, false
	}
	return *s.actor, true
}

func (s *Session) Steps() *store.Store {
	return s.steps
}

func (s *Session) Selection() *identity.Selection {
	return s.selection
}

// Login authenticates, persists the session for Restore and loads steps.
func (s *Session) Login(ctx context.Context, email, password string) (model.Actor, error) {
	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return model.Actor{}, err
	}

	actor := model.Actor{
		ID:        resp.ID.String(),
		Email:     resp.Email,
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
		Role:      model.ParseRole(resp.Role),
	}

	userJSON, err := json.Marshal(actor)
	if err != nil {
		return model.Actor{}, fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.state.Set(ctx, KeyAuthToken, resp.Token); err != nil {
		return model.Actor{}, err
	}
	if err := s.state.Set(ctx, KeyAuthUser, string(userJSON)); err != nil {
		return model.Actor{}, err
	}

	s.activate(ctx, actor, resp.Token)
	slog.InfoContext(ctx, "signed in", "email", actor.Email, "role", actor.Role)
	return actor, nil
}

// Restore resumes a persisted session. It returns false when none is stored.
func (s *Session) Restore(ctx context.Context) (model.Actor, bool, error) {
	token, err := s.state.Get(ctx, KeyAuthToken)
	if err != nil {
		return model.Actor{}, false, err
	}
	userJSON, err := s.state.Get(ctx, KeyAuthUser)
	if err != nil {
		return model.Actor{}, false, err
	}
	if token == "" || userJSON == "" {
		return model.Actor{}, false, nil
	}

	var actor model.Actor
	if err := json.Unmarshal([]byte(userJSON), &actor); err != nil {
		slog.WarnContext(ctx, "discarding unreadable persisted user", "error", err)
		return model.Actor{}, false, s.state.Delete(ctx, KeyAuthToken, KeyAuthUser)
	}

	s.activate(ctx, actor, token)
	return actor, true, nil
}

// Logout forgets the actor, the selection and the loaded steps.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.actor = nil
	s.lastSelection = ""
	s.mu.Unlock()

	s.backend.SetToken("")
	s.selection.Clear()
	s.steps.ResetAll()
	s.notifications.ClearAll(ctx, "")
	return s.state.Delete(ctx, KeyAuthToken, KeyAuthUser, KeySelectedCandidateID)
}

func (s *Session) activate(ctx context.Context, actor model.Actor, token string) {
	s.backend.SetToken(token)

	s.mu.Lock()
	a := actor
	s.actor = &a
	s.mu.Unlock()

	if err := s.notifications.Load(ctx, actor.Email); err != nil {
		slog.DebugContext(ctx, "notifications not loaded", "error", err)
	}

	if actor.Role.IsHR() {
		persisted, err := s.state.SelectedCandidateID(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to read persisted selection", "error", err)
		}
		s.selection.SetRaw(persisted)
		s.mu.Lock()
		s.lastSelection = persisted
		s.mu.Unlock()
		if persisted == "" {
			return
		}
	}

	if _, err := s.steps.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "initial step load failed", "error", err)
	}
}

// CompleteStep is the generic completion flow. A step the actor may not
// transition is a silent no-op and returns nil, nil.
func (s *Session) CompleteStep(ctx context.Context, stepID model.StepID, data any) (*store.TransitionResult, error) {
	return s.transition(ctx, stepID, model.StepStatusCompleted, data, false)
}

// FailStep records a failed step through the generic flow.
func (s *Session) FailStep(ctx context.Context, stepID model.StepID, reason string) (*store.TransitionResult, error) {
	var data any
	if reason != "" {
		data = map[string]any{"reason": reason}
	}
	return s.transition(ctx, stepID, model.StepStatusFailed, data, false)
}

// ApproveStep is the dedicated HR action. Non-HR actors are rejected with a
// PermissionDeniedError. Map data is annotated with the selected candidate.
func (s *Session) ApproveStep(ctx context.Context, stepID model.StepID, data any) (*store.TransitionResult, error) {
	actor, ok := s.CurrentActor()
	if !ok {
		return nil, &model.IdentityResolutionError{}
	}
	if err := s.guard.RequireHR(actor, "approve step "+string(stepID)); err != nil {
		return nil, err
	}

	if fields, ok := data.(map[string]any); ok {
		annotated := make(map[string]any, len(fields)+3)
		for k, v := range fields {
			annotated[k] = v
		}
		if candidate, ok := s.selection.Candidate(); ok {
			setIfAbsent(annotated, "candidateName", candidate.Name)
			setIfAbsent(annotated, "candidatePosition", candidate.Position)
			setIfAbsent(annotated, "candidateDepartment", candidate.Department)
		}
		setIfAbsent(annotated, "reviewedBy", actor.Name())
		data = annotated
	}
	return s.transition(ctx, stepID, model.StepStatusCompleted, data, true)
}

func (s *Session) transition(ctx context.Context, stepID model.StepID, status model.StepStatus, data any, dedicated bool) (*store.TransitionResult, error) {
	actor, ok := s.CurrentActor()
	if !ok {
		err := &model.IdentityResolutionError{}
		s.notifications.Emit(ctx, notify.KindError, "Not signed in", err.Error(), "")
		return nil, err
	}

	if !s.guard.CanTransition(actor, stepID) {
		if dedicated {
			return nil, s.guard.Require(actor, stepID)
		}
		slog.DebugContext(ctx, "step transition blocked for role", "role", actor.Role, "step_id", stepID)
		return nil, nil
	}

	result, err := s.steps.UpdateStepStatus(ctx, store.UpdateRequest{StepID: stepID, Status: status, Data: data})
	if err != nil {
		if errors.Is(err, model.ErrOperationInFlight) {
			return nil, err
		}
		s.notifications.Emit(ctx, notify.KindError, failureTitle(err), err.Error(), actor.Email)
		return result, err
	}

	title := s.stepTitle(stepID)
	switch status {
	case model.StepStatusCompleted:
		s.notifications.Emit(ctx, notify.KindSuccess, "Step Completed", title+" has been completed successfully.", actor.Email)
	case model.StepStatusFailed:
		s.notifications.Emit(ctx, notify.KindError, "Step Failed", title+" could not be completed.", actor.Email)
	}
	if len(result.Warnings) > 0 {
		s.notifications.Emit(ctx, notify.KindWarning, "Some step data could not be read",
			fmt.Sprintf("%d step(s) kept their stored data as plain text.", len(result.Warnings)), actor.Email)
	}
	return result, nil
}

// SelectCandidate sets the HR selection, persists it and loads that candidate's steps.
func (s *Session) SelectCandidate(ctx context.Context, candidate identity.SelectedCandidate) error {
	actor, ok := s.CurrentActor()
	if !ok {
		return &model.IdentityResolutionError{}
	}
	if err := s.guard.RequireHR(actor, "select a candidate"); err != nil {
		return err
	}
	if candidate.ID <= 0 {
		return &model.IdentityResolutionError{Role: actor.Role, Explicit: candidate.ID.String()}
	}

	s.selection.Set(candidate)
	raw := candidate.ID.String()
	if err := s.state.Set(ctx, KeySelectedCandidateID, raw); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSelection = raw
	s.mu.Unlock()

	_, err := s.steps.Load(ctx, candidate.ID)
	return err
}

// SyncSelection re-reads the persisted selection and re-fetches steps when
// another session sharing the same state changed it. It reports whether the
// selection changed.
func (s *Session) SyncSelection(ctx context.Context) (bool, error) {
	actor, ok := s.CurrentActor()
	if !ok || !actor.Role.IsHR() {
		return false, nil
	}

	persisted, err := s.state.SelectedCandidateID(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	changed := persisted != s.lastSelection
	s.lastSelection = persisted
	s.mu.Unlock()
	if !changed {
		return false, nil
	}

	s.selection.SetRaw(persisted)
	id, ok := model.ParseCandidateID(persisted)
	if !ok {
		s.steps.ResetAll()
		return true, nil
	}
	_, err = s.steps.Load(ctx, id)
	return true, err
}

// Candidates lists candidates for the HR dashboard.
func (s *Session) Candidates(ctx context.Context) ([]remote.CandidateSummary, error) {
	if err := s.requireHR("list candidates"); err != nil {
		return nil, err
	}
	return s.backend.FetchCandidates(ctx)
}

// Candidate looks up one candidate by id for the HR dashboard.
func (s *Session) Candidate(ctx context.Context, candidateID model.CandidateID) (*remote.CandidateSummary, error) {
	if err := s.requireHR("view candidate"); err != nil {
		return nil, err
	}
	return s.backend.FetchCandidate(ctx, candidateID)
}

// UpdateCandidateProgress is an HR dashboard action.
func (s *Session) UpdateCandidateProgress(ctx context.Context, candidateID model.CandidateID, update remote.ProgressUpdate) (*remote.CandidateSummary, error) {
	if err := s.requireHR("update candidate progress"); err != nil {
		return nil, err
	}
	return s.backend.UpdateCandidateProgress(ctx, candidateID, update)
}

// UploadDocument uploads a file for the resolved candidate.
func (s *Session) UploadDocument(ctx context.Context, fileName string, content io.Reader) (*remote.DocumentUpload, error) {
	actor, _ := s.CurrentActor()
	candidateID, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.notifications.Emit(ctx, notify.KindError, failureTitle(err), err.Error(), actor.Email)
		return nil, err
	}

	upload, err := s.backend.UploadDocument(ctx, candidateID, fileName, content)
	if err != nil {
		s.notifications.Emit(ctx, notify.KindError, "Upload Failed", err.Error(), actor.Email)
		return nil, err
	}
	s.notifications.Emit(ctx, notify.KindSuccess, "Document Uploaded", upload.FileName+" was uploaded.", actor.Email)
	return upload, nil
}

func (s *Session) Notifications() []notify.Notification {
	return s.notifications.List()
}

func (s *Session) UnreadNotifications() int {
	return s.notifications.UnreadCount()
}

func (s *Session) MarkNotificationRead(ctx context.Context, id string) bool {
	return s.notifications.MarkRead(ctx, id)
}

func (s *Session) ClearNotifications(ctx context.Context) {
	actor, _ := s.CurrentActor()
	s.notifications.ClearAll(ctx, actor.Email)
}

// Health checks that the backend is reachable.
func (s *Session) Health(ctx context.Context) error {
	return s.backend.HealthCheck(ctx)
}

func (s *Session) requireHR(action string) error {
	actor, ok := s.CurrentActor()
	if !ok {
		return &model.IdentityResolutionError{}
	}
	return s.guard.RequireHR(actor, action)
}

func (s *Session) stepTitle(stepID model.StepID) string {
	if step, ok := s.catalog.Definition(stepID); ok {
		return step.Title
	}
	return string(stepID)
}

func failureTitle(err error) string {
	var idErr *model.IdentityResolutionError
	var syncErr *model.RemoteSyncError
	switch {
	case errors.As(err, &idErr):
		return "No Candidate Selected"
	case errors.As(err, &syncErr) && syncErr.Timeout():
		return "Backend Timeout"
	default:
		return "Update Failed"
	}
}

func setIfAbsent(m map[string]any, key, value string) {
	if _, exists := m[key]; !exists && value != "" {
		m[key] = value
	}
}
