package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
)

// DefaultResetIndex points at the forms step: login is already complete by the
// time a session holds steps.
const DefaultResetIndex = 1

// StepSyncer persists and re-reads step state against the backend.
type StepSyncer interface {
	FetchSteps(ctx context.Context, candidateID model.CandidateID) ([]model.StepRecord, error)
	UpdateStep(ctx context.Context, candidateID model.CandidateID, stepID model.StepID, status model.StepStatus, data any) error
}

// CompletionNotifier sends the step-completion notice to the candidate.
type CompletionNotifier interface {
	NotifyStepCompleted(ctx context.Context, candidateID model.CandidateID, stepID model.StepID) error
}

// CandidateResolver yields the subject candidate for the current operation.
type CandidateResolver interface {
	Resolve(ctx context.Context) (model.CandidateID, error)
}

// UpdateRequest describes one step transition.
type UpdateRequest struct {
	StepID model.StepID
	Status model.StepStatus
	Data   any

	// CandidateOverride takes precedence over resolution; HR uses it to act
	// on behalf of a candidate.
	CandidateOverride *model.CandidateID
}

// TransitionResult reports the outcome of UpdateStepStatus. Persisted and
// Reconciled are independent: a write can succeed while the re-fetch fails.
type TransitionResult struct {
	CandidateID model.CandidateID
	StepID      model.StepID
	Status      model.StepStatus

	// Persisted is true once the backend accepted the write.
	Persisted bool

	// Reconciled is true once canonical steps were re-fetched and applied.
	Reconciled bool

	Steps        []model.Step
	CurrentIndex int
	Warnings     []*model.DataParseWarning

	// NotifyErr is the swallowed failure of the completion notice, if any.
	NotifyErr error
}

// Store holds the ordered step list for the subject candidate.
type Store struct {
	catalog    *registry.Catalog
	syncer     StepSyncer
	notifier   CompletionNotifier
	resolver   CandidateResolver
	resetIndex int

	mu           sync.RWMutex
	steps        []model.Step
	currentIndex int
	subject      model.CandidateID
	inFlight     map[model.StepID]model.StepStatus

	// opMu sequences write-then-refetch so currentIndex is never derived from a stale read.
	opMu sync.Mutex
}

type Option func(*Store)

func WithCatalog(catalog *registry.Catalog) Option {
	return func(s *Store) { s.catalog = catalog }
}

// WithResetIndex sets the index ResetAll returns to. Out-of-range values are clamped.
func WithResetIndex(index int) Option {
	return func(s *Store) { s.resetIndex = index }
}

func WithNotifier(notifier CompletionNotifier) Option {
	return func(s *Store) { s.notifier = notifier }
}

func New(syncer StepSyncer, resolver CandidateResolver, opts ...Option) *Store {
	s := &Store{
		catalog:    registry.Default(),
		syncer:     syncer,
		resolver:   resolver,
		resetIndex: DefaultResetIndex,
		inFlight:   make(map[model.StepID]model.StepStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.steps = s.catalog.InitialSteps()
	s.currentIndex = s.clamp(s.resetIndex)
	return s
}

// Steps returns a copy of the last canonical step list.
func (s *Store) Steps() []model.Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySteps(s.steps)
}

func (s *Store) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

func (s *Store) CurrentStep() model.Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[s.currentIndex]
}

// Subject returns the candidate whose steps are loaded, or 0 before the first sync.
func (s *Store) Subject() model.CandidateID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

func (s *Store) CompletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return registry.CompletedCount(s.steps)
}

func (s *Store) Percentage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return registry.Percentage(s.steps)
}

// FirstIncompleteIndex returns the first step that is not completed, and false
// when every step is completed.
func (s *Store) FirstIncompleteIndex() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, step := range s.steps {
		if step.Status != model.StepStatusCompleted {
			return i, true
		}
	}
	return -1, false
}

// Pending returns the writes that have been sent but not yet reconciled.
// They are never merged into Steps.
func (s *Store) Pending() map[model.StepID]model.StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make(map[model.StepID]model.StepStatus, len(s.inFlight))
	for id, status := range s.inFlight {
		pending[id] = status
	}
	return pending
}

// Refresh replaces the local steps with the canonical steps of the resolved candidate.
func (s *Store) Refresh(ctx context.Context) ([]*model.DataParseWarning, error) {
	candidateID, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, candidateID)
}

// Load replaces the local steps with the canonical steps of candidateID.
// On failure the previous steps are kept.
func (s *Store) Load(ctx context.Context, candidateID model.CandidateID) ([]*model.DataParseWarning, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	records, err := s.syncer.FetchSteps(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch steps for candidate %s: %w", candidateID, err)
	}
	steps, warnings := s.rebuild(ctx, records)

	s.mu.Lock()
	s.steps = steps
	s.subject = candidateID
	s.currentIndex = registry.DeriveCurrentIndex(steps)
	s.mu.Unlock()

	return warnings, nil
}

// UpdateStepStatus persists a transition and reconciles with the backend.
//
// Identity resolution failures abort before any network call. A failed write
// leaves the steps untouched. A successful write followed by a failed re-fetch
// also leaves the steps untouched and returns the partial result with an error.
func (s *Store) UpdateStepStatus(ctx context.Context, req UpdateRequest) (*TransitionResult, error) {
	if !s.catalog.IsKnown(req.StepID) {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownStep, req.StepID)
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q for step %s", req.Status, req.StepID)
	}

	candidateID, err := s.resolveSubject(ctx, req.CandidateOverride)
	if err != nil {
		return nil, err
	}

	if err := s.begin(req.StepID, req.Status); err != nil {
		return nil, err
	}
	defer s.end(req.StepID)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	result := &TransitionResult{
		CandidateID: candidateID,
		StepID:      req.StepID,
		Status:      req.Status,
	}

	if err := s.syncer.UpdateStep(ctx, candidateID, req.StepID, req.Status, req.Data); err != nil {
		slog.ErrorContext(ctx, "failed to persist step transition",
			"candidate_id", candidateID,
			"step_id", req.StepID,
			"status", req.Status,
			"error", err,
		)
		return nil, fmt.Errorf("failed to persist step %s: %w", req.StepID, err)
	}
	result.Persisted = true

	records, err := s.syncer.FetchSteps(ctx, candidateID)
	if err != nil {
		slog.WarnContext(ctx, "step persisted but canonical re-fetch failed",
			"candidate_id", candidateID,
			"step_id", req.StepID,
			"error", err,
		)
		result.Steps = s.Steps()
		result.CurrentIndex = s.CurrentIndex()
		return result, fmt.Errorf("step %s persisted but re-fetch failed: %w", req.StepID, err)
	}

	steps, warnings := s.rebuild(ctx, records)
	current := registry.DeriveCurrentIndex(steps)

	s.mu.Lock()
	s.steps = steps
	s.subject = candidateID
	s.currentIndex = current
	s.mu.Unlock()

	result.Reconciled = true
	result.Steps = copySteps(steps)
	result.CurrentIndex = current
	result.Warnings = warnings

	if req.Status == model.StepStatusCompleted && s.notifier != nil {
		if err := s.notifier.NotifyStepCompleted(ctx, candidateID, req.StepID); err != nil {
			slog.WarnContext(ctx, "step completion notice failed",
				"candidate_id", candidateID,
				"step_id", req.StepID,
				"error", err,
			)
			result.NotifyErr = err
		}
	}

	slog.InfoContext(ctx, "step transition reconciled",
		"candidate_id", candidateID,
		"step_id", req.StepID,
		"status", req.Status,
		"current_index", current,
	)
	return result, nil
}

// Advance moves to the next step when every step before it is completed.
func (s *Store) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.currentIndex + 1
	if target >= len(s.steps) {
		return false
	}
	for i := 0; i < target; i++ {
		if s.steps[i].Status != model.StepStatusCompleted {
			return false
		}
	}
	s.currentIndex = target
	return true
}

// Retreat moves to the previous step, stopping at the first.
func (s *Store) Retreat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentIndex == 0 {
		return false
	}
	s.currentIndex--
	return true
}

// ResetAll restores the catalog and moves to the configured reset index.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = s.catalog.InitialSteps()
	s.currentIndex = s.clamp(s.resetIndex)
}

func (s *Store) resolveSubject(ctx context.Context, override *model.CandidateID) (model.CandidateID, error) {
	if override != nil {
		if *override <= 0 {
			return 0, &model.IdentityResolutionError{Explicit: override.String()}
		}
		return *override, nil
	}
	return s.resolver.Resolve(ctx)
}

func (s *Store) begin(stepID model.StepID, status model.StepStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[stepID]; busy {
		return fmt.Errorf("step %s: %w", stepID, model.ErrOperationInFlight)
	}
	s.inFlight[stepID] = status
	return nil
}

func (s *Store) end(stepID model.StepID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, stepID)
}

// rebuild lays canonical records over the catalog. Steps the backend did not
// return keep their catalog seed; records for unknown steps are dropped.
func (s *Store) rebuild(ctx context.Context, records []model.StepRecord) ([]model.Step, []*model.DataParseWarning) {
	steps := s.catalog.InitialSteps()
	var warnings []*model.DataParseWarning
	for _, record := range records {
		i, ok := s.catalog.IndexOf(record.StepID)
		if !ok {
			slog.WarnContext(ctx, "ignoring step outside the catalog", "step_id", record.StepID)
			continue
		}
		steps[i].Status = record.Status
		steps[i].Data = record.Data
		if record.Warning != nil {
			warnings = append(warnings, record.Warning)
		}
	}
	return steps, warnings
}

func (s *Store) clamp(index int) int {
	if index < 0 {
		return 0
	}
	if last := len(s.steps) - 1; index > last {
		return last
	}
	return index
}

func copySteps(steps []model.Step) []model.Step {
	out := make([]model.Step, len(steps))
	copy(out, steps)
	return out
}
