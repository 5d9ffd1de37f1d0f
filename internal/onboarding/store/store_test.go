package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
)

// MockStepSyncer is a mock implementation of StepSyncer
type MockStepSyncer struct {
	mock.Mock
}

func (m *MockStepSyncer) FetchSteps(ctx context.Context, candidateID model.CandidateID) ([]model.StepRecord, error) {
	args := m.Called(ctx, candidateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StepRecord), args.Error(1)
}

func (m *MockStepSyncer) UpdateStep(ctx context.Context, candidateID model.CandidateID, stepID model.StepID, status model.StepStatus, data any) error {
	args := m.Called(ctx, candidateID, stepID, status, data)
	return args.Error(0)
}

// MockNotifier is a mock implementation of CompletionNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyStepCompleted(ctx context.Context, candidateID model.CandidateID, stepID model.StepID) error {
	args := m.Called(ctx, candidateID, stepID)
	return args.Error(0)
}

type fixedResolver struct {
	id  model.CandidateID
	err error
}

func (r fixedResolver) Resolve(context.Context) (model.CandidateID, error) { return r.id, r.err }

func records(statuses map[model.StepID]model.StepStatus) []model.StepRecord {
	out := make([]model.StepRecord, 0, len(statuses))
	for _, step := range registry.Default().InitialSteps() {
		if status, ok := statuses[step.ID]; ok {
			out = append(out, model.StepRecord{StepID: step.ID, Status: status})
		}
	}
	return out
}

func TestUpdateStepStatus_CompletesAndReconciles(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	notifier := new(MockNotifier)
	data := map[string]any{"firstName": "A"}

	syncer.On("UpdateStep", ctx, model.CandidateID(7), model.StepForms, model.StepStatusCompleted, data).Return(nil).Once()
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return(records(map[model.StepID]model.StepStatus{
		model.StepLogin: model.StepStatusCompleted,
		model.StepForms: model.StepStatusCompleted,
	}), nil).Once()
	notifier.On("NotifyStepCompleted", ctx, model.CandidateID(7), model.StepForms).Return(nil).Once()

	s := New(syncer, fixedResolver{id: 7}, WithNotifier(notifier))
	result, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepForms, Status: model.StepStatusCompleted, Data: data})
	require.NoError(t, err)

	assert.True(t, result.Persisted)
	assert.True(t, result.Reconciled)
	assert.Equal(t, 2, result.CurrentIndex)
	assert.Equal(t, model.StepDocuments, s.CurrentStep().ID)
	assert.Equal(t, model.CandidateID(7), s.Subject())
	assert.Equal(t, 2, s.CompletedCount())
	assert.Equal(t, 22, s.Percentage())
	assert.Empty(t, s.Pending())

	syncer.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestUpdateStepStatus_IdentityFailureMakesNoCalls(t *testing.T) {
	syncer := new(MockStepSyncer)
	s := New(syncer, fixedResolver{err: &model.IdentityResolutionError{Role: model.RoleHR}})
	before := s.Steps()

	_, err := s.UpdateStepStatus(context.Background(), UpdateRequest{StepID: model.StepForms, Status: model.StepStatusCompleted})

	var idErr *model.IdentityResolutionError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, before, s.Steps())
	syncer.AssertNotCalled(t, "UpdateStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	syncer.AssertNotCalled(t, "FetchSteps", mock.Anything, mock.Anything)
}

func TestUpdateStepStatus_OverrideTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	syncer.On("UpdateStep", ctx, model.CandidateID(42), model.StepHRReview, model.StepStatusInProgress, nil).Return(nil)
	syncer.On("FetchSteps", ctx, model.CandidateID(42)).Return([]model.StepRecord{}, nil)

	override := model.CandidateID(42)
	s := New(syncer, fixedResolver{id: 99})
	result, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepHRReview, Status: model.StepStatusInProgress, CandidateOverride: &override})
	require.NoError(t, err)
	assert.Equal(t, model.CandidateID(42), result.CandidateID)
	syncer.AssertExpectations(t)
}

func TestUpdateStepStatus_WriteFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	writeErr := &model.RemoteSyncError{Op: "update step", Kind: model.SyncErrorHTTP, StatusCode: 500, Message: "boom"}
	syncer.On("UpdateStep", ctx, model.CandidateID(7), model.StepForms, model.StepStatusCompleted, nil).Return(writeErr)

	s := New(syncer, fixedResolver{id: 7})
	before := s.Steps()

	result, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepForms, Status: model.StepStatusCompleted})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, writeErr)
	assert.Equal(t, before, s.Steps())
	assert.Equal(t, DefaultResetIndex, s.CurrentIndex())
	syncer.AssertNotCalled(t, "FetchSteps", mock.Anything, mock.Anything)
}

func TestUpdateStepStatus_RefetchFailureKeepsLastCanonicalSnapshot(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	notifier := new(MockNotifier)

	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return(records(map[model.StepID]model.StepStatus{
		model.StepLogin: model.StepStatusCompleted,
		model.StepForms: model.StepStatusInProgress,
	}), nil).Once()
	syncer.On("UpdateStep", ctx, model.CandidateID(7), model.StepForms, model.StepStatusCompleted, nil).Return(nil).Once()
	refetchErr := &model.RemoteSyncError{Op: "fetch steps", Kind: model.SyncErrorTimeout}
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return(nil, refetchErr).Once()

	s := New(syncer, fixedResolver{id: 7}, WithNotifier(notifier))
	_, err := s.Refresh(ctx)
	require.NoError(t, err)
	before := s.Steps()
	beforeIndex := s.CurrentIndex()

	result, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepForms, Status: model.StepStatusCompleted})
	require.Error(t, err)
	assert.ErrorIs(t, err, refetchErr)
	require.NotNil(t, result)
	assert.True(t, result.Persisted)
	assert.False(t, result.Reconciled)
	assert.Equal(t, before, result.Steps)
	assert.Equal(t, before, s.Steps())
	assert.Equal(t, beforeIndex, s.CurrentIndex())
	notifier.AssertNotCalled(t, "NotifyStepCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStepStatus_NotifyFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	notifier := new(MockNotifier)
	syncer.On("UpdateStep", ctx, model.CandidateID(7), model.StepDocuments, model.StepStatusCompleted, nil).Return(nil)
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return(records(map[model.StepID]model.StepStatus{
		model.StepLogin:     model.StepStatusCompleted,
		model.StepForms:     model.StepStatusCompleted,
		model.StepDocuments: model.StepStatusCompleted,
	}), nil)
	notifyErr := errors.New("smtp down")
	notifier.On("NotifyStepCompleted", ctx, model.CandidateID(7), model.StepDocuments).Return(notifyErr)

	s := New(syncer, fixedResolver{id: 7}, WithNotifier(notifier))
	result, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepDocuments, Status: model.StepStatusCompleted})
	require.NoError(t, err)
	assert.True(t, result.Reconciled)
	assert.Equal(t, notifyErr, result.NotifyErr)
	assert.Equal(t, 3, s.CurrentIndex())
}

func TestUpdateStepStatus_NoNoticeForNonCompletion(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	notifier := new(MockNotifier)
	syncer.On("UpdateStep", ctx, model.CandidateID(7), model.StepDocuments, model.StepStatusFailed, "blurry").Return(nil)
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return([]model.StepRecord{}, nil)

	s := New(syncer, fixedResolver{id: 7}, WithNotifier(notifier))
	_, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepDocuments, Status: model.StepStatusFailed, Data: "blurry"})
	require.NoError(t, err)
	notifier.AssertNotCalled(t, "NotifyStepCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStepStatus_RejectsUnknownStepAndStatus(t *testing.T) {
	s := New(new(MockStepSyncer), fixedResolver{id: 7})

	_, err := s.UpdateStepStatus(context.Background(), UpdateRequest{StepID: "payroll", Status: model.StepStatusCompleted})
	assert.ErrorIs(t, err, model.ErrUnknownStep)

	_, err = s.UpdateStepStatus(context.Background(), UpdateRequest{StepID: model.StepForms, Status: "done"})
	assert.Error(t, err)
}

func TestUpdateStepStatus_RejectsDuplicateInFlight(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	entered := make(chan struct{})
	release := make(chan struct{})

	syncer.On("UpdateStep", ctx, model.CandidateID(7), model.StepForms, model.StepStatusCompleted, nil).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).Return(nil).Once()
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return([]model.StepRecord{}, nil)

	s := New(syncer, fixedResolver{id: 7})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepForms, Status: model.StepStatusCompleted})
		assert.NoError(t, err)
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first transition never reached the backend")
	}

	assert.Equal(t, map[model.StepID]model.StepStatus{model.StepForms: model.StepStatusCompleted}, s.Pending())
	assert.Equal(t, model.StepStatusInProgress, s.Steps()[1].Status, "pending writes are not shown as canonical")

	_, err := s.UpdateStepStatus(ctx, UpdateRequest{StepID: model.StepForms, Status: model.StepStatusCompleted})
	assert.ErrorIs(t, err, model.ErrOperationInFlight)

	close(release)
	wg.Wait()
	syncer.AssertNumberOfCalls(t, "UpdateStep", 1)
}

func TestLoad_KeepsStepsOutsideResponseAtSeedAndDropsUnknown(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	syncer.On("FetchSteps", ctx, model.CandidateID(3)).Return([]model.StepRecord{
		{StepID: model.StepForms, Status: model.StepStatusCompleted, Data: map[string]any{"a": "b"}},
		{StepID: "legacy-step", Status: model.StepStatusCompleted},
		{StepID: model.StepDocuments, Status: model.StepStatusPending, Data: "{broken", Warning: &model.DataParseWarning{StepID: model.StepDocuments, Raw: "{broken"}},
	}, nil)

	s := New(syncer, fixedResolver{id: 3})
	warnings, err := s.Load(ctx, 3)
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	steps := s.Steps()
	require.Len(t, steps, 9)
	assert.Equal(t, model.StepStatusCompleted, steps[0].Status, "login keeps its seed")
	assert.Equal(t, map[string]any{"a": "b"}, steps[1].Data)
	assert.Equal(t, "{broken", steps[2].Data)
	assert.Equal(t, 2, s.CurrentIndex())
}

func TestLoad_FailureKeepsPreviousSteps(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	syncer.On("FetchSteps", ctx, model.CandidateID(3)).Return(nil, errors.New("unreachable"))

	s := New(syncer, fixedResolver{id: 3})
	before := s.Steps()
	_, err := s.Load(ctx, 3)
	assert.Error(t, err)
	assert.Equal(t, before, s.Steps())
	assert.Equal(t, model.CandidateID(0), s.Subject())
}

func TestAdvanceRetreat(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return(records(map[model.StepID]model.StepStatus{
		model.StepLogin: model.StepStatusCompleted,
		model.StepForms: model.StepStatusCompleted,
	}), nil)

	s := New(syncer, fixedResolver{id: 7})
	_, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, s.CurrentIndex())

	assert.False(t, s.Advance(), "documents is not completed")
	assert.Equal(t, 2, s.CurrentIndex())

	assert.True(t, s.Retreat())
	assert.True(t, s.Retreat())
	assert.False(t, s.Retreat())
	assert.Equal(t, 0, s.CurrentIndex())

	assert.True(t, s.Advance())
	assert.True(t, s.Advance())
	assert.False(t, s.Advance())
}

func TestAdvance_StopsAtLastStep(t *testing.T) {
	all := map[model.StepID]model.StepStatus{}
	for _, step := range registry.Default().InitialSteps() {
		all[step.ID] = model.StepStatusCompleted
	}
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return(records(all), nil)

	s := New(syncer, fixedResolver{id: 7})
	_, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, s.CurrentIndex())
	assert.False(t, s.Advance())
	_, ok := s.FirstIncompleteIndex()
	assert.False(t, ok)
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	syncer := new(MockStepSyncer)
	syncer.On("FetchSteps", ctx, model.CandidateID(7)).Return(records(map[model.StepID]model.StepStatus{
		model.StepLogin:     model.StepStatusCompleted,
		model.StepForms:     model.StepStatusCompleted,
		model.StepDocuments: model.StepStatusCompleted,
	}), nil)

	s := New(syncer, fixedResolver{id: 7})
	_, err := s.Refresh(ctx)
	require.NoError(t, err)

	s.ResetAll()
	assert.Equal(t, registry.Default().InitialSteps(), s.Steps())
	assert.Equal(t, 1, s.CurrentIndex())

	custom := New(syncer, fixedResolver{id: 7}, WithResetIndex(0))
	custom.ResetAll()
	assert.Equal(t, 0, custom.CurrentIndex())

	clamped := New(syncer, fixedResolver{id: 7}, WithResetIndex(99))
	assert.Equal(t, 8, clamped.CurrentIndex())
}
