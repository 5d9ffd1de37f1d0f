package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/onboardhr/onboarding/internal/mailer"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

// OnboardingService owns the stored step records of every candidate.
type OnboardingService struct {
	db          *gorm.DB
	catalog     *registry.Catalog
	broadcaster Broadcaster
	mailer      Mailer
	templates   *mailer.Templates
	now         func() time.Time
}

func NewOnboardingService(db *gorm.DB, catalog *registry.Catalog, broadcaster Broadcaster, m Mailer, templates *mailer.Templates) *OnboardingService {
	if catalog == nil {
		catalog = registry.Default()
	}
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &OnboardingService{
		db:          db,
		catalog:     catalog,
		broadcaster: broadcaster,
		mailer:      m,
		templates:   templates,
		now:         time.Now,
	}
}

// GetSteps returns one entry per catalog step in catalog order. Steps
// without a record are reported as pending with null data.
func (s *OnboardingService) GetSteps(ctx context.Context, candidateID uint) ([]portalmodel.StepResponse, error) {
	if _, err := findCandidate(ctx, s.db, candidateID); err != nil {
		return nil, err
	}
	return s.stepsFor(ctx, s.db, candidateID)
}

// GetStepsByEmail is GetSteps for the candidate registered under email.
func (s *OnboardingService) GetStepsByEmail(ctx context.Context, email string) ([]portalmodel.StepResponse, error) {
	var candidate portalmodel.Candidate
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to find candidate by email: %w", err)
	}
	return s.stepsFor(ctx, s.db, candidate.ID)
}

func (s *OnboardingService) stepsFor(ctx context.Context, db *gorm.DB, candidateID uint) ([]portalmodel.StepResponse, error) {
	var records []portalmodel.StepRecord
	if err := db.WithContext(ctx).Where("candidate_id = ?", candidateID).Order("updated_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load step records: %w", err)
	}

	// newest record per step wins
	latest := make(map[model.StepID]portalmodel.StepRecord, len(records))
	for _, r := range records {
		latest[r.StepID] = r
	}

	steps := s.catalog.InitialSteps()
	out := make([]portalmodel.StepResponse, 0, len(steps))
	for _, step := range steps {
		resp := portalmodel.StepResponse{StepID: step.ID, Status: model.StepStatusPending}
		if r, ok := latest[step.ID]; ok {
			resp.Status = r.Status
			resp.Data = r.Data
		}
		out = append(out, resp)
	}
	return out, nil
}

// UpdateStep upserts one step record, recomputes the candidate's progress,
// logs an activity and broadcasts the change.
func (s *OnboardingService) UpdateStep(ctx context.Context, candidateID uint, req portalmodel.UpdateStepRequest) (*portalmodel.StepRecord, error) {
	stepID := model.StepID(req.StepID)
	if !s.catalog.IsKnown(stepID) {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownStep, req.StepID)
	}
	status, err := model.ParseStepStatus(req.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}
	data, err := portalmodel.NewJSONData(req.Data)
	if err != nil {
		return nil, err
	}

	record := &portalmodel.StepRecord{CandidateID: candidateID, StepID: stepID, Status: status, Data: data}
	var progress int

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate, err := findCandidate(ctx, tx, candidateID)
		if err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}, {Name: "step_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "data", "updated_at"}),
		}).Create(record).Error; err != nil {
			return fmt.Errorf("failed to upsert step record: %w", err)
		}

		steps, err := s.stepsFor(ctx, tx, candidateID)
		if err != nil {
			return err
		}
		progress = progressOf(steps)
		if err := tx.Model(candidate).Update("progress", progress).Error; err != nil {
			return fmt.Errorf("failed to update candidate progress: %w", err)
		}

		return tx.Create(&portalmodel.Activity{
			CandidateID:   candidateID,
			CandidateName: candidate.FullName(),
			StepID:        stepID,
			Status:        status,
			Message:       fmt.Sprintf("%s marked %s", s.stepTitle(stepID), status),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "step record updated",
		"candidate_id", candidateID,
		"step_id", stepID,
		"status", status,
		"progress", progress,
	)

	s.broadcaster.Publish(portalmodel.StepEvent{
		Type:        portalmodel.StepEventType,
		CandidateID: candidateID,
		StepID:      stepID,
		Status:      status,
		Progress:    progress,
		At:          s.now().UTC(),
	})
	return record, nil
}

// StepCompleted records a completion notice. Completing forms activates the
// candidate and completing gamification finishes onboarding. The email is
// best effort.
func (s *OnboardingService) StepCompleted(ctx context.Context, req portalmodel.StepCompletedRequest) (*portalmodel.Candidate, error) {
	candidate, err := s.resolveNoticeCandidate(ctx, req)
	if err != nil {
		return nil, err
	}
	stepID := model.StepID(req.Step)
	if !s.catalog.IsKnown(stepID) {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownStep, req.Step)
	}

	var newStatus portalmodel.CandidateStatus
	switch stepID {
	case model.StepForms:
		newStatus = portalmodel.CandidateStatusActive
	case model.StepGamification:
		newStatus = portalmodel.CandidateStatusCompleted
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newStatus != "" && candidate.Status != newStatus {
			if err := tx.Model(candidate).Update("status", newStatus).Error; err != nil {
				return fmt.Errorf("failed to update candidate status: %w", err)
			}
		}
		return tx.Create(&portalmodel.Activity{
			CandidateID:   candidate.ID,
			CandidateName: candidate.FullName(),
			StepID:        stepID,
			Status:        model.StepStatusCompleted,
			Message:       fmt.Sprintf("%s completed %s", candidate.FullName(), s.stepTitle(stepID)),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.sendStepCompletedMail(ctx, candidate, stepID)
	return candidate, nil
}

func (s *OnboardingService) resolveNoticeCandidate(ctx context.Context, req portalmodel.StepCompletedRequest) (*portalmodel.Candidate, error) {
	ref := strings.TrimSpace(req.Email)
	if ref == "" {
		ref = req.ID.String()
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: no email or id given", ErrCandidateNotFound)
	}

	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return findCandidate(ctx, s.db, uint(id))
	}

	var candidate portalmodel.Candidate
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(ref)).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}
	return &candidate, nil
}

func (s *OnboardingService) sendStepCompletedMail(ctx context.Context, candidate *portalmodel.Candidate, stepID model.StepID) {
	if s.mailer == nil || s.templates == nil {
		return
	}
	msg, err := s.templates.StepCompleted(candidate.Email, candidate.FullName(), s.stepTitle(stepID))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		slog.WarnContext(ctx, "step completion email not sent",
			"candidate_id", candidate.ID,
			"step_id", stepID,
			"error", err,
		)
	}
}

// RecentActivities returns the newest activities across all candidates.
func (s *OnboardingService) RecentActivities(ctx context.Context, limit int) ([]portalmodel.Activity, error) {
	var activities []portalmodel.Activity
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	return activities, nil
}

// CandidateActivities returns the newest activities of one candidate.
func (s *OnboardingService) CandidateActivities(ctx context.Context, candidateID uint, limit int) ([]portalmodel.Activity, error) {
	var activities []portalmodel.Activity
	err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	return activities, nil
}

// StepData returns the stored data of one step.
func (s *OnboardingService) StepData(ctx context.Context, candidateID uint, stepID model.StepID) (portalmodel.JSONData, error) {
	var record portalmodel.StepRecord
	err := s.db.WithContext(ctx).Where("candidate_id = ? AND step_id = ?", candidateID, stepID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStepDataMissing
		}
		return nil, fmt.Errorf("failed to load step data: %w", err)
	}
	if record.Data.IsNull() {
		return nil, ErrStepDataMissing
	}
	return record.Data, nil
}

func (s *OnboardingService) stepTitle(stepID model.StepID) string {
	if step, ok := s.catalog.Definition(stepID); ok {
		return step.Title
	}
	return string(stepID)
}

func progressOf(steps []portalmodel.StepResponse) int {
	converted := make([]model.Step, len(steps))
	for i, step := range steps {
		converted[i] = model.Step{ID: step.StepID, Status: step.Status}
	}
	return registry.Percentage(converted)
}

func findCandidate(ctx context.Context, db *gorm.DB, id uint) (*portalmodel.Candidate, error) {
	var candidate portalmodel.Candidate
	if err := db.WithContext(ctx).First(&candidate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to load candidate %d: %w", id, err)
	}
	return &candidate, nil
}
