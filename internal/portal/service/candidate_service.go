package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onboardhr/onboarding/internal/mailer"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/registry"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/utils"
)

type CandidateService struct {
	db        *gorm.DB
	catalog   *registry.Catalog
	mailer    Mailer
	templates *mailer.Templates
}

func NewCandidateService(db *gorm.DB, catalog *registry.Catalog, m Mailer, templates *mailer.Templates) *CandidateService {
	if catalog == nil {
		catalog = registry.Default()
	}
	return &CandidateService{db: db, catalog: catalog, mailer: m, templates: templates}
}

// List returns a page of candidates, newest first.
func (s *CandidateService) List(ctx context.Context, offset, limit *int) (*portalmodel.CandidateListResponse, error) {
	page := utils.NewPage(offset, limit)

	var total int64
	if err := s.db.WithContext(ctx).Model(&portalmodel.Candidate{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	var candidates []portalmodel.Candidate
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	return &portalmodel.CandidateListResponse{
		Items:  candidates,
		Total:  total,
		Offset: page.Offset,
		Limit:  page.Limit,
	}, nil
}

// All returns every candidate ordered by id.
func (s *CandidateService) All(ctx context.Context) ([]portalmodel.Candidate, error) {
	var candidates []portalmodel.Candidate
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	return candidates, nil
}

func (s *CandidateService) Get(ctx context.Context, id uint) (*portalmodel.Candidate, error) {
	return findCandidate(ctx, s.db, id)
}

// Create registers a candidate with a login account. The login step is seeded
// as completed and a welcome email is sent best effort.
func (s *CandidateService) Create(ctx context.Context, req portalmodel.CreateCandidateRequest) (*portalmodel.Candidate, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	candidate := &portalmodel.Candidate{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      email,
		Phone:      req.Phone,
		Position:   req.Position,
		Department: req.Department,
		Status:     portalmodel.CandidateStatusPending,
		StartDate:  req.StartDate,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []any{&portalmodel.User{}, &portalmodel.Candidate{}} {
			var existing int64
			if err := tx.Model(table).Where("email = ?", email).Count(&existing).Error; err != nil {
				return fmt.Errorf("failed to check email: %w", err)
			}
			if existing > 0 {
				return ErrEmailTaken
			}
		}

		if err := tx.Create(candidate).Error; err != nil {
			return fmt.Errorf("failed to create candidate: %w", err)
		}

		candidateID := candidate.ID
		user := &portalmodel.User{
			Email:        email,
			PasswordHash: string(hash),
			Role:         model.RoleCandidate,
			FirstName:    candidate.FirstName,
			LastName:     candidate.LastName,
			CandidateID:  &candidateID,
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if err := tx.Create(&portalmodel.StepRecord{
			CandidateID: candidate.ID,
			StepID:      model.StepLogin,
			Status:      model.StepStatusCompleted,
		}).Error; err != nil {
			return fmt.Errorf("failed to seed login step: %w", err)
		}

		candidate.Progress = registry.Percentage(seededSteps(s.catalog))
		return tx.Model(candidate).Update("progress", candidate.Progress).Error
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "candidate created", "candidate_id", candidate.ID, "email", candidate.Email)
	s.sendWelcome(ctx, candidate)
	return candidate, nil
}

// UpdateProgress applies an HR progress or status override.
func (s *CandidateService) UpdateProgress(ctx context.Context, id uint, req portalmodel.ProgressUpdateRequest) (*portalmodel.Candidate, error) {
	candidate, err := findCandidate(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Progress != nil {
		updates["progress"] = *req.Progress
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if len(updates) == 0 {
		return candidate, nil
	}

	if err := s.db.WithContext(ctx).Model(candidate).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update candidate %d: %w", id, err)
	}
	return findCandidate(ctx, s.db, id)
}

func (s *CandidateService) sendWelcome(ctx context.Context, candidate *portalmodel.Candidate) {
	if s.mailer == nil || s.templates == nil {
		return
	}
	msg, err := s.templates.Welcome(candidate.Email, candidate.FullName(), candidate.Position, candidate.Department)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		slog.WarnContext(ctx, "welcome email not sent", "candidate_id", candidate.ID, "error", err)
	}
}

// seededSteps is the catalog with only the login step completed.
func seededSteps(catalog *registry.Catalog) []model.Step {
	steps := catalog.InitialSteps()
	for i := range steps {
		steps[i].Status = model.StepStatusPending
		if steps[i].ID == model.StepLogin {
			steps[i].Status = model.StepStatusCompleted
		}
	}
	return steps
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
