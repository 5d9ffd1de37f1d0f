package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onboardhr/onboarding/internal/auth"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

// UserService authenticates accounts and issues bearer tokens.
type UserService struct {
	db     *gorm.DB
	tokens *auth.TokenIssuer
}

func NewUserService(db *gorm.DB, tokens *auth.TokenIssuer) *UserService {
	return &UserService{db: db, tokens: tokens}
}

// Login checks the password and returns the login payload. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*portalmodel.LoginResponse, error) {
	var user portalmodel.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "login rejected", "email", user.Email)
		return nil, ErrInvalidCredentials
	}

	subject := auth.AuthContext{UserID: user.ID, Email: user.Email, Role: user.Role}
	id := user.ID
	if user.Role == model.RoleCandidate {
		if user.CandidateID == nil {
			return nil, fmt.Errorf("candidate account %d has no candidate record", user.ID)
		}
		subject.CandidateID = *user.CandidateID
		id = *user.CandidateID
	}

	token, err := s.tokens.Issue(subject)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return &portalmodel.LoginResponse{
		Success:   true,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		ID:        id,
		Token:     token,
	}, nil
}

// EnsureStaffUser creates an HR or admin account when none exists for email.
func (s *UserService) EnsureStaffUser(ctx context.Context, email, password string, role model.Role, firstName, lastName string) error {
	if !role.IsHR() {
		return fmt.Errorf("role %q is not a staff role", role)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&portalmodel.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &portalmodel.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    firstName,
		LastName:     lastName,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create staff user: %w", err)
	}
	slog.InfoContext(ctx, "staff user created", "email", email, "role", role)
	return nil
}
