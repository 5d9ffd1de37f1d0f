package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, email string) ([]portalmodel.Notification, error) {
	var notifications []portalmodel.Notification
	err := s.db.WithContext(ctx).
		Where("user_email = ?", normalizeEmail(email)).
		Order("created_at DESC, id DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) Create(ctx context.Context, req portalmodel.NotificationRequest) (*portalmodel.Notification, error) {
	n := &portalmodel.Notification{
		UserEmail: normalizeEmail(req.UserEmail),
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&portalmodel.Notification{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&portalmodel.Notification{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ClearForUser deletes every notification of a user and reports how many went.
func (s *NotificationService) ClearForUser(ctx context.Context, email string) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_email = ?", normalizeEmail(email)).Delete(&portalmodel.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

