package notify

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onboardhr/onboarding/internal/remote"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Notification is a user-visible outcome of a step transition.
type Notification struct {
	ID        string    `json:"id"`
	Type      Kind      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`

	// Local is true when the backend could not store the notification.
	Local bool `json:"local"`
}

// Backend is the notification persistence collaborator.
type Backend interface {
	ListNotifications(ctx context.Context, userEmail string) ([]remote.NotificationDTO, error)
	CreateNotification(ctx context.Context, req remote.NotificationRequest) (*remote.NotificationDTO, error)
	MarkNotificationRead(ctx context.Context, id string) error
	ClearNotifications(ctx context.Context, userEmail string) error
}

// Emitter keeps the session's notifications, newest first.
type Emitter struct {
	backend Backend
	now     func() time.Time

	mu            sync.RWMutex
	notifications []Notification
}

func NewEmitter(backend Backend) *Emitter {
	return &Emitter{backend: backend, now: time.Now}
}

// Emit stores a notification remotely and falls back to a local-only one when
// the backend is unavailable. It never drops the notification.
func (e *Emitter) Emit(ctx context.Context, kind Kind, title, message, recipient string) Notification {
	n := Notification{
		Type:      kind,
		Title:     title,
		Message:   message,
		Timestamp: e.now(),
	}

	created, err := e.create(ctx, kind, title, message, recipient)
	if err != nil {
		slog.WarnContext(ctx, "notification kept locally", "title", title, "recipient", recipient, "error", err)
		n.ID = uuid.NewString()
		n.Local = true
	} else {
		timestamp := n.Timestamp
		n = fromDTO(*created)
		if n.Timestamp.IsZero() {
			n.Timestamp = timestamp
		}
	}

	e.mu.Lock()
	e.notifications = append([]Notification{n}, e.notifications...)
	e.mu.Unlock()
	return n
}

func (e *Emitter) create(ctx context.Context, kind Kind, title, message, recipient string) (*remote.NotificationDTO, error) {
	if e.backend == nil || recipient == "" {
		return nil, errNoBackend
	}
	return e.backend.CreateNotification(ctx, remote.NotificationRequest{
		UserEmail: recipient,
		Type:      string(kind),
		Title:     title,
		Message:   message,
	})
}

// Load replaces the local list with the recipient's stored notifications.
// Local-only notifications are kept.
func (e *Emitter) Load(ctx context.Context, recipient string) error {
	if e.backend == nil {
		return errNoBackend
	}
	dtos, err := e.backend.ListNotifications(ctx, recipient)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	merged := make([]Notification, 0, len(dtos)+len(e.notifications))
	for _, n := range e.notifications {
		if n.Local {
			merged = append(merged, n)
		}
	}
	for _, dto := range dtos {
		merged = append(merged, fromDTO(dto))
	}
	sortNewestFirst(merged)
	e.notifications = merged
	return nil
}

// MarkRead marks a notification read locally and then best-effort on the backend.
func (e *Emitter) MarkRead(ctx context.Context, id string) bool {
	e.mu.Lock()
	found, local := false, false
	for i := range e.notifications {
		if e.notifications[i].ID == id {
			e.notifications[i].Read = true
			found, local = true, e.notifications[i].Local
			break
		}
	}
	e.mu.Unlock()

	if !found || local || e.backend == nil {
		return found
	}
	if err := e.backend.MarkNotificationRead(ctx, id); err != nil {
		slog.WarnContext(ctx, "failed to sync notification read state", "id", id, "error", err)
	}
	return true
}

// ClearAll empties the local list and then best-effort clears the backend.
func (e *Emitter) ClearAll(ctx context.Context, recipient string) {
	e.mu.Lock()
	e.notifications = nil
	e.mu.Unlock()

	if e.backend == nil || recipient == "" {
		return
	}
	if err := e.backend.ClearNotifications(ctx, recipient); err != nil {
		slog.WarnContext(ctx, "failed to clear notifications on backend", "recipient", recipient, "error", err)
	}
}

// List returns the notifications, newest first.
func (e *Emitter) List() []Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Notification, len(e.notifications))
	copy(out, e.notifications)
	return out
}

func (e *Emitter) UnreadCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, notification := range e.notifications {
		if !notification.Read {
			n++
		}
	}
	return n
}

func fromDTO(dto remote.NotificationDTO) Notification {
	return Notification{
		ID:        strconv.FormatInt(dto.ID, 10),
		Type:      Kind(dto.Type),
		Title:     dto.Title,
		Message:   dto.Message,
		Timestamp: dto.CreatedAt,
		Read:      dto.Read,
	}
}
