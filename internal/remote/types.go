package remote

import (
	"encoding/json"
	"time"
)

// StepDTO is a step as the backend serializes it. Status is a free-form string
// and Data may be a JSON value, a JSON string, or a legacy key=value string.
type StepDTO struct {
	StepID string          `json:"stepId"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// UpdateStepRequest is the body of POST /api/onboarding/{candidateId}/step.
type UpdateStepRequest struct {
	StepID string `json:"stepId" validate:"required"`
	Status string `json:"status" validate:"required,oneof=pending in-progress completed failed"`
	Data   any    `json:"data,omitempty"`
}

// Ack is the generic acknowledgement returned by mutating endpoints.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CandidateSummary is one row of the HR candidate list.
type CandidateSummary struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Position   string    `json:"position"`
	Department string    `json:"department"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProgressUpdate is the body of PATCH /api/candidates/{id}/progress.
type ProgressUpdate struct {
	Progress *int   `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=pending active completed rejected"`
}

// StepCompletedNotice is the body of POST /api/onboarding/step-completed.
// The backend accepts a numeric candidate id in the email field.
type StepCompletedNotice struct {
	Email string `json:"email" validate:"required"`
	Step  string `json:"step" validate:"required"`
}

// NotificationDTO mirrors the backend notification record.
type NotificationDTO struct {
	ID        int64     `json:"id"`
	UserEmail string    `json:"userEmail"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationRequest creates a notification.
type NotificationRequest struct {
	UserEmail string `json:"userEmail" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=success error warning info"`
	Title     string `json:"title" validate:"required"`
	Message   string `json:"message"`
}

// DocumentUpload is the response of the multipart document upload.
type DocumentUpload struct {
	ID         string    `json:"id"`
	StorageRef string    `json:"storageRef"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	UploadTime time.Time `json:"uploadTime"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the authenticated user. ID is the candidate id for
// candidates and the user id for HR and admin accounts.
type LoginResponse struct {
	Success   bool        `json:"success"`
	Role      string      `json:"role"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	ID        json.Number `json:"id"`
	Token     string      `json:"token"`
	Message   string      `json:"message,omitempty"`
}
