package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

// StepResponse is one step of GET /api/onboarding/by-id/:candidateId.
type StepResponse struct {
	StepID model.StepID     `json:"stepId"`
	Status model.StepStatus `json:"status"`
	Data   JSONData         `json:"data"`
}

// UpdateStepRequest is the body of POST /api/onboarding/:candidateId/step.
// Status is normalized by the service, so any spelling of a known status is accepted.
type UpdateStepRequest struct {
	StepID string          `json:"stepId" binding:"required"`
	Status string          `json:"status" binding:"required"`
	Data   json.RawMessage `json:"data"`
}

// StepCompletedRequest is the body of POST /api/onboarding/step-completed.
// Email may carry a numeric candidate id instead of an address.
type StepCompletedRequest struct {
	Email string      `json:"email"`
	ID    json.Number `json:"id"`
	Step  string      `json:"step" binding:"required"`
}

// CreateCandidateRequest is the body of POST /api/candidates.
type CreateCandidateRequest struct {
	FirstName  string     `json:"firstName" binding:"required,max=100"`
	LastName   string     `json:"lastName" binding:"max=100"`
	Email      string     `json:"email" binding:"required,email"`
	Password   string     `json:"password" binding:"required,min=8"`
	Phone      string     `json:"phone"`
	Position   string     `json:"position"`
	Department string     `json:"department"`
	StartDate  *time.Time `json:"startDate"`
}

// ProgressUpdateRequest is the body of PATCH /api/candidates/:id/progress.
type ProgressUpdateRequest struct {
	Progress *int            `json:"progress" binding:"omitempty,min=0,max=100"`
	Status   CandidateStatus `json:"status" binding:"omitempty,oneof=pending active completed rejected"`
}

// CandidateListResponse is a page of candidates.
type CandidateListResponse struct {
	Items  []Candidate `json:"items"`
	Total  int64       `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

// NotificationRequest is the body of POST /api/notifications.
type NotificationRequest struct {
	UserEmail string `json:"userEmail" binding:"required,email"`
	Type      string `json:"type" binding:"required,oneof=success error warning info"`
	Title     string `json:"title" binding:"required,max=255"`
	Message   string `json:"message"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse identifies the user. ID is the candidate id for candidates and
// the user id otherwise.
type LoginResponse struct {
	Success   bool       `json:"success"`
	Role      model.Role `json:"role"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	ID        uint       `json:"id"`
	Token     string     `json:"token"`
}

// DocumentResponse is the upload response. The id is a string on the wire.
type DocumentResponse struct {
	ID         string    `json:"id"`
	StorageRef string    `json:"storageRef"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	URL        string    `json:"url"`
	UploadTime time.Time `json:"uploadTime"`
}

func NewDocumentResponse(d *Document) DocumentResponse {
	return DocumentResponse{
		ID:         strconv.FormatUint(uint64(d.ID), 10),
		StorageRef: d.StorageRef,
		FileName:   d.FileName,
		FileType:   d.FileType,
		FileSize:   d.FileSize,
		URL:        d.URL,
		UploadTime: d.UploadTime,
	}
}

// StepEvent is broadcast to realtime subscribers after a step changes.
type StepEvent struct {
	Type        string           `json:"type"`
	CandidateID uint             `json:"candidateId"`
	StepID      model.StepID     `json:"stepId"`
	Status      model.StepStatus `json:"status"`
	Progress    int              `json:"progress"`
	At          time.Time        `json:"at"`
}

const StepEventType = "step.updated"

// BGVCheck is one background verification check.
type BGVCheck struct {
	CheckName   string    `json:"checkName"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	CompletedAt time.Time `json:"completedAt"`
}
