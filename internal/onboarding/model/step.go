package model

import (
	"fmt"
	"strconv"
	"strings"
)

type StepID string

const (
	StepLogin         StepID = "login"          // Account setup, completed by the time a session exists
	StepForms         StepID = "forms"          // Personal information forms
	StepDocuments     StepID = "documents"      // Document upload
	StepVerification  StepID = "verification"   // AI cross-validation of uploaded documents
	StepHRReview      StepID = "hr-review"      // Compensation and joining date review
	StepOffer         StepID = "offer"          // Offer letter acceptance
	StepBGV           StepID = "bgv"            // Background verification
	StepPreOnboarding StepID = "pre-onboarding" // Smart forms and e-signature
	StepGamification  StepID = "gamification"   // Induction journey
)

type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"     // Not started
	StepStatusInProgress StepStatus = "in-progress" // Started but not finished
	StepStatusCompleted  StepStatus = "completed"   // Finished successfully
	StepStatusFailed     StepStatus = "failed"      // Finished unsuccessfully, may be retried
)

// Valid reports whether s is one of the closed set of step statuses.
func (s StepStatus) Valid() bool {
	switch s {
	case StepStatusPending, StepStatusInProgress, StepStatusCompleted, StepStatusFailed:
		return true
	}
	return false
}

// ParseStepStatus normalizes a loosely formatted status such as "In Progress",
// "IN_PROGRESS" or "in-progress" into a StepStatus.
func ParseStepStatus(raw string) (StepStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	switch normalized {
	case "pending":
		return StepStatusPending, nil
	case "in-progress", "inprogress":
		return StepStatusInProgress, nil
	case "completed", "complete":
		return StepStatusCompleted, nil
	case "failed":
		return StepStatusFailed, nil
	}
	return "", fmt.Errorf("unknown step status %q", raw)
}

// Step is one stage of the onboarding pipeline as held by the client.
type Step struct {
	ID          StepID     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Status      StepStatus `json:"status" yaml:"status"`
	HROnly      bool       `json:"hrOnly" yaml:"hrOnly"`

	// Data is either a decoded JSON value or, when the stored payload could
	// not be parsed, the raw string as it came from the backend.
	Data any `json:"data,omitempty" yaml:"-"`
}

// StepRecord is a step as returned by the persistence backend after the
// status has been normalized and the data decoded.
type StepRecord struct {
	StepID  StepID
	Status  StepStatus
	Data    any
	Warning *DataParseWarning
}

// CandidateID identifies the subject of an onboarding session.
type CandidateID int64

func (id CandidateID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseCandidateID accepts only positive base-10 integers, after trimming whitespace.
func ParseCandidateID(raw string) (CandidateID, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return CandidateID(n), true
}
