package service

import "errors"

var (
	ErrCandidateNotFound    = errors.New("candidate not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidStatus        = errors.New("invalid step status")
	ErrStepDataMissing      = errors.New("step has no data")
)
