package model

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationInFlight is returned when a transition for the same step is already running.
	ErrOperationInFlight = errors.New("operation already in flight")

	// ErrUnknownStep is returned for step ids outside the catalog.
	ErrUnknownStep = errors.New("unknown step")
)

// IdentityResolutionError means no valid candidate id could be determined.
// The operation is aborted before any network call.
type IdentityResolutionError struct {
	Role      Role
	Explicit  string
	Persisted string
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("no candidate selected for role %s: please select a candidate or log in again", e.Role)
}

// PermissionDeniedError means the actor may not perform the attempted transition or action.
type PermissionDeniedError struct {
	Role   Role
	StepID StepID
	Action string
}

func (e *PermissionDeniedError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("role %s is not permitted to %s", e.Role, e.Action)
	}
	return fmt.Sprintf("role %s is not permitted to update step %s", e.Role, e.StepID)
}

type SyncErrorKind string

const (
	SyncErrorTimeout     SyncErrorKind = "timeout"
	SyncErrorHTTP        SyncErrorKind = "http"
	SyncErrorUnreachable SyncErrorKind = "unreachable"
)

// RemoteSyncError is raised by the remote adapter for any failed call to the backend.
type RemoteSyncError struct {
	Op         string
	Kind       SyncErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteSyncError) Error() string {
	switch e.Kind {
	case SyncErrorHTTP:
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	case SyncErrorTimeout:
		return fmt.Sprintf("%s: request timed out; backend server may not be running", e.Op)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: backend unreachable", e.Op)
	}
}

func (e *RemoteSyncError) Unwrap() error { return e.Err }

// Timeout reports whether the call failed because its deadline elapsed.
func (e *RemoteSyncError) Timeout() bool { return e.Kind == SyncErrorTimeout }

// DataParseWarning is non-fatal: step data could not be coerced from its legacy
// string form and the raw string is kept as the step data.
type DataParseWarning struct {
	StepID StepID
	Raw    string
	Err    error
}

func (w *DataParseWarning) Error() string {
	return fmt.Sprintf("step %s: could not parse data %q: %v", w.StepID, w.Raw, w.Err)
}

func (w *DataParseWarning) Unwrap() error { return w.Err }

// IsRetryable reports whether err is a remote failure that the user can retry.
func IsRetryable(err error) bool {
	var syncErr *RemoteSyncError
	return errors.As(err, &syncErr)
}
