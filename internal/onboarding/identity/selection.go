package identity

import (
	"sync"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

// SelectedCandidate is the candidate an HR actor is currently working on.
type SelectedCandidate struct {
	ID         model.CandidateID
	Name       string
	Position   string
	Department string
}

// Selection is the session-scoped HR selection context. It is injected into
// every component that needs the selected candidate.
type Selection struct {
	mu        sync.RWMutex
	raw       string
	candidate *SelectedCandidate
}

func NewSelection() *Selection {
	return &Selection{}
}

// Set records a validated selection.
func (s *Selection) Set(candidate SelectedCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := candidate
	s.candidate = &c
	s.raw = candidate.ID.String()
}

// SetRaw records a selection whose validity has not been checked, such as a
// value read back from durable storage. Resolution validates it later.
func (s *Selection) SetRaw(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	s.candidate = nil
	if id, ok := model.ParseCandidateID(raw); ok {
		s.candidate = &SelectedCandidate{ID: id}
	}
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = ""
	s.candidate = nil
}

// Raw returns the selection exactly as it was set.
func (s *Selection) Raw() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Candidate returns the selected candidate, if the selection is valid.
func (s *Selection) Candidate() (SelectedCandidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.candidate == nil {
		return SelectedCandidate{}, false
	}
	return *s.candidate, true
}
