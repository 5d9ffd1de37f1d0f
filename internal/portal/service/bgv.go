package service

import (
	"time"

	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

var bgvCheckNames = []string{
	"Identity Verification",
	"Employment History",
	"Education Verification",
	"Criminal Background Check",
	"Reference Check",
}

// BGVChecks reports the background verification checks. The checks are
// simulated and always complete.
func BGVChecks(now time.Time) []portalmodel.BGVCheck {
	checks := make([]portalmodel.BGVCheck, 0, len(bgvCheckNames))
	for _, name := range bgvCheckNames {
		checks = append(checks, portalmodel.BGVCheck{
			CheckName:   name,
			Status:      "completed",
			Progress:    100,
			CompletedAt: now,
		})
	}
	return checks
}
