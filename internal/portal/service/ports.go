package service

import (
	"context"

	"github.com/onboardhr/onboarding/internal/mailer"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

// Broadcaster fans step events out to realtime subscribers.
type Broadcaster interface {
	Publish(event portalmodel.StepEvent)
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(portalmodel.StepEvent) {}
