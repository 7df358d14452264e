package notifications

import (
	"context"

	"github.com/bytevault/server/pkg/events"
	"go.uber.org/zap"
)

// Sender delivers one event to an external destination.
type Sender interface {
	Send(ctx context.Context, event events.Event) error
}

// Service fans billing events out to the configured webhook. Delivery is
// best effort: a failed send is logged, never retried into a user-facing
// request path.
type Service struct {
	sender Sender
	logger *zap.Logger
}

// NewService creates a new notification service
func NewService(sender Sender, logger *zap.Logger) *Service {
	return &Service{
		sender: sender,
		logger: logger,
	}
}

// Register subscribes the service to the events worth telling the outside
// world about.
func (s *Service) Register(bus *events.Bus) {
	for _, eventType := range []events.EventType{
		events.EventInvoiceCreated,
		events.EventBillingRunFinished,
	} {
		bus.Subscribe(eventType, s.handle)
	}
}

func (s *Service) handle(ctx context.Context, event events.Event) error {
	if err := s.sender.Send(ctx, event); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
