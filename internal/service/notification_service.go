package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/vibecodefixers/help-request-service/internal/events"
)

// NotificationService emits notifications for lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleEvent("RequestCreated"))
	n.dispatcher.Subscribe(events.EventRequestClaimed, n.handleEvent("RequestClaimed"))
	n.dispatcher.Subscribe(events.EventRequestStarted, n.handleEvent("RequestStarted"))
	n.dispatcher.Subscribe(events.EventSolutionSubmitted, n.handleEvent("SolutionSubmitted"))
	n.dispatcher.Subscribe(events.EventSolutionAccepted, n.handleEvent("SolutionAccepted"))
	n.dispatcher.Subscribe(events.EventSolutionRejected, n.handleEvent("SolutionRejected"))
	n.dispatcher.Subscribe(events.EventRequestCancelled, n.handleEvent("RequestCancelled"))
	n.dispatcher.Subscribe(events.EventClaimReleased, n.handleEvent("ClaimReleased"))
	n.dispatcher.Subscribe(events.EventRequestsExpired, n.handleEvent("RequestsExpired"))
}

func (n *NotificationService) handleEvent(name string) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		n.logger.Info(name,
			zap.String("request_id", event.RequestID),
			zap.String("actor_id", event.ActorID),
			zap.Any("payload", event.Payload))
		return nil
	}
}
