package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-resolution/internal/config"
	"github.com/spec-kit/ticket-resolution/internal/events"
)

// NotificationService reacts to ticket events with outbound notifications.
// Delivery here is a stub: events are logged with the channel they would be
// sent on, and real transports plug in behind notify.
type NotificationService struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{cfg: cfg, logger: logger}
}

// RegisterHandlers subscribes to every ticket event type.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketCommentAdded,
		events.EventTicketEscalated,
		events.EventTicketSLABreached,
	} {
		dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTicketEscalated, events.EventTicketSLABreached:
		// Urgent events fan out to both channels.
		n.notify(ctx, "email", event)
		n.notify(ctx, "webhook", event)
	case events.EventTicketCommentAdded:
		n.notify(ctx, "email", event)
	default:
		n.notify(ctx, "webhook", event)
	}
	return nil
}

func (n *NotificationService) notify(_ context.Context, channel string, event events.Event) {
	if channel == "webhook" && n.cfg.WebhookURL == "" {
		return
	}
	n.logger.Info("notification dispatched",
		zap.String("channel", channel),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ActorID))
}
