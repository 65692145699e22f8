package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iterview/session-service/internal/events"
	"github.com/iterview/session-service/internal/observability"
)

// AuditService records session lifecycle events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSubjectRegistered, a.handle)
	a.dispatcher.Subscribe(events.EventSessionStarted, a.handle)
	a.dispatcher.Subscribe(events.EventSessionRotated, a.handle)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.handle)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info("session audit",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	a.metrics.RecordSessionEvent(string(event.Type))
	return nil
}
