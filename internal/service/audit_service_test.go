package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iterview/session-service/internal/events"
	"github.com/iterview/session-service/internal/observability"
)

func TestAuditServiceRecordsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := observability.NewMetrics("session")
	dispatcher := events.NewInMemoryDispatcher()

	audit := NewAuditService(dispatcher, zap.New(core), metrics)
	audit.RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "1", Type: events.EventSessionStarted, Subject: "a@x.com", Timestamp: time.Now()}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "2", Type: events.EventSessionEnded, Subject: "a@x.com", Timestamp: time.Now()}))

	require.Equal(t, 2, logs.FilterMessage("session audit").Len())
	require.Equal(t, "a@x.com", logs.All()[0].ContextMap()["subject"])

	count, err := testutil.GatherAndCount(metrics.Registry(), "session_session_events_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestAuditServiceWithoutDispatcher(t *testing.T) {
	NewAuditService(nil, zap.NewNop(), nil).RegisterHandlers()
}
