package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/config"
	"github.com/spec-kit/voice-scheduler/internal/events"
	"github.com/spec-kit/voice-scheduler/internal/service"
)

func TestNotificationWorkerDeliversAndDrains(t *testing.T) {
	inner := events.NewInMemoryDispatcher(zap.NewNop())
	w := NewNotificationWorker(inner, 8, zap.NewNop())

	var (
		mu   sync.Mutex
		seen []string
	)
	w.Subscribe(events.EventMeetingBooked, func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.SessionID)
		return nil
	})

	notifications := service.NewNotificationService(w, zap.NewNop(), config.NotificationConfig{WebhookURL: "http://hooks.local"})
	StartNotificationWorker(notifications, w)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Publish(ctx, events.Event{Type: events.EventMeetingBooked, SessionID: "a"}))
	require.NoError(t, w.Publish(ctx, events.Event{Type: events.EventMeetingBooked, SessionID: "b"}))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)

	assert.ErrorIs(t, w.Publish(context.Background(), events.Event{Type: events.EventMeetingBooked}), ErrStopped)
}

func TestNotificationWorkerRejectsWhenFull(t *testing.T) {
	w := NewNotificationWorker(events.NewInMemoryDispatcher(nil), 1, nil)

	require.NoError(t, w.Publish(context.Background(), events.Event{Type: events.EventSessionEnded}))
	assert.ErrorIs(t, w.Publish(context.Background(), events.Event{Type: events.EventSessionEnded}), ErrQueueFull)
}
