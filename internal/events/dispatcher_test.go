package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	var seen []string
	d.Subscribe(EventSessionStarted, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.Subject)
		return boom
	})
	d.Subscribe(EventSessionStarted, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.Subject)
		return nil
	})
	d.Subscribe(EventSessionEnded, func(_ context.Context, e Event) error {
		seen = append(seen, "ended")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSessionStarted, Subject: "a@x.com"})
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"first:a@x.com", "second:a@x.com"}, seen)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSessionRotated}))
}
