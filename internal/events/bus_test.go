package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-procure/internal/events"
)

type stubStore struct {
	lastTopic   string
	lastPayload []byte
}

func (s *stubStore) InsertEvent(_ context.Context, topic string, payload []byte) (events.Event, error) {
	s.lastTopic = topic
	s.lastPayload = payload
	return events.Event{
		ID:         uuid.New(),
		Topic:      topic,
		Payload:    payload,
		OccurredAt: time.Now(),
	}, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	err := bus.Emit(context.Background(), events.TopicPriceUpdated, map[string]any{"item_id": "X"})
	require.NoError(t, err)
	require.Equal(t, events.TopicPriceUpdated, store.lastTopic)
	require.JSONEq(t, `{"item_id":"X"}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
}

func TestEmitRejectsInvalidPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	err := bus.Emit(context.Background(), events.TopicPriceUpdated, []byte("not json"))
	require.Error(t, err)
}

func TestEmitNotifierFailureDoesNotLoseEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{err: errors.New("notify down")}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	err := bus.Emit(context.Background(), events.TopicInquiryCreated, nil)
	require.Error(t, err)
	require.Equal(t, events.TopicInquiryCreated, store.lastTopic, "event must persist before notification")
	require.JSONEq(t, `{}`, string(store.lastPayload))
}
