package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mediayaseer-arch/questpark-backend/pkg/enums"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
}

// fakeBus is an in-process Bus shared by every hub attached to it.
type fakeBus struct {
	mu        sync.Mutex
	listeners []chan string
}

func (b *fakeBus) Publish(_ context.Context, _ string, payload any) error {
	raw, ok := payload.([]byte)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.listeners {
		ch <- string(raw)
	}
	return nil
}

func (b *fakeBus) Listen(_ context.Context, _ string) (<-chan string, func() error, error) {
	ch := make(chan string, 8)
	b.mu.Lock()
	b.listeners = append(b.listeners, ch)
	b.mu.Unlock()
	return ch, func() error { return nil }, nil
}

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "subscriber channel closed early")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubLocalBroadcast(t *testing.T) {
	hub := NewHub(nil, "events", testLogger())
	require.NoError(t, hub.Start(context.Background()))
	defer hub.Shutdown()

	ch, cancel := hub.Subscribe()
	defer cancel()
	require.Equal(t, 1, hub.SubscriberCount())

	hub.Broadcast(context.Background(), Event{
		Type:         EventCheckoutChanged,
		SubmissionID: "sub-1",
		Status:       enums.CheckoutStatusApproved,
	})

	got := waitForEvent(t, ch)
	require.Equal(t, EventCheckoutChanged, got.Type)
	require.Equal(t, "sub-1", got.SubmissionID)
	require.Equal(t, enums.CheckoutStatusApproved, got.Status)
}

func TestHubSubscribeCancel(t *testing.T) {
	hub := NewHub(nil, "events", testLogger())
	require.NoError(t, hub.Start(context.Background()))
	defer hub.Shutdown()

	_, cancel := hub.Subscribe()
	cancel()
	cancel() // safe to repeat
	require.Equal(t, 0, hub.SubscriberCount())
}

func TestHubCrossInstanceRelay(t *testing.T) {
	bus := &fakeBus{}
	a := NewHub(bus, "events", testLogger())
	b := NewHub(bus, "events", testLogger())
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	defer a.Shutdown()
	defer b.Shutdown()

	chA, cancelA := a.Subscribe()
	chB, cancelB := b.Subscribe()
	defer cancelA()
	defer cancelB()

	a.Broadcast(context.Background(), Event{Type: EventCheckoutChanged, SubmissionID: "sub-9"})

	// Both instances see the event, and the origin sees it exactly once
	// even though its own publication came back over the bus.
	require.Equal(t, "sub-9", waitForEvent(t, chA).SubmissionID)
	require.Equal(t, "sub-9", waitForEvent(t, chB).SubmissionID)
	select {
	case extra := <-chA:
		t.Fatalf("origin received duplicate event %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubIgnoresMalformedPayload(t *testing.T) {
	bus := &fakeBus{}
	hub := NewHub(bus, "events", testLogger())
	require.NoError(t, hub.Start(context.Background()))
	defer hub.Shutdown()

	ch, cancel := hub.Subscribe()
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), "events", []byte("not json")))
	valid, err := json.Marshal(envelope{Origin: "elsewhere", Event: Event{Type: EventPing}})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "events", valid))

	require.Equal(t, EventPing, waitForEvent(t, ch).Type)
}
