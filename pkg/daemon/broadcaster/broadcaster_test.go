package broadcaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

func TestBroadcaster_Subscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe(engine.EventPlansUpdated)
	require.NotNil(t, sub)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, []engine.EventKind{engine.EventPlansUpdated}, sub.Kinds)
	assert.Equal(t, 1, b.SubscriberCount())
}

func TestBroadcaster_Notify(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe()
	b.Notify(engine.Event{Kind: engine.EventStateChanged, State: "steady"})

	select {
	case ev := <-sub.Events:
		assert.Equal(t, engine.EventStateChanged, ev.Kind)
		assert.Equal(t, "steady", ev.State)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event not received")
	}
}

func TestBroadcaster_Notify_FiltersByKind(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe(engine.EventCalibrated)
	b.Notify(engine.Event{Kind: engine.EventStateChanged})
	b.Notify(engine.Event{Kind: engine.EventCalibrated})

	select {
	case ev := <-sub.Events:
		assert.Equal(t, engine.EventCalibrated, ev.Kind)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event not received")
	}
	assert.Empty(t, sub.Events)
}

func TestBroadcaster_SlowSubscriberDrops(t *testing.T) {
	b := New()
	defer b.Close()

	slow := b.Subscribe()
	for range BufferSize + 5 {
		b.Notify(engine.Event{Kind: engine.EventStateChanged})
	}

	assert.Len(t, slow.Events, BufferSize)
	assert.Equal(t, uint64(5), slow.Dropped())
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub.ID)

	_, ok := <-sub.Events
	assert.False(t, ok, "channel should be closed")
	assert.Equal(t, 0, b.SubscriberCount())

	b.Unsubscribe(sub.ID)
}

func TestBroadcaster_Close(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	b.Close()
	_, ok := <-sub.Events
	assert.False(t, ok)

	assert.Nil(t, b.Subscribe())
	b.Notify(engine.Event{Kind: engine.EventStateChanged})
	b.Close()
}
