package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/combat-api/internal/events"
)

func receive(t *testing.T, ch <-chan *events.Envelope) *events.Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBus_PublishSubscribeRoundTrip(t *testing.T) {
	bus := events.NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "combat-1")
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	err = bus.Publish(ctx, &events.Event{
		Type:     events.TypeTurnStarted,
		CombatID: "combat-1",
		Sequence: 4,
		At:       at,
		Payload:  events.TurnStarted{EntityID: "hero", Round: 1, AP: 3, Energy: 50},
	})
	require.NoError(t, err)

	env := receive(t, ch)
	assert.Equal(t, events.TypeTurnStarted, env.Type)
	assert.Equal(t, "combat-1", env.CombatID)
	assert.Equal(t, int64(4), env.Sequence)
	assert.True(t, env.At.Equal(at))

	var payload events.TurnStarted
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "hero", payload.EntityID)
	assert.Equal(t, 3, payload.AP)
}

func TestBus_EventsArriveInPublishOrder(t *testing.T) {
	bus := events.NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "combat-1")
	require.NoError(t, err)

	for seq := int64(1); seq <= 5; seq++ {
		require.NoError(t, bus.Publish(ctx, &events.Event{
			Type:     events.TypeEntityUpdated,
			CombatID: "combat-1",
			Sequence: seq,
		}))
	}

	for seq := int64(1); seq <= 5; seq++ {
		assert.Equal(t, seq, receive(t, ch).Sequence)
	}
}

func TestBus_TopicsAreIsolatedPerCombat(t *testing.T) {
	bus := events.NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1, err := bus.Subscribe(ctx, "combat-1")
	require.NoError(t, err)
	ch2, err := bus.Subscribe(ctx, "combat-2")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, &events.Event{
		Type:     events.TypeRoundStarted,
		CombatID: "combat-2",
		Sequence: 1,
	}))

	env := receive(t, ch2)
	assert.Equal(t, "combat-2", env.CombatID)

	select {
	case env := <-ch1:
		t.Fatalf("combat-1 subscriber received %s for %s", env.Type, env.CombatID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_PublishValidation(t *testing.T) {
	bus := events.NewBus()
	defer func() { _ = bus.Close() }()

	ctx := context.Background()
	assert.Error(t, bus.Publish(ctx, nil))
	assert.Error(t, bus.Publish(ctx, &events.Event{Type: events.TypeRoundStarted}))

	_, err := bus.Subscribe(ctx, "")
	assert.Error(t, err)
}
