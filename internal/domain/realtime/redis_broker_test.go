package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startRedisInstance runs one API instance's hub + broker against mr.
func startRedisInstance(t *testing.T, ctx context.Context, mr *miniredis.Miniredis) (*Hub, *RedisBroker) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub(nil)
	broker := NewRedisBroker(client, hub, nil)
	go func() { _ = broker.Run(ctx) }()
	return hub, broker
}

func fakeConnection(hub *Hub, channel string, userID int64) *connection {
	c := &connection{userID: userID, channel: channel, send: make(chan []byte, 4)}
	hub.register(c)
	return c
}

func receiveEvent(t *testing.T, c *connection) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestRedisBroker_FansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, brokerA := startRedisInstance(t, ctx, mr)
	hubB, _ := startRedisInstance(t, ctx, mr)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(redisTopic)[redisTopic] == 2
	}, 2*time.Second, 5*time.Millisecond)

	alice := fakeConnection(hubB, ChannelNotifications, 7)
	bob := fakeConnection(hubB, ChannelNotifications, 8)
	admin := fakeConnection(hubB, ChannelAdmin, 1)

	pub := NewPublisher(brokerA, nil)
	pub.ToUser(ctx, ChannelNotifications, 7, Event{Type: EventNotification, Message: "hello", NotificationID: "42"})

	ev := receiveEvent(t, alice)
	assert.Equal(t, EventNotification, ev.Type)
	assert.Equal(t, "hello", ev.Message)
	assert.Equal(t, "42", ev.NotificationID)

	pub.ToChannel(ctx, ChannelAdmin, Event{Type: EventAdminRequestSubmitted})
	assert.Equal(t, EventAdminRequestSubmitted, receiveEvent(t, admin).Type)

	assert.Empty(t, bob.send)
}

func TestRedisBroker_DropsMalformedEnvelopes(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub, broker := startRedisInstance(t, ctx, mr)
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(redisTopic)[redisTopic] == 1
	}, 2*time.Second, 5*time.Millisecond)

	c := fakeConnection(hub, ChannelNotifications, 3)

	mr.Publish(redisTopic, "not json")
	env, err := NewEnvelope(ChannelNotifications, 3, Event{Type: EventNotification, Message: "after"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, env))

	// the bad payload is skipped and the subscriber keeps running
	assert.Equal(t, "after", receiveEvent(t, c).Message)
}

func TestRedisBroker_RunStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	broker := NewRedisBroker(client, NewHub(nil), nil)

	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(redisTopic)[redisTopic] == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
