// Package pubsub abstracts the room-scoped publish/subscribe transport that
// connects message creation to live subscribers. Two implementations exist:
// a Redis-backed one for multi-process deployments and an in-process one.
package pubsub

import "context"

// HandlerFunc receives the raw payload of one published event. It is invoked
// once per event, in publish order, for as long as the subscription is active.
type HandlerFunc func(payload []byte)

// Subscription is the cancellation handle of an active room subscription.
type Subscription interface {
	// Unsubscribe stops the handler from being invoked. Idempotent.
	Unsubscribe()
}

// EventChannel is a named, room-scoped publish/subscribe primitive.
//
// Publish is fire-and-forget: it delivers to the listeners attached at call
// time and buffers nothing for late subscribers.
type EventChannel interface {
	Publish(ctx context.Context, roomID string, payload []byte) error
	Subscribe(ctx context.Context, roomID string, fn HandlerFunc) (Subscription, error)
}

// channelName maps a room to its transport channel.
func channelName(roomID string) string {
	return "room:" + roomID
}
