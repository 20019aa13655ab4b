package pubsub

import (
	"context"
	"sync"
)

// MemoryChannel is an in-process EventChannel for single-node deployments
// and tests. Delivery is synchronous: Publish invokes every handler attached
// to the room before returning, which preserves publish order per handler.
type MemoryChannel struct {
	mu    sync.RWMutex
	rooms map[string][]*memorySubscription
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{rooms: make(map[string][]*memorySubscription)}
}

func (c *MemoryChannel) Publish(_ context.Context, roomID string, payload []byte) error {
	c.mu.RLock()
	subs := make([]*memorySubscription, len(c.rooms[roomID]))
	copy(subs, c.rooms[roomID])
	c.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(payload)
	}
	return nil
}

func (c *MemoryChannel) Subscribe(_ context.Context, roomID string, fn HandlerFunc) (Subscription, error) {
	sub := &memorySubscription{channel: c, roomID: roomID, fn: fn}
	c.mu.Lock()
	c.rooms[roomID] = append(c.rooms[roomID], sub)
	c.mu.Unlock()
	return sub, nil
}

// Listeners returns the number of active subscriptions for a room.
func (c *MemoryChannel) Listeners(roomID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms[roomID])
}

type memorySubscription struct {
	channel *MemoryChannel
	roomID  string
	fn      HandlerFunc

	mu     sync.Mutex
	closed bool
}

// deliver skips handlers that unsubscribed between the snapshot and the call.
func (s *memorySubscription) deliver(payload []byte) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.fn(payload)
	}
}

func (s *memorySubscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.channel.mu.Lock()
	subs := s.channel.rooms[s.roomID]
	for i, sub := range subs {
		if sub == s {
			s.channel.rooms[s.roomID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(s.channel.rooms[s.roomID]) == 0 {
		delete(s.channel.rooms, s.roomID)
	}
	s.channel.mu.Unlock()
}
