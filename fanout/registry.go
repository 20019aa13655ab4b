package fanout

import (
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/pubsub"
	"chat-relay/retry"
	"context"
	"log/slog"
	"sync"
)

// Handle represents one live subscription instance bound to one room.
type Handle struct {
	roomID string
	queue  *Queue
}

func NewHandle(roomID string) *Handle {
	return &Handle{roomID: roomID, queue: NewQueue()}
}

func (h *Handle) RoomID() string { return h.roomID }
func (h *Handle) Queue() *Queue  { return h.queue }

// roomState is the per-room subscription state: the set of attached handles
// and the single transport subscription feeding them. Handles are guarded by
// their own lock so the delivery callback never contends with the registry
// map while a transport call is in flight.
//
// lifecycle serializes subscribe and teardown for this room only; torn marks
// a state whose transport subscription has been released (or never came up),
// at which point the state is dead and a fresh one replaces it in the map.
type roomState struct {
	mu      sync.RWMutex
	handles []*Handle

	lifecycle sync.Mutex
	sub       pubsub.Subscription
	torn      bool
}

func (s *roomState) add(h *Handle) {
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
}

func (s *roomState) remove(h *Handle) (removed bool, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.handles {
		if candidate == h {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			removed = true
			break
		}
	}
	return removed, len(s.handles) == 0
}

// Registry multiplexes one EventChannel subscription per room across all
// local subscriber handles. The transport subscription is created lazily on
// the first attach and released when the last handle detaches.
type Registry struct {
	log     *slog.Logger
	channel pubsub.EventChannel
	backoff retry.Strategy

	mu    sync.Mutex
	rooms map[string]*roomState
}

func NewRegistry(log *slog.Logger, channel pubsub.EventChannel, backoff retry.Strategy) *Registry {
	return &Registry{
		log:     log,
		channel: channel,
		backoff: backoff,
		rooms:   make(map[string]*roomState),
	}
}

// Attach registers the handle for its room, creating the transport
// subscription first if none exists yet. Concurrent first-attach races still
// create exactly one transport subscription per room: the room's lifecycle
// lock serializes them, while the registry lock only guards the map, so a
// slow subscribe on one room never delays attach or detach on another.
//
// A failing transport subscribe is retried with backoff; the handle is only
// registered once the subscription is live.
func (r *Registry) Attach(ctx context.Context, h *Handle) error {
	for {
		r.mu.Lock()
		state, ok := r.rooms[h.roomID]
		if !ok {
			state = &roomState{}
			r.rooms[h.roomID] = state
		}
		r.mu.Unlock()

		state.lifecycle.Lock()
		if state.torn {
			// Lost the race against the teardown of this state; start over
			// with a fresh one.
			state.lifecycle.Unlock()
			continue
		}
		if state.sub == nil {
			var sub pubsub.Subscription
			err := r.backoff.Do(ctx, func() error {
				var subErr error
				sub, subErr = r.channel.Subscribe(ctx, h.roomID, r.deliver(h.roomID, state))
				return subErr
			})
			if err != nil {
				state.torn = true
				state.lifecycle.Unlock()
				r.dropState(h.roomID, state)
				return err
			}
			state.sub = sub
		}
		state.add(h)
		state.lifecycle.Unlock()
		observability.ActiveSubscribers.Inc()
		return nil
	}
}

// Detach removes the handle from its room set and closes its queue, waking
// any in-flight Dequeue. When the set empties the transport subscription is
// released and the room state dropped immediately.
// Safe to call more than once for the same handle.
func (r *Registry) Detach(h *Handle) {
	// Close the queue before taking any lock: the consumer's in-flight
	// Dequeue wakes even while this room is mid-subscribe.
	h.queue.Close()

	r.mu.Lock()
	state, ok := r.rooms[h.roomID]
	r.mu.Unlock()
	if !ok {
		return
	}

	state.lifecycle.Lock()
	removed, empty := state.remove(h)
	if removed {
		observability.ActiveSubscribers.Dec()
	}
	if removed && empty && !state.torn {
		state.torn = true
		state.sub.Unsubscribe()
		state.lifecycle.Unlock()
		r.dropState(h.roomID, state)
		r.log.Debug("Released room subscription", "room_id", h.roomID)
		return
	}
	state.lifecycle.Unlock()
}

// dropState removes the state from the map unless a fresh one replaced it.
func (r *Registry) dropState(roomID string, state *roomState) {
	r.mu.Lock()
	if r.rooms[roomID] == state {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
}

// Subscribers reports how many handles are attached to the room.
func (r *Registry) Subscribers(roomID string) int {
	r.mu.Lock()
	state, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	return len(state.handles)
}

// deliver builds the channel callback for one room. It decodes the payload
// once and enqueues the event into every handle registered at callback
// start, synchronously, before returning. Enqueue never blocks, so delivery
// to all handles completes regardless of how slowly each consumer drains.
func (r *Registry) deliver(roomID string, state *roomState) pubsub.HandlerFunc {
	return func(payload []byte) {
		msg, err := event.Decode(payload)
		if err != nil {
			observability.MalformedPayloads.Inc()
			r.log.Warn("Dropping malformed event payload", "room_id", roomID, "error", err)
			return
		}

		state.mu.RLock()
		for _, h := range state.handles {
			h.queue.Enqueue(msg)
			observability.EventsDelivered.Inc()
		}
		state.mu.RUnlock()
	}
}
