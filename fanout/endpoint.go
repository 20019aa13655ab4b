package fanout

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Endpoint is the public producer of live message streams, one independent
// stream per subscription connection.
type Endpoint struct {
	log      *slog.Logger
	registry *Registry
}

func NewEndpoint(log *slog.Logger, registry *Registry) *Endpoint {
	return &Endpoint{log: log, registry: registry}
}

// Subscribe attaches a new handle for the room and returns its stream.
// The stream is infinite and non-restartable: it yields events published
// after attachment, in publish order, until Close.
func (e *Endpoint) Subscribe(ctx context.Context, roomID string) (*Stream, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, errors.New(errors.CodeValidation, "room id is required")
	}
	handle := NewHandle(roomID)
	if err := e.registry.Attach(ctx, handle); err != nil {
		return nil, err
	}
	e.log.Debug("Subscriber attached", "room_id", roomID)
	return &Stream{registry: e.registry, handle: handle}, nil
}

// Stream is one live, room-scoped sequence of messages.
type Stream struct {
	registry *Registry
	handle   *Handle
	once     sync.Once
}

// Next yields the next message, suspending until one arrives. It returns
// errors.ErrStreamClosed after Close, or the context error on cancellation.
func (s *Stream) Next(ctx context.Context) (domain.Message, error) {
	return s.handle.Queue().Dequeue(ctx)
}

// Close detaches the handle and wakes any in-flight Next promptly.
// Idempotent; always call it when the consumer goes away, otherwise the
// room keeps a dead handle and the transport subscription leaks.
func (s *Stream) Close() {
	s.once.Do(func() {
		s.registry.Detach(s.handle)
	})
}

// RoomID names the room this stream is bound to.
func (s *Stream) RoomID() string {
	return s.handle.RoomID()
}
