package fanout

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/pubsub"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*Dispatcher, *Endpoint, *Registry, *pubsub.MemoryChannel) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repositories.NewSeededMemoryStore()
	channel := pubsub.NewMemoryChannel()
	registry := NewRegistry(log, channel, testStrategy())
	return NewDispatcher(log, channel, store), NewEndpoint(log, registry), registry, channel
}

func TestEndpoint_RejectsEmptyRoomID(t *testing.T) {
	req := require.New(t)
	_, endpoint, _, _ := newTestPipeline(t)

	_, err := endpoint.Subscribe(context.Background(), "  ")
	req.Error(err)
	req.True(errors.IsValidation(err))
}

func TestEndpoint_StreamCloseIsIdempotentAndWakesNext(t *testing.T) {
	req := require.New(t)
	_, endpoint, registry, channel := newTestPipeline(t)
	ctx := context.Background()

	stream, err := endpoint.Subscribe(ctx, generalRoomID)
	req.NoError(err)

	nextErr := make(chan error, 1)
	go func() {
		_, err := stream.Next(ctx)
		nextErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	stream.Close()
	stream.Close()

	select {
	case err := <-nextErr:
		req.ErrorIs(err, errors.ErrStreamClosed)
	case <-time.After(1 * time.Second):
		req.Fail("Next did not resolve after Close")
	}
	req.Zero(registry.Subscribers(generalRoomID))
	req.Zero(channel.Listeners(generalRoomID))
}

// TestEndpoint_EndToEndScenario walks the full lifecycle: subscribe, send,
// receive, cancel, send again without a delivery attempt to the gone handle.
func TestEndpoint_EndToEndScenario(t *testing.T) {
	req := require.New(t)
	dispatcher, endpoint, registry, _ := newTestPipeline(t)
	ctx := context.Background()

	// Room starts with no subscribers
	req.Zero(registry.Subscribers(generalRoomID))

	// S1 attaches
	stream, err := endpoint.Subscribe(ctx, generalRoomID)
	req.NoError(err)
	req.Equal(1, registry.Subscribers(generalRoomID))

	// A message is sent to the room
	sent, err := dispatcher.SendMessage(ctx, domain.SendMessageCommand{
		RoomID: generalRoomID,
		UserID: adminUserID,
		Body:   "hi",
	})
	req.NoError(err)

	// S1's next dequeue yields it
	received, err := stream.Next(ctx)
	req.NoError(err)
	req.Equal(sent.ID, received.ID)
	req.Equal("hi", received.Body)
	req.Equal(generalRoomID, received.RoomID)
	req.Equal(adminUserID, received.UserID)

	// S1 cancels; the room releases its state
	stream.Close()
	req.Zero(registry.Subscribers(generalRoomID))

	// A second send neither errors nor reaches the gone subscriber
	_, err = dispatcher.SendMessage(ctx, domain.SendMessageCommand{
		RoomID: generalRoomID,
		UserID: adminUserID,
		Body:   "bye",
	})
	req.NoError(err)

	_, err = stream.Next(ctx)
	req.ErrorIs(err, errors.ErrStreamClosed)
}

func TestEndpoint_EachStreamReceivesIndependently(t *testing.T) {
	req := require.New(t)
	dispatcher, endpoint, _, _ := newTestPipeline(t)
	ctx := context.Background()

	first, err := endpoint.Subscribe(ctx, generalRoomID)
	req.NoError(err)
	second, err := endpoint.Subscribe(ctx, generalRoomID)
	req.NoError(err)
	defer first.Close()
	defer second.Close()

	sent, err := dispatcher.SendMessage(ctx, domain.SendMessageCommand{
		RoomID: generalRoomID,
		UserID: adminUserID,
		Body:   "to everyone",
	})
	req.NoError(err)

	// Both streams observe the event exactly once
	for _, stream := range []*Stream{first, second} {
		message, err := stream.Next(ctx)
		req.NoError(err)
		req.Equal(sent.ID, message.ID)
	}
	req.Zero(first.handle.Queue().Len())
	req.Zero(second.handle.Queue().Len())
}
