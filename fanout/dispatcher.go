package fanout

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/pubsub"
	"chat-relay/repositories"
	"context"
	"log/slog"
)

// Dispatcher runs the send-message flow: validate, persist, then publish the
// resulting event onto the room's channel.
//
// Persistence success is independent of fan-out success. A publish failure
// is logged and counted but never reverts persistence or fails the send:
// the caller already holds the authoritative message, live subscribers just
// miss the real-time push for that one event.
type Dispatcher struct {
	log      *slog.Logger
	channel  pubsub.EventChannel
	messages repositories.IMessageRepository
}

func NewDispatcher(log *slog.Logger, channel pubsub.EventChannel, messages repositories.IMessageRepository) *Dispatcher {
	return &Dispatcher{log: log, channel: channel, messages: messages}
}

// SendMessage returns the persisted message regardless of publish outcome.
// A validation or persistence failure returns an error and publishes nothing.
func (d *Dispatcher) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Message{}, err
	}

	message, err := d.messages.CreateMessage(ctx, cmd)
	if err != nil {
		return domain.Message{}, err
	}
	observability.MessagesPersisted.Inc()

	payload, err := event.Encode(message)
	if err != nil {
		d.log.Error("Event encoding failed, realtime push skipped",
			"message_id", message.ID, "room_id", message.RoomID, "error", err)
		return message, nil
	}
	if err := d.channel.Publish(ctx, message.RoomID, payload); err != nil {
		observability.PublishFailures.Inc()
		d.log.Warn("Realtime publish failed, message persisted",
			"message_id", message.ID, "room_id", message.RoomID, "error", err)
	}
	return message, nil
}
