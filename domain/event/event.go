// Package event defines the wire representation of domain events exchanged
// over the pub/sub transport, and the codec validating them at the boundary.
package event

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"time"
)

// DomainEvent is anything routable by room.
type DomainEvent interface {
	RoomID() string
}

// MessageAdded is the payload published once per successfully persisted
// message. Field names match the public GraphQL shape.
type MessageAdded struct {
	ID        string  `json:"id"`
	Body      string  `json:"body"`
	UserID    string  `json:"userId"`
	Room      string  `json:"roomId"`
	CreatedAt string  `json:"createdAt"`
	User      *Author `json:"user,omitempty"`
}

// Author is the embedded user reference of a MessageAdded event.
type Author struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (e MessageAdded) RoomID() string { return e.Room }

// Encode serializes a persisted message into its wire payload.
func Encode(m domain.Message) ([]byte, error) {
	evt := MessageAdded{
		ID:        m.ID,
		Body:      m.Body,
		UserID:    m.UserID,
		Room:      m.RoomID,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if m.User != nil {
		evt.User = &Author{
			ID:       m.User.ID,
			Username: m.User.Username,
			Email:    m.User.Email,
			Avatar:   m.User.Avatar,
		}
	}
	return json.Marshal(evt)
}

// Decode parses and validates a payload received off the transport.
// Anything that does not carry the MessageAdded schema is rejected with a
// MALFORMED_PAYLOAD error.
func Decode(payload []byte) (domain.Message, error) {
	var evt MessageAdded
	if err := json.Unmarshal(payload, &evt); err != nil {
		return domain.Message{}, errors.Wrap(errors.CodeMalformedPayload, "event payload is not valid JSON", err)
	}
	if evt.ID == "" || evt.Room == "" {
		return domain.Message{}, errors.New(errors.CodeMalformedPayload, "event payload misses id or roomId")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, evt.CreatedAt)
	if err != nil {
		return domain.Message{}, errors.Wrap(errors.CodeMalformedPayload, "event payload carries an invalid createdAt", err)
	}
	msg := domain.Message{
		ID:        evt.ID,
		RoomID:    evt.Room,
		UserID:    evt.UserID,
		Body:      evt.Body,
		CreatedAt: createdAt,
	}
	if evt.User != nil {
		msg.User = &domain.User{
			ID:       evt.User.ID,
			Username: evt.User.Username,
			Email:    evt.User.Email,
			Avatar:   evt.User.Avatar,
		}
	}
	return msg, nil
}
