package domain

import (
	"chat-relay/errors"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SendMessageCommand is the validated input of the send-message flow.
type SendMessageCommand struct {
	RoomID string `validate:"required"`
	UserID string `validate:"required"`
	Body   string `validate:"required"`
}

// Validate rejects the command before any side effect happens.
func (c SendMessageCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.CodeValidation, "invalid send message command", err)
	}
	return nil
}

// CreateRoomCommand creates a new named room.
type CreateRoomCommand struct {
	Name        string `validate:"required,max=100"`
	Description *string
}

func (c CreateRoomCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.CodeValidation, "invalid create room command", err)
	}
	return nil
}

// CreateUserCommand registers a chat participant.
type CreateUserCommand struct {
	Username string `validate:"required,max=50"`
	Email    string `validate:"required,email"`
	Avatar   *string
}

func (c CreateUserCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.CodeValidation, "invalid create user command", err)
	}
	return nil
}

// GetMessagesCommand pages through the history of one room,
// newest page first, returned in chronological order.
type GetMessagesCommand struct {
	RoomID string `validate:"required"`
	Limit  int
	Before *time.Time
}

func (c GetMessagesCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.CodeValidation, "invalid get messages command", err)
	}
	return nil
}
