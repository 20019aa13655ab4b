package event

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTripsTheWireShape(t *testing.T) {
	req := require.New(t)
	avatar := "https://example.com/a.png"
	message := domain.Message{
		ID:        "m1",
		RoomID:    "general",
		UserID:    "u1",
		Body:      "hello",
		CreatedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		User: &domain.User{
			ID:       "u1",
			Username: "alice",
			Email:    "alice@example.com",
			Avatar:   &avatar,
		},
	}

	payload, err := Encode(message)
	req.NoError(err)
	req.JSONEq(`{
		"id": "m1",
		"body": "hello",
		"userId": "u1",
		"roomId": "general",
		"createdAt": "2024-03-01T12:30:00Z",
		"user": {"id": "u1", "username": "alice", "email": "alice@example.com", "avatar": "https://example.com/a.png"}
	}`, string(payload))

	decoded, err := Decode(payload)
	req.NoError(err)
	req.Equal(message.ID, decoded.ID)
	req.Equal(message.RoomID, decoded.RoomID)
	req.Equal(message.Body, decoded.Body)
	req.True(message.CreatedAt.Equal(decoded.CreatedAt))
	req.NotNil(decoded.User)
	req.Equal("alice", decoded.User.Username)
	req.Equal(&avatar, decoded.User.Avatar)
}

func TestDecode_RejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "definitely not json"},
		{"wrong type", `[1,2,3]`},
		{"missing ids", `{"body":"hi"}`},
		{"missing room", `{"id":"m1","body":"hi"}`},
		{"bad timestamp", `{"id":"m1","roomId":"general","createdAt":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := Decode([]byte(tt.payload))
			req.Error(err)
			req.True(errors.HasCode(err, errors.CodeMalformedPayload))
		})
	}
}
