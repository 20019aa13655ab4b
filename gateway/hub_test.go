package gateway

import (
	"chat-relay/domain"
	"chat-relay/fanout"
	"chat-relay/pubsub"
	"chat-relay/repositories"
	"chat-relay/retry"
	"chat-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const (
	generalRoomID = "550e8400-e29b-41d4-a716-446655440000"
	adminUserID   = "550e8400-e29b-41d4-a716-446655440010"
)

func TestHub_DeliversRoomEventsToJoinedClient(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repositories.NewSeededMemoryStore()
	channel := pubsub.NewMemoryChannel()
	strategy := retry.Strategy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2.0}
	registry := fanout.NewRegistry(log, channel, strategy)
	service := services.NewChatService(
		fanout.NewDispatcher(log, channel, store),
		fanout.NewEndpoint(log, registry),
		store, store, store,
	)

	hub := NewHub(log, service)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := strings.Replace(server.URL, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	// Join the room, then give the stream time to attach
	req.NoError(conn.WriteJSON(controlFrame{Action: "join", RoomID: generalRoomID}))
	deadline := time.Now().Add(2 * time.Second)
	for registry.Subscribers(generalRoomID) == 0 {
		if time.Now().After(deadline) {
			req.Fail("client never attached to the room")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err = service.SendMessage(context.Background(), domain.SendMessageCommand{
		RoomID: generalRoomID,
		UserID: adminUserID,
		Body:   "over the wire",
	})
	req.NoError(err)

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, payload, err := conn.ReadMessage()
	req.NoError(err)

	var received map[string]any
	req.NoError(json.Unmarshal(payload, &received))
	req.Equal("over the wire", received["body"])
	req.Equal(generalRoomID, received["roomId"])
}
