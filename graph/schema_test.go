package graph

import (
	"chat-relay/fanout"
	"chat-relay/pubsub"
	"chat-relay/repositories"
	"chat-relay/retry"
	"chat-relay/services"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const (
	generalRoomID = "550e8400-e29b-41d4-a716-446655440000"
	adminUserID   = "550e8400-e29b-41d4-a716-446655440010"
)

func newTestSchema(t *testing.T) graphql.Schema {
	t.Helper()
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
	schema, err := New(service, log)
	require.NoError(t, err)
	return schema
}

func TestSchema_RoomsQuery(t *testing.T) {
	req := require.New(t)
	schema := newTestSchema(t)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ rooms { id name description } }`,
		Context:       context.Background(),
	})

	req.Empty(result.Errors)
	data := result.Data.(map[string]any)
	rooms := data["rooms"].([]any)
	req.Len(rooms, 2)
	first := rooms[0].(map[string]any)
	req.Equal("general", first["name"])
}

func TestSchema_SendMessageMutationAndMessagesQuery(t *testing.T) {
	req := require.New(t)
	schema := newTestSchema(t)
	ctx := context.Background()

	mutation := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `mutation($roomId: ID!, $body: String!, $userId: ID!) {
			sendMessage(roomId: $roomId, body: $body, userId: $userId) {
				id body roomId userId user { username }
			}
		}`,
		VariableValues: map[string]any{
			"roomId": generalRoomID,
			"body":   "hello world",
			"userId": adminUserID,
		},
		Context: ctx,
	})
	req.Empty(mutation.Errors)
	sent := mutation.Data.(map[string]any)["sendMessage"].(map[string]any)
	req.NotEmpty(sent["id"])
	req.Equal("hello world", sent["body"])
	req.Equal("admin", sent["user"].(map[string]any)["username"])

	query := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  `query($roomId: ID!) { messages(roomId: $roomId) { id body } }`,
		VariableValues: map[string]any{"roomId": generalRoomID},
		Context:        ctx,
	})
	req.Empty(query.Errors)
	messages := query.Data.(map[string]any)["messages"].([]any)
	req.Len(messages, 1)
	req.Equal("hello world", messages[0].(map[string]any)["body"])
}

func TestSchema_SendMessageRejectsEmptyBody(t *testing.T) {
	req := require.New(t)
	schema := newTestSchema(t)

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `mutation {
			sendMessage(roomId: "` + generalRoomID + `", body: "", userId: "` + adminUserID + `") { id }
		}`,
		Context: context.Background(),
	})
	req.NotEmpty(result.Errors)
}

func TestSchema_CreateRoomMutation(t *testing.T) {
	req := require.New(t)
	schema := newTestSchema(t)

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `mutation {
			createRoom(name: "releases", description: "Release coordination") { id name description }
		}`,
		Context: context.Background(),
	})
	req.Empty(result.Errors)
	room := result.Data.(map[string]any)["createRoom"].(map[string]any)
	req.NotEmpty(room["id"])
	req.Equal("releases", room["name"])
	req.Equal("Release coordination", room["description"])
}

func TestSchema_MessageAddedSubscription(t *testing.T) {
	req := require.New(t)
	schema := newTestSchema(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := graphql.Subscribe(graphql.Params{
		Schema: schema,
		RequestString: `subscription($roomId: ID!) {
			messageAdded(roomId: $roomId) { id body roomId }
		}`,
		VariableValues: map[string]any{"roomId": generalRoomID},
		Context:        ctx,
	})

	// Let the subscription attach before sending
	time.Sleep(20 * time.Millisecond)

	mutation := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `mutation {
			sendMessage(roomId: "` + generalRoomID + `", body: "live", userId: "` + adminUserID + `") { id }
		}`,
		Context: context.Background(),
	})
	req.Empty(mutation.Errors)

	select {
	case result := <-results:
		req.NotNil(result)
		req.Empty(result.Errors)
		payload := result.Data.(map[string]any)["messageAdded"].(map[string]any)
		req.Equal("live", payload["body"])
		req.Equal(generalRoomID, payload["roomId"])
	case <-time.After(2 * time.Second):
		req.Fail("subscription did not deliver the event")
	}
}
