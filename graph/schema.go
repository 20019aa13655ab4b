// Package graph builds the GraphQL schema: queries and mutations over the
// chat service, and the messageAdded subscription fed by the fan-out core.
package graph

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/fanout"
	"chat-relay/services"
	"context"
	"log/slog"
	"time"

	"github.com/graphql-go/graphql"
)

// New assembles the executable schema around the chat service.
func New(svc services.IChatService, log *slog.Logger) (graphql.Schema, error) {
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: userField(func(u domain.User) (any, error) { return u.ID, nil }),
			},
			"username": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: userField(func(u domain.User) (any, error) { return u.Username, nil }),
			},
			"email": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: userField(func(u domain.User) (any, error) { return u.Email, nil }),
			},
			"avatar": &graphql.Field{
				Type: graphql.String,
				Resolve: userField(func(u domain.User) (any, error) {
					if u.Avatar == nil {
						return nil, nil
					}
					return *u.Avatar, nil
				}),
			},
			"createdAt": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: userField(func(u domain.User) (any, error) { return formatTime(u.CreatedAt), nil }),
			},
		},
	})

	messageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Message",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: messageField(func(m domain.Message) (any, error) { return m.ID, nil }),
			},
			"roomId": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: messageField(func(m domain.Message) (any, error) { return m.RoomID, nil }),
			},
			"userId": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: messageField(func(m domain.Message) (any, error) { return m.UserID, nil }),
			},
			"body": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: messageField(func(m domain.Message) (any, error) { return m.Body, nil }),
			},
			"createdAt": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: messageField(func(m domain.Message) (any, error) { return formatTime(m.CreatedAt), nil }),
			},
			"user": &graphql.Field{
				Type: userType,
				Resolve: messageField(func(m domain.Message) (any, error) {
					if m.User == nil {
						return nil, nil
					}
					return *m.User, nil
				}),
			},
		},
	})

	roomType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Room",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: roomField(func(r domain.Room) (any, error) { return r.ID, nil }),
			},
			"name": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: roomField(func(r domain.Room) (any, error) { return r.Name, nil }),
			},
			"description": &graphql.Field{
				Type: graphql.String,
				Resolve: roomField(func(r domain.Room) (any, error) {
					if r.Description == nil {
						return nil, nil
					}
					return *r.Description, nil
				}),
			},
			"createdAt": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: roomField(func(r domain.Room) (any, error) { return formatTime(r.CreatedAt), nil }),
			},
			"messages": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(messageType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					room, ok := p.Source.(domain.Room)
					if !ok {
						return nil, errors.New(errors.CodeValidation, "room source expected")
					}
					return svc.GetMessages(p.Context, domain.GetMessagesCommand{RoomID: room.ID})
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"messages": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(messageType))),
				Args: graphql.FieldConfigArgument{
					"roomId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"before": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					cmd := domain.GetMessagesCommand{RoomID: argString(p, "roomId")}
					if limit, ok := p.Args["limit"].(int); ok {
						cmd.Limit = limit
					}
					if raw, ok := p.Args["before"].(string); ok {
						before, err := time.Parse(time.RFC3339Nano, raw)
						if err != nil {
							return nil, errors.Wrap(errors.CodeValidation, "before must be an ISO-8601 timestamp", err)
						}
						cmd.Before = &before
					}
					return svc.GetMessages(p.Context, cmd)
				},
			},
			"rooms": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(roomType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return svc.GetRooms(p.Context)
				},
			},
			"users": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return svc.GetUsers(p.Context)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"sendMessage": &graphql.Field{
				Type: graphql.NewNonNull(messageType),
				Args: graphql.FieldConfigArgument{
					"roomId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"body":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return svc.SendMessage(p.Context, domain.SendMessageCommand{
						RoomID: argString(p, "roomId"),
						UserID: argString(p, "userId"),
						Body:   argString(p, "body"),
					})
				},
			},
			"createRoom": &graphql.Field{
				Type: graphql.NewNonNull(roomType),
				Args: graphql.FieldConfigArgument{
					"name":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					cmd := domain.CreateRoomCommand{Name: argString(p, "name")}
					if description, ok := p.Args["description"].(string); ok {
						cmd.Description = &description
					}
					return svc.CreateRoom(p.Context, cmd)
				},
			},
			"createUser": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"avatar":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					cmd := domain.CreateUserCommand{
						Username: argString(p, "username"),
						Email:    argString(p, "email"),
					}
					if avatar, ok := p.Args["avatar"].(string); ok {
						cmd.Avatar = &avatar
					}
					return svc.CreateUser(p.Context, cmd)
				},
			},
		},
	})

	subscriptionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"messageAdded": &graphql.Field{
				Type: graphql.NewNonNull(messageType),
				Args: graphql.FieldConfigArgument{
					"roomId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source, nil
				},
				Subscribe: func(p graphql.ResolveParams) (any, error) {
					stream, err := svc.SubscribeMessages(p.Context, argString(p, "roomId"))
					if err != nil {
						return nil, err
					}
					return pumpStream(p.Context, log, stream), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:        queryType,
		Mutation:     mutationType,
		Subscription: subscriptionType,
	})
}

// pumpStream forwards a fan-out stream into the channel shape the GraphQL
// executor consumes, closing both sides when the consumer goes away.
func pumpStream(ctx context.Context, log *slog.Logger, stream *fanout.Stream) chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			message, err := stream.Next(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, errors.ErrStreamClosed) {
					log.Warn("Subscription stream ended", "room_id", stream.RoomID(), "error", err)
				}
				return
			}
			select {
			case out <- message:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func argString(p graphql.ResolveParams, name string) string {
	value, _ := p.Args[name].(string)
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func userField(fn func(domain.User) (any, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		user, ok := p.Source.(domain.User)
		if !ok {
			return nil, errors.New(errors.CodeValidation, "user source expected")
		}
		return fn(user)
	}
}

func messageField(fn func(domain.Message) (any, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		message, ok := p.Source.(domain.Message)
		if !ok {
			return nil, errors.New(errors.CodeValidation, "message source expected")
		}
		return fn(message)
	}
}

func roomField(fn func(domain.Room) (any, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		room, ok := p.Source.(domain.Room)
		if !ok {
			return nil, errors.New(errors.CodeValidation, "room source expected")
		}
		return fn(room)
	}
}
