// Package services exposes the application facade consumed by the GraphQL
// layer and the WebSocket gateway.
package services

import (
	"chat-relay/domain"
	"chat-relay/fanout"
	"chat-relay/repositories"
	"context"
)

const defaultMessageLimit = 50

type IChatService interface {
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, error)
	GetRooms(ctx context.Context) ([]domain.Room, error)
	CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error)
	GetUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, cmd domain.CreateUserCommand) (domain.User, error)
	SubscribeMessages(ctx context.Context, roomID string) (*fanout.Stream, error)
}

type ChatService struct {
	dispatcher *fanout.Dispatcher
	endpoint   *fanout.Endpoint
	messages   repositories.IMessageRepository
	rooms      repositories.IRoomRepository
	users      repositories.IUserRepository
}

func NewChatService(
	dispatcher *fanout.Dispatcher,
	endpoint *fanout.Endpoint,
	messages repositories.IMessageRepository,
	rooms repositories.IRoomRepository,
	users repositories.IUserRepository,
) *ChatService {
	return &ChatService{
		dispatcher: dispatcher,
		endpoint:   endpoint,
		messages:   messages,
		rooms:      rooms,
		users:      users,
	}
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.dispatcher.SendMessage(ctx, cmd)
}

func (s *ChatService) GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, error) {
	if cmd.Limit <= 0 {
		cmd.Limit = defaultMessageLimit
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return s.messages.GetMessages(ctx, cmd)
}

func (s *ChatService) GetRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.GetRooms(ctx)
}

func (s *ChatService) CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Room{}, err
	}
	return s.rooms.CreateRoom(ctx, cmd)
}

func (s *ChatService) GetUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.GetUsers(ctx)
}

func (s *ChatService) CreateUser(ctx context.Context, cmd domain.CreateUserCommand) (domain.User, error) {
	if err := cmd.Validate(); err != nil {
		return domain.User{}, err
	}
	return s.users.CreateUser(ctx, cmd)
}

func (s *ChatService) SubscribeMessages(ctx context.Context, roomID string) (*fanout.Stream, error) {
	return s.endpoint.Subscribe(ctx, roomID)
}
