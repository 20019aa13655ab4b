package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryStore implements all three repository interfaces in memory. It is an
// owned instance constructed at startup and injected into handlers, guarded
// by a single lock. Used for single-node mode and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    []domain.Room
	users    map[string]domain.User
	messages map[string][]domain.Message // room id -> chronological history
	lastTick time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		messages: make(map[string][]domain.Message),
	}
}

// NewSeededMemoryStore mirrors the default rows of the Postgres schema.
func NewSeededMemoryStore() *MemoryStore {
	store := NewMemoryStore()
	now := time.Now().UTC()
	general := "General discussion"
	random := "Random chat"
	store.rooms = []domain.Room{
		{ID: "550e8400-e29b-41d4-a716-446655440000", Name: "general", Description: &general, CreatedAt: now},
		{ID: "550e8400-e29b-41d4-a716-446655440001", Name: "random", Description: &random, CreatedAt: now},
	}
	admin := domain.User{
		ID:        "550e8400-e29b-41d4-a716-446655440010",
		Username:  "admin",
		Email:     "admin@example.com",
		CreatedAt: now,
	}
	store.users[admin.ID] = admin
	return store
}

func (s *MemoryStore) CreateMessage(_ context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomExistsLocked(cmd.RoomID) {
		return domain.Message{}, errors.New(errors.CodeNotFound, "room not found: "+cmd.RoomID)
	}
	user, ok := s.users[cmd.UserID]
	if !ok {
		return domain.Message{}, errors.New(errors.CodeNotFound, "user not found: "+cmd.UserID)
	}

	message := domain.Message{
		ID:        uuid.NewString(),
		RoomID:    cmd.RoomID,
		UserID:    cmd.UserID,
		Body:      cmd.Body,
		CreatedAt: s.nextTickLocked(),
		User:      &user,
	}
	s.messages[cmd.RoomID] = append(s.messages[cmd.RoomID], message)
	return message, nil
}

// nextTickLocked hands out strictly increasing timestamps so history order
// stays total even when the wall clock is coarse.
func (s *MemoryStore) nextTickLocked() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastTick) {
		now = s.lastTick.Add(time.Nanosecond)
	}
	s.lastTick = now
	return now
}

func (s *MemoryStore) GetMessages(_ context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	selected := lo.Filter(s.messages[cmd.RoomID], func(m domain.Message, _ int) bool {
		return cmd.Before == nil || m.CreatedAt.Before(*cmd.Before)
	})
	if cmd.Limit > 0 && len(selected) > cmd.Limit {
		selected = selected[len(selected)-cmd.Limit:]
	}
	return selected, nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, cmd domain.CreateRoomCommand) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := lo.ContainsBy(s.rooms, func(room domain.Room) bool { return room.Name == cmd.Name })
	if taken {
		return domain.Room{}, errors.New(errors.CodePersistence, "room name already taken: "+cmd.Name)
	}
	room := domain.Room{
		ID:          uuid.NewString(),
		Name:        cmd.Name,
		Description: cmd.Description,
		CreatedAt:   time.Now().UTC(),
	}
	s.rooms = append(s.rooms, room)
	return room, nil
}

func (s *MemoryStore) GetRooms(_ context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]domain.Room, len(s.rooms))
	copy(rooms, s.rooms)
	return rooms, nil
}

func (s *MemoryStore) RoomExists(_ context.Context, roomID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomExistsLocked(roomID), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, cmd domain.CreateUserCommand) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == cmd.Username || user.Email == cmd.Email {
			return domain.User{}, errors.New(errors.CodePersistence, "username or email already taken")
		}
	}
	user := domain.User{
		ID:        uuid.NewString(),
		Username:  cmd.Username,
		Email:     cmd.Email,
		Avatar:    cmd.Avatar,
		CreatedAt: time.Now().UTC(),
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *MemoryStore) GetUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := lo.Values(s.users)
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *MemoryStore) roomExistsLocked(roomID string) bool {
	return lo.ContainsBy(s.rooms, func(room domain.Room) bool { return room.ID == roomID })
}
