package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"database/sql"
	"log/slog"
)

type IRoomRepository interface {
	CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error)
	GetRooms(ctx context.Context) ([]domain.Room, error)
	RoomExists(ctx context.Context, roomID string) (bool, error)
}

type RoomRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRoomRepository(db *sql.DB, log *slog.Logger) RoomRepository {
	return RoomRepository{db: db, log: log}
}

func (r RoomRepository) CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO rooms (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		cmd.Name, cmd.Description,
	)
	room := domain.Room{Name: cmd.Name, Description: cmd.Description}
	if err := row.Scan(&room.ID, &room.CreatedAt); err != nil {
		return domain.Room{}, errors.Wrap(errors.CodePersistence, "room insert failed", err)
	}
	room.CreatedAt = room.CreatedAt.UTC()
	return room, nil
}

func (r RoomRepository) GetRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM rooms ORDER BY created_at ASC`)
	if err != nil {
		return nil, errors.Wrap(errors.CodePersistence, "room query failed", err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Description, &room.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.CodePersistence, "room scan failed", err)
		}
		room.CreatedAt = room.CreatedAt.UTC()
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r RoomRepository) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(errors.CodePersistence, "room lookup failed", err)
	}
	return exists, nil
}
