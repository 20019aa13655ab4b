// Package repositories contains the storage collaborators of the chat core:
// a Postgres implementation for real deployments and an in-memory one owned
// by the process (no globals) for single-node mode and tests.
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type IMessageRepository interface {
	// CreateMessage persists the message and returns it fully populated
	// (generated id, creation timestamp, embedded author) with
	// read-your-writes consistency for the publish step that follows.
	CreateMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	// GetMessages returns up to cmd.Limit messages of a room older than
	// cmd.Before (all if nil), in chronological order.
	GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewMessageRepository(db *sql.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

func (r MessageRepository) CreateMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (room_id, user_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		cmd.RoomID, cmd.UserID, cmd.Body,
	)
	var id string
	var createdAt time.Time
	if err := row.Scan(&id, &createdAt); err != nil {
		return domain.Message{}, errors.Wrap(errors.CodePersistence, "message insert failed", err)
	}

	message := domain.Message{
		ID:        id,
		RoomID:    cmd.RoomID,
		UserID:    cmd.UserID,
		Body:      cmd.Body,
		CreatedAt: createdAt.UTC(),
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, username, email, avatar, created_at
		FROM users WHERE id = $1`, cmd.UserID))
	if err == nil {
		message.User = &user
	} else if !errors.Is(err, sql.ErrNoRows) {
		r.log.Warn("Author lookup failed, message returned without user", "user_id", cmd.UserID, "error", err)
	}
	return message, nil
}

func (r MessageRepository) GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.room_id, m.user_id, m.body, m.created_at,
		       u.id, u.username, u.email, u.avatar, u.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.room_id = $1`
	args := []any{cmd.RoomID}
	if cmd.Before != nil {
		query += ` AND m.created_at < $2`
		args = append(args, *cmd.Before)
	}
	query += fmt.Sprintf(` ORDER BY m.created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, cmd.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.CodePersistence, "message query failed", err)
	}
	defer rows.Close()

	var newestFirst []domain.Message
	for rows.Next() {
		var m domain.Message
		var u domain.User
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Body, &m.CreatedAt,
			&u.ID, &u.Username, &u.Email, &u.Avatar, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.CodePersistence, "message scan failed", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		m.User = &u
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodePersistence, "message iteration failed", err)
	}

	// The query pages newest-first; callers expect chronological order.
	chronological := make([]domain.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		chronological = append(chronological, newestFirst[i])
	}
	return chronological, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.CreatedAt)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, err
}
