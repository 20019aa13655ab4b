package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"database/sql"
	"log/slog"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, cmd domain.CreateUserCommand) (domain.User, error)
	GetUsers(ctx context.Context) ([]domain.User, error)
}

type UserRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return UserRepository{db: db, log: log}
}

func (r UserRepository) CreateUser(ctx context.Context, cmd domain.CreateUserCommand) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, avatar)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		cmd.Username, cmd.Email, cmd.Avatar,
	)
	user := domain.User{Username: cmd.Username, Email: cmd.Email, Avatar: cmd.Avatar}
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return domain.User{}, errors.Wrap(errors.CodePersistence, "user insert failed", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (r UserRepository) GetUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, email, avatar, created_at
		FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, errors.Wrap(errors.CodePersistence, "user query failed", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Avatar, &user.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.CodePersistence, "user scan failed", err)
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}
