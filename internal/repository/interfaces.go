package repository

import (
	"context"

	"chatbridge/internal/domain/conversation"
	"chatbridge/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetAllUsers(ctx context.Context) ([]user.User, error)
	GetUserByID(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	UpdateSystemRole(ctx context.Context, id, systemRole string) error
}

type ConversationRepository interface {
	AppendTurn(ctx context.Context, t *conversation.Turn) error
	GetTurnsByUser(ctx context.Context, userID string) ([]conversation.Turn, error)
}
