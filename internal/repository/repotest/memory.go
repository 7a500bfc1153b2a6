// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sync"
	"time"

	"chatbridge/internal/domain/conversation"
	"chatbridge/internal/domain/user"
	chatbridge_errors "chatbridge/pkg/errors"

	"github.com/google/uuid"
)

type UserRepository struct {
	mu    sync.Mutex
	users []user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return chatbridge_errors.ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users = append(r.users, *u)
	return nil
}

func (r *UserRepository) GetAllUsers(_ context.Context) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]user.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.ID == id })
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.Email == email })
}

func (r *UserRepository) UpdateSystemRole(_ context.Context, id, systemRole string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].SystemRole = systemRole
			r.users[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return chatbridge_errors.ErrNotFound
}

func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *UserRepository) find(match func(user.User) bool) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, chatbridge_errors.ErrNotFound
}

// ConversationRepository keeps turns in insertion order. FailAfter makes the
// nth and later AppendTurn calls fail, which lets tests exercise partial writes.
type ConversationRepository struct {
	mu        sync.Mutex
	turns     []conversation.Turn
	seq       int64
	FailAfter int
	FailErr   error
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{}
}

func (r *ConversationRepository) AppendTurn(_ context.Context, t *conversation.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAfter > 0 && int(r.seq)+1 >= r.FailAfter {
		return r.FailErr
	}
	if !t.Role.Valid() {
		return chatbridge_errors.ErrInvalidInput
	}
	r.seq++
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Seq = r.seq
	t.CreatedAt = time.Now().UTC()
	r.turns = append(r.turns, *t)
	return nil
}

func (r *ConversationRepository) GetTurnsByUser(_ context.Context, userID string) ([]conversation.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]conversation.Turn, 0)
	for _, t := range r.turns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}
