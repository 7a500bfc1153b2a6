package services

import (
	"context"

	"chatbridge/internal/domain/user"
	"chatbridge/internal/repository"
)

type UserService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// List returns every registered user. Callers must strip the password hash
// before exposing the result.
func (s *UserService) List(ctx context.Context) ([]user.User, error) {
	return s.repo.GetAllUsers(ctx)
}
