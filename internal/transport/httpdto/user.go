package httpdto

import (
	"time"

	"chatbridge/internal/domain/user"
)

// UserDTO is the public view of a user; the password hash never leaves the server.
type UserDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	SystemRole string    `json:"systemRole,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ToUserDTO(u user.User) UserDTO {
	return UserDTO{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		SystemRole: u.SystemRole,
		CreatedAt:  u.CreatedAt,
	}
}

func ToUserDTOs(users []user.User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserDTO(u))
	}
	return out
}
