package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatbridge/internal/domain/user"
	"chatbridge/internal/repository"
	chatbridge_errors "chatbridge/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL = time.Hour
	passwordCost   = 10
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
	now       func() time.Time
}

type AuthOption func(*AuthService)

// WithClock replaces time.Now for token issuing and verification.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTokenTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token   string
	Message string
	UserID  string
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return AuthResult{}, chatbridge_errors.ErrInvalidInput
	}

	if _, err := s.userRepo.GetUserByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, chatbridge_errors.ErrAlreadyExists
	} else if !errors.Is(err, chatbridge_errors.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	newUser := &user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	// the unique index still catches a concurrent registration with the same email
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return AuthResult{}, err
	}

	token, err := s.newAccessToken(newUser.ID)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, Message: "User registered successfully", UserID: newUser.ID}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" {
		return AuthResult{}, chatbridge_errors.ErrInvalidInput
	}

	u, err := s.userRepo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, chatbridge_errors.ErrNotFound) {
			return AuthResult{}, chatbridge_errors.ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup user by email: %w", err)
	}

	if err := comparePassword(u.PasswordHash, in.Password); err != nil {
		return AuthResult{}, chatbridge_errors.ErrInvalidCredentials
	}

	token, err := s.newAccessToken(u.ID)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, Message: "Login successful", UserID: u.ID}, nil
}

// ParseAccessToken returns ErrUnauthorized for an absent token and ErrForbidden
// for one that is malformed, badly signed or expired.
func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, chatbridge_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, chatbridge_errors.ErrForbidden
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return AccessClaims{}, chatbridge_errors.ErrForbidden
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return AccessClaims{}, chatbridge_errors.ErrForbidden
	}

	return *claims, nil
}

func (s *AuthService) newAccessToken(userID string) (string, error) {
	now := s.now()

	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func comparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
