package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	minPasswordLength = 8
	// bcrypt.GenerateFromPassword rejects longer input.
	maxPasswordBytes  = 72
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

type AccountService struct {
	users    port.UserRepository
	hashCost int
}

type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

func NewAccountService(users port.UserRepository) *AccountService {
	return &AccountService{users: users, hashCost: bcrypt.DefaultCost}
}

func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	switch {
	case !usernamePattern.MatchString(username):
		return nil, fmt.Errorf("%w: username must be 1-150 letters, digits or @.+-_", ErrInvalidInput)
	case email != "" && !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	case len(req.Password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must contain at least %d characters", ErrInvalidInput, minPasswordLength)
	case len(req.Password) > maxPasswordBytes:
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	case isNumeric(req.Password):
		return nil, fmt.Errorf("%w: password cannot be entirely numeric", ErrInvalidInput)
	case req.Password != req.PasswordConfirm:
		return nil, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, port.ErrDuplicateUser) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CurrentUser resolves a session user ID. A user deleted since login reads
// as anonymous.
func (s *AccountService) CurrentUser(ctx context.Context, id int64) (*domain.User, error) {
	if id == 0 {
		return nil, nil
	}
	return s.users.GetUser(ctx, id)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
