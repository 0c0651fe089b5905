package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type SessionRepository interface {
	// Create allocates a fresh, empty session with a unique ID
	Create(ctx context.Context) (*domain.Session, error)

	// Load returns the stored session or nil if it expired or never existed
	Load(ctx context.Context, id string) (*domain.Session, error)

	// Save persists the session and refreshes its expiry
	Save(ctx context.Context, session *domain.Session) error

	Delete(ctx context.Context, id string) error
}
