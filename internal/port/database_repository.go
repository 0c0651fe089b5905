package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Not-found lookups return (nil, nil); callers decide what absence means.

type CatalogRepository interface {
	// GetProduct retrieves a product by ID
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// GetProducts retrieves the products that still exist among ids, keyed by ID
	GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error)

	// ListProducts returns one page of products matching filter, newest first
	ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error)

	// ListFeatured returns up to limit featured products
	ListFeatured(ctx context.Context, limit int) ([]domain.Product, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type OrderRepository interface {
	// CreateOrder persists the order and all of its items in one transaction
	// and fills in generated item IDs and timestamps
	CreateOrder(ctx context.Context, order *domain.Order) error

	// GetOrder retrieves an order with its items, only if owned by userID
	GetOrder(ctx context.Context, id string, userID int64) (*domain.Order, error)
}

type UserRepository interface {
	// CreateUser inserts the user and sets its ID; returns ErrDuplicateUser on a taken username
	CreateUser(ctx context.Context, user *domain.User) error

	GetUser(ctx context.Context, id int64) (*domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
