package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Mock CatalogRepository
type mockCatalogRepo struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	err      error
	lookups  int
}

func newMockCatalogRepo(products ...domain.Product) *mockCatalogRepo {
	m := &mockCatalogRepo{products: make(map[int64]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalogRepo) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++

	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockCatalogRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++

	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return domain.ProductPage{}, m.err
	}
	page := domain.ProductPage{Page: filter.Page, PageSize: filter.PageSize}
	for _, p := range m.products {
		page.Products = append(page.Products, p)
	}
	page.Total = len(page.Products)
	page.TotalPages = 1
	return page, nil
}

func (m *mockCatalogRepo) ListFeatured(ctx context.Context, limit int) ([]domain.Product, error) {
	return nil, m.err
}

func (m *mockCatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return nil, m.err
}

func (m *mockCatalogRepo) setStock(id int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Stock = stock
	m.products[id] = p
}

func (m *mockCatalogRepo) remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	err    error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	for i := range order.Items {
		order.Items[i].ID = int64(i + 1)
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, id string, userID int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	return o, nil
}

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock Notifier
type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) Send(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

// Mock UserRepository
type mockUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return port.ErrDuplicateUser
		}
	}
	m.nextID++
	user.ID = m.nextID
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}
