package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
	"github.com/rl1809/storefront/pkg/metrics"
)

// memSessions is an in-process SessionRepository.
type memSessions struct {
	mu   sync.Mutex
	data map[string][]byte
	seq  int
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string][]byte)}
}

func (m *memSessions) Create(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("sess-%d", m.seq)
	m.data[id] = []byte("{}")
	return domain.NewSession(id), nil
}

func (m *memSessions) Load(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return domain.RestoreSession(id, data)
}

func (m *memSessions) Save(ctx context.Context, s *domain.Session) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = data
	return nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memSessions) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[id]
	return ok
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]domain.Product
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *fakeCatalog) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *fakeCatalog) ListProducts(ctx context.Context, f domain.ProductFilter) (domain.ProductPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []domain.Product
	for _, p := range c.products {
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		if f.InStockOnly && !p.InStock() {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := domain.ProductPage{Page: f.Page, PageSize: f.PageSize, Total: len(matched)}
	page.TotalPages = (len(matched) + f.PageSize - 1) / f.PageSize
	start := min(f.Offset(), len(matched))
	end := min(start+f.PageSize, len(matched))
	page.Products = matched[start:end]
	return page, nil
}

func (c *fakeCatalog) ListFeatured(ctx context.Context, limit int) ([]domain.Product, error) {
	return nil, nil
}

func (c *fakeCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Computers", Slug: "computers"}}, nil
}

func (c *fakeCatalog) setStock(id int64, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Stock = stock
	c.products[id] = p
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	err    error
}

func (o *fakeOrders) CreateOrder(ctx context.Context, order *domain.Order) error {
	if o.err != nil {
		return o.err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range order.Items {
		order.Items[i].ID = int64(i + 1)
	}
	o.orders[order.ID] = *order
	return nil
}

func (o *fakeOrders) GetOrder(ctx context.Context, id string, userID int64) (*domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[id]
	if !ok || order.UserID != userID {
		return nil, nil
	}
	return &order, nil
}

func (o *fakeOrders) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.orders)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func (u *fakeUsers) CreateUser(ctx context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if existing.Username == user.Username {
			return port.ErrDuplicateUser
		}
	}
	user.ID = int64(len(u.users) + 1)
	u.users[user.ID] = *user
	return nil
}

func (u *fakeUsers) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (u *fakeUsers) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, nil
}

const testPassword = "correct-horse"

type testEnv struct {
	catalog  *fakeCatalog
	orders   *fakeOrders
	users    *fakeUsers
	sessions *memSessions

	catalogSvc  *service.CatalogService
	cartSvc     *service.CartService
	checkoutSvc *service.CheckoutService
	accountSvc  *service.AccountService
	log         *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	env := &testEnv{
		catalog: &fakeCatalog{products: map[int64]domain.Product{
			1: {ID: 1, Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 5, IsVerified: true, CreatedAt: now},
			2: {ID: 2, Name: "Mouse", Price: decimal.RequireFromString("19.50"), Stock: 2, CreatedAt: now},
			3: {ID: 3, Name: "Cable", Price: decimal.RequireFromString("5.00"), Stock: 0, CreatedAt: now},
		}},
		orders:   &fakeOrders{orders: make(map[string]domain.Order)},
		users:    &fakeUsers{users: make(map[int64]domain.User)},
		sessions: newMemSessions(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	env.catalogSvc = service.NewCatalogService(env.catalog, 2)
	env.cartSvc = service.NewCartService(env.catalog, env.log)
	env.checkoutSvc = service.NewCheckoutService(env.cartSvc, env.orders, nil, env.log)
	env.accountSvc = service.NewAccountService(env.users)
	return env
}

func (e *testEnv) httpHandler() *HTTPHandler {
	return NewHTTPHandler(
		e.catalogSvc, e.cartSvc, e.checkoutSvc, e.accountSvc, e.sessions,
		metrics.NewServerMetrics(prometheus.NewRegistry()), e.log,
		HTTPConfig{SessionTTL: time.Hour, FeaturedLimit: 4},
	)
}

func (e *testEnv) grpcHandler() *GRPCHandler {
	return NewGRPCHandler(e.catalogSvc, e.cartSvc, e.checkoutSvc, e.accountSvc, e.sessions, e.log)
}

func (e *testEnv) registerUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user, err := e.accountSvc.Register(context.Background(), service.RegisterRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}
