package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type testEnv struct {
	redis    *redis.Client
	mysql    *sql.DB
	sessions *storage.RedisAdapter
	cleanup  func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/storefront?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := storage.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &testEnv{
		redis:    rdb,
		mysql:    db,
		sessions: storage.NewRedisAdapter(rdb, time.Minute),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func (e *testEnv) seedProduct(t *testing.T, slug, price string, stock int) int64 {
	t.Helper()
	ctx := context.Background()

	e.mysql.ExecContext(ctx, `DELETE FROM products WHERE slug = ?`, slug)
	res, err := e.mysql.ExecContext(ctx, `
		INSERT INTO products (name, slug, price, description, stock)
		VALUES (?, ?, ?, '', ?)`, slug, slug, price, stock)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func (e *testEnv) seedUser(t *testing.T, username string) *domain.User {
	t.Helper()
	ctx := context.Background()

	e.mysql.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	u := &domain.User{Username: username, PasswordHash: "x", CreatedAt: time.Now()}
	if err := storage.NewMySQLAdapter(e.mysql).CreateUser(ctx, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIntegration_SessionCartCheckout(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	db := storage.NewMySQLAdapter(env.mysql)
	carts := service.NewCartService(db, discard())
	checkout := service.NewCheckoutService(carts, db, nil, discard())

	pid := env.seedProduct(t, "integration-alpha", "10.00", 5)
	user := env.seedUser(t, "integration-alice")

	// Cart lives in the Redis session between requests
	sess, err := env.sessions.Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer env.sessions.Delete(ctx, sess.ID)

	cart := sess.Cart()
	if _, err := carts.Add(ctx, cart, pid, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	sess.SetCart(cart)
	if err := env.sessions.Save(ctx, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := env.sessions.Load(ctx, sess.ID)
	if err != nil || loaded == nil {
		t.Fatalf("load session: %v", err)
	}
	cart = loaded.Cart()

	res, err := checkout.Checkout(ctx, service.CheckoutRequest{User: user, Cart: cart})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(cart) != 0 {
		t.Errorf("expected cart cleared, got %v", cart)
	}

	order, err := db.GetOrder(ctx, res.Order.ID, user.ID)
	if err != nil || order == nil {
		t.Fatalf("get order: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected total 30, got %s", order.TotalPrice)
	}

	// Stock is untouched unless decrement is enabled
	var stock int
	env.mysql.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, pid).Scan(&stock)
	if stock != 5 {
		t.Errorf("expected stock 5, got %d", stock)
	}

	other, err := db.GetOrder(ctx, res.Order.ID, user.ID+1)
	if err != nil || other != nil {
		t.Errorf("expected order hidden from other users, got %+v %v", other, err)
	}
}

func TestIntegration_ConcurrentCheckoutWithDecrement(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	db := storage.NewMySQLAdapter(env.mysql, storage.WithStockDecrement(true))
	carts := service.NewCartService(db, discard())
	checkout := service.NewCheckoutService(carts, db, nil, discard())

	initialStock := 10
	pid := env.seedProduct(t, "integration-contended", "1.00", initialStock)
	user := env.seedUser(t, "integration-bob")

	var (
		wg         sync.WaitGroup
		succeeded  atomic.Int32
		outOfStock atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := checkout.Checkout(ctx, service.CheckoutRequest{User: user, Cart: domain.Cart{pid: 1}})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, service.ErrOutOfStock), errors.Is(err, service.ErrEmptyCart):
				outOfStock.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != int32(initialStock) {
		t.Errorf("expected %d successful checkouts, got %d", initialStock, succeeded.Load())
	}

	var stock int
	env.mysql.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, pid).Scan(&stock)
	if stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}

	var orders int
	env.mysql.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM order_items WHERE product_id = ?`, pid).Scan(&orders)
	if orders != initialStock {
		t.Errorf("expected %d order items, got %d", initialStock, orders)
	}
	t.Logf("%d checkouts rejected", outOfStock.Load())
}
