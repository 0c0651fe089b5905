package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/pkg/config"
)

const (
	initialStock  = 20
	totalRequests = 50
	concurrency   = 25
)

// Every user checks out a cart holding one unit of the same product. With
// -decrement the guarded UPDATE allows exactly initialStock orders; without
// it every checkout that reconciled before stock ran out succeeds.
func main() {
	decrement := flag.Bool("decrement", true, "decrement stock inside the order transaction")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(concurrency * 2)

	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	run := uuid.NewString()[:8]
	res, err := db.ExecContext(ctx,
		`INSERT INTO products (name, slug, price, description, stock) VALUES (?, ?, ?, '', ?)`,
		"Stress item "+run, "stress-"+run, "9.99", initialStock)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}
	productID, _ := res.LastInsertId()

	adapter := storage.NewMySQLAdapter(db, storage.WithStockDecrement(*decrement))
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	carts := service.NewCartService(adapter, quiet)
	checkout := service.NewCheckoutService(carts, adapter, nil, quiet)

	users := make([]*domain.User, totalRequests)
	for i := range users {
		u := &domain.User{Username: fmt.Sprintf("stress-%s-%d", run, i), PasswordHash: "-"}
		if err := adapter.CreateUser(ctx, u); err != nil {
			log.Fatalf("failed to seed user: %v", err)
		}
		users[i] = u
	}

	var success, soldOut, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	start := time.Now()

	for _, u := range users {
		g.Go(func() error {
			_, err := checkout.Checkout(gctx, service.CheckoutRequest{
				User: u,
				Cart: domain.Cart{productID: 1},
			})
			switch {
			case err == nil:
				success.Add(1)
			case errors.Is(err, service.ErrOutOfStock), errors.Is(err, service.ErrEmptyCart):
				soldOut.Add(1)
			default:
				failed.Add(1)
				log.Printf("checkout failed: %v", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	var finalStock int
	if err := db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&finalStock); err != nil {
		log.Fatalf("failed to read stock: %v", err)
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Stock decrement:  %v\n", *decrement)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success.Load())
	fmt.Printf("Sold out:         %d\n", soldOut.Load())
	fmt.Printf("Errors:           %d\n", failed.Load())
	fmt.Printf("Final Stock:      %d\n", finalStock)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if !*decrement {
		fmt.Printf("INFO: stock untouched (%d); %d orders accepted against %d units\n",
			finalStock, success.Load(), initialStock)
		return
	}
	if success.Load() == initialStock && finalStock == 0 {
		fmt.Printf("PASS: exactly %d orders succeeded, stock depleted to 0\n", initialStock)
	} else {
		fmt.Printf("FAIL: expected %d orders and stock 0, got %d orders and stock %d\n",
			initialStock, success.Load(), finalStock)
	}
}
