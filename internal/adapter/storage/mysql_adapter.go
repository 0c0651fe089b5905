package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// MySQLAdapter implements the catalog, order and user repositories on a
// single *sql.DB.
type MySQLAdapter struct {
	db             *sql.DB
	decrementStock bool
}

type Option func(*MySQLAdapter)

// WithStockDecrement makes CreateOrder take the ordered units out of
// products.stock inside the order transaction. A product that no longer has
// enough units fails the whole order with port.ErrStockConflict.
func WithStockDecrement(enabled bool) Option {
	return func(m *MySQLAdapter) { m.decrementStock = enabled }
}

func NewMySQLAdapter(db *sql.DB, opts ...Option) *MySQLAdapter {
	m := &MySQLAdapter{db: db}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var (
	_ port.CatalogRepository = (*MySQLAdapter)(nil)
	_ port.OrderRepository   = (*MySQLAdapter)(nil)
	_ port.UserRepository    = (*MySQLAdapter)(nil)
)

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_price, status, shipping_address, billing_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.TotalPrice, order.Status,
		order.ShippingAddress, order.BillingAddress, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		result, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
			VALUES (?, ?, ?, ?, ?)`,
			item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", item.ProductID, err)
		}
		if item.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("order item id: %w", err)
		}

		if !m.decrementStock {
			continue
		}

		result, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - ?
			WHERE id = ? AND stock >= ?`,
			item.Quantity, item.ProductID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement stock %d: %w", item.ProductID, err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("product %d: %w", item.ProductID, port.ErrStockConflict)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string, userID int64) (*domain.Order, error) {
	var order domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_price, status, shipping_address, billing_address, created_at, updated_at
		FROM orders WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&order.ID, &order.UserID, &order.TotalPrice, &order.Status,
		&order.ShippingAddress, &order.BillingAddress, &order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &order, nil
}
