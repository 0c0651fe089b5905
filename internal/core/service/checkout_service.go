package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// currencyPlaces is the precision of stored prices. Rounding is half away
// from zero (decimal.Round), which is half-up for the positive amounts
// handled here.
const currencyPlaces = 2

const notifyTimeout = 5 * time.Second

type CheckoutService struct {
	carts    *CartService
	orders   port.OrderRepository
	notifier port.Notifier
	log      *slog.Logger
	now      func() time.Time
}

type CheckoutRequest struct {
	User            *domain.User
	Cart            domain.Cart
	ShippingAddress string
	BillingAddress  string
}

// CheckoutResult carries the created order and any reconciliation warnings.
// On ErrEmptyCart the warnings explain why nothing was left.
type CheckoutResult struct {
	Order    *domain.Order
	Warnings []string
}

func NewCheckoutService(carts *CartService, orders port.OrderRepository, notifier port.Notifier, log *slog.Logger) *CheckoutService {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Checkout turns the cart into a confirmed order. The cart is cleared only
// when the order was persisted; every failure leaves it in its reconciled
// state.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if req.User == nil {
		return CheckoutResult{}, ErrUnauthenticated
	}

	res, products, err := s.carts.reconcile(ctx, req.Cart)
	if err != nil {
		return CheckoutResult{}, err
	}

	result := CheckoutResult{Warnings: res.Warnings()}

	lines := res.Surviving()
	if len(lines) == 0 {
		return result, ErrEmptyCart
	}

	now := s.now()
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          req.User.ID,
		Status:          domain.OrderStatusConfirmed,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		BillingAddress:  strings.TrimSpace(req.BillingAddress),
		Items:           make([]domain.OrderItem, 0, len(lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	total := decimal.Zero
	for _, ln := range lines {
		p := products[ln.ProductID]
		qty := decimal.NewFromInt(int64(ln.Quantity))
		lineTotal := p.Price.Mul(qty)
		total = total.Add(lineTotal)

		order.Items = append(order.Items, domain.OrderItem{
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    ln.Quantity,
			Price:       lineTotal.Div(qty).Round(currencyPlaces),
		})
	}
	order.TotalPrice = total.Round(currencyPlaces)

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, port.ErrStockConflict) {
			return result, fmt.Errorf("create order: %w", ErrOutOfStock)
		}
		return result, fmt.Errorf("create order: %w", err)
	}

	req.Cart.Clear()
	result.Order = order

	s.log.Info("order placed",
		slog.String("order_id", order.ID),
		slog.Int64("user_id", order.UserID),
		slog.Int("items", len(order.Items)),
		slog.String("total", order.TotalPrice.StringFixed(currencyPlaces)))

	s.notify(ctx, req.User, order)
	return result, nil
}

// GetOrder returns the order only to the user who placed it.
func (s *CheckoutService) GetOrder(ctx context.Context, user *domain.User, orderID string) (*domain.Order, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrOrderNotFound
	}

	order, err := s.orders.GetOrder(ctx, orderID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutService) notify(ctx context.Context, user *domain.User, order *domain.Order) {
	if s.notifier == nil {
		return
	}

	recipient := user.Email
	if recipient == "" {
		recipient = user.Username
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err := s.notifier.Send(ctx, domain.Notification{
		Subject:   fmt.Sprintf("Order %s confirmed", order.ID),
		Body:      confirmationBody(order),
		Recipient: recipient,
	})
	if err != nil {
		s.log.Warn("order confirmation not sent",
			slog.String("order_id", order.ID),
			slog.Any("err", err))
	}
}

func confirmationBody(order *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", order.ID)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "%d x %s @ %s\n", it.Quantity, it.ProductName, it.Price.StringFixed(currencyPlaces))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", order.TotalPrice.StringFixed(currencyPlaces))
	return b.String()
}
