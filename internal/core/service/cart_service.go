package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// CartService applies cart mutations against live catalog stock. The cart
// itself is owned by the caller's session; every method mutates the map it
// is given and leaves persisting it to the caller.
type CartService struct {
	catalog port.CatalogRepository
	log     *slog.Logger
}

type CartLine struct {
	Product  domain.Product
	Quantity int
	Subtotal decimal.Decimal
}

type CartView struct {
	Lines     []CartLine
	Total     decimal.Decimal
	Count     int
	Items     int
	Reconcile domain.ReconcileResult
}

func NewCartService(catalog port.CatalogRepository, log *slog.Logger) *CartService {
	if log == nil {
		log = slog.Default()
	}
	return &CartService{catalog: catalog, log: log}
}

// Add increases the quantity of productID by quantity. A result above stock
// is clamped and reported as EntryClamped; a product with no stock at all is
// rejected with ErrOutOfStock.
func (s *CartService) Add(ctx context.Context, cart domain.Cart, productID int64, quantity int) (domain.EntryOutcome, error) {
	if quantity < 1 {
		return domain.EntryOutcome{}, ErrInvalidQuantity
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.EntryOutcome{}, fmt.Errorf("get product %d: %w", productID, err)
	}

	// Saturate so a huge quantity clamps instead of wrapping negative.
	requested := math.MaxInt
	if quantity <= math.MaxInt-cart[productID] {
		requested = cart[productID] + quantity
	}

	out := domain.Assess(productID, requested, p)
	switch out.State {
	case domain.EntryDropped:
		delete(cart, productID)
		if out.Reason == domain.DropProductMissing {
			return out, ErrProductNotFound
		}
		return out, ErrOutOfStock
	case domain.EntryClamped:
		s.log.Warn("cart add clamped to stock",
			slog.Int64("product_id", productID),
			slog.Int("requested", out.Requested),
			slog.Int("stock", out.Quantity))
	}

	cart[productID] = out.Quantity
	return out, nil
}

// Update sets the quantity of productID directly. A quantity of zero or less
// removes the entry.
func (s *CartService) Update(ctx context.Context, cart domain.Cart, productID int64, quantity int) (domain.EntryOutcome, error) {
	if quantity <= 0 {
		if err := s.Remove(cart, productID); err != nil {
			return domain.EntryOutcome{}, err
		}
		return domain.EntryOutcome{
			ProductID: productID,
			Requested: quantity,
			State:     domain.EntryDropped,
			Reason:    domain.DropRemoved,
		}, nil
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.EntryOutcome{}, fmt.Errorf("get product %d: %w", productID, err)
	}

	out := domain.Assess(productID, quantity, p)
	switch out.State {
	case domain.EntryDropped:
		delete(cart, productID)
		if out.Reason == domain.DropProductMissing {
			return out, ErrProductNotFound
		}
		return out, nil
	case domain.EntryClamped:
		s.log.Warn("cart update clamped to stock",
			slog.Int64("product_id", productID),
			slog.Int("requested", out.Requested),
			slog.Int("stock", out.Quantity))
	}

	cart[productID] = out.Quantity
	return out, nil
}

// Remove deletes productID from the cart. A missing entry yields
// ErrNotInCart, which callers report rather than fail on.
func (s *CartService) Remove(cart domain.Cart, productID int64) error {
	if _, ok := cart[productID]; !ok {
		return ErrNotInCart
	}
	delete(cart, productID)
	return nil
}

func (s *CartService) Clear(cart domain.Cart) {
	cart.Clear()
}

// Reconcile revalidates every entry against current catalog state. It must
// run before any read of the cart since stock can change between requests.
func (s *CartService) Reconcile(ctx context.Context, cart domain.Cart) (domain.ReconcileResult, error) {
	res, _, err := s.reconcile(ctx, cart)
	return res, err
}

// View reconciles the cart and prices each surviving line.
func (s *CartService) View(ctx context.Context, cart domain.Cart) (CartView, error) {
	res, products, err := s.reconcile(ctx, cart)
	if err != nil {
		return CartView{}, err
	}

	view := CartView{Total: decimal.Zero, Reconcile: res}
	for _, o := range res.Surviving() {
		p := products[o.ProductID]
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
		view.Lines = append(view.Lines, CartLine{Product: p, Quantity: o.Quantity, Subtotal: subtotal})
		view.Total = view.Total.Add(subtotal)
	}
	view.Count = cart.Count()
	view.Items = len(cart)
	return view, nil
}

func (s *CartService) reconcile(ctx context.Context, cart domain.Cart) (domain.ReconcileResult, map[int64]domain.Product, error) {
	if len(cart) == 0 {
		return domain.ReconcileResult{}, nil, nil
	}

	products, err := s.catalog.GetProducts(ctx, cart.ProductIDs())
	if err != nil {
		return domain.ReconcileResult{}, nil, fmt.Errorf("load cart products: %w", err)
	}

	res := cart.Reconcile(products)
	for _, o := range res.Outcomes {
		if o.Adjusted() {
			s.log.Warn("cart entry adjusted",
				slog.Int64("product_id", o.ProductID),
				slog.String("state", string(o.State)),
				slog.String("reason", string(o.Reason)),
				slog.Int("requested", o.Requested),
				slog.Int("quantity", o.Quantity))
		}
	}
	return res, products, nil
}
