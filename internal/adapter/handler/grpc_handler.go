package handler

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

// GRPCHandler serves the storefront over gRPC. Callers carry their session
// ID in each request instead of a cookie.
type GRPCHandler struct {
	catalog  *service.CatalogService
	carts    *service.CartService
	checkout *service.CheckoutService
	accounts *service.AccountService
	sessions port.SessionRepository
	log      *slog.Logger
}

var _ StorefrontServer = (*GRPCHandler)(nil)

func NewGRPCHandler(
	catalog *service.CatalogService,
	carts *service.CartService,
	checkout *service.CheckoutService,
	accounts *service.AccountService,
	sessions port.SessionRepository,
	log *slog.Logger,
) *GRPCHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GRPCHandler{
		catalog:  catalog,
		carts:    carts,
		checkout: checkout,
		accounts: accounts,
		sessions: sessions,
		log:      log,
	}
}

func (h *GRPCHandler) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	page, err := h.catalog.ListProducts(ctx, domain.ProductFilter{
		Query:        req.Query,
		CategorySlug: req.Category,
		InStockOnly:  req.InStockOnly,
		Page:         req.Page,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "ListProducts", err)
	}
	return &ListProductsResponse{
		Products:   toProductResponses(page.Products),
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	}, nil
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *GetProductRequest) (*productResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	p, err := h.catalog.GetProduct(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(ctx, "GetProduct", err)
	}
	out := toProductResponse(*p)
	return &out, nil
}

func (h *GRPCHandler) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := h.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, h.toStatus(ctx, "Login", err)
	}

	sess, err := h.session(ctx, req.SessionID)
	if err != nil {
		return nil, h.toStatus(ctx, "Login", err)
	}
	if !sess.IsNew {
		fresh, err := h.sessions.Create(ctx)
		if err != nil {
			return nil, h.toStatus(ctx, "Login", err)
		}
		old := sess.ID
		sess.Rekey(fresh.ID)
		if err := h.sessions.Delete(ctx, old); err != nil {
			h.log.WarnContext(ctx, "old session not deleted", slog.Any("err", err))
		}
	}
	sess.SetUserID(user.ID)

	if err := h.sessions.Save(ctx, sess); err != nil {
		return nil, h.toStatus(ctx, "Login", err)
	}
	return &LoginResponse{SessionID: sess.ID, UserID: user.ID}, nil
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *AddToCartRequest) (*CartResponse, error) {
	if req.ProductID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id is required")
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}

	sess, err := h.session(ctx, req.SessionID)
	if err != nil {
		return nil, h.toStatus(ctx, "AddToCart", err)
	}

	cart := sess.Cart()
	out, err := h.carts.Add(ctx, cart, req.ProductID, qty)
	if err != nil {
		// A dropped entry stays dropped even though the call fails.
		if out.State == domain.EntryDropped {
			sess.SetCart(cart)
			if serr := h.save(ctx, sess); serr != nil {
				h.log.ErrorContext(ctx, "session not saved", slog.Any("err", serr))
			}
		}
		return nil, h.toStatus(ctx, "AddToCart", err)
	}
	sess.SetCart(cart)

	var warnings []string
	if w := out.Warning(); w != "" {
		warnings = append(warnings, w)
	}
	return h.cartReply(ctx, "AddToCart", sess, warnings)
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *GetCartRequest) (*CartResponse, error) {
	sess, err := h.session(ctx, req.SessionID)
	if err != nil {
		return nil, h.toStatus(ctx, "GetCart", err)
	}
	return h.cartReply(ctx, "GetCart", sess, nil)
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.Unauthenticated, "login required")
	}
	sess, err := h.sessions.Load(ctx, req.SessionID)
	if err != nil {
		return nil, h.toStatus(ctx, "Checkout", err)
	}
	if sess == nil {
		return nil, status.Error(codes.Unauthenticated, "login required")
	}

	var user *domain.User
	if id, ok := sess.UserID(); ok {
		if user, err = h.accounts.CurrentUser(ctx, id); err != nil {
			return nil, h.toStatus(ctx, "Checkout", err)
		}
	}
	if user == nil {
		return nil, status.Error(codes.Unauthenticated, "login required")
	}

	cart := sess.Cart()
	res, err := h.checkout.Checkout(ctx, service.CheckoutRequest{
		User:            user,
		Cart:            cart,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
	})
	sess.SetCart(cart)
	if serr := h.save(ctx, sess); serr != nil {
		h.log.ErrorContext(ctx, "session not saved after checkout", slog.Any("err", serr))
	}
	if err != nil {
		return nil, h.toStatus(ctx, "Checkout", err)
	}

	return &CheckoutResponse{
		OrderID:    res.Order.ID,
		TotalPrice: money(res.Order.TotalPrice),
		Items:      res.Order.ItemsCount(),
		Warnings:   res.Warnings,
	}, nil
}

// session loads id, or starts a fresh session when id is empty or expired.
func (h *GRPCHandler) session(ctx context.Context, id string) (*domain.Session, error) {
	if id != "" {
		sess, err := h.sessions.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}
	return h.sessions.Create(ctx)
}

func (h *GRPCHandler) save(ctx context.Context, sess *domain.Session) error {
	if !sess.IsNew && !sess.Modified() {
		return nil
	}
	return h.sessions.Save(ctx, sess)
}

// cartReply reconciles the session cart, persists it and renders the reply.
func (h *GRPCHandler) cartReply(ctx context.Context, method string, sess *domain.Session, warnings []string) (*CartResponse, error) {
	cart := sess.Cart()
	view, err := h.carts.View(ctx, cart)
	if err != nil {
		return nil, h.toStatus(ctx, method, err)
	}
	if view.Reconcile.Changed {
		sess.SetCart(cart)
		warnings = append(warnings, view.Reconcile.Warnings()...)
	}
	if err := h.save(ctx, sess); err != nil {
		return nil, h.toStatus(ctx, method, err)
	}

	body := toCartResponse(view, nil)
	return &CartResponse{
		SessionID:  sess.ID,
		Items:      body.Items,
		TotalPrice: body.TotalPrice,
		CartCount:  body.CartCount,
		CartItems:  body.CartItems,
		Warnings:   warnings,
	}, nil
}

func (h *GRPCHandler) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrNotInCart):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrEmptyCart):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	h.log.ErrorContext(ctx, "grpc call failed", slog.String("method", method), slog.Any("err", err))
	return status.Error(codes.Internal, "internal error")
}
