package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type homeResponse struct {
	Featured   []productResponse  `json:"featured"`
	Categories []categoryResponse `json:"categories"`
	User       *userResponse      `json:"user,omitempty"`
	CartCount  int                `json:"cart_count"`
	CartItems  int                `json:"cart_items"`
	Messages   []domain.Message   `json:"messages,omitempty"`
}

type productListResponse struct {
	Products   []productResponse  `json:"products"`
	Categories []categoryResponse `json:"categories"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	Total      int                `json:"total"`
	HasNext    bool               `json:"has_next"`
	CartCount  int                `json:"cart_count"`
	CartItems  int                `json:"cart_items"`
	Messages   []domain.Message   `json:"messages,omitempty"`
}

type productDetailResponse struct {
	Product   productResponse  `json:"product"`
	InCart    int              `json:"in_cart"`
	CartCount int              `json:"cart_count"`
	CartItems int              `json:"cart_items"`
	Messages  []domain.Message `json:"messages,omitempty"`
}

func (h *HTTPHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)

	featured, err := h.catalog.Featured(ctx, h.featuredLimit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	view, msgs, err := h.cartState(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	user, err := h.currentUser(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.respond(w, r, sess, http.StatusOK, homeResponse{
		Featured:   toProductResponses(featured),
		Categories: toCategoryResponses(categories),
		User:       toUserResponse(user),
		CartCount:  view.Count,
		CartItems:  view.Items,
		Messages:   msgs,
	})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	filter := domain.ProductFilter{
		Query:        q.Get("q"),
		CategorySlug: q.Get("category"),
		VerifiedOnly: q.Get("verified") == "true",
		InStockOnly:  q.Get("in_stock") == "true",
		Page:         page,
	}

	result, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	view, msgs, err := h.cartState(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.respond(w, r, sess, http.StatusOK, productListResponse{
		Products:   toProductResponses(result.Products),
		Categories: toCategoryResponses(categories),
		Page:       result.Page,
		TotalPages: result.TotalPages,
		Total:      result.Total,
		HasNext:    result.HasNext(),
		CartCount:  view.Count,
		CartItems:  view.Items,
		Messages:   msgs,
	})
}

func (h *HTTPHandler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id, ok := pathID(r)
	if !ok {
		h.respond(w, r, sess, http.StatusNotFound, statusResponse{Status: statusError, Message: "Product not found"})
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), id)
	if errors.Is(err, service.ErrProductNotFound) {
		h.respond(w, r, sess, http.StatusNotFound, statusResponse{Status: statusError, Message: "Product not found"})
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	view, msgs, err := h.cartState(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	inCart := 0
	for _, ln := range view.Lines {
		if ln.Product.ID == id {
			inCart = ln.Quantity
		}
	}

	h.respond(w, r, sess, http.StatusOK, productDetailResponse{
		Product:   toProductResponse(*p),
		InCart:    inCart,
		CartCount: view.Count,
		CartItems: view.Items,
		Messages:  msgs,
	})
}

// cartState reconciles the session cart and drains pending messages.
// Reconciliation warnings are returned with the messages since the caller
// is about to show them.
func (h *HTTPHandler) cartState(r *http.Request, sess *domain.Session) (service.CartView, []domain.Message, error) {
	cart := sess.Cart()
	view, err := h.carts.View(r.Context(), cart)
	if err != nil {
		return service.CartView{}, nil, err
	}

	msgs := sess.PopMessages()
	if view.Reconcile.Changed {
		sess.SetCart(cart)
		for _, o := range view.Reconcile.Outcomes {
			if o.Adjusted() {
				h.metrics.CartAdjustments.WithLabelValues(string(o.State)).Inc()
			}
		}
		for _, warn := range view.Reconcile.Warnings() {
			msgs = append(msgs, domain.Message{Level: domain.MessageWarning, Text: warn})
		}
	}
	return view, msgs, nil
}

func (h *HTTPHandler) currentUser(r *http.Request, sess *domain.Session) (*domain.User, error) {
	id, ok := sess.UserID()
	if !ok {
		return nil, nil
	}
	return h.accounts.CurrentUser(r.Context(), id)
}
