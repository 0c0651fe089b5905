package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type checkoutSummaryResponse struct {
	cartResponse
	User *userResponse `json:"user"`
}

type checkoutResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	OrderID    string   `json:"order_id,omitempty"`
	TotalPrice string   `json:"total_price,omitempty"`
	Redirect   string   `json:"redirect,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

type orderDetailResponse struct {
	Order    orderResponse    `json:"order"`
	Messages []domain.Message `json:"messages,omitempty"`
}

// CheckoutSummary shows the reconciled cart the user is about to order.
func (h *HTTPHandler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	user, err := h.currentUser(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if user == nil {
		h.loginRequired(w, r, sess)
		return
	}

	view, msgs, err := h.cartState(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if len(view.Lines) == 0 {
		for _, m := range msgs {
			sess.AddMessage(m.Level, m.Text)
		}
		h.fail(w, r, sess, http.StatusBadRequest, "Your cart is empty.", productsPath)
		return
	}

	h.respond(w, r, sess, http.StatusOK, checkoutSummaryResponse{
		cartResponse: toCartResponse(view, msgs),
		User:         toUserResponse(user),
	})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)

	user, err := h.currentUser(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if user == nil {
		h.metrics.Checkouts.WithLabelValues("unauthenticated").Inc()
		h.loginRequired(w, r, sess)
		return
	}

	cart := sess.Cart()
	res, err := h.checkout.Checkout(ctx, service.CheckoutRequest{
		User:            user,
		Cart:            cart,
		ShippingAddress: r.FormValue("shipping_address"),
		BillingAddress:  r.FormValue("billing_address"),
	})
	// The cart comes back reconciled on failure and cleared on success.
	sess.SetCart(cart)

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		h.metrics.Checkouts.WithLabelValues("empty_cart").Inc()
		h.checkoutFailed(w, r, sess, res.Warnings, http.StatusBadRequest, "Your cart is empty.", productsPath)
		return
	case errors.Is(err, service.ErrOutOfStock):
		h.metrics.Checkouts.WithLabelValues("out_of_stock").Inc()
		h.checkoutFailed(w, r, sess, res.Warnings, http.StatusConflict,
			"Some items sold out while you were checking out. Please review your cart.", cartPath)
		return
	case err != nil:
		h.metrics.Checkouts.WithLabelValues("error").Inc()
		h.internalError(w, r, err)
		return
	}

	h.metrics.Checkouts.WithLabelValues("success").Inc()
	order := res.Order
	next := "/orders/" + order.ID
	msg := fmt.Sprintf("Order placed successfully! Order ID: %s", order.ID)

	if isAJAX(r) {
		h.respond(w, r, sess, http.StatusCreated, checkoutResponse{
			Status:     statusSuccess,
			Message:    msg,
			OrderID:    order.ID,
			TotalPrice: money(order.TotalPrice),
			Redirect:   next,
			Warnings:   res.Warnings,
		})
		return
	}
	for _, warn := range res.Warnings {
		sess.AddMessage(domain.MessageWarning, warn)
	}
	sess.AddMessage(domain.MessageSuccess, msg)
	h.redirect(w, r, sess, next)
}

func (h *HTTPHandler) checkoutFailed(
	w http.ResponseWriter, r *http.Request, sess *domain.Session,
	warnings []string, status int, msg, next string,
) {
	if isAJAX(r) {
		h.respond(w, r, sess, status, checkoutResponse{
			Status:   statusError,
			Message:  msg,
			Redirect: next,
			Warnings: warnings,
		})
		return
	}
	for _, warn := range warnings {
		sess.AddMessage(domain.MessageWarning, warn)
	}
	sess.AddMessage(domain.MessageError, msg)
	h.redirect(w, r, sess, next)
}

func (h *HTTPHandler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	user, err := h.currentUser(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if user == nil {
		h.loginRequired(w, r, sess)
		return
	}

	order, err := h.checkout.GetOrder(r.Context(), user, mux.Vars(r)["id"])
	if errors.Is(err, service.ErrOrderNotFound) {
		h.respond(w, r, sess, http.StatusNotFound, statusResponse{Status: statusError, Message: "Order not found"})
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.respond(w, r, sess, http.StatusOK, orderDetailResponse{
		Order:    toOrderResponse(order),
		Messages: sess.PopMessages(),
	})
}

// loginRequired sends the caller to the login form, remembering where they
// were headed.
func (h *HTTPHandler) loginRequired(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	to := loginPath + "?next=" + url.QueryEscape(r.URL.Path)
	if isAJAX(r) {
		h.respond(w, r, sess, http.StatusUnauthorized, statusResponse{
			Status:   statusError,
			Message:  "Please log in to continue.",
			Redirect: to,
		})
		return
	}
	h.redirect(w, r, sess, to)
}
