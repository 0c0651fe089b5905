package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

func (h *HTTPHandler) CartDetail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	view, msgs, err := h.cartState(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.respond(w, r, sess, http.StatusOK, toCartResponse(view, msgs))
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, ok := pathID(r)
	if !ok {
		h.fail(w, r, sess, http.StatusNotFound, "Product not found", productsPath)
		return
	}
	qty, ok := formInt(r, "quantity", 1)
	if !ok || qty < 1 {
		h.fail(w, r, sess, http.StatusBadRequest, "Quantity must be at least 1", productsPath)
		return
	}

	cart := sess.Cart()
	out, err := h.carts.Add(r.Context(), cart, id, qty)
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		sess.SetCart(cart)
		h.fail(w, r, sess, http.StatusNotFound, "Product not found", productsPath)
		return
	case errors.Is(err, service.ErrOutOfStock):
		sess.SetCart(cart)
		h.fail(w, r, sess, http.StatusConflict, fmt.Sprintf("%s is out of stock.", out.ProductName), productsPath)
		return
	case err != nil:
		h.internalError(w, r, err)
		return
	}
	sess.SetCart(cart)

	level, msg := domain.MessageSuccess, fmt.Sprintf("%s added to your cart.", out.ProductName)
	if out.Adjusted() {
		level, msg = domain.MessageWarning, out.Warning()
	}
	h.cartMutated(w, r, sess, cart, id, out.Adjusted(), level, msg, productsPath)
}

func (h *HTTPHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, ok := pathID(r)
	if !ok {
		h.fail(w, r, sess, http.StatusNotFound, "Product not found", cartPath)
		return
	}
	qty, ok := formInt(r, "quantity", 0)
	if !ok || r.FormValue("quantity") == "" {
		h.fail(w, r, sess, http.StatusBadRequest, "Quantity is required", cartPath)
		return
	}

	cart := sess.Cart()
	out, err := h.carts.Update(r.Context(), cart, id, qty)
	switch {
	case errors.Is(err, service.ErrNotInCart):
		h.fail(w, r, sess, http.StatusNotFound, "Item not in cart", cartPath)
		return
	case errors.Is(err, service.ErrProductNotFound):
		sess.SetCart(cart)
		h.fail(w, r, sess, http.StatusNotFound, "Product not found", cartPath)
		return
	case err != nil:
		h.internalError(w, r, err)
		return
	}
	sess.SetCart(cart)

	level, msg := domain.MessageSuccess, "Cart updated."
	switch {
	case out.Reason == domain.DropRemoved:
		msg = "Item removed from your cart."
	case out.Adjusted():
		level, msg = domain.MessageWarning, out.Warning()
	}
	h.cartMutated(w, r, sess, cart, id, out.Adjusted(), level, msg, cartPath)
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, ok := pathID(r)
	if !ok {
		h.fail(w, r, sess, http.StatusNotFound, "Item not in cart", cartPath)
		return
	}

	cart := sess.Cart()
	if err := h.carts.Remove(cart, id); errors.Is(err, service.ErrNotInCart) {
		h.fail(w, r, sess, http.StatusNotFound, "Item not in cart", cartPath)
		return
	}
	sess.SetCart(cart)

	h.cartMutated(w, r, sess, cart, id, false, domain.MessageSuccess, "Item removed from your cart.", cartPath)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	cart := sess.Cart()
	h.carts.Clear(cart)
	sess.SetCart(cart)

	h.cartMutated(w, r, sess, cart, 0, false, domain.MessageSuccess, "Your cart has been cleared.", cartPath)
}

// cartMutated answers a successful cart mutation. AJAX callers get the
// refreshed totals; everyone else a flash message and a redirect.
func (h *HTTPHandler) cartMutated(
	w http.ResponseWriter, r *http.Request, sess *domain.Session,
	cart domain.Cart, productID int64, adjusted bool,
	level domain.MessageLevel, msg, next string,
) {
	if !isAJAX(r) {
		sess.AddMessage(level, msg)
		h.redirect(w, r, sess, next)
		return
	}

	view, err := h.carts.View(r.Context(), cart)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if view.Reconcile.Changed {
		sess.SetCart(cart)
	}

	resp := cartMutationResponse{
		Status:     statusSuccess,
		Message:    msg,
		CartCount:  view.Count,
		CartItems:  view.Items,
		Quantity:   cart[productID],
		TotalPrice: money(view.Total),
		Adjusted:   adjusted,
	}
	for _, ln := range view.Lines {
		if ln.Product.ID == productID {
			resp.Subtotal = money(ln.Subtotal)
		}
	}
	h.respond(w, r, sess, http.StatusOK, resp)
}
