package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type accountFormResponse struct {
	Next     string           `json:"next,omitempty"`
	User     *userResponse    `json:"user,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
}

func (h *HTTPHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.accountForm(w, r, safeNext(r.URL.Query().Get("next"), ""))
}

func (h *HTTPHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.accountForm(w, r, "")
}

func (h *HTTPHandler) accountForm(w http.ResponseWriter, r *http.Request, next string) {
	sess := sessionFrom(r)
	user, err := h.currentUser(r, sess)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.respond(w, r, sess, http.StatusOK, accountFormResponse{
		Next:     next,
		User:     toUserResponse(user),
		Messages: sess.PopMessages(),
	})
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	user, err := h.accounts.Register(r.Context(), service.RegisterRequest{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password_confirm"),
	})
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		h.fail(w, r, sess, http.StatusBadRequest, inputMessage(err), registerPath)
		return
	case errors.Is(err, service.ErrUsernameTaken):
		h.fail(w, r, sess, http.StatusConflict, "A user with that username already exists.", registerPath)
		return
	case err != nil:
		h.internalError(w, r, err)
		return
	}

	h.log.InfoContext(r.Context(), "user registered", slog.Int64("user_id", user.ID))
	msg := "Account created successfully"
	if isAJAX(r) {
		h.respond(w, r, sess, http.StatusCreated, struct {
			statusResponse
			User *userResponse `json:"user"`
		}{
			statusResponse: statusResponse{Status: statusSuccess, Message: msg, Redirect: loginPath},
			User:           toUserResponse(user),
		})
		return
	}
	sess.AddMessage(domain.MessageSuccess, msg)
	h.redirect(w, r, sess, loginPath)
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)
	next := safeNext(r.FormValue("next"), productsPath)

	user, err := h.accounts.Authenticate(ctx, r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		back := loginPath
		if next != productsPath {
			back += "?next=" + url.QueryEscape(next)
		}
		h.fail(w, r, sess, http.StatusUnauthorized, "Invalid credentials", back)
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if err := h.rotateSession(ctx, sess); err != nil {
		h.internalError(w, r, err)
		return
	}
	sess.SetUserID(user.ID)

	msg := fmt.Sprintf("Welcome back, %s!", user.Username)
	if isAJAX(r) {
		h.respond(w, r, sess, http.StatusOK, statusResponse{Status: statusSuccess, Message: msg, Redirect: next})
		return
	}
	sess.AddMessage(domain.MessageSuccess, msg)
	h.redirect(w, r, sess, next)
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	sess.Logout()
	if err := h.rotateSession(r.Context(), sess); err != nil {
		h.internalError(w, r, err)
		return
	}

	msg := "You have been logged out."
	if isAJAX(r) {
		h.respond(w, r, sess, http.StatusOK, statusResponse{Status: statusSuccess, Message: msg, Redirect: productsPath})
		return
	}
	sess.AddMessage(domain.MessageInfo, msg)
	h.redirect(w, r, sess, productsPath)
}

// inputMessage strips the sentinel prefix from a validation error.
func inputMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
}
