package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
	"github.com/rl1809/storefront/pkg/metrics"
)

const (
	loginPath    = "/accounts/login"
	registerPath = "/accounts/register"
	productsPath = "/products"
	cartPath     = "/cart"
)

type HTTPHandler struct {
	catalog  *service.CatalogService
	carts    *service.CartService
	checkout *service.CheckoutService
	accounts *service.AccountService
	sessions port.SessionRepository
	metrics  *metrics.ServerMetrics
	log      *slog.Logger

	sessionTTL    time.Duration
	secureCookie  bool
	featuredLimit int
}

type HTTPConfig struct {
	SessionTTL    time.Duration
	SecureCookie  bool
	FeaturedLimit int
}

func NewHTTPHandler(
	catalog *service.CatalogService,
	carts *service.CartService,
	checkout *service.CheckoutService,
	accounts *service.AccountService,
	sessions port.SessionRepository,
	m *metrics.ServerMetrics,
	log *slog.Logger,
	cfg HTTPConfig,
) *HTTPHandler {
	return &HTTPHandler{
		catalog:       catalog,
		carts:         carts,
		checkout:      checkout,
		accounts:      accounts,
		sessions:      sessions,
		metrics:       m,
		log:           log,
		sessionTTL:    cfg.SessionTTL,
		secureCookie:  cfg.SecureCookie,
		featuredLimit: cfg.FeaturedLimit,
	}
}

// Router builds the full route table. /health and /metrics bypass sessions.
func (h *HTTPHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.observe)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	app := r.NewRoute().Subrouter()
	app.Use(h.withSession)
	h.RegisterRoutes(app)
	return r
}

func (h *HTTPHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Home).Methods(http.MethodGet)

	// Catalog
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id:[0-9]+}", h.ProductDetail).Methods(http.MethodGet)

	// Cart
	r.HandleFunc("/cart", h.CartDetail).Methods(http.MethodGet)
	r.HandleFunc("/cart/add/{id:[0-9]+}", h.AddToCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/update/{id:[0-9]+}", h.UpdateCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/remove/{id:[0-9]+}", h.RemoveFromCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/clear", h.ClearCart).Methods(http.MethodPost)

	// Checkout
	r.HandleFunc("/checkout", h.CheckoutSummary).Methods(http.MethodGet)
	r.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", h.OrderDetail).Methods(http.MethodGet)

	// Accounts
	r.HandleFunc("/accounts/register", h.RegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/accounts/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/accounts/login", h.LoginForm).Methods(http.MethodGet)
	r.HandleFunc("/accounts/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/accounts/logout", h.Logout).Methods(http.MethodPost)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// isAJAX reports whether the caller asked for a JSON result instead of a
// redirect.
func isAJAX(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// respond persists the session and writes body as JSON.
func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, sess *domain.Session, status int, body any) {
	if !h.saveSession(w, r, sess) {
		return
	}
	writeJSON(w, status, body)
}

// redirect persists the session and sends the client on with 303 See Other.
func (h *HTTPHandler) redirect(w http.ResponseWriter, r *http.Request, sess *domain.Session, to string) {
	if !h.saveSession(w, r, sess) {
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail answers an error outcome: JSON for AJAX callers, otherwise a flash
// message and a redirect to fallback.
func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, sess *domain.Session, status int, msg, fallback string) {
	if isAJAX(r) {
		h.respond(w, r, sess, status, statusResponse{Status: statusError, Message: msg})
		return
	}
	sess.AddMessage(domain.MessageError, msg)
	h.redirect(w, r, sess, fallback)
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, statusResponse{Status: statusError, Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

// formInt reads an integer form field, returning def when it is absent.
func formInt(r *http.Request, key string, def int) (int, bool) {
	v := r.FormValue(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// safeNext accepts only local absolute paths as a post-login target.
func safeNext(next, def string) string {
	if len(next) > 0 && next[0] == '/' && (len(next) == 1 || (next[1] != '/' && next[1] != '\\')) {
		return next
	}
	return def
}
