package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rl1809/storefront/internal/core/domain"
)

const sessionCookie = "sessionid"

type sessionCtxKey struct{}

// withSession attaches the caller's session to the request context,
// creating one when the cookie is missing or points at an expired record.
func (h *HTTPHandler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var sess *domain.Session
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			sess, err = h.sessions.Load(ctx, c.Value)
			if err != nil {
				h.log.WarnContext(ctx, "session unreadable, starting fresh",
					slog.Any("err", err))
				sess = nil
			}
		}
		if sess == nil {
			created, err := h.sessions.Create(ctx)
			if err != nil {
				h.internalError(w, r, err)
				return
			}
			sess = created
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionCtxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *domain.Session {
	sess, _ := r.Context().Value(sessionCtxKey{}).(*domain.Session)
	return sess
}

// saveSession writes a new or modified session back to the store and sets
// the cookie for new ones. It must run before anything is written to w.
func (h *HTTPHandler) saveSession(w http.ResponseWriter, r *http.Request, sess *domain.Session) bool {
	if sess == nil || (!sess.IsNew && !sess.Modified()) {
		return true
	}
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.internalError(w, r, err)
		return false
	}
	if sess.IsNew {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(h.sessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return true
}

// rotateSession gives sess a fresh ID and drops the old record.
func (h *HTTPHandler) rotateSession(ctx context.Context, sess *domain.Session) error {
	fresh, err := h.sessions.Create(ctx)
	if err != nil {
		return err
	}
	old := sess.ID
	sess.Rekey(fresh.ID)
	if err := h.sessions.Delete(ctx, old); err != nil {
		h.log.WarnContext(ctx, "old session not deleted", slog.Any("err", err))
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// observe records request count and latency per route template.
func (h *HTTPHandler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		h.metrics.ObserveRequest(route, rec.status, elapsed)
		h.log.DebugContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", elapsed))
	})
}
