package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/logging"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

type accountKey struct{}

// AccountFromContext returns the account attached by the authentication gate.
func AccountFromContext(ctx context.Context) (*models.AccountView, bool) {
	a, ok := ctx.Value(accountKey{}).(*models.AccountView)
	return a, ok && a != nil
}

func withAccount(ctx context.Context, a *models.AccountView) context.Context {
	return context.WithValue(ctx, accountKey{}, a)
}

// accessToken reads the cookie first and falls back to a bearer header.
func accessToken(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireAccount is the authentication gate.
func requireAccount(sessions SessionAPI, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				writeError(w, r, log, common.Unauthorized("unauthorized request"))
				return
			}

			account, err := sessions.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
		})
	}
}

// requestID copies chi's request id into the logging context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
