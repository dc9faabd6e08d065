package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/tubekeeper/internal/server/services"
)

func (s *Server) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
	}
	if maxAge < 0 {
		c.MaxAge = -1
	}
	return c
}

func (s *Server) setSessionCookies(w http.ResponseWriter, pair services.TokenPair) {
	http.SetCookie(w, s.cookie(accessTokenCookie, pair.AccessToken, s.accessTTL))
	http.SetCookie(w, s.cookie(refreshTokenCookie, pair.RefreshToken, s.refreshTTL))
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(accessTokenCookie, "", -1))
	http.SetCookie(w, s.cookie(refreshTokenCookie, "", -1))
}
