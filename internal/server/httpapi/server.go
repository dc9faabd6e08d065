// Package httpapi exposes the account and session operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/tubekeeper/internal/logging"
	"github.com/dmitrijs2005/tubekeeper/internal/server/config"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
	"github.com/dmitrijs2005/tubekeeper/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type SessionAPI interface {
	Login(ctx context.Context, identifier, password string) (*services.Session, error)
	Refresh(ctx context.Context, presented string) (*services.TokenPair, error)
	Logout(ctx context.Context, accountID string) error
	Authenticate(ctx context.Context, accessToken string) (*models.AccountView, error)
}

type AccountAPI interface {
	Register(ctx context.Context, r services.Registration) (*models.AccountView, error)
	CurrentAccount(ctx context.Context, id string) (*models.AccountView, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
	UpdateAccountDetails(ctx context.Context, id, fullName string) (*models.AccountView, error)
	UpdateAvatar(ctx context.Context, id, localPath string) (*models.AccountView, error)
	UpdateCoverImage(ctx context.Context, id, localPath string) (*models.AccountView, error)
	DeleteAccount(ctx context.Context, id string) error
}

type ChannelAPI interface {
	Profile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
}

// Server is the HTTP front end of the service.
type Server struct {
	addr         string
	uploadDir    string
	cookieSecure bool
	accessTTL    time.Duration
	refreshTTL   time.Duration

	sessions SessionAPI
	accounts AccountAPI
	channels ChannelAPI
	log      logging.Logger

	router chi.Router
}

func NewServer(cfg *config.Config, sessions SessionAPI, accounts AccountAPI, channels ChannelAPI, log logging.Logger) *Server {
	s := &Server{
		addr:         cfg.HTTPAddress,
		uploadDir:    cfg.UploadDir,
		cookieSecure: cfg.CookieSecure,
		accessTTL:    cfg.AccessTokenValidityDuration,
		refreshTTL:   cfg.RefreshTokenValidityDuration,
		sessions:     sessions,
		accounts:     accounts,
		channels:     channels,
		log:          log.With("module", "httpapi"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/refresh-token", s.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(requireAccount(s.sessions, s.log))

			r.Post("/logout", s.logout)
			r.Post("/change-password", s.changePassword)
			r.Get("/current-user", s.currentUser)
			r.Patch("/update-account", s.updateAccount)
			r.Patch("/avatar", s.updateAvatar)
			r.Patch("/cover-image", s.updateCoverImage)
			r.Delete("/account", s.deleteAccount)
			r.Get("/c/{username}", s.channelProfile)
			r.Get("/history", s.watchHistory)
		})
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.log.Info(ctx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
