package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/logging"
	"github.com/dmitrijs2005/tubekeeper/internal/server/auth"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
	"github.com/dmitrijs2005/tubekeeper/internal/server/password"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the outcome of a successful login.
type Session struct {
	TokenPair
	Account *models.AccountView `json:"user"`
}

// SessionService owns the session state of an account: the single stored
// refresh token. Login sets it, Refresh rotates it, Logout clears it.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	hasher      password.Hasher
	log         logging.Logger
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenIssuer,
	hasher password.Hasher, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
		log:         log.With("module", "sessions"),
	}
}

// Login looks the account up by username or email, verifies the password and
// stores a freshly minted refresh token, replacing any previous session.
func (s *SessionService) Login(ctx context.Context, identifier, plaintext string) (*Session, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, common.InvalidArgument("username or email is required")
	}
	if plaintext == "" {
		return nil, common.InvalidArgument("password is required")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("user does not exist")
		}
		return nil, common.Internal("failed to load account", err)
	}

	ok, err := s.hasher.Verify(plaintext, account.PasswordHash)
	if err != nil {
		return nil, common.Internal("failed to verify password", err)
	}
	if !ok {
		return nil, common.Unauthorized("invalid user credentials")
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return nil, err
	}

	if err := repo.SetRefreshToken(ctx, account.ID, pair.RefreshToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("user does not exist")
		}
		return nil, common.Internal("failed to store session", err)
	}

	s.log.Info(ctx, "account logged in", "account_id", account.ID)
	return &Session{TokenPair: *pair, Account: account.View()}, nil
}

// Refresh accepts the presented refresh token only if it is the one stored
// on the account, and atomically replaces it with a new one.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, common.Unauthorized("unauthorized request")
	}

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, common.Unauthorized("refresh token is expired")
		}
		return nil, common.Unauthorized("invalid refresh token")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("invalid refresh token")
		}
		return nil, common.Internal("failed to load account", err)
	}

	if account.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*account.RefreshToken), []byte(presented)) != 1 {
		return nil, common.Unauthorized("refresh token is expired or used")
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return nil, err
	}

	rotated, err := repo.RotateRefreshToken(ctx, account.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, common.Internal("failed to rotate session", err)
	}
	if !rotated {
		// another request consumed the same token first
		return nil, common.Unauthorized("refresh token is expired or used")
	}

	s.log.Info(ctx, "session refreshed", "account_id", account.ID)
	return pair, nil
}

// Logout clears the stored refresh token. Logging out twice is not an error.
func (s *SessionService) Logout(ctx context.Context, accountID string) error {
	err := s.repomanager.Accounts(s.db).ClearRefreshToken(ctx, accountID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return common.Internal("failed to clear session", err)
	}
	s.log.Info(ctx, "account logged out", "account_id", accountID)
	return nil
}

// Authenticate resolves an access token to the account it was issued for.
// It never touches the stored refresh token.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*models.AccountView, error) {
	if accessToken == "" {
		return nil, common.Unauthorized("unauthorized request")
	}

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, common.Unauthorized("invalid access token")
	}

	account, err := s.repomanager.Accounts(s.db).FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("invalid access token")
		}
		return nil, common.Internal("failed to load account", err)
	}

	return account.View(), nil
}

func (s *SessionService) issuePair(a *models.Account) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(auth.Subject{ID: a.ID, Email: a.Email, Username: a.Username})
	if err != nil {
		return nil, common.Internal("failed to issue access token", err)
	}
	refresh, err := s.tokens.IssueRefresh(a.ID)
	if err != nil {
		return nil, common.Internal("failed to issue refresh token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
