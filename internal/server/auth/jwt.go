// Package auth issues and verifies the service's signed tokens: short-lived
// access tokens carrying identity claims and long-lived refresh tokens
// carrying only the subject id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrSigningKeyMissing = errors.New("token signing secret is missing")
	ErrSigningKeysEqual  = errors.New("access and refresh secrets must differ")
	ErrInvalidTTL        = errors.New("token validity duration must be positive")
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidToken      = errors.New("invalid token")
)

// Config carries the signing material of both token kinds. The two secrets
// must differ so a refresh token can never pass as an access token.
type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Subject is the identity embedded into an access token.
type Subject struct {
	ID       string
	Email    string
	Username string
}

// AccessClaims are the claims of an access token; Subject holds the account id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
}

// RefreshClaims are the claims of a refresh token. ID (jti) is random so
// two tokens minted in the same second still differ.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with HS256. It holds no mutable state
// and is safe for concurrent use.
type Issuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewIssuer validates cfg. Its errors are startup failures.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrSigningKeyMissing
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSigningKeysEqual
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessTTL,
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// IssueAccess mints an access token for s.
func (i *Issuer) IssueAccess(s Subject) (string, error) {
	now := i.now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		Email:    s.Email,
		Username: s.Username,
	}
	return sign(claims, i.accessSecret)
}

// IssueRefresh mints a refresh token for the account id.
func (i *Issuer) IssueRefresh(subjectID string) (string, error) {
	now := i.now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
	}
	return sign(claims, i.refreshSecret)
}

// VerifyAccess checks signature and expiry of an access token.
func (i *Issuer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(token, i.accessSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token. It does not
// consult storage; comparing against the stored token is the caller's job.
func (i *Issuer) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.verify(token, i.refreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (i *Issuer) verify(token string, secret []byte, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ErrInvalidToken
	}
	return nil
}
