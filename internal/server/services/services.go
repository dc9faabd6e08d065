// Package services contains server-side business logic: account lifecycle,
// session issuance and rotation, and the channel reporting reads.
package services

import (
	"github.com/dmitrijs2005/tubekeeper/internal/server/auth"
)

// TokenIssuer mints and verifies the access/refresh token pair.
type TokenIssuer interface {
	IssueAccess(s auth.Subject) (string, error)
	IssueRefresh(subjectID string) (string, error)
	VerifyAccess(token string) (*auth.AccessClaims, error)
	VerifyRefresh(token string) (*auth.RefreshClaims, error)
}

var _ TokenIssuer = (*auth.Issuer)(nil)
