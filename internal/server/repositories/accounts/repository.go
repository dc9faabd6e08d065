package accounts

import (
	"context"

	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// when no row matches; Create returns common.ErrorConflict on a duplicate
// username or email.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*models.Account, error)

	SetRefreshToken(ctx context.Context, id string, token string) error
	// RotateRefreshToken replaces current with next and reports false when
	// the stored token no longer equals current.
	RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateFullName(ctx context.Context, id, fullName string) (*models.Account, error)
	UpdateMedia(ctx context.Context, id string, slot models.MediaSlot, media models.Media) (*models.Account, error)

	// Delete removes the account and returns the deleted record.
	Delete(ctx context.Context, id string) (*models.Account, error)
}
