// Package channels holds the read-only reporting queries over accounts,
// subscriptions and watch history.
package channels

import (
	"context"

	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
)

type Repository interface {
	// Profile returns common.ErrorNotFound when no account has username.
	Profile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
}
