package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/repomanager"
)

// ChannelService serves read-only reporting over accounts.
type ChannelService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewChannelService(db *sql.DB, m repomanager.RepositoryManager) *ChannelService {
	return &ChannelService{db: db, repomanager: m}
}

func (s *ChannelService) Profile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, common.InvalidArgument("username is missing")
	}

	p, err := s.repomanager.Channels(s.db).Profile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("channel does not exist")
		}
		return nil, common.Internal("failed to load channel", err)
	}
	return p, nil
}

func (s *ChannelService) WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	h, err := s.repomanager.Channels(s.db).WatchHistory(ctx, accountID)
	if err != nil {
		return nil, common.Internal("failed to load watch history", err)
	}
	return h, nil
}
