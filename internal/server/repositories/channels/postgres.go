package channels

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/dbx"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Profile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	query :=
		`SELECT a.id, a.username, a.email, a.full_name, a.avatar_url, a.cover_image_url,
		     a.created_at, a.updated_at,
		     (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = a.id),
		     (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = a.id),
		     EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = a.id AND s.subscriber_id = $2)
		 FROM accounts a
		 WHERE a.username = $1
		 `

	p := &models.ChannelProfile{}
	err := r.db.QueryRowContext(ctx, query, username, viewerID).Scan(
		&p.ID, &p.Username, &p.Email, &p.FullName, &p.Avatar, &p.CoverImage,
		&p.CreatedAt, &p.UpdatedAt,
		&p.SubscribersCount, &p.SubscribedToCount, &p.IsSubscribed,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	query :=
		`SELECT v.id, v.title, v.description, v.video_url, v.thumbnail_url, v.duration, v.views,
		     o.id, o.username, o.full_name, o.avatar_url,
		     w.watched_at
		 FROM watch_history w
		 JOIN videos v ON v.id = w.video_id
		 JOIN accounts o ON o.id = v.owner_id
		 WHERE w.account_id = $1
		 ORDER BY w.watched_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	history := make([]models.WatchedVideo, 0)
	for rows.Next() {
		var v models.WatchedVideo
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoURL, &v.Thumbnail, &v.Duration, &v.Views,
			&v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar,
			&v.WatchedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		history = append(history, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return history, nil
}
