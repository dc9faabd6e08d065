package models

import "time"

// ChannelProfile is the public page of an account together with its
// subscription counters as seen by a particular viewer.
type ChannelProfile struct {
	AccountView
	SubscribersCount  int64 `json:"subscribers_count"`
	SubscribedToCount int64 `json:"channels_subscribed_to_count"`
	IsSubscribed      bool  `json:"is_subscribed"`
}

// WatchedVideo is one entry of an account's watch history.
type WatchedVideo struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoURL    string     `json:"video_file"`
	Thumbnail   string     `json:"thumbnail"`
	Duration    float64    `json:"duration"`
	Views       int64      `json:"views"`
	Owner       VideoOwner `json:"owner"`
	WatchedAt   time.Time  `json:"watched_at"`
}

// VideoOwner is the public subset of the uploading account.
type VideoOwner struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
}
