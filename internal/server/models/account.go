// Package models defines the server-side records persisted in PostgreSQL and
// the views returned to callers.
package models

import "time"

// Media references an object held by the media storage collaborator.
type Media struct {
	// ObjectID is the storage key used to delete the object.
	ObjectID string
	// URL is the public location handed to clients.
	URL string
}

// IsZero reports whether no object is referenced.
func (m Media) IsZero() bool {
	return m.ObjectID == "" && m.URL == ""
}

// Account is the durable identity record. Username and Email are stored
// trimmed and lowercased. RefreshToken is nil while no session is active.
type Account struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Avatar       Media
	CoverImage   Media
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountView is an Account without its password hash and refresh token.
type AccountView struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"cover_image"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View returns the sanitized representation of a.
func (a *Account) View() *AccountView {
	return &AccountView{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FullName:   a.FullName,
		Avatar:     a.Avatar.URL,
		CoverImage: a.CoverImage.URL,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// MediaSlot names one of the media references held by an Account.
type MediaSlot string

const (
	SlotAvatar     MediaSlot = "avatar"
	SlotCoverImage MediaSlot = "cover_image"
)
