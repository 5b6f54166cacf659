// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username: The unique, lowercase handle a user logs in with (alternatively, email)

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered account.
//
// PasswordHash and RefreshToken are never serialized to JSON, so a User value
// can be written directly in API responses.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username   string             `bson:"username" json:"username"` // lowercase, unique
	Email      string             `bson:"email" json:"email"`       // lowercase, unique
	FullName   string             `bson:"full_name" json:"fullName"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // folded for search

	Avatar     Asset  `bson:"avatar" json:"avatar"`
	CoverImage *Asset `bson:"cover_image,omitempty" json:"coverImage,omitempty"`

	WatchHistory []primitive.ObjectID `bson:"watch_history" json:"watchHistory"`

	PasswordHash string `bson:"password_hash,omitempty" json:"-"` // bcrypt hash
	RefreshToken string `bson:"refresh_token,omitempty" json:"-"` // the single live refresh token

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Asset is a reference to an externally stored image.
// PublicID is the storage key; it is empty for assets we did not upload
// (for example the default cover image).
type Asset struct {
	PublicID string `bson:"public_id,omitempty" json:"public_id,omitempty"`
	URL      string `bson:"url" json:"url"`
}

// AvatarURL returns the avatar URL.
func (u *User) AvatarURL() string {
	return u.Avatar.URL
}

// CoverImageURL returns the cover image URL, or "" when none is set.
func (u *User) CoverImageURL() string {
	if u.CoverImage == nil {
		return ""
	}
	return u.CoverImage.URL
}

// HasRefreshToken reports whether a live refresh token is stored.
func (u *User) HasRefreshToken() bool {
	return u.RefreshToken != ""
}
