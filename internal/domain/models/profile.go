package models

import "time"

// Profile mirrors a row of the profiles collection. It is the authoritative
// persisted view of a user's account details; identity metadata is a
// convenience mirror of a subset of these fields.
type Profile struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	FullName     *string   `bson:"full_name,omitempty" json:"full_name,omitempty"`
	AvatarURL    *string   `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	FarmName     *string   `bson:"farm_name,omitempty" json:"farm_name,omitempty"`
	FarmLocation *string   `bson:"farm_location,omitempty" json:"farm_location,omitempty"`
	FarmSize     *float64  `bson:"farm_size,omitempty" json:"farm_size,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Identity is the authenticated user as known to the client: the account id,
// email, and the free-form metadata attached to the auth record.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// FullName returns the full_name metadata entry, empty when absent.
func (i *Identity) FullName() string {
	if i == nil || i.Metadata == nil {
		return ""
	}
	if name, ok := i.Metadata["full_name"].(string); ok {
		return name
	}
	return ""
}

// Session is the credential proving an Identity is currently authenticated.
// The access token expires; the auth provider refreshes it and announces the
// replacement through the session-change subscription.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// untouched by an update.
type ProfileUpdate struct {
	FullName          *string  `json:"full_name,omitempty"`
	AvatarURL         *string  `json:"avatar_url,omitempty"`
	Phone             *string  `json:"phone,omitempty"`
	FarmName          *string  `json:"farm_name,omitempty"`
	FarmLocation      *string  `json:"farm_location,omitempty"`
	FarmSize          *float64 `json:"farm_size,omitempty"`
	FarmingExperience *string  `json:"farming_experience,omitempty"`
}
