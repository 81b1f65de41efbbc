// Package remote defines the contracts the state stores depend on: a
// collection-level data store and an authentication provider. The hosted
// backend (pkg/clients/supabase) and the self-hosted one
// (internal/repository/mongodb) both satisfy DataStore; auth is always
// hosted.
package remote

import (
	"context"

	"github.com/bdiallo/farmtrack/internal/domain/models"
)

// Collection names used across backends.
const (
	CollectionProfiles   = "profiles"
	CollectionCrops      = "crops"
	CollectionActivities = "farm_activities"
	CollectionWeather    = "weather_data"
)

// Query describes an owner-scoped read of one collection.
type Query struct {
	Collection string
	OwnerID    string
	OrderBy    string
	Descending bool
	Limit      int
}

// DataStore executes CRUD operations against named collections. Write
// operations decode the canonical server row into dest; dest for SelectOwned
// must be a pointer to a slice of the collection's row type.
type DataStore interface {
	SelectOwned(ctx context.Context, q Query, dest any) error
	Insert(ctx context.Context, collection string, row any, dest any) error
	UpdateByID(ctx context.Context, collection, id string, partial map[string]any, dest any) error
	DeleteByID(ctx context.Context, collection, id string) error
	Upsert(ctx context.Context, collection string, row any, dest any) error
}

// AuthResult bundles the identity and session an auth operation produced.
// Either field may be nil, e.g. CurrentSession with no stored session.
type AuthResult struct {
	Identity *models.Identity
	Session  *models.Session
}

// Subscription is a registered session-change listener. Close unregisters it;
// closing twice is a no-op.
type Subscription interface {
	Close()
}

// AuthProvider is the hosted authentication service the session store drives.
type AuthProvider interface {
	PasswordSignIn(ctx context.Context, email, password string) (*AuthResult, error)
	PasswordSignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthResult, error)
	RequestOTP(ctx context.Context, email string, metadata map[string]any) error
	VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error)
	UpdateCredential(ctx context.Context, password string) error
	UpdateMetadata(ctx context.Context, metadata map[string]any) (*models.Identity, error)
	CurrentSession(ctx context.Context) (*AuthResult, error)
	SignOut(ctx context.Context) error
	OnSessionChange(fn func(*AuthResult)) Subscription
}
