// Package store holds the client-side state containers: the session store
// (authenticated identity and its lifecycle) and the record store (cached
// domain collections). Both are constructed values wired at startup; nothing
// in this package is process-global.
package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

// SessionStore holds at most one authenticated identity and its session.
// Replacing the session atomically replaces the identity. Safe for
// concurrent use.
type SessionStore struct {
	auth   remote.AuthProvider
	data   remote.DataStore
	logger *zap.Logger

	mu           sync.RWMutex
	identity     *models.Identity
	session      *models.Session
	initializing bool
}

// NewSessionStore builds a session store over the given auth provider and
// data store. The data store is used for the profile-row writes that
// accompany sign-up and profile updates.
func NewSessionStore(auth remote.AuthProvider, data remote.DataStore, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		auth:         auth,
		data:         data,
		logger:       logger,
		initializing: true,
	}
}

// Initialize loads any existing session from the auth provider and registers
// a standing listener that overwrites identity/session on every future
// session change (refresh, expiry, sign-in elsewhere). The returned
// subscription keeps the listener alive; callers owning the process lifetime
// should Close it on shutdown. When the initial session lookup fails the
// store logs, finishes initializing signed-out, and returns nil: no listener
// is registered.
func (s *SessionStore) Initialize(ctx context.Context) remote.Subscription {
	res, err := s.auth.CurrentSession(ctx)
	if err != nil {
		s.logger.Error("session initialization failed", zap.Error(err))
		s.mu.Lock()
		s.initializing = false
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.applyAuthLocked(res)
	s.initializing = false
	s.mu.Unlock()

	return s.auth.OnSessionChange(func(res *remote.AuthResult) {
		s.mu.Lock()
		s.applyAuthLocked(res)
		s.mu.Unlock()
	})
}

// SignIn authenticates with email and password. On failure the store is left
// untouched and the structured error is returned; on success identity and
// session are replaced atomically.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) error {
	res, err := s.auth.PasswordSignIn(ctx, email, password)
	if err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	s.applyAuthLocked(res)
	s.mu.Unlock()
	return nil
}

// SignUp registers a new account with the full name attached as identity
// metadata, then inserts the matching profile row. The profile insert is
// best-effort: the auth record is authoritative and the row can be
// reconciled later, so its failure is logged without failing the sign-up.
func (s *SessionStore) SignUp(ctx context.Context, email, password, fullName string) error {
	res, err := s.auth.PasswordSignUp(ctx, email, password, map[string]any{"full_name": fullName})
	if err != nil {
		s.logger.Error("sign-up failed", zap.Error(err))
		return models.NormalizeError(err)
	}

	if res.Identity != nil {
		now := time.Now().UTC()
		profile := models.Profile{
			ID:        res.Identity.ID,
			Email:     res.Identity.Email,
			FullName:  &fullName,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.data.Insert(ctx, remote.CollectionProfiles, profile, nil); err != nil {
			s.logger.Error("profile creation failed after sign-up",
				zap.String("user_id", res.Identity.ID), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.applyAuthLocked(res)
	s.mu.Unlock()
	return nil
}

// SignUpWithOTP asks the provider to email a one-time code. Local state is
// not changed.
func (s *SessionStore) SignUpWithOTP(ctx context.Context, email, fullName string) error {
	err := s.auth.RequestOTP(ctx, email, map[string]any{"full_name": fullName})
	if err != nil {
		return models.NormalizeError(err)
	}
	return nil
}

// VerifyOTP exchanges a one-time code for a session. Identity and session
// are set if and only if the verification itself succeeds. Two best-effort
// sub-steps follow a success: setting the password (when provided) and
// upserting the profile row (when a full name is provided). Neither rolls
// back the primary success.
func (s *SessionStore) VerifyOTP(ctx context.Context, email, code, password, fullName string) error {
	res, err := s.auth.VerifyOTP(ctx, email, code)
	if err != nil {
		s.logger.Error("otp verification failed", zap.String("email", email), zap.Error(err))
		return models.NormalizeError(err)
	}

	if res.Identity != nil {
		if password != "" {
			if err := s.auth.UpdateCredential(ctx, password); err != nil {
				s.logger.Error("password update failed after otp verification",
					zap.String("user_id", res.Identity.ID), zap.Error(err))
			}
		}

		if fullName != "" {
			profile := models.Profile{
				ID:        res.Identity.ID,
				Email:     email,
				FullName:  &fullName,
				UpdatedAt: time.Now().UTC(),
			}
			if err := s.data.Upsert(ctx, remote.CollectionProfiles, profile, nil); err != nil {
				s.logger.Error("profile upsert failed after otp verification",
					zap.String("user_id", res.Identity.ID), zap.Error(err))
			}
		}

		s.mu.Lock()
		s.applyAuthLocked(res)
		s.mu.Unlock()
	}

	return nil
}

// SignOut clears the local identity and session before calling the remote
// provider, so readers observe the signed-out state immediately. A remote
// failure is returned to the caller, but local state stays cleared: callers
// must treat the session as gone regardless of the error.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.session = nil
	s.mu.Unlock()

	if err := s.auth.SignOut(ctx); err != nil {
		s.logger.Error("remote sign-out failed", zap.Error(err))
		return models.NormalizeError(err)
	}
	return nil
}

// UpdateProfile persists profile edits. Fields are routed to two
// destinations: the profile row (authoritative, write failure fails the
// call) and the identity metadata (convenience mirror, write failure is
// logged only). full_name and the location are deliberately written to both
// so either read path is self-sufficient.
func (s *SessionStore) UpdateProfile(ctx context.Context, updates models.ProfileUpdate) error {
	identity := s.Identity()
	if identity == nil {
		return models.NewOpError("No user found", 0)
	}

	row := map[string]any{"updated_at": time.Now().UTC()}
	if updates.FullName != nil {
		row["full_name"] = *updates.FullName
	}
	if updates.AvatarURL != nil {
		row["avatar_url"] = *updates.AvatarURL
	}
	if updates.FarmName != nil {
		row["farm_name"] = *updates.FarmName
	}
	if updates.FarmLocation != nil {
		row["farm_location"] = *updates.FarmLocation
	}
	if updates.FarmSize != nil {
		row["farm_size"] = *updates.FarmSize
	}

	if err := s.data.UpdateByID(ctx, remote.CollectionProfiles, identity.ID, row, nil); err != nil {
		return models.NormalizeError(err)
	}

	metadata := map[string]any{}
	if updates.FullName != nil {
		metadata["full_name"] = *updates.FullName
	}
	if updates.Phone != nil {
		metadata["phone"] = *updates.Phone
	}
	if updates.FarmLocation != nil {
		metadata["location"] = *updates.FarmLocation
	}
	if updates.FarmSize != nil {
		metadata["farm_size"] = *updates.FarmSize
	}
	if updates.FarmingExperience != nil {
		metadata["farming_experience"] = *updates.FarmingExperience
	}

	if len(metadata) > 0 {
		updated, err := s.auth.UpdateMetadata(ctx, metadata)
		if err != nil {
			s.logger.Error("identity metadata update failed",
				zap.String("user_id", identity.ID), zap.Error(err))
		} else if updated != nil {
			s.mu.Lock()
			s.identity = updated
			s.mu.Unlock()
		}
	}

	return nil
}

// Identity returns the current identity, nil when signed out. Callers must
// treat the returned value as read-only.
func (s *SessionStore) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Session returns the current session, nil when signed out.
func (s *SessionStore) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Initializing reports whether the initial session lookup is still pending.
func (s *SessionStore) Initializing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializing
}

func (s *SessionStore) applyAuthLocked(res *remote.AuthResult) {
	if res == nil {
		s.identity = nil
		s.session = nil
		return
	}
	s.identity = res.Identity
	s.session = res.Session
}
