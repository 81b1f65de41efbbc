package store

import (
	"context"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

// mockAuth is a function-field AuthProvider test double.
type mockAuth struct {
	passwordSignInFn   func(ctx context.Context, email, password string) (*remote.AuthResult, error)
	passwordSignUpFn   func(ctx context.Context, email, password string, metadata map[string]any) (*remote.AuthResult, error)
	requestOTPFn       func(ctx context.Context, email string, metadata map[string]any) error
	verifyOTPFn        func(ctx context.Context, email, code string) (*remote.AuthResult, error)
	updateCredentialFn func(ctx context.Context, password string) error
	updateMetadataFn   func(ctx context.Context, metadata map[string]any) (*models.Identity, error)
	currentSessionFn   func(ctx context.Context) (*remote.AuthResult, error)
	signOutFn          func(ctx context.Context) error
	onSessionChangeFn  func(fn func(*remote.AuthResult)) remote.Subscription
}

func (m *mockAuth) PasswordSignIn(ctx context.Context, email, password string) (*remote.AuthResult, error) {
	if m.passwordSignInFn != nil {
		return m.passwordSignInFn(ctx, email, password)
	}
	return &remote.AuthResult{}, nil
}

func (m *mockAuth) PasswordSignUp(ctx context.Context, email, password string, metadata map[string]any) (*remote.AuthResult, error) {
	if m.passwordSignUpFn != nil {
		return m.passwordSignUpFn(ctx, email, password, metadata)
	}
	return &remote.AuthResult{}, nil
}

func (m *mockAuth) RequestOTP(ctx context.Context, email string, metadata map[string]any) error {
	if m.requestOTPFn != nil {
		return m.requestOTPFn(ctx, email, metadata)
	}
	return nil
}

func (m *mockAuth) VerifyOTP(ctx context.Context, email, code string) (*remote.AuthResult, error) {
	if m.verifyOTPFn != nil {
		return m.verifyOTPFn(ctx, email, code)
	}
	return &remote.AuthResult{}, nil
}

func (m *mockAuth) UpdateCredential(ctx context.Context, password string) error {
	if m.updateCredentialFn != nil {
		return m.updateCredentialFn(ctx, password)
	}
	return nil
}

func (m *mockAuth) UpdateMetadata(ctx context.Context, metadata map[string]any) (*models.Identity, error) {
	if m.updateMetadataFn != nil {
		return m.updateMetadataFn(ctx, metadata)
	}
	return nil, nil
}

func (m *mockAuth) CurrentSession(ctx context.Context) (*remote.AuthResult, error) {
	if m.currentSessionFn != nil {
		return m.currentSessionFn(ctx)
	}
	return &remote.AuthResult{}, nil
}

func (m *mockAuth) SignOut(ctx context.Context) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx)
	}
	return nil
}

func (m *mockAuth) OnSessionChange(fn func(*remote.AuthResult)) remote.Subscription {
	if m.onSessionChangeFn != nil {
		return m.onSessionChangeFn(fn)
	}
	return &stubSubscription{}
}

// mockData is a function-field DataStore test double.
type mockData struct {
	selectOwnedFn func(ctx context.Context, q remote.Query, dest any) error
	insertFn      func(ctx context.Context, collection string, row any, dest any) error
	updateByIDFn  func(ctx context.Context, collection, id string, partial map[string]any, dest any) error
	deleteByIDFn  func(ctx context.Context, collection, id string) error
	upsertFn      func(ctx context.Context, collection string, row any, dest any) error
}

func (m *mockData) SelectOwned(ctx context.Context, q remote.Query, dest any) error {
	if m.selectOwnedFn != nil {
		return m.selectOwnedFn(ctx, q, dest)
	}
	return nil
}

func (m *mockData) Insert(ctx context.Context, collection string, row any, dest any) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, collection, row, dest)
	}
	return nil
}

func (m *mockData) UpdateByID(ctx context.Context, collection, id string, partial map[string]any, dest any) error {
	if m.updateByIDFn != nil {
		return m.updateByIDFn(ctx, collection, id, partial, dest)
	}
	return nil
}

func (m *mockData) DeleteByID(ctx context.Context, collection, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, collection, id)
	}
	return nil
}

func (m *mockData) Upsert(ctx context.Context, collection string, row any, dest any) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, collection, row, dest)
	}
	return nil
}

type stubSubscription struct {
	closed bool
}

func (s *stubSubscription) Close() { s.closed = true }

func authResult(userID, email string) *remote.AuthResult {
	return &remote.AuthResult{
		Identity: &models.Identity{ID: userID, Email: email},
		Session:  &models.Session{AccessToken: "token-" + userID, UserID: userID},
	}
}
