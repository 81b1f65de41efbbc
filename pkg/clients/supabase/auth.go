package supabase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

// refreshMargin is how long before expiry the access token is renewed.
const refreshMargin = 30 * time.Second

// tokenResponse is the GoTrue token grant payload.
type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         authUser `json:"user"`
}

// authUser is the GoTrue user record.
type authUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u authUser) identity() *models.Identity {
	if u.ID == "" {
		return nil
	}
	return &models.Identity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

func (t *tokenResponse) authResult() *remote.AuthResult {
	identity := t.User.identity()
	var session *models.Session
	if t.AccessToken != "" {
		session = &models.Session{
			AccessToken:  t.AccessToken,
			RefreshToken: t.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
			UserID:       t.User.ID,
		}
	}
	return &remote.AuthResult{Identity: identity, Session: session}
}

// PasswordSignIn exchanges email/password credentials for a session.
func (c *Client) PasswordSignIn(ctx context.Context, email, password string) (*remote.AuthResult, error) {
	result := new(tokenResponse)
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]any{"email": email, "password": password}).
		SetResult(result).
		SetError(apiErr).
		Post("/auth/v1/token")
	if err != nil {
		return nil, models.NormalizeError(err)
	}
	if failed(resp) {
		return nil, asOpError(resp, apiErr)
	}

	res := result.authResult()
	c.adoptSession(res)
	return res, nil
}

// PasswordSignUp registers a new account with the metadata attached to the
// auth record. Depending on project settings the response may or may not
// carry a session.
func (c *Client) PasswordSignUp(ctx context.Context, email, password string, metadata map[string]any) (*remote.AuthResult, error) {
	result := new(tokenResponse)
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetBody(map[string]any{"email": email, "password": password, "data": metadata}).
		SetResult(result).
		SetError(apiErr).
		Post("/auth/v1/signup")
	if err != nil {
		return nil, models.NormalizeError(err)
	}
	if failed(resp) {
		return nil, asOpError(resp, apiErr)
	}

	res := result.authResult()
	c.adoptSession(res)
	return res, nil
}

// RequestOTP asks GoTrue to email a one-time code, creating the account on
// first use.
func (c *Client) RequestOTP(ctx context.Context, email string, metadata map[string]any) error {
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetBody(map[string]any{"email": email, "create_user": true, "data": metadata}).
		SetError(apiErr).
		Post("/auth/v1/otp")
	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// VerifyOTP exchanges an emailed code for a session.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*remote.AuthResult, error) {
	result := new(tokenResponse)
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetBody(map[string]any{"email": email, "token": code, "type": "signup"}).
		SetResult(result).
		SetError(apiErr).
		Post("/auth/v1/verify")
	if err != nil {
		return nil, models.NormalizeError(err)
	}
	if failed(resp) {
		return nil, asOpError(resp, apiErr)
	}

	res := result.authResult()
	c.adoptSession(res)
	return res, nil
}

// UpdateCredential replaces the signed-in user's password.
func (c *Client) UpdateCredential(ctx context.Context, password string) error {
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetBody(map[string]any{"password": password}).
		SetError(apiErr).
		Put("/auth/v1/user")
	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// UpdateMetadata merges the given attributes into the signed-in user's
// metadata and returns the updated identity.
func (c *Client) UpdateMetadata(ctx context.Context, metadata map[string]any) (*models.Identity, error) {
	result := new(authUser)
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetBody(map[string]any{"data": metadata}).
		SetResult(result).
		SetError(apiErr).
		Put("/auth/v1/user")
	if err != nil {
		return nil, models.NormalizeError(err)
	}
	if failed(resp) {
		return nil, asOpError(resp, apiErr)
	}

	identity := result.identity()
	c.mu.Lock()
	if identity != nil {
		c.identity = identity
	}
	c.mu.Unlock()
	return identity, nil
}

// CurrentSession returns the session held in memory. The process keeps no
// durable session state, so a fresh start reports signed-out.
func (c *Client) CurrentSession(ctx context.Context) (*remote.AuthResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &remote.AuthResult{Identity: c.identity, Session: c.session}, nil
}

// SignOut revokes the session remotely and drops the local one either way.
func (c *Client) SignOut(ctx context.Context) error {
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetError(apiErr).
		Post("/auth/v1/logout")

	c.dropSession()
	c.notifySessionChange(&remote.AuthResult{})

	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// adoptSession stores the new auth state and arms the refresh timer.
func (c *Client) adoptSession(res *remote.AuthResult) {
	if res == nil || res.Session == nil {
		return
	}

	c.mu.Lock()
	c.identity = res.Identity
	c.session = res.Session
	if c.refresh != nil {
		c.refresh.Stop()
	}
	delay := time.Until(res.Session.ExpiresAt) - refreshMargin
	if delay < time.Second {
		delay = time.Second
	}
	c.refresh = time.AfterFunc(delay, c.refreshSession)
	c.mu.Unlock()
}

func (c *Client) dropSession() {
	c.mu.Lock()
	c.identity = nil
	c.session = nil
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
	c.mu.Unlock()
}

// refreshSession renews the access token and announces the replacement to
// session-change listeners. A failed refresh signs the client out, which is
// announced the same way.
func (c *Client) refreshSession() {
	c.mu.RLock()
	var refreshToken string
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.mu.RUnlock()
	if refreshToken == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result := new(tokenResponse)
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]any{"refresh_token": refreshToken}).
		SetResult(result).
		SetError(apiErr).
		Post("/auth/v1/token")
	if err == nil && failed(resp) {
		err = asOpError(resp, apiErr)
	}
	if err != nil {
		c.logger.Error("session refresh failed", zap.Error(err))
		c.dropSession()
		c.notifySessionChange(&remote.AuthResult{})
		return
	}

	res := result.authResult()
	c.adoptSession(res)
	c.notifySessionChange(res)
}
