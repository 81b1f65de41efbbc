// Package supabase implements the hosted remote store: PostgREST for the
// record collections and GoTrue for authentication. One Client satisfies
// both remote.DataStore and remote.AuthProvider.
package supabase

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/config"
	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

// Client talks to a Supabase project. It holds the current session in
// memory, schedules token refreshes, and fans session changes out to
// registered listeners.
type Client struct {
	http    *resty.Client
	anonKey string
	logger  *zap.Logger

	mu       sync.RWMutex
	identity *models.Identity
	session  *models.Session

	subMu   sync.Mutex
	subs    map[int]func(*remote.AuthResult)
	nextSub int
	refresh *time.Timer
}

// NewClient builds a Supabase client from the provided configuration values.
func NewClient(cfg config.SupabaseConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &Client{
		http:    restyClient,
		anonKey: cfg.AnonKey,
		logger:  logger,
		subs:    make(map[int]func(*remote.AuthResult)),
	}
}

// apiError covers the failure payloads GoTrue and PostgREST emit; the field
// sets differ between the two services.
type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *apiError) text() string {
	for _, candidate := range []string{e.Message, e.Msg, e.ErrorDescription, e.ErrorField} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// request returns a request carrying the caller's bearer token, falling back
// to the anonymous key when no session exists.
func (c *Client) request() *resty.Request {
	token := c.anonKey
	c.mu.RLock()
	if c.session != nil && c.session.AccessToken != "" {
		token = c.session.AccessToken
	}
	c.mu.RUnlock()

	return c.http.R().SetHeader("Authorization", "Bearer "+token)
}

// asOpError converts a non-2xx response into the structured error shape.
func asOpError(resp *resty.Response, apiErr *apiError) error {
	message := ""
	if apiErr != nil {
		message = apiErr.text()
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode())
	}
	return models.NewOpError(message, resp.StatusCode())
}

func failed(resp *resty.Response) bool {
	return resp.StatusCode() >= http.StatusBadRequest
}

// subscription is a registered session-change listener.
type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Close() {
	s.once.Do(s.cancel)
}

// OnSessionChange registers fn to run on every session replacement,
// including refreshes and sign-out. The returned handle unregisters it.
func (c *Client) OnSessionChange(fn func(*remote.AuthResult)) remote.Subscription {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return &subscription{cancel: func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}}
}

// notifySessionChange delivers the new auth state to every listener.
func (c *Client) notifySessionChange(res *remote.AuthResult) {
	c.subMu.Lock()
	listeners := make([]func(*remote.AuthResult), 0, len(c.subs))
	for _, fn := range c.subs {
		listeners = append(listeners, fn)
	}
	c.subMu.Unlock()

	for _, fn := range listeners {
		fn(res)
	}
}
