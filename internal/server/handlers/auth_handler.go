package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/store"
)

// AuthHandler adapts the session store's lifecycle operations to HTTP.
type AuthHandler struct {
	sessions *store.SessionStore
	logger   *zap.Logger
}

// NewAuthHandler constructs the auth HTTP adapter.
func NewAuthHandler(sessions *store.SessionStore, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{sessions: sessions, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

type otpRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name"`
}

type otpVerifyRequest struct {
	Email    string `json:"email" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// SignIn authenticates with email and password.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password); err != nil {
		respondOpError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": h.sessions.Identity()})
}

// SignUp registers a new account.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.sessions.SignUp(c.Request.Context(), req.Email, req.Password, req.FullName); err != nil {
		respondOpError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": h.sessions.Identity()})
}

// RequestOTP asks the provider to email a one-time code.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.sessions.SignUpWithOTP(c.Request.Context(), req.Email, req.FullName); err != nil {
		respondOpError(c, err, http.StatusBadRequest)
		return
	}

	c.Status(http.StatusAccepted)
}

// VerifyOTP exchanges an emailed code for a session.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.sessions.VerifyOTP(c.Request.Context(), req.Email, req.Code, req.Password, req.FullName); err != nil {
		respondOpError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": h.sessions.Identity()})
}

// SignOut ends the session. Local state is cleared even when the remote
// revocation fails, so the failure is reported with the cleared state.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context()); err != nil {
		h.logger.Warn("remote sign-out failed, local session cleared", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "signed_out": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signed_out": true})
}

// Me reports the current auth state.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user":         h.sessions.Identity(),
		"session":      h.sessions.Session(),
		"initializing": h.sessions.Initializing(),
	})
}

// UpdateProfile persists profile edits.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var updates models.ProfileUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.sessions.UpdateProfile(c.Request.Context(), updates); err != nil {
		respondOpError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": h.sessions.Identity()})
}

// respondOpError maps a store failure onto an HTTP response, preferring the
// remote status when one was recorded.
func respondOpError(c *gin.Context, err error, fallback int) {
	status := fallback
	message := err.Error()

	var opErr *models.OpError
	if errors.As(err, &opErr) && opErr.Status >= http.StatusBadRequest {
		status = opErr.Status
	}

	c.JSON(status, gin.H{"error": message})
}
