package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/store"
)

// RecordsHandler adapts the record store's collection operations to HTTP.
// The owner id on every write is stamped from the current identity; the
// store itself trusts whatever it is given.
type RecordsHandler struct {
	sessions *store.SessionStore
	records  *store.RecordStore
	logger   *zap.Logger
}

// NewRecordsHandler constructs the records HTTP adapter.
func NewRecordsHandler(sessions *store.SessionStore, records *store.RecordStore, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{sessions: sessions, records: records, logger: logger}
}

// currentUser returns the signed-in identity or ends the request with 401.
func (h *RecordsHandler) currentUser(c *gin.Context) *models.Identity {
	identity := h.sessions.Identity()
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
	}
	return identity
}

// collectionResponse bundles a snapshot with the store-wide fetch state.
func (h *RecordsHandler) collectionResponse(c *gin.Context, data any) {
	body := gin.H{"data": data}
	if lastErr := h.records.LastError(); lastErr != nil {
		body["error"] = lastErr
	}
	c.JSON(http.StatusOK, body)
}

// ListCrops refreshes and returns the crop collection. A failed refresh
// still returns the previous snapshot alongside the error.
func (h *RecordsHandler) ListCrops(c *gin.Context) {
	identity := h.currentUser(c)
	if identity == nil {
		return
	}

	h.records.FetchCrops(c.Request.Context(), identity.ID)
	h.collectionResponse(c, h.records.Crops())
}

// CreateCrop inserts a crop owned by the current user.
func (h *RecordsHandler) CreateCrop(c *gin.Context) {
	identity := h.currentUser(c)
	if identity == nil {
		return
	}

	var crop models.Crop
	if err := c.ShouldBindJSON(&crop); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	crop.UserID = identity.ID

	if err := h.records.AddCrop(c.Request.Context(), crop); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusCreated)
}

// UpdateCrop applies a partial update to one crop.
func (h *RecordsHandler) UpdateCrop(c *gin.Context) {
	if h.currentUser(c) == nil {
		return
	}

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.records.UpdateCrop(c.Request.Context(), c.Param("id"), updates); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusOK)
}

// DeleteCrop removes one crop.
func (h *RecordsHandler) DeleteCrop(c *gin.Context) {
	if h.currentUser(c) == nil {
		return
	}

	if err := h.records.DeleteCrop(c.Request.Context(), c.Param("id")); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListActivities refreshes and returns the activity collection.
func (h *RecordsHandler) ListActivities(c *gin.Context) {
	identity := h.currentUser(c)
	if identity == nil {
		return
	}

	h.records.FetchActivities(c.Request.Context(), identity.ID)
	h.collectionResponse(c, h.records.Activities())
}

// CreateActivity inserts an activity owned by the current user.
func (h *RecordsHandler) CreateActivity(c *gin.Context) {
	identity := h.currentUser(c)
	if identity == nil {
		return
	}

	var activity models.FarmActivity
	if err := c.ShouldBindJSON(&activity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if activity.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}
	activity.UserID = identity.ID

	if err := h.records.AddActivity(c.Request.Context(), activity); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusCreated)
}

// UpdateActivity applies a partial update to one activity.
func (h *RecordsHandler) UpdateActivity(c *gin.Context) {
	if h.currentUser(c) == nil {
		return
	}

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.records.UpdateActivity(c.Request.Context(), c.Param("id"), updates); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusOK)
}

// DeleteActivity removes one activity.
func (h *RecordsHandler) DeleteActivity(c *gin.Context) {
	if h.currentUser(c) == nil {
		return
	}

	if err := h.records.DeleteActivity(c.Request.Context(), c.Param("id")); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListWeather refreshes and returns the cached weather records.
func (h *RecordsHandler) ListWeather(c *gin.Context) {
	identity := h.currentUser(c)
	if identity == nil {
		return
	}

	h.records.FetchWeather(c.Request.Context(), identity.ID)
	h.collectionResponse(c, h.records.Weather())
}

// CreateWeather inserts a manual weather observation.
func (h *RecordsHandler) CreateWeather(c *gin.Context) {
	identity := h.currentUser(c)
	if identity == nil {
		return
	}

	var record models.WeatherRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	record.UserID = identity.ID

	if err := h.records.AddWeather(c.Request.Context(), record); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusCreated)
}

// DeleteWeather removes one weather record.
func (h *RecordsHandler) DeleteWeather(c *gin.Context) {
	if h.currentUser(c) == nil {
		return
	}

	if err := h.records.DeleteWeather(c.Request.Context(), c.Param("id")); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusNoContent)
}
