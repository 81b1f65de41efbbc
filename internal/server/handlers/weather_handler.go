package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/config"
	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/store"
	"github.com/bdiallo/farmtrack/pkg/clients/openweather"
)

// WeatherHandler serves live weather lookups and on-demand captures into the
// weather collection.
type WeatherHandler struct {
	sessions *store.SessionStore
	records  *store.RecordStore
	client   openweather.Client
	cfg      config.WeatherConfig
	logger   *zap.Logger
}

// NewWeatherHandler constructs the weather HTTP adapter.
func NewWeatherHandler(sessions *store.SessionStore, records *store.RecordStore, client openweather.Client, cfg config.WeatherConfig, logger *zap.Logger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHandler{sessions: sessions, records: records, client: client, cfg: cfg, logger: logger}
}

// coordinates reads lat/lon query parameters, defaulting to the configured
// farm location.
func (h *WeatherHandler) coordinates(c *gin.Context) (float64, float64) {
	lat, lon := h.cfg.Latitude, h.cfg.Longitude
	if v, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		lat = v
	}
	if v, err := strconv.ParseFloat(c.Query("lon"), 64); err == nil {
		lon = v
	}
	return lat, lon
}

// Current returns the present conditions.
func (h *WeatherHandler) Current(c *gin.Context) {
	lat, lon := h.coordinates(c)

	obs, err := h.client.Current(c.Request.Context(), lat, lon)
	if err != nil {
		h.logger.Error("weather lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather service unavailable"})
		return
	}

	c.JSON(http.StatusOK, obs)
}

// Forecast returns one observation per day.
func (h *WeatherHandler) Forecast(c *gin.Context) {
	lat, lon := h.coordinates(c)

	days := 5
	if v, err := strconv.Atoi(c.Query("days")); err == nil && v > 0 {
		days = v
	}

	forecast, err := h.client.Forecast(c.Request.Context(), lat, lon, days)
	if err != nil {
		h.logger.Error("forecast lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": forecast})
}

// Capture stores the present conditions as a weather record for the current
// user.
func (h *WeatherHandler) Capture(c *gin.Context) {
	identity := h.sessions.Identity()
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	lat, lon := h.coordinates(c)

	obs, err := h.client.Current(c.Request.Context(), lat, lon)
	if err != nil {
		h.logger.Error("weather lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather service unavailable"})
		return
	}

	record := models.WeatherRecord{
		UserID:           identity.ID,
		Location:         obs.Location,
		Temperature:      obs.Temperature,
		Humidity:         obs.Humidity,
		Rainfall:         obs.Rainfall,
		WindSpeed:        obs.WindSpeed,
		WeatherCondition: obs.Condition,
		RecordedAt:       time.Now().UTC(),
	}

	if err := h.records.AddWeather(c.Request.Context(), record); err != nil {
		respondOpError(c, err, http.StatusBadGateway)
		return
	}

	c.Status(http.StatusCreated)
}
