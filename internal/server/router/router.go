package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(auth *handlers.AuthHandler, records *handlers.RecordsHandler, weather *handlers.WeatherHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.POST("/auth/signin", auth.SignIn)
	r.POST("/auth/signup", auth.SignUp)
	r.POST("/auth/otp/request", auth.RequestOTP)
	r.POST("/auth/otp/verify", auth.VerifyOTP)
	r.POST("/auth/signout", auth.SignOut)
	r.GET("/auth/me", auth.Me)
	r.PATCH("/auth/profile", auth.UpdateProfile)

	r.GET("/crops", records.ListCrops)
	r.POST("/crops", records.CreateCrop)
	r.PATCH("/crops/:id", records.UpdateCrop)
	r.DELETE("/crops/:id", records.DeleteCrop)

	r.GET("/activities", records.ListActivities)
	r.POST("/activities", records.CreateActivity)
	r.PATCH("/activities/:id", records.UpdateActivity)
	r.DELETE("/activities/:id", records.DeleteActivity)

	r.GET("/weather/records", records.ListWeather)
	r.POST("/weather/records", records.CreateWeather)
	r.DELETE("/weather/records/:id", records.DeleteWeather)
	r.GET("/weather/current", weather.Current)
	r.GET("/weather/forecast", weather.Forecast)
	r.POST("/weather/capture", weather.Capture)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
