package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ginapi "github.com/pilab-dev/creator-insights/api/gin"
	"github.com/pilab-dev/creator-insights/config"
	"github.com/pilab-dev/creator-insights/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewHTTPServer creates the gin engine with recovery, request logging,
// tracing and security headers, and registers the API routes on it.
func NewHTTPServer(cfg *config.Config, appLogger log.Logger, api *ginapi.API) *http.Server {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(appLogger))
	router.Use(otelgin.Middleware(cfg.OtelServiceName))
	router.Use(SecurityHeaders())

	api.RegisterRoutes(router)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Sync and export responses can take a while.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}

// RequestLogger logs every request once it has been served.
func RequestLogger(appLogger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			appLogger.Error(c.Request.Context(), c.Errors.String(), c.Errors.Last().Err, fields)
			return
		}
		appLogger.Info(c.Request.Context(), "HTTP Request", fields)
	}
}

// SecurityHeaders adds the headers every JSON response should carry.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
