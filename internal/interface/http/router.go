package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faq-matcher/internal/infra/config"
	"github.com/yanqian/faq-matcher/pkg/util"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	logger := handler.logger
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowOrigins),
		errorHandlingMiddleware(logger, cfg.FAQ.Disclaimer),
	)

	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)

	ask := []gin.HandlerFunc{
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
		authMiddleware(cfg.HTTP.Auth),
		handler.Ask,
	}
	router.POST("/ask", ask...)
	api := router.Group("/api/v1")
	{
		api.POST("/ask", ask...)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", util.MillisSince(start, time.Now()), "request_id", c.GetString(requestIDKey))
	}
}
