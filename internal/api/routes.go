package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Commit Collector API
// @version 1.0
// @description Collects an organization's commit history into durable storage, one repository month at a time.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// SetupRouter configures the API routes. metrics may be nil.
func SetupRouter(h *Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// @Summary Health check
	// @Description Reports whether the database is reachable
	// @Tags system
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Failure 503 {object} HealthResponse
	// @Router /health [get]
	r.GET("/health", h.Health)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := r.Group("/api/v1")
	{
		collect := v1.Group("/collect")
		{
			// @Summary Collect a date range
			// @Description Runs a month-partitioned collection over every repository of the organization and waits for it to finish. Months already marked completed are skipped.
			// @Tags collect
			// @Accept json
			// @Produce json
			// @Param request body CollectRequest true "Range to collect"
			// @Success 200 {object} models.CollectionResult
			// @Failure 400 {object} ErrorResponse
			// @Failure 404 {object} CollectFailureResponse "No repositories"
			// @Failure 409 {object} ErrorResponse "Run in progress"
			// @Failure 502 {object} CollectFailureResponse "Discovery failed"
			// @Failure 500 {object} ErrorResponse
			// @Router /collect [post]
			collect.POST("", h.Collect)

			// @Summary Collect today
			// @Description Collects the current day, in the configured time zone, including commit details
			// @Tags collect
			// @Produce json
			// @Success 200 {object} models.CollectionResult
			// @Failure 409 {object} ErrorResponse "Run in progress"
			// @Failure 500 {object} ErrorResponse
			// @Router /collect/today [post]
			collect.POST("/today", h.CollectToday)

			// @Summary Latest progress
			// @Description Returns the most recent progress snapshot of the current or last run
			// @Tags collect
			// @Produce json
			// @Success 200 {object} models.CollectionProgress
			// @Failure 404 {object} ErrorResponse
			// @Router /collect/progress [get]
			collect.GET("/progress", h.GetProgress)
		}

		// @Summary GitHub rate limit
		// @Description Returns the core API quota. A failed check reports zero remaining.
		// @Tags system
		// @Produce json
		// @Success 200 {object} models.RateLimitStatus
		// @Router /rate-limit [get]
		v1.GET("/rate-limit", h.GetRateLimit)

		// @Summary List collection log
		// @Description Lists per-month ledger entries, optionally for one repository
		// @Tags collection-log
		// @Produce json
		// @Param repository query string false "Repository name"
		// @Success 200 {object} CollectionLogResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /collection-log [get]
		v1.GET("/collection-log", h.GetCollectionLog)

		// @Summary Reset collection log
		// @Description Deletes ledger entries so the next run collects those months again
		// @Tags collection-log
		// @Produce json
		// @Param repository query string false "Repository name"
		// @Param all query bool false "Reset every repository"
		// @Success 200 {object} ResetResponse
		// @Failure 400 {object} ErrorResponse
		// @Failure 409 {object} ErrorResponse "Run in progress"
		// @Failure 500 {object} ErrorResponse
		// @Router /collection-log [delete]
		v1.DELETE("/collection-log", h.ResetCollectionLog)
	}

	return r
}

func requestLogger(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("Request handled")
	}
}
