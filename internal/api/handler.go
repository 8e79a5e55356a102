package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/collector"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/errors"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/harvest"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// CollectionService is the part of harvest.Service the API drives
type CollectionService interface {
	Run(ctx context.Context, req harvest.RunRequest) (*models.CollectionResult, error)
	RunToday(ctx context.Context) (*models.CollectionResult, error)
	LatestProgress() (models.CollectionProgress, bool)
	RateLimit(ctx context.Context) models.RateLimitStatus
	Ledger(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error)
	Reset(ctx context.Context, repository string) (int64, error)
}

// HealthChecker reports whether backing storage is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service CollectionService
	health  HealthChecker
	logger  *logrus.Logger
}

func NewHandler(service CollectionService, health HealthChecker, logger *logrus.Logger) *Handler {
	return &Handler{
		service: service,
		health:  health,
		logger:  logger,
	}
}

// Collect runs a collection over the requested range and waits for it to finish.
func (h *Handler) Collect(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	start, err := collector.ParseDate(req.Start, false)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid start parameter (use YYYY-MM-DD or RFC3339)")
		return
	}
	end, err := collector.ParseDate(req.End, true)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid end parameter (use YYYY-MM-DD or RFC3339)")
		return
	}

	result, err := h.service.Run(c.Request.Context(), harvest.RunRequest{
		Start:          start,
		End:            end,
		IncludeDetails: req.IncludeDetails,
	})
	h.respondWithResult(c, result, err)
}

// CollectToday runs the incremental collection for the current day.
func (h *Handler) CollectToday(c *gin.Context) {
	result, err := h.service.RunToday(c.Request.Context())
	h.respondWithResult(c, result, err)
}

func (h *Handler) GetProgress(c *gin.Context) {
	progress, ok := h.service.LatestProgress()
	if !ok {
		respondWithError(c, http.StatusNotFound, "No collection run has reported progress yet")
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *Handler) GetRateLimit(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.RateLimit(c.Request.Context()))
}

func (h *Handler) GetCollectionLog(c *gin.Context) {
	repository := c.Query("repository")

	entries, err := h.service.Ledger(c.Request.Context(), repository)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list collection log")
		respondWithAppError(c, err)
		return
	}
	if entries == nil {
		entries = []*models.CollectionLogEntry{}
	}

	c.JSON(http.StatusOK, CollectionLogResponse{
		Repository: repository,
		Entries:    entries,
		Count:      len(entries),
	})
}

// ResetCollectionLog deletes ledger entries for one repository, or all of them when
// no repository is given.
func (h *Handler) ResetCollectionLog(c *gin.Context) {
	repository := c.Query("repository")
	if repository == "" && c.Query("all") != "true" {
		respondWithError(c, http.StatusBadRequest, "repository is required (pass all=true to reset every repository)")
		return
	}

	deleted, err := h.service.Reset(c.Request.Context(), repository)
	if err != nil {
		h.logger.WithError(err).WithField("repository", repository).Error("Failed to reset collection log")
		respondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResetResponse{Repository: repository, Deleted: deleted})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// respondWithResult writes the run outcome. Per-partition failures are part of a
// successful response; only run-level failures change the status code.
func (h *Handler) respondWithResult(c *gin.Context, result *models.CollectionResult, err error) {
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	h.logger.WithError(err).Warn("Collection run failed")
	code := statusFor(err)
	if result == nil {
		c.JSON(code, ErrorResponse{Error: err.Error(), Type: string(errors.TypeOf(err))})
		return
	}
	c.JSON(code, CollectFailureResponse{
		ErrorResponse: ErrorResponse{Error: err.Error(), Type: string(errors.TypeOf(err))},
		Result:        result,
	})
}

func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrInvalidInput:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrNotFound, errors.ErrNoRepositories:
		return http.StatusNotFound
	case errors.ErrRunInProgress:
		return http.StatusConflict
	case errors.ErrRateLimit:
		return http.StatusTooManyRequests
	case errors.ErrDiscoveryFailed:
		return http.StatusBadGateway
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Error: message})
}

func respondWithAppError(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), Type: string(errors.TypeOf(err))})
}
