package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/errors"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/harvest"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// MockCollectionService is a mock implementation of CollectionService
type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) Run(ctx context.Context, req harvest.RunRequest) (*models.CollectionResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.CollectionResult)
	return result, args.Error(1)
}

func (m *MockCollectionService) RunToday(ctx context.Context) (*models.CollectionResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*models.CollectionResult)
	return result, args.Error(1)
}

func (m *MockCollectionService) LatestProgress() (models.CollectionProgress, bool) {
	args := m.Called()
	return args.Get(0).(models.CollectionProgress), args.Bool(1)
}

func (m *MockCollectionService) RateLimit(ctx context.Context) models.RateLimitStatus {
	return m.Called(ctx).Get(0).(models.RateLimitStatus)
}

func (m *MockCollectionService) Ledger(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error) {
	args := m.Called(ctx, repository)
	entries, _ := args.Get(0).([]*models.CollectionLogEntry)
	return entries, args.Error(1)
}

func (m *MockCollectionService) Reset(ctx context.Context, repository string) (int64, error) {
	args := m.Called(ctx, repository)
	return args.Get(0).(int64), args.Error(1)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func setupTestHandler(t *testing.T) (*gin.Engine, *MockCollectionService, *MockHealthChecker) {
	gin.SetMode(gin.TestMode)

	service := new(MockCollectionService)
	health := new(MockHealthChecker)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := SetupRouter(NewHandler(service, health, logger), nil)

	t.Cleanup(func() {
		service.AssertExpectations(t)
		health.AssertExpectations(t)
	})
	return router, service, health
}

func perform(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleResult() *models.CollectionResult {
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	return &models.CollectionResult{
		RunID:          "run-1",
		Commits:        []*models.CommitRecord{{Repository: "api", SHA: "abc", CommittedAt: at}},
		TotalProcessed: 1,
		Errors:         []string{"web 2024-02: boom"},
	}
}

func TestCollect(t *testing.T) {
	router, service, _ := setupTestHandler(t)

	wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	service.On("Run", mock.Anything, mock.MatchedBy(func(req harvest.RunRequest) bool {
		return req.Start.Equal(wantStart) && req.End.Equal(wantEnd) && req.IncludeDetails
	})).Return(sampleResult(), nil)

	w := perform(router, http.MethodPost, "/api/v1/collect", CollectRequest{
		Start:          "2024-01-01",
		End:            "2024-03-31",
		IncludeDetails: true,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var got models.CollectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Commits, 1)
	assert.Equal(t, "abc", got.Commits[0].SHA)
	assert.Equal(t, []string{"web 2024-02: boom"}, got.Errors)
}

func TestCollectAcceptsRFC3339(t *testing.T) {
	router, service, _ := setupTestHandler(t)

	wantEnd := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	service.On("Run", mock.Anything, mock.MatchedBy(func(req harvest.RunRequest) bool {
		return req.End.Equal(wantEnd) && !req.IncludeDetails
	})).Return(sampleResult(), nil)

	w := perform(router, http.MethodPost, "/api/v1/collect", CollectRequest{
		Start: "2024-01-01T00:00:00Z",
		End:   "2024-02-01T14:00:00+02:00",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCollectBadRequest(t *testing.T) {
	router, _, _ := setupTestHandler(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing end", body: map[string]string{"start": "2024-01-01"}},
		{name: "bad start", body: CollectRequest{Start: "01/01/2024", End: "2024-02-01"}},
		{name: "bad end", body: CollectRequest{Start: "2024-01-01", End: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodPost, "/api/v1/collect", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCollectErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		result     *models.CollectionResult
		err        error
		wantStatus int
		wantType   string
		wantResult bool
	}{
		{
			name:       "validation",
			err:        errors.NewValidationError("start must not be after end", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   "INVALID_INPUT",
		},
		{
			name:       "run in progress",
			err:        errors.NewRunInProgressError("collector:run:acme"),
			wantStatus: http.StatusConflict,
			wantType:   "RUN_IN_PROGRESS",
		},
		{
			name:       "no repositories",
			result:     &models.CollectionResult{Errors: []string{"no repositories"}},
			err:        errors.NewNoRepositoriesError("acme"),
			wantStatus: http.StatusNotFound,
			wantType:   "NO_REPOSITORIES",
			wantResult: true,
		},
		{
			name:       "discovery failed",
			result:     &models.CollectionResult{Errors: []string{"discovery"}},
			err:        errors.NewDiscoveryFailedError("acme", fmt.Errorf("502")),
			wantStatus: http.StatusBadGateway,
			wantType:   "DISCOVERY_FAILED",
			wantResult: true,
		},
		{
			name:       "interrupted",
			result:     sampleResult(),
			err:        fmt.Errorf("collection interrupted: %w", context.Canceled),
			wantStatus: http.StatusServiceUnavailable,
			wantResult: true,
		},
		{
			name:       "internal",
			err:        errors.NewInternalError("failed to load known commits", fmt.Errorf("db down")),
			wantStatus: http.StatusInternalServerError,
			wantType:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, service, _ := setupTestHandler(t)
			service.On("RunToday", mock.Anything).Return(tt.result, tt.err)

			w := perform(router, http.MethodPost, "/api/v1/collect/today", nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp CollectFailureResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantType, resp.Type)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantResult, resp.Result != nil)
		})
	}
}

func TestGetProgress(t *testing.T) {
	router, service, _ := setupTestHandler(t)

	service.On("LatestProgress").Return(models.CollectionProgress{}, false).Once()
	w := perform(router, http.MethodGet, "/api/v1/collect/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	service.On("LatestProgress").Return(models.CollectionProgress{
		RunID:      "run-1",
		Phase:      models.PhaseCommits,
		Repository: "api",
		MonthKey:   "2024-02",
	}, true).Once()
	w = perform(router, http.MethodGet, "/api/v1/collect/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.CollectionProgress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.PhaseCommits, got.Phase)
	assert.Equal(t, "2024-02", got.MonthKey)
}

func TestGetRateLimit(t *testing.T) {
	router, service, _ := setupTestHandler(t)
	reset := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	service.On("RateLimit", mock.Anything).Return(models.RateLimitStatus{Limit: 5000, Remaining: 42, Used: 4958, Reset: reset})

	w := perform(router, http.MethodGet, "/api/v1/rate-limit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.RateLimitStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 42, got.Remaining)
	assert.True(t, got.Reset.Equal(reset))
}

func TestGetCollectionLog(t *testing.T) {
	router, service, _ := setupTestHandler(t)
	entries := []*models.CollectionLogEntry{
		{Repository: "api", MonthKey: "2024-01", Status: models.StatusCompleted, CommitCount: 7},
		{Repository: "api", MonthKey: "2024-02", Status: models.StatusPartial, CommitCount: 2},
	}
	service.On("Ledger", mock.Anything, "api").Return(entries, nil)
	service.On("Ledger", mock.Anything, "").Return(nil, nil)

	w := perform(router, http.MethodGet, "/api/v1/collection-log?repository=api", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp CollectionLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, models.StatusPartial, resp.Entries[1].Status)

	w = perform(router, http.MethodGet, "/api/v1/collection-log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":[],"count":0}`, w.Body.String())
}

func TestGetCollectionLogError(t *testing.T) {
	router, service, _ := setupTestHandler(t)
	service.On("Ledger", mock.Anything, "api").Return(nil, errors.NewInternalError("failed to list collection log", fmt.Errorf("db down")))

	w := perform(router, http.MethodGet, "/api/v1/collection-log?repository=api", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestResetCollectionLog(t *testing.T) {
	router, service, _ := setupTestHandler(t)
	service.On("Reset", mock.Anything, "api").Return(int64(15), nil)
	service.On("Reset", mock.Anything, "").Return(int64(18), nil)
	service.On("Reset", mock.Anything, "web").Return(int64(0), errors.NewRunInProgressError("collector:run:acme"))

	w := perform(router, http.MethodDelete, "/api/v1/collection-log?repository=api", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ResetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ResetResponse{Repository: "api", Deleted: 15}, resp)

	w = perform(router, http.MethodDelete, "/api/v1/collection-log", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodDelete, "/api/v1/collection-log?all=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":18}`, w.Body.String())

	w = perform(router, http.MethodDelete, "/api/v1/collection-log?repository=web", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealth(t *testing.T) {
	router, _, health := setupTestHandler(t)

	health.On("Ping", mock.Anything).Return(nil).Once()
	w := perform(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	health.On("Ping", mock.Anything).Return(fmt.Errorf("connection refused")).Once()
	w = perform(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
