package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/michraz/internal/authclient"
	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/middleware"
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/services"
	"github.com/stwalsh4118/michraz/internal/tenders"
)

// MockSheetService is a mock implementation of services.SheetService.
type MockSheetService struct {
	mock.Mock
}

func (m *MockSheetService) ListSheets(ctx context.Context, now time.Time) ([]models.SheetSummary, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SheetSummary), args.Error(1)
}

// MockVerifier is a mock implementation of middleware.TokenVerifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) GetUser(ctx context.Context, token string) (*authclient.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authclient.User), args.Error(1)
}

var sheetTestNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func setupSheetTestRouter(service services.SheetService, verifier middleware.TokenVerifier) *gin.Engine {
	handler := NewSheetHandler(service)
	handler.now = func() time.Time { return sheetTestNow }

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.New("test", logger.WithOutput(io.Discard))))

	protected := router.Group("/api/v1", middleware.AuthGuard(verifier))
	protected.GET("/sheets", handler.ListSheets)
	return router
}

func sheetRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sheets", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListSheets_Authenticated(t *testing.T) {
	service := new(MockSheetService)
	verifier := new(MockVerifier)
	router := setupSheetTestRouter(service, verifier)

	days := 1
	verifier.On("GetUser", mock.Anything, "good").Return(&authclient.User{ID: "user-1"}, nil).Once()
	service.On("ListSheets", mock.Anything, sheetTestNow.In(tenders.Jerusalem())).Return([]models.SheetSummary{
		{
			Sheet:            models.SheetTender{Metadata: models.SheetMetadata{ID: "77/2025"}},
			DaysUntilClosing: &days,
			ClosingLabel:     "נסגר מחר",
		},
	}, nil).Once()

	w := sheetRequest(router, "good")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp SheetListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "נסגר מחר", resp.Sheets[0].ClosingLabel)
	service.AssertExpectations(t)
	verifier.AssertExpectations(t)
}

func TestListSheets_RequiresSession(t *testing.T) {
	service := new(MockSheetService)
	verifier := new(MockVerifier)
	router := setupSheetTestRouter(service, verifier)

	w := sheetRequest(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.SignupPath, decodeError(t, w).Details["redirect"])
	service.AssertNotCalled(t, "ListSheets", mock.Anything, mock.Anything)
}

func TestListSheets_InvalidSession(t *testing.T) {
	service := new(MockSheetService)
	verifier := new(MockVerifier)
	router := setupSheetTestRouter(service, verifier)

	verifier.On("GetUser", mock.Anything, "stale").Return(nil, &authclient.APIError{Status: 401}).Once()

	w := sheetRequest(router, "stale")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	service.AssertNotCalled(t, "ListSheets", mock.Anything, mock.Anything)
}

func TestListSheets_FeedUnavailable(t *testing.T) {
	service := new(MockSheetService)
	verifier := new(MockVerifier)
	router := setupSheetTestRouter(service, verifier)

	verifier.On("GetUser", mock.Anything, "good").Return(&authclient.User{ID: "user-1"}, nil).Once()
	service.On("ListSheets", mock.Anything, sheetTestNow.In(tenders.Jerusalem())).
		Return(nil, errors.Join(services.ErrSheetsUnavailable, errors.New("timeout"))).Once()

	w := sheetRequest(router, "good")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListSheets_CountsDaysInJerusalem(t *testing.T) {
	service := new(MockSheetService)
	verifier := new(MockVerifier)
	handler := NewSheetHandler(service)
	handler.now = func() time.Time { return time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC) }

	router := gin.New()
	router.GET("/api/v1/sheets", middleware.AuthGuard(verifier), handler.ListSheets)

	verifier.On("GetUser", mock.Anything, "good").Return(&authclient.User{ID: "user-1"}, nil).Once()
	service.On("ListSheets", mock.Anything, mock.MatchedBy(func(now time.Time) bool {
		_, month, day := now.Date()
		return now.Location() == tenders.Jerusalem() && month == time.March && day == 11
	})).Return([]models.SheetSummary{}, nil).Once()

	w := sheetRequest(router, "good")

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}
