package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/middleware"
	"github.com/stwalsh4118/michraz/internal/services"
)

// MockEmailSignupService is a mock implementation of services.EmailSignupService.
type MockEmailSignupService struct {
	mock.Mock
}

func (m *MockEmailSignupService) Subscribe(ctx context.Context, email, token string) (*services.SubscribeResult, error) {
	args := m.Called(ctx, email, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SubscribeResult), args.Error(1)
}

func setupEmailSignupTestRouter(service services.EmailSignupService) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.New("test", logger.WithOutput(io.Discard))))
	router.POST("/api/v1/email-signups", NewEmailSignupHandler(service).Subscribe)
	return router
}

func TestEmailSignup_WithSessionCookie(t *testing.T) {
	service := new(MockEmailSignupService)
	router := setupEmailSignupTestRouter(service)

	service.On("Subscribe", mock.Anything, "dana@example.com", "token").Return(&services.SubscribeResult{
		Email:         "dana@example.com",
		UserID:        "user-1",
		Authenticated: true,
		Stored:        true,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/email-signups", strings.NewReader(`{"email":"dana@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	service.AssertExpectations(t)
}

func TestEmailSignup_Anonymous(t *testing.T) {
	service := new(MockEmailSignupService)
	router := setupEmailSignupTestRouter(service)

	service.On("Subscribe", mock.Anything, "dana@example.com", "").
		Return(&services.SubscribeResult{Email: "dana@example.com"}, nil).Once()

	w := doRequest(router, http.MethodPost, "/api/v1/email-signups", strings.NewReader(`{"email":"dana@example.com"}`))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"stored":false`)
}

func TestEmailSignup_InvalidEmail(t *testing.T) {
	service := new(MockEmailSignupService)
	router := setupEmailSignupTestRouter(service)

	w := doRequest(router, http.MethodPost, "/api/v1/email-signups", strings.NewReader(`{"email":"not-an-email"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Must be a valid email address", decodeError(t, w).Details["email"])
	service.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything)
}
