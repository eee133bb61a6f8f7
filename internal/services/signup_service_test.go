package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/michraz/internal/authclient"
	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/signup"
)

// MockAuthService is a mock implementation of signup.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) RequestCode(ctx context.Context, req authclient.CodeRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockAuthService) VerifyCode(ctx context.Context, phone, code string) (*authclient.Tokens, error) {
	args := m.Called(ctx, phone, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authclient.Tokens), args.Error(1)
}

func newTestSignupService(t *testing.T) (SignupService, *signup.Store, *MockAuthService) {
	t.Helper()
	auth := new(MockAuthService)
	store := signup.NewStore(auth, signup.Options{Tick: time.Hour}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Hour)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return NewSignupService(store, logger.New("test")), store, auth
}

func signupForm() signup.Form {
	return signup.Form{FirstName: "Dana", LastName: "Levi", Phone: "0501234567", IsReservist: true}
}

func TestSignupStart_Success(t *testing.T) {
	service, store, auth := newTestSignupService(t)
	auth.On("RequestCode", mock.Anything, mock.MatchedBy(func(req authclient.CodeRequest) bool {
		return req.Phone == "0501234567" && req.FirstName == "Dana" && req.IsReservist
	})).Return(nil).Once()

	state, err := service.Start(context.Background(), signupForm())

	require.NoError(t, err)
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, signup.StepOTP, state.Step)
	assert.Equal(t, "4567", state.PhoneLastDigits)
	assert.Equal(t, signup.DefaultCooldownSeconds, state.ResendCooldown)
	assert.Equal(t, 1, store.Len())
	auth.AssertExpectations(t)
}

func TestSignupStart_RequestFailureReturnsState(t *testing.T) {
	service, _, auth := newTestSignupService(t)
	auth.On("RequestCode", mock.Anything, mock.Anything).
		Return(&authclient.APIError{Status: 400, Code: authclient.CodeInvalidPhone}).Once()

	state, err := service.Start(context.Background(), signupForm())

	assert.ErrorIs(t, err, signup.ErrInvalidPhone)
	assert.Equal(t, signup.StepForm, state.Step)
	assert.Equal(t, signup.ErrInvalidPhone.Message, state.ErrorMessage)
	assert.NotEmpty(t, state.ID)
}

func TestSignupVerify_RemovesFlow(t *testing.T) {
	service, store, auth := newTestSignupService(t)
	auth.On("RequestCode", mock.Anything, mock.Anything).Return(nil).Once()
	auth.On("VerifyCode", mock.Anything, "0501234567", "123456").
		Return(&authclient.Tokens{AccessToken: "access", RefreshToken: "refresh"}, nil).Once()

	state, err := service.Start(context.Background(), signupForm())
	require.NoError(t, err)

	result, err := service.Verify(context.Background(), state.ID, "12-34-56")

	require.NoError(t, err)
	assert.Equal(t, "access", result.Tokens.AccessToken)
	assert.Equal(t, signup.StepVerified, result.State.Step)
	assert.Equal(t, 0, store.Len())

	_, err = service.Get(state.ID)
	assert.ErrorIs(t, err, signup.ErrFlowNotFound)
}

func TestSignupVerify_InvalidCodeKeepsFlow(t *testing.T) {
	service, store, auth := newTestSignupService(t)
	auth.On("RequestCode", mock.Anything, mock.Anything).Return(nil).Once()
	auth.On("VerifyCode", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &authclient.APIError{Status: 400, Code: authclient.CodeInvalidCode}).Once()

	state, err := service.Start(context.Background(), signupForm())
	require.NoError(t, err)

	result, err := service.Verify(context.Background(), state.ID, "000000")

	assert.ErrorIs(t, err, signup.ErrInvalidCode)
	require.NotNil(t, result)
	assert.Nil(t, result.Tokens)
	assert.Equal(t, signup.StepOTP, result.State.Step)
	assert.Equal(t, "000000", result.State.Code)
	assert.Equal(t, 1, store.Len())
}

func TestSignupSetCodeAndBack(t *testing.T) {
	service, _, auth := newTestSignupService(t)
	auth.On("RequestCode", mock.Anything, mock.Anything).Return(nil).Twice()

	state, err := service.Start(context.Background(), signupForm())
	require.NoError(t, err)

	state, err = service.SetCode(state.ID, "1a2b3c4d5e6f7")
	require.NoError(t, err)
	assert.Equal(t, "123456", state.Code)

	state, err = service.Back(state.ID)
	require.NoError(t, err)
	assert.Equal(t, signup.StepForm, state.Step)
	assert.Empty(t, state.Code)
	assert.Equal(t, "Dana", state.Form.FirstName)

	state, err = service.Submit(context.Background(), state.ID, signupForm())
	require.NoError(t, err)
	assert.Equal(t, signup.StepOTP, state.Step)
	auth.AssertExpectations(t)
}

func TestSignupResend_Cooldown(t *testing.T) {
	service, _, auth := newTestSignupService(t)
	auth.On("RequestCode", mock.Anything, mock.Anything).Return(nil).Once()

	state, err := service.Start(context.Background(), signupForm())
	require.NoError(t, err)

	state, err = service.Resend(context.Background(), state.ID)

	assert.ErrorIs(t, err, signup.ErrResendCooldown)
	assert.Equal(t, signup.StepOTP, state.Step)
	auth.AssertNumberOfCalls(t, "RequestCode", 1)
}

func TestSignupAbandon(t *testing.T) {
	service, store, auth := newTestSignupService(t)
	auth.On("RequestCode", mock.Anything, mock.Anything).Return(nil).Once()

	state, err := service.Start(context.Background(), signupForm())
	require.NoError(t, err)

	require.NoError(t, service.Abandon(state.ID))
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, service.Abandon(state.ID), signup.ErrFlowNotFound)
}

func TestSignupUnknownFlow(t *testing.T) {
	service, _, _ := newTestSignupService(t)

	_, err := service.Get("missing")
	assert.ErrorIs(t, err, signup.ErrFlowNotFound)

	_, err = service.SetCode("missing", "123456")
	assert.ErrorIs(t, err, signup.ErrFlowNotFound)

	_, err = service.Verify(context.Background(), "missing", "123456")
	assert.ErrorIs(t, err, signup.ErrFlowNotFound)

	_, err = service.Resend(context.Background(), "missing")
	assert.ErrorIs(t, err, signup.ErrFlowNotFound)

	_, err = service.Back("missing")
	assert.ErrorIs(t, err, signup.ErrFlowNotFound)

	_, err = service.Submit(context.Background(), "missing", signupForm())
	assert.ErrorIs(t, err, signup.ErrFlowNotFound)
}
