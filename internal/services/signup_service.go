package services

import (
	"context"
	"errors"

	"github.com/stwalsh4118/michraz/internal/authclient"
	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/signup"
)

// VerifyResult is a completed signup: the final flow state and the session.
type VerifyResult struct {
	Tokens *authclient.Tokens
	State  signup.State
}

// SignupService drives phone-OTP signup flows held in a signup.Store.
// Every method that fails with a flow error also returns the flow state so
// callers can render the message next to the form.
type SignupService interface {
	// Start creates a flow and submits the form on it.
	Start(ctx context.Context, form signup.Form) (signup.State, error)

	// Submit re-submits the form on an existing flow, after Back.
	Submit(ctx context.Context, id string, form signup.Form) (signup.State, error)

	Get(id string) (signup.State, error)
	SetCode(id, code string) (signup.State, error)

	// Verify checks the code. A verified flow is removed from the store.
	Verify(ctx context.Context, id, code string) (*VerifyResult, error)

	Resend(ctx context.Context, id string) (signup.State, error)
	Back(id string) (signup.State, error)

	// Abandon closes the flow, cancelling any in-flight call.
	Abandon(id string) error
}

type signupService struct {
	store *signup.Store
	log   *logger.Logger
}

// NewSignupService creates a SignupService over store.
func NewSignupService(store *signup.Store, log *logger.Logger) SignupService {
	return &signupService{
		store: store,
		log:   log,
	}
}

func (s *signupService) Start(ctx context.Context, form signup.Form) (signup.State, error) {
	flow := s.store.Create()
	s.log.Info("Signup flow started", map[string]interface{}{
		"flow_id": flow.ID(),
	})
	return s.submit(ctx, flow, form)
}

func (s *signupService) Submit(ctx context.Context, id string, form signup.Form) (signup.State, error) {
	flow, err := s.store.Get(id)
	if err != nil {
		return signup.State{}, err
	}
	return s.submit(ctx, flow, form)
}

func (s *signupService) submit(ctx context.Context, flow *signup.Flow, form signup.Form) (signup.State, error) {
	err := flow.Submit(ctx, form)
	state := flow.State()
	if err != nil {
		s.logFailure("Signup code request failed", flow.ID(), err)
		return state, err
	}

	s.log.Info("Signup code sent", map[string]interface{}{
		"flow_id":     flow.ID(),
		"phone_last4": state.PhoneLastDigits,
	})
	return state, nil
}

func (s *signupService) Get(id string) (signup.State, error) {
	flow, err := s.store.Get(id)
	if err != nil {
		return signup.State{}, err
	}
	return flow.State(), nil
}

func (s *signupService) SetCode(id, code string) (signup.State, error) {
	flow, err := s.store.Get(id)
	if err != nil {
		return signup.State{}, err
	}
	return flow.SetCode(code)
}

func (s *signupService) Verify(ctx context.Context, id, code string) (*VerifyResult, error) {
	flow, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	tokens, err := flow.Verify(ctx, code)
	state := flow.State()
	if err != nil {
		s.logFailure("Signup verification failed", id, err)
		return &VerifyResult{State: state}, err
	}

	if err := s.store.Remove(id); err != nil && !errors.Is(err, signup.ErrFlowNotFound) {
		s.log.Warn("Failed to remove verified signup flow", map[string]interface{}{
			"flow_id": id,
			"error":   err.Error(),
		})
	}

	s.log.Info("Signup verified", map[string]interface{}{
		"flow_id": id,
	})
	return &VerifyResult{Tokens: tokens, State: state}, nil
}

func (s *signupService) Resend(ctx context.Context, id string) (signup.State, error) {
	flow, err := s.store.Get(id)
	if err != nil {
		return signup.State{}, err
	}

	err = flow.Resend(ctx)
	state := flow.State()
	if err != nil {
		s.logFailure("Signup code resend failed", id, err)
		return state, err
	}

	s.log.Info("Signup code resent", map[string]interface{}{
		"flow_id": id,
	})
	return state, nil
}

func (s *signupService) Back(id string) (signup.State, error) {
	flow, err := s.store.Get(id)
	if err != nil {
		return signup.State{}, err
	}
	return flow.Back()
}

func (s *signupService) Abandon(id string) error {
	if err := s.store.Remove(id); err != nil {
		return err
	}
	s.log.Info("Signup flow abandoned", map[string]interface{}{
		"flow_id": id,
	})
	return nil
}

// logFailure logs expected flow errors at warn and anything else at error.
func (s *signupService) logFailure(msg, id string, err error) {
	fields := map[string]interface{}{
		"flow_id": id,
	}
	if fe, ok := signup.AsFlowError(err); ok {
		fields["code"] = fe.Code
		fields["error"] = err.Error()
		s.log.Warn(msg, fields)
		return
	}
	s.log.Error(msg, err, fields)
}
