package services

import (
	"context"
	"strings"

	"github.com/stwalsh4118/michraz/internal/authclient"
	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/repository"
)

// UserLookup validates a session token. *authclient.Client implements it.
type UserLookup interface {
	GetUser(ctx context.Context, accessToken string) (*authclient.User, error)
}

// SubscribeResult reports what happened to a newsletter signup.
type SubscribeResult struct {
	Email         string `json:"email"`
	UserID        string `json:"user_id,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Stored        bool   `json:"stored"`
}

// EmailSignupService records newsletter signups.
type EmailSignupService interface {
	// Subscribe records email. When accessToken is non-empty the session is
	// restored first so the row can be tied to the user; a failed restore
	// falls back to an anonymous signup. Storage is best effort and never
	// fails the call.
	Subscribe(ctx context.Context, email, accessToken string) (*SubscribeResult, error)
}

type emailSignupService struct {
	repo  repository.EmailSignupRepository
	users UserLookup
	log   *logger.Logger
}

// NewEmailSignupService creates an EmailSignupService. repo may be nil when
// no database is configured; signups are then only logged.
func NewEmailSignupService(repo repository.EmailSignupRepository, users UserLookup, log *logger.Logger) EmailSignupService {
	return &emailSignupService{
		repo:  repo,
		users: users,
		log:   log,
	}
}

func (s *emailSignupService) Subscribe(ctx context.Context, email, accessToken string) (*SubscribeResult, error) {
	result := &SubscribeResult{Email: strings.TrimSpace(email)}

	if accessToken != "" && s.users != nil {
		user, err := s.users.GetUser(ctx, accessToken)
		if err != nil {
			s.log.Debug("Session restore failed, continuing anonymously", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			result.UserID = user.ID
			result.Authenticated = true
		}
	}

	if s.repo == nil {
		s.log.Info("Email signup received without storage", map[string]interface{}{
			"authenticated": result.Authenticated,
		})
		return result, nil
	}

	if err := s.repo.Insert(ctx, result.Email, result.UserID); err != nil {
		s.log.Warn("Failed to store email signup", map[string]interface{}{
			"authenticated": result.Authenticated,
			"error":         err.Error(),
		})
		return result, nil
	}

	result.Stored = true
	s.log.Info("Email signup stored", map[string]interface{}{
		"authenticated": result.Authenticated,
	})
	return result, nil
}
