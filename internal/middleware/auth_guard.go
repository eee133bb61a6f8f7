package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/michraz/internal/authclient"
)

const (
	// SessionCookie holds the access token issued by the signup flow.
	SessionCookie = "sb-access-token"
	// SignupPath is where unauthenticated visitors are sent.
	SignupPath = "/flow/signup"
	// UserIDKey is the context key for the authenticated user id.
	UserIDKey = "user_id"
)

// TokenVerifier resolves an access token to its user.
// *authclient.Client implements it.
type TokenVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*authclient.User, error)
}

// AuthGuard admits only requests carrying a session the auth platform
// accepts. The token comes from the session cookie or a Bearer header.
// Rejected requests get a 401 whose details name the signup page.
func AuthGuard(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			rejectUnauthenticated(c, "missing_session", nil)
			return
		}

		user, err := verifier.GetUser(c.Request.Context(), token)
		if err != nil || user == nil || user.ID == "" {
			rejectUnauthenticated(c, "invalid_session", err)
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// SessionToken returns the access token from the session cookie, falling
// back to an Authorization: Bearer header.
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// GetUserID returns the user id set by AuthGuard, or "".
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func rejectUnauthenticated(c *gin.Context, reason string, err error) {
	if log := GetLogger(c); log != nil {
		fields := map[string]interface{}{
			"reason": reason,
			"path":   c.Request.URL.Path,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		log.Info("Session rejected", fields)
	}

	abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to continue", map[string]interface{}{
		"redirect": SignupPath,
	})
}
