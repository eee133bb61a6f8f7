package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsMethods are the verbs the tender and signup routes answer to.
var corsMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
}

// CORS allows the listed front-end origins to call the API with credentials,
// so the session cookie set by the verify endpoint travels back on later calls.
// Origins may use a single "*" wildcard, e.g. https://*.michraz.co.il for
// preview deployments.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     normalizeOrigins(allowedOrigins),
		AllowWildcard:    true,
		AllowMethods:     corsMethods,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// normalizeOrigins drops blanks and trailing slashes. Browsers send the
// Origin header without a path, so "https://host/" would never match.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	seen := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
