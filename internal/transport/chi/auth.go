package chi

import (
	"net/http"
	"strings"

	"github.com/kailas-cloud/crmsearch/internal/domain"
)

// Tenant and principal resolution headers. Resolution itself happens
// upstream; these middleware lift the resolved values into the context.
const (
	headerTenantID = "X-Tenant-ID"
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/api/v1/search/health/": {},
	"/metrics":               {},
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled — pass everything through
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeBadRequest, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					codeBadRequest, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			if _, ok := validKeys[token]; !ok {
				writeError(w, http.StatusUnauthorized, codeBadRequest, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TenantMiddleware lifts the resolved tenant id and principal from
// request headers into the domain context.
func TenantMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if tenantID := r.Header.Get(headerTenantID); tenantID != "" {
				ctx = domain.ContextWithTenant(ctx, tenantID)
			}
			if userID := r.Header.Get(headerUserID); userID != "" {
				ctx = domain.ContextWithPrincipal(ctx, domain.Principal{
					UserID: userID,
					Role:   r.Header.Get(headerUserRole),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
