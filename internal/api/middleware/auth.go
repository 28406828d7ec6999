package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/api/presenter"
	"github.com/darmiel/idtoken/internal/core"
)

// Authorizer verifies an ID token and decides whether it grants admin access.
type Authorizer interface {
	AuthorizeAdmin(ctx context.Context, idToken string) (*core.DecodedToken, *core.Rule, error)
}

// AdminAuth only lets requests through whose bearer ID token matches an admin rule.
func AdminAuth(authorizer Authorizer) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := log.Ctx(ctx)

			auth := r.Header.Get("Authorization")
			tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			if tokenStr == "" {
				presenter.Error(w, r, "login required", http.StatusUnauthorized)
				return
			}

			decoded, rule, err := authorizer.AuthorizeAdmin(ctx, tokenStr)
			if err != nil {
				logger.Warn().Err(err).Msg("admin access denied")
				presenter.Err(w, r, err)
				return
			}

			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("admin", decoded.UID).Str("admin_rule", rule.Name)
			})

			next.ServeHTTP(w, r)
		})
	}
}
