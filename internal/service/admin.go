package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/correlation"
	"github.com/darmiel/idtoken/internal/engine"
)

// AuthorizeAdmin verifies idToken and returns the admin rule granting access.
func (s *AuthService) AuthorizeAdmin(ctx context.Context, idToken string) (*core.DecodedToken, *core.Rule, error) {
	decoded, err := s.idTokens.Verify(ctx, idToken)
	if err != nil {
		return nil, nil, httpError(http.StatusUnauthorized, err)
	}

	rule, err := s.admins.Evaluate(decoded)
	if err != nil {
		if errors.Is(err, engine.ErrNoRuleMatch) {
			return decoded, nil, httpError(http.StatusForbidden, err)
		}
		return decoded, nil, httpError(http.StatusInternalServerError, err)
	}

	log.Ctx(ctx).Debug().Str("uid", decoded.UID).Str("rule", rule.Name).Msg("admin access granted")
	return decoded, rule, nil
}

// ExplainAdmin verifies idToken and traces every admin rule against it.
func (s *AuthService) ExplainAdmin(ctx context.Context, idToken string) (*core.EvaluationTrace, error) {
	decoded, err := s.idTokens.Verify(ctx, idToken)
	if err != nil {
		return nil, withStatus(err)
	}
	trace := s.admins.Trace(decoded)
	trace.CorrelationID = correlation.FromContext(ctx)
	return trace, nil
}
