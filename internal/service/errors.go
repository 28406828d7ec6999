package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/darmiel/idtoken/internal/core"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}

// withStatus attaches the status code matching err's kind.
func withStatus(err error) error {
	if err == nil {
		return nil
	}
	return httpError(StatusFor(err), err)
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	switch core.KindOf(err) {
	case core.KindArgument,
		core.KindMalformedToken,
		core.KindUnsupportedAlgorithm,
		core.KindMissingKeyID:
		return http.StatusBadRequest
	case core.KindSignatureVerification,
		core.KindKeyNotFound,
		core.KindExpiredToken,
		core.KindNotYetValid,
		core.KindIssuerMismatch,
		core.KindAudienceMismatch,
		core.KindSubjectInvalid,
		core.KindTenantMismatch,
		core.KindRevoked,
		core.KindUserDisabled:
		return http.StatusUnauthorized
	case core.KindPublicKeyFetch,
		core.KindUserLookup:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
