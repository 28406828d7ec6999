package core

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable category of an Error.
type Kind string

const (
	KindArgument              Kind = "invalid-argument"
	KindConfiguration         Kind = "configuration-error"
	KindSigning               Kind = "signing-error"
	KindMalformedToken        Kind = "malformed-token"
	KindUnsupportedAlgorithm  Kind = "unsupported-algorithm"
	KindMissingKeyID          Kind = "missing-key-id"
	KindSignatureVerification Kind = "signature-verification-failed"
	KindExpiredToken          Kind = "token-expired"
	KindNotYetValid           Kind = "token-not-yet-valid"
	KindIssuerMismatch        Kind = "issuer-mismatch"
	KindAudienceMismatch      Kind = "audience-mismatch"
	KindSubjectInvalid        Kind = "subject-invalid"
	KindTenantMismatch        Kind = "tenant-id-mismatch"
	KindRevoked               Kind = "token-revoked"
	KindUserDisabled          Kind = "user-disabled"
	KindUserLookup            Kind = "user-lookup-failed"
	KindPublicKeyFetch        Kind = "public-key-fetch-failed"
	KindKeyNotFound           Kind = "key-not-found"
)

// Error is returned by every operation of the signer, keys and token packages.
// Err holds the underlying cause for network-dependent failures.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so errors.Is(err, &Error{Kind: k})
// works without comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// NewError creates an Error with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError creates an Error with a formatted message around cause.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or an empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}
