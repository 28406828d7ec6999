package core

import "errors"

// ErrUserNotFound is returned by a UserGetter when the uid is unknown.
var ErrUserNotFound = errors.New("user not found")

// UserRecord holds the subset of a user account relevant to token revocation.
type UserRecord struct {
	// UID is the user's unique identifier.
	UID string `json:"localId" yaml:"uid" mapstructure:"uid"`

	// Disabled users cannot hold valid tokens when revocation is checked.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`

	// TokensValidAfterMillis is the instant (Unix milliseconds) before which
	// all tokens of this user are considered revoked.
	TokensValidAfterMillis int64 `json:"tokensValidAfterMillis" yaml:"tokens_valid_after_millis" mapstructure:"tokens_valid_after_millis"`
}
