package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "token.mint", "token.verify")
	Action string `json:"action"`

	// Subject is the uid a token was minted for or verified as
	Subject string `json:"subject,omitempty"`

	// TenantID is set for tenant-scoped operations
	TenantID string `json:"tenant_id,omitempty"`

	// TokenFingerprint identifies the token without storing it
	TokenFingerprint string `json:"token_fingerprint,omitempty"`

	Success bool `json:"success"`

	// ErrorKind is the stable kind of the failure, if any
	ErrorKind Kind   `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	// Metadata contains operation details (e.g. "check_revoked")
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}
