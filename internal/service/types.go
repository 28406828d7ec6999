package service

type MintRequest struct {
	// UID is the user id the custom token is minted for.
	UID string

	// Claims are optional developer claims. Reserved claim names are rejected.
	Claims map[string]any

	// TenantID is optional. Defaults to the tenant of the service.
	TenantID string
}

type MintResponse struct {
	Token string

	// IssuedAt and ExpiresAt are Unix seconds.
	IssuedAt  int64
	ExpiresAt int64
}

type AuditQuery struct {
	// Action filters by exact action, e.g. "token.verify".
	Action string

	// Subject filters by uid.
	Subject string

	CorrelationID string
	Fingerprint   string

	// FailedOnly only returns entries with Success == false.
	FailedOnly bool

	Limit int
}

// Summary describes what an AuthService is configured to do.
type Summary struct {
	ProjectID string `json:"project_id"`
	TenantID  string `json:"tenant_id,omitempty"`
	Emulator  bool   `json:"emulator"`

	MintingEnabled    bool `json:"minting_enabled"`
	RevocationEnabled bool `json:"revocation_enabled"`

	// AdminRules are the names of the admin rules, in evaluation order.
	AdminRules []string `json:"admin_rules"`
}
