package core

// FirebaseInfo is the reserved nested claim of platform-issued tokens.
type FirebaseInfo struct {
	// SignInProvider is the provider used to sign in the user (e.g. "password", "custom").
	SignInProvider string `json:"sign_in_provider"`

	// Tenant is set for tokens of tenant-scoped users.
	Tenant string `json:"tenant"`

	// Identities maps provider ids to the identifiers the user has with that provider.
	Identities map[string]any `json:"identities"`
}

// DecodedToken is the result of a successful ID token or session cookie verification.
// It is never returned partially populated.
type DecodedToken struct {
	AuthTime int64  `json:"auth_time"`
	Issuer   string `json:"iss"`
	Audience string `json:"aud"`
	Expires  int64  `json:"exp"`
	IssuedAt int64  `json:"iat"`
	Subject  string `json:"sub,omitempty"`

	// UID mirrors Subject.
	UID string `json:"uid,omitempty"`

	Firebase FirebaseInfo `json:"firebase"`

	// Claims holds every non-standard payload key, including the nested "firebase" object.
	Claims map[string]any `json:"-"`
}

// TenantID returns the tenant the token belongs to, or an empty string.
func (t *DecodedToken) TenantID() string {
	return t.Firebase.Tenant
}

// TokenHeader is the JOSE header of the compact tokens handled here.
type TokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
	KeyID     string `json:"kid,omitempty"`
}
