package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/about"

	CreateCustomTokenRoute   = "/v1/tokens/custom"
	VerifyIDTokenRoute       = "/v1/tokens/verify"
	VerifySessionCookieRoute = "/v1/sessions/verify"

	AdminParent     = "/v1/admin/"
	ListAuditsRoute = AdminParent + "audits"
	ExplainRoute    = AdminParent + "explain"
)

// query parameters
const (
	CheckRevokedParam = "check_revoked"
	TenantParam       = "tenant"
)
