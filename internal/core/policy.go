package core

import "github.com/expr-lang/expr/vm"

// Match defines the conditions a verified token must satisfy for a Rule to apply.
type Match struct {
	// Condition is a condition (which can contain multiple sub-conditions) evaluated
	// against the token's attributes, see TokenAttributes.
	// Either provide Condition OR Expr, not both.
	Condition *Condition `yaml:"condition" json:"condition,omitempty"`

	// AllowEmptyCondition indicates whether a rule without Condition and Expr matches every token.
	// This is a security measure to prevent unintentional unrestricted access.
	AllowEmptyCondition bool `yaml:"allow_empty" json:"allow_empty,omitempty"`

	// Expr is an expression evaluated with 'token', 'claims' and 'uid' in scope,
	// e.g. `claims.admin == true && token.Firebase.SignInProvider == "password"`.
	Expr string `yaml:"expr" json:"expr,omitempty"`

	// CompiledExpr holds the pre-compiled form of Expr for efficient evaluation.
	CompiledExpr *vm.Program `yaml:"-" json:"-"`
}

// Rule grants admin access to tokens matching Match.
type Rule struct {
	// Name is a human-readable identifier for logs/debugging.
	Name string `yaml:"name" json:"name"`

	// Description explains the intent of the rule.
	Description string `yaml:"description" json:"description,omitempty"`

	Match Match `yaml:"match" json:"match"`
}

// TokenAttributes flattens a decoded token for condition matching.
// Developer claims are included as-is, the standard fields use the keys
// uid, iss, aud, tenant and sign_in_provider and take precedence.
func TokenAttributes(t *DecodedToken) map[string]any {
	attrs := make(map[string]any, len(t.Claims)+5)
	for k, v := range t.Claims {
		attrs[k] = v
	}
	attrs["uid"] = t.UID
	attrs["iss"] = t.Issuer
	attrs["aud"] = t.Audience
	if tenant := t.TenantID(); tenant != "" {
		attrs["tenant"] = tenant
	}
	if t.Firebase.SignInProvider != "" {
		attrs["sign_in_provider"] = t.Firebase.SignInProvider
	}
	return attrs
}
