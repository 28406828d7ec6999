package engine

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/darmiel/idtoken/internal/core"
)

var ErrNoRuleMatch = errors.New("no admin rule matches this token")

// DefaultRules grant admin access to tokens carrying the developer claim admin: true.
func DefaultRules() []core.Rule {
	return []core.Rule{
		{
			Name:        "admin-claim",
			Description: "tokens with the developer claim 'admin: true'",
			Match: core.Match{
				Condition: &core.Condition{Key: "admin", Operator: core.OpEqual, Value: true},
			},
		},
	}
}

// Engine decides which verified tokens may access admin routes.
type Engine struct {
	rules []core.Rule
}

// New validates rules, compiles their expressions and creates an Engine.
// An empty rule set falls back to DefaultRules.
func New(rules []core.Rule) (*Engine, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{
		rules: compiled,
	}, nil
}

// Rules returns the compiled rule set.
func (e *Engine) Rules() []core.Rule {
	return e.rules
}

func exprEnv() map[string]any {
	return map[string]any{
		"token":  &core.DecodedToken{},
		"claims": map[string]any{},
		"uid":    "",
	}
}

func compileRules(rules []core.Rule) ([]core.Rule, error) {
	seenNames := make(map[string]struct{})
	validRules := make([]core.Rule, 0, len(rules))

	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule #%d missing name", i)
		}
		if _, exists := seenNames[rule.Name]; exists {
			return nil, fmt.Errorf("rule name '%s' is not unique", rule.Name)
		}
		seenNames[rule.Name] = struct{}{}

		if rule.Match.Condition != nil && rule.Match.Expr != "" {
			return nil, fmt.Errorf("rule '%s' has both match.condition and match.expr set", rule.Name)
		}
		if rule.Match.Condition == nil && rule.Match.Expr == "" && !rule.Match.AllowEmptyCondition {
			return nil, fmt.Errorf("rule '%s' has neither match.condition nor match.expr set, and allow_empty is false", rule.Name)
		}
		if rule.Match.Expr != "" {
			out, err := expr.Compile(rule.Match.Expr, expr.Env(exprEnv()), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("compiling expr for rule '%s': %w", rule.Name, err)
			}
			rule.Match.CompiledExpr = out
		}
		if rule.Match.Condition != nil {
			if err := rule.Match.Condition.Validate(); err != nil {
				return nil, fmt.Errorf("validating condition for rule '%s': %w", rule.Name, err)
			}
		}

		validRules = append(validRules, rule)
	}

	return validRules, nil
}
