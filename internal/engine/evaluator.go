package engine

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/darmiel/idtoken/internal/core"
)

// ruleResult is a simplified result of rule evaluation
type ruleResult struct {
	Matched    bool
	Conditions []core.ConditionResult
}

// Evaluate returns the first rule granting admin access to token.
func (e *Engine) Evaluate(token *core.DecodedToken) (*core.Rule, error) {
	attrs := core.TokenAttributes(token)
	for _, rule := range e.rules {
		if checkRule(rule, token, attrs).Matched {
			return &rule, nil
		}
	}
	return nil, ErrNoRuleMatch
}

// Trace evaluates every rule against token and records why each one matched or failed.
func (e *Engine) Trace(token *core.DecodedToken) *core.EvaluationTrace {
	attrs := core.TokenAttributes(token)
	trace := &core.EvaluationTrace{
		Subject:    token.UID,
		Attributes: attrs,
	}
	for _, rule := range e.rules {
		result := checkRule(rule, token, attrs)
		trace.RuleResults = append(trace.RuleResults, core.RuleResult{
			RuleName:         rule.Name,
			Description:      rule.Description,
			Matched:          result.Matched,
			ConditionResults: result.Conditions,
		})
		if result.Matched && !trace.FinalDecision {
			trace.FinalDecision = true
			trace.GrantedRule = rule.Name
		}
	}
	return trace
}

// checkRule evaluates a single rule against the token.
func checkRule(rule core.Rule, token *core.DecodedToken, attrs map[string]any) ruleResult {
	result := ruleResult{
		Matched:    true, // fail on any mismatch
		Conditions: []core.ConditionResult{},
	}

	addResult := func(expression string, passed bool, reason string) {
		result.Conditions = append(result.Conditions, core.ConditionResult{
			Expression: expression,
			Matched:    passed,
			Reason:     reason,
		})
		if !passed {
			result.Matched = false
		}
	}

	if rule.Match.Condition != nil {
		cr := evaluateCondition(*rule.Match.Condition, attrs)
		if !cr.Matched {
			result.Matched = false
		}
		flattenConditionResult(&result.Conditions, cr, 0)
	}

	if rule.Match.CompiledExpr != nil {
		ok, err := expr.Run(rule.Match.CompiledExpr, map[string]any{
			"token":  token,
			"claims": token.Claims,
			"uid":    token.UID,
		})
		if err != nil {
			addResult(rule.Match.Expr, false, fmt.Sprintf("error evaluating expression: %v", err))
		} else if b, bOk := ok.(bool); !bOk || !b {
			addResult(rule.Match.Expr, false, "expression evaluated to false")
		} else {
			addResult(rule.Match.Expr, true, "")
		}
	}

	return result
}

func flattenConditionResult(out *[]core.ConditionResult, cr core.ConditionResult, depth int) {
	indent := strings.Repeat("  ", depth)

	if cr.Expression != "" {
		*out = append(*out, core.ConditionResult{
			Expression: indent + cr.Expression,
			Matched:    cr.Matched,
			Reason:     cr.Reason,
		})
		return
	}

	if cr.Label != "" {
		*out = append(*out, core.ConditionResult{
			Expression: indent + "[" + cr.Label + "]",
			Matched:    cr.Matched,
		})
	}

	for _, child := range cr.Children {
		flattenConditionResult(out, child, depth+1)
	}
}

func evaluateCondition(cond core.Condition, attributes map[string]any) core.ConditionResult {
	// logic operators
	if len(cond.All) > 0 {
		res := core.ConditionResult{
			Matched: true,
			Label:   "AND",
		}
		for _, child := range cond.All {
			cr := evaluateCondition(child, attributes)
			res.Children = append(res.Children, cr)
			if !cr.Matched {
				res.Matched = false
			}
		}
		return res
	}

	if len(cond.Any) > 0 {
		res := core.ConditionResult{
			Matched: false,
			Label:   "OR",
		}
		for _, child := range cond.Any {
			cr := evaluateCondition(child, attributes)
			res.Children = append(res.Children, cr)
			if cr.Matched {
				res.Matched = true
			}
		}
		return res
	}

	if cond.Not != nil {
		cr := evaluateCondition(*cond.Not, attributes)
		return core.ConditionResult{
			Matched:  !cr.Matched,
			Label:    "NOT",
			Children: []core.ConditionResult{cr},
		}
	}

	if cond.Key != "" {
		passed, reason := evaluateLeaf(cond, attributes)
		return core.ConditionResult{
			Matched:    passed,
			Expression: fmt.Sprintf("%s %s %v", cond.Key, cond.Operator, cond.Value),
			Reason:     reason,
		}
	}

	return core.ConditionResult{
		Matched: true,
		Label:   "(empty)",
	}
}
