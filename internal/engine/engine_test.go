package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/darmiel/idtoken/internal/core"
)

func TestEngine_Evaluate(t *testing.T) {
	eng, err := New([]core.Rule{
		{
			Name: "rule-support",
			Match: core.Match{
				Condition: &core.Condition{
					All: []core.Condition{
						{Key: "roles", Operator: core.OpContains, Value: "support"},
						{Key: "tenant", Operator: core.OpNotExists},
					},
				},
			},
		},
		{
			Name: "rule-expr",
			Match: core.Match{
				Expr: `claims.level >= 5 && token.Firebase.SignInProvider == "password"`,
			},
		},
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		token    *core.DecodedToken
		wantErr  bool
		wantRule string
	}{
		{
			name: "Match Support Rule",
			token: &core.DecodedToken{
				UID:    "alice",
				Claims: map[string]any{"roles": []any{"support"}},
			},
			wantRule: "rule-support",
		},
		{
			name: "No Match - Tenant Token",
			token: &core.DecodedToken{
				UID:      "alice",
				Claims:   map[string]any{"roles": []any{"support"}},
				Firebase: core.FirebaseInfo{Tenant: "tenant-a"},
			},
			wantErr: true,
		},
		{
			name: "Expression Match",
			token: &core.DecodedToken{
				UID:      "bob",
				Claims:   map[string]any{"level": float64(7)},
				Firebase: core.FirebaseInfo{SignInProvider: "password"},
			},
			wantRule: "rule-expr",
		},
		{
			name: "Expression Fail",
			token: &core.DecodedToken{
				UID:      "bob",
				Claims:   map[string]any{"level": float64(7)},
				Firebase: core.FirebaseInfo{SignInProvider: "anonymous"},
			},
			wantErr: true,
		},
		{
			name: "Expression Error - Missing Claim",
			token: &core.DecodedToken{
				UID:      "carol",
				Claims:   map[string]any{},
				Firebase: core.FirebaseInfo{SignInProvider: "password"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotRule, err := eng.Evaluate(tt.token)

			if tt.wantErr {
				if !errors.Is(err, ErrNoRuleMatch) {
					t.Errorf("Evaluate() error = %v, want ErrNoRuleMatch", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Evaluate() unexpected error: %v", err)
			}
			if gotRule.Name != tt.wantRule {
				t.Errorf("Evaluate() rule = %v, want %v", gotRule.Name, tt.wantRule)
			}
		})
	}
}

func TestEngine_DefaultRules(t *testing.T) {
	eng, err := New(nil)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	if _, err := eng.Evaluate(&core.DecodedToken{UID: "root", Claims: map[string]any{"admin": true}}); err != nil {
		t.Errorf("admin claim should be granted, got %v", err)
	}
	if _, err := eng.Evaluate(&core.DecodedToken{UID: "user", Claims: map[string]any{"admin": "true"}}); err == nil {
		t.Errorf("string admin claim should not be granted")
	}
	if _, err := eng.Evaluate(&core.DecodedToken{UID: "user"}); err == nil {
		t.Errorf("token without claims should not be granted")
	}
}

func TestNew_InvalidRules(t *testing.T) {
	leaf := &core.Condition{Key: "admin", Operator: core.OpEqual, Value: true}

	tests := []struct {
		name  string
		rules []core.Rule
	}{
		{name: "missing name", rules: []core.Rule{{Match: core.Match{Condition: leaf}}}},
		{name: "duplicate name", rules: []core.Rule{
			{Name: "a", Match: core.Match{Condition: leaf}},
			{Name: "a", Match: core.Match{Condition: leaf}},
		}},
		{name: "condition and expr", rules: []core.Rule{
			{Name: "a", Match: core.Match{Condition: leaf, Expr: "uid == 'x'"}},
		}},
		{name: "empty match", rules: []core.Rule{{Name: "a"}}},
		{name: "bad expr", rules: []core.Rule{{Name: "a", Match: core.Match{Expr: "uid =="}}}},
		{name: "non-bool expr", rules: []core.Rule{{Name: "a", Match: core.Match{Expr: "uid"}}}},
		{name: "bad operator", rules: []core.Rule{
			{Name: "a", Match: core.Match{Condition: &core.Condition{Key: "admin", Operator: "gt"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.rules); err == nil {
				t.Errorf("New() expected error, got nil")
			}
		})
	}
}

func TestEngine_Trace(t *testing.T) {
	eng, err := New([]core.Rule{
		{
			Name:  "never",
			Match: core.Match{Condition: &core.Condition{Key: "uid", Operator: core.OpEqual, Value: "nobody"}},
		},
		{
			Name:  "everyone",
			Match: core.Match{AllowEmptyCondition: true},
		},
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	trace := eng.Trace(&core.DecodedToken{UID: "alice", Issuer: "iss", Audience: "aud"})

	if !trace.FinalDecision || trace.GrantedRule != "everyone" {
		t.Errorf("Trace() decision = %v/%q, want true/everyone", trace.FinalDecision, trace.GrantedRule)
	}
	want := []core.RuleResult{
		{
			RuleName: "never",
			Matched:  false,
			ConditionResults: []core.ConditionResult{{
				Expression: "uid equals nobody",
				Reason:     "expected 'alice' to equal 'nobody'",
			}},
		},
		{
			RuleName:         "everyone",
			Matched:          true,
			ConditionResults: []core.ConditionResult{},
		},
	}
	if diff := cmp.Diff(want, trace.RuleResults); diff != "" {
		t.Errorf("Trace() rule results mismatch (-want +got):\n%s", diff)
	}
}
