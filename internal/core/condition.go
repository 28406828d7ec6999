package core

import "fmt"

type ConditionResult struct {
	Matched bool `json:"matched"`

	// For leaves
	Expression string `json:"expression,omitempty"` // e.g. "sign_in_provider equals password"
	Reason     string `json:"reason,omitempty"`

	// For branching
	Label    string            `json:"label,omitempty"` // e.g. "AND"
	Children []ConditionResult `json:"children,omitempty"`
}

// Operator defines how to compare values.
type Operator string

const (
	OpEqual    Operator = "equals"
	OpNotEqual Operator = "not_equals"
	// OpContains means the attribute value contains the given substring or item.
	// for strings: "alice@acme.com" contains "@acme.com"
	// for lists: ["a", "b", "c"] contains "b"
	OpContains Operator = "contains"
	// OpIn means the attribute value is in the given list.
	// e.g., tenant "b" in ["a", "b", "c"]
	OpIn        Operator = "in"
	OpNotIn     Operator = "not_in"
	OpExists    Operator = "exists"
	OpNotExists Operator = "not_exists"
)

func (op Operator) IsValid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpContains, OpIn, OpNotIn, OpExists, OpNotExists:
		return true
	default:
		return false
	}
}

// Condition represents a check against the attributes of a verified token.
type Condition struct {
	// Logic operators
	All []Condition `yaml:"all" json:"all,omitempty"`
	Any []Condition `yaml:"any" json:"any,omitempty"`
	Not *Condition  `yaml:"not" json:"not,omitempty"`

	// Leaf condition
	Key      string   `yaml:"key" json:"key,omitempty"`
	Operator Operator `yaml:"operator" json:"operator,omitempty"`
	Value    any      `yaml:"value" json:"value,omitempty"`
}

func (c *Condition) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[string]any
	if err := unmarshal(&raw); err != nil {
		// well it needs to be able to unmarshal into a map
		// otherwise the user entered something very weird
		return err
	}

	// isExplicit marks whether the condition is explicitly defined:
	//   { key: uid, operator: equals, value: "12345" }
	// or implicitly:
	//   { uid: "12345" }
	isExplicit := false
	for k := range raw {
		if k == "all" || k == "any" || k == "not" || k == "key" || k == "operator" || k == "value" {
			isExplicit = true
			break
		}
	}

	if isExplicit {
		type plain Condition // prevents recursion into UnmarshalYAML
		var p plain
		if err := unmarshal(&p); err != nil {
			return err
		}
		*c = Condition(p)

		// implicit EQ operator if operator missing
		if c.Key != "" && c.Operator == "" {
			c.Operator = OpEqual
		}
		return nil
	}

	// shorthands: { admin: true } means { key: "admin", operator: "equals", value: true }
	// and { tenant: { in: [a, b] } } means { key: "tenant", operator: "in", value: [a, b] }
	var children []Condition
	for k, v := range raw {
		sub := Condition{
			Key:      k,
			Operator: OpEqual,
			Value:    v,
		}
		if vMap, ok := v.(map[string]any); ok && len(vMap) == 1 {
			for opKey, opVal := range vMap {
				if op := Operator(opKey); op.IsValid() {
					sub.Operator = op
					sub.Value = opVal
				}
			}
		}
		children = append(children, sub)
	}

	if len(children) == 1 {
		*c = children[0]
	} else {
		// otherwise implicit AND
		c.All = children
	}
	return nil
}

func (c *Condition) Validate() error {
	if c == nil {
		return nil
	}

	hasAll := len(c.All) > 0
	hasAny := len(c.Any) > 0
	hasNot := c.Not != nil
	hasLeaf := c.Key != ""

	for _, sub := range c.All {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	for _, sub := range c.Any {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	if hasNot {
		if err := c.Not.Validate(); err != nil {
			return err
		}
	}
	if hasLeaf && !c.Operator.IsValid() {
		return fmt.Errorf("invalid operator '%s' for key '%s'", c.Operator, c.Key)
	}

	// make sure only one of the types is used
	count := 0
	for _, set := range []bool{hasAll, hasAny, hasNot, hasLeaf} {
		if set {
			count++
		}
	}
	switch count {
	case 0:
		return fmt.Errorf("condition is missing required fields; must be one of (all, any, not, leaf)")
	case 1:
		return nil
	default:
		return fmt.Errorf("condition for key '%s' has multiple types set (all, any, not, leaf); only one is allowed", c.Key)
	}
}
