package condition

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Tree is a parsed filter: dotted field path → predicate. All fields must
// pass (implicit AND); an empty tree matches everything.
type Tree map[string]Predicate

// Predicate holds the checks declared for one field, one variant per
// operator family. Every non-nil variant must hold for the field to pass.
type Predicate struct {
	Equals *EqualsCheck
	Range  *RangeCheck
	Set    *SetCheck
	String *StringCheck
}

// EqualsCheck covers eq/ne, including the shorthand where the filter value
// is a bare scalar (implies equality).
type EqualsCheck struct {
	Eq    any
	Ne    any
	HasEq bool
	HasNe bool
}

// RangeCheck covers gte/gt/lte/lt over numeric payload values.
type RangeCheck struct {
	GTE *float64
	GT  *float64
	LTE *float64
	LT  *float64
}

// SetCheck covers in/nin against an explicit list.
type SetCheck struct {
	In  []any
	NIn []any
}

// StringCheck covers contains/starts_with/ends_with substring tests on the
// string coercion of the payload value.
type StringCheck struct {
	Contains   *string
	StartsWith *string
	EndsWith   *string
}

// UnsupportedOperatorError reports an operator key the engine does not know.
// Unknown keys are an error, not silently ignored, so a typo in a rule's
// filter surfaces as a per-rule failure instead of a rule that always fires.
type UnsupportedOperatorError struct {
	Field    string
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("field %q: unsupported operator %q", e.Field, e.Operator)
}

// Parse decodes a raw filter document into a Tree. A nil or empty document
// parses to an empty tree. Each field maps to either a bare scalar
// (equality) or an object of operator keys.
func Parse(raw json.RawMessage) (Tree, error) {
	if len(raw) == 0 {
		return Tree{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding filter tree: %w", err)
	}

	tree := make(Tree, len(fields))
	for field, rawVal := range fields {
		pred, err := parsePredicate(field, rawVal)
		if err != nil {
			return nil, err
		}
		tree[field] = pred
	}
	return tree, nil
}

func parsePredicate(field string, raw json.RawMessage) (Predicate, error) {
	var val any
	if err := json.Unmarshal(raw, &val); err != nil {
		return Predicate{}, fmt.Errorf("decoding filter for field %q: %w", field, err)
	}

	obj, isObject := val.(map[string]any)
	if !isObject {
		// Arrays and scalars alike mean strict equality.
		return Predicate{Equals: &EqualsCheck{Eq: val, HasEq: true}}, nil
	}

	var pred Predicate
	// Deterministic iteration so the reported operator for a multi-typo
	// filter is stable.
	ops := make([]string, 0, len(obj))
	for op := range obj {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		operand := obj[op]
		switch op {
		case "eq":
			eq := ensureEquals(&pred)
			eq.Eq = operand
			eq.HasEq = true
		case "ne":
			eq := ensureEquals(&pred)
			eq.Ne = operand
			eq.HasNe = true
		case "gte", "gt", "lte", "lt":
			n, ok := operand.(float64)
			if !ok {
				return Predicate{}, fmt.Errorf("field %q: operator %q requires a numeric operand", field, op)
			}
			if pred.Range == nil {
				pred.Range = &RangeCheck{}
			}
			switch op {
			case "gte":
				pred.Range.GTE = &n
			case "gt":
				pred.Range.GT = &n
			case "lte":
				pred.Range.LTE = &n
			case "lt":
				pred.Range.LT = &n
			}
		case "in", "nin":
			list, ok := operand.([]any)
			if !ok {
				return Predicate{}, fmt.Errorf("field %q: operator %q requires a list operand", field, op)
			}
			if pred.Set == nil {
				pred.Set = &SetCheck{}
			}
			if op == "in" {
				pred.Set.In = list
			} else {
				pred.Set.NIn = list
			}
		case "contains", "starts_with", "ends_with":
			s, ok := operand.(string)
			if !ok {
				return Predicate{}, fmt.Errorf("field %q: operator %q requires a string operand", field, op)
			}
			if pred.String == nil {
				pred.String = &StringCheck{}
			}
			switch op {
			case "contains":
				pred.String.Contains = &s
			case "starts_with":
				pred.String.StartsWith = &s
			case "ends_with":
				pred.String.EndsWith = &s
			}
		default:
			return Predicate{}, &UnsupportedOperatorError{Field: field, Operator: op}
		}
	}
	return pred, nil
}

func ensureEquals(p *Predicate) *EqualsCheck {
	if p.Equals == nil {
		p.Equals = &EqualsCheck{}
	}
	return p.Equals
}
