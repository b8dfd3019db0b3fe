package condition

import (
	"strconv"
	"strings"
)

// Match reports whether the payload satisfies every predicate in the tree.
// It is pure and never panics: a field that is absent from the payload
// simply fails whatever checks were declared for it, and an empty tree is
// vacuously true.
func (t Tree) Match(payload map[string]any) bool {
	for field, pred := range t {
		val, found := resolve(payload, field)
		if !pred.match(val, found) {
			return false
		}
	}
	return true
}

// resolve walks a dotted path ("a.b.c") through nested objects.
func resolve(payload map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = payload
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (p Predicate) match(val any, found bool) bool {
	if p.Equals != nil && !p.Equals.match(val, found) {
		return false
	}
	if p.Range != nil && !p.Range.match(val, found) {
		return false
	}
	if p.Set != nil && !p.Set.match(val, found) {
		return false
	}
	if p.String != nil && !p.String.match(val, found) {
		return false
	}
	return true
}

func (c *EqualsCheck) match(val any, found bool) bool {
	if c.HasEq {
		if !found || !equalValues(val, c.Eq) {
			return false
		}
	}
	if c.HasNe {
		// An absent field is "not equal" to anything.
		if found && equalValues(val, c.Ne) {
			return false
		}
	}
	return true
}

func (c *RangeCheck) match(val any, found bool) bool {
	if !found {
		return false
	}
	n, ok := asNumber(val)
	if !ok {
		return false
	}
	if c.GTE != nil && !(n >= *c.GTE) {
		return false
	}
	if c.GT != nil && !(n > *c.GT) {
		return false
	}
	if c.LTE != nil && !(n <= *c.LTE) {
		return false
	}
	if c.LT != nil && !(n < *c.LT) {
		return false
	}
	return true
}

func (c *SetCheck) match(val any, found bool) bool {
	if c.In != nil {
		if !found || !containsValue(c.In, val) {
			return false
		}
	}
	if c.NIn != nil {
		if found && containsValue(c.NIn, val) {
			return false
		}
	}
	return true
}

func (c *StringCheck) match(val any, found bool) bool {
	if !found {
		return false
	}
	s, ok := asString(val)
	if !ok {
		return false
	}
	if c.Contains != nil && !strings.Contains(s, *c.Contains) {
		return false
	}
	if c.StartsWith != nil && !strings.HasPrefix(s, *c.StartsWith) {
		return false
	}
	if c.EndsWith != nil && !strings.HasSuffix(s, *c.EndsWith) {
		return false
	}
	return true
}

func containsValue(list []any, val any) bool {
	for _, item := range list {
		if equalValues(val, item) {
			return true
		}
	}
	return false
}

// equalValues compares two decoded JSON values. Numbers compare numerically
// regardless of how they were written; composite values compare element-wise.
func equalValues(a, b any) bool {
	if an, ok := asNumber(a); ok {
		bn, ok := asNumber(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, ok := bv[k]
			if !ok || !equalValues(v, bval) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func asNumber(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asString coerces scalars to their string form for substring operators.
// Composite values have no useful string form and fail the check.
func asString(val any) (string, bool) {
	switch s := val.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
