package provider

import "strings"

// Match reports whether item belongs to the rule's market. The field may be a dotted path.
func (m MarketRule) Match(item map[string]any) bool {
	var v any
	if strings.Contains(m.Field, ".") {
		v = Nested(item, m.Field)
	} else {
		v = item[m.Field]
	}

	s, ok := v.(string)
	if !ok {
		return false
	}
	s = normalize(s)
	for _, want := range m.Equals {
		if normalize(want) == s {
			return true
		}
	}

	return false
}

// Filter returns the items matching the rule, preserving order.
func (m MarketRule) Filter(items []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m.Match(it) {
			out = append(out, it)
		}
	}

	return out
}

// Nested walks a dotted path through nested maps, returning nil when any part is missing.
func Nested(m map[string]any, dotted string) any {
	var cur any = m
	for _, part := range strings.Split(dotted, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = mm[part]
		if !ok {
			return nil
		}
	}

	return cur
}
