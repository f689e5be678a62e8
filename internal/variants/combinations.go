// Package variants expands product attribute schemas into variant combinations
// and checks variant attribute values against those schemas.
package variants

import (
	"fmt"
	"slices"
	"strings"

	"brand-catalog-service/internal/domain"
)

// Attribute is one variation axis: a key and its allowed values in declaration order.
type Attribute struct {
	Key    string
	Values []string
}

// Combinations returns the Cartesian product of attrs as flat key/value maps.
// Results are ordered by attribute declaration order, then by value order.
// No attributes yields a single empty combination; an attribute without
// values yields none.
func Combinations(attrs []Attribute) []map[string]string {
	out := []map[string]string{}
	current := make(map[string]string, len(attrs))

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(attrs) {
			snapshot := make(map[string]string, len(current))
			for k, v := range current {
				snapshot[k] = v
			}
			out = append(out, snapshot)
			return
		}
		attr := attrs[depth]
		for _, v := range attr.Values {
			current[attr.Key] = v
			walk(depth + 1)
		}
		delete(current, attr.Key)
	}
	walk(0)
	return out
}

// FromSchemas builds the ordered generator input from a product's attribute schemas.
func FromSchemas(schemas []domain.ProductAttribute) []Attribute {
	out := make([]Attribute, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, Attribute{Key: s.AttributeID, Values: s.Options.Values()})
	}
	return out
}

// Validate checks a variant's attribute values against the product's schemas
// and returns one human-readable message per violation.
func Validate(schemas []domain.ProductAttribute, values domain.AttributeValues) []string {
	var problems []string
	known := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		known[s.AttributeID] = true
		v, ok := values[s.AttributeID]
		if !ok || v == "" {
			if s.IsRequired {
				problems = append(problems, fmt.Sprintf("%s is required", displayName(s)))
			}
			continue
		}
		allowed := s.Options.Values()
		if !slices.Contains(allowed, v) {
			problems = append(problems, fmt.Sprintf("%q is not a valid value for %s (allowed: %s)",
				v, displayName(s), strings.Join(allowed, ", ")))
		}
	}

	var unknown []string
	for k := range values {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	for _, k := range unknown {
		problems = append(problems, fmt.Sprintf("%s is not an attribute of this product", k))
	}
	return problems
}

func displayName(s domain.ProductAttribute) string {
	if s.Label != "" {
		return s.Label
	}
	return s.AttributeID
}

// SKU derives a variant SKU from a base and a combination, taking values in
// the attribute order of attrs.
func SKU(base string, attrs []Attribute, combo map[string]string) string {
	parts := []string{strings.ToUpper(base)}
	for _, a := range attrs {
		if v := combo[a.Key]; v != "" {
			parts = append(parts, strings.ToUpper(skuSafe(v)))
		}
	}
	return strings.Join(parts, "-")
}

func skuSafe(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '/':
			b.WriteRune('_')
		}
	}
	return b.String()
}
