package variants

import (
	"testing"

	"brand-catalog-service/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCombinations_TwoByTwo(t *testing.T) {
	got := Combinations([]Attribute{
		{Key: "color", Values: []string{"a", "b"}},
		{Key: "size", Values: []string{"x", "y"}},
	})
	want := []map[string]string{
		{"color": "a", "size": "x"},
		{"color": "a", "size": "y"},
		{"color": "b", "size": "x"},
		{"color": "b", "size": "y"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Combinations() mismatch (-want +got):\n%s", diff)
	}
}

func TestCombinations_Degenerate(t *testing.T) {
	if diff := cmp.Diff([]map[string]string{{}}, Combinations(nil)); diff != "" {
		t.Errorf("no attributes (-want +got):\n%s", diff)
	}

	got := Combinations([]Attribute{
		{Key: "color", Values: []string{"a", "b"}},
		{Key: "size", Values: nil},
	})
	assert.Empty(t, got)
}

func TestCombinations_CountIsProduct(t *testing.T) {
	attrs := []Attribute{
		{Key: "a", Values: []string{"1", "2", "3"}},
		{Key: "b", Values: []string{"x", "y"}},
		{Key: "c", Values: []string{"p", "q", "r", "s"}},
	}
	got := Combinations(attrs)
	assert.Len(t, got, 24)
	assert.Equal(t, map[string]string{"a": "1", "b": "x", "c": "p"}, got[0])
	assert.Equal(t, map[string]string{"a": "3", "b": "y", "c": "s"}, got[23])

	seen := map[string]bool{}
	for _, c := range got {
		key := c["a"] + c["b"] + c["c"]
		assert.False(t, seen[key], "duplicate combination %s", key)
		seen[key] = true
	}
}

func schemas() []domain.ProductAttribute {
	return []domain.ProductAttribute{
		{AttributeID: "color", Label: "Color", IsRequired: true,
			Options: domain.AttributeOptions{{Value: "red", Label: "Red"}, {Value: "blue", Label: "Blue"}}},
		{AttributeID: "size", Label: "Size",
			Options: domain.AttributeOptions{{Value: "s"}, {Value: "m"}}},
	}
}

func TestFromSchemas(t *testing.T) {
	want := []Attribute{
		{Key: "color", Values: []string{"red", "blue"}},
		{Key: "size", Values: []string{"s", "m"}},
	}
	if diff := cmp.Diff(want, FromSchemas(schemas())); diff != "" {
		t.Errorf("FromSchemas() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		values domain.AttributeValues
		want   []string
	}{
		{"valid", domain.AttributeValues{"color": "red", "size": "m"}, nil},
		{"optional omitted", domain.AttributeValues{"color": "blue"}, nil},
		{"required missing", domain.AttributeValues{"size": "s"}, []string{"Color is required"}},
		{"required empty", domain.AttributeValues{"color": ""}, []string{"Color is required"}},
		{"invalid value", domain.AttributeValues{"color": "green"},
			[]string{`"green" is not a valid value for Color (allowed: red, blue)`}},
		{"unknown key", domain.AttributeValues{"color": "red", "fit": "slim"},
			[]string{"fit is not an attribute of this product"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(schemas(), tt.values))
		})
	}
}

func TestSKU(t *testing.T) {
	attrs := FromSchemas(schemas())
	assert.Equal(t, "TEE-RED-M", SKU("tee", attrs, map[string]string{"size": "m", "color": "red"}))
	assert.Equal(t, "TEE-NAVY_BLUE", SKU("tee", attrs, map[string]string{"color": "navy blue"}))
	assert.Equal(t, "TEE", SKU("tee", nil, map[string]string{}))
}
