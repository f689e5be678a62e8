package export

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-catalog-service/internal/domain"
)

func col(t *testing.T, name string) int {
	t.Helper()
	for i, c := range Columns {
		if c == name {
			return i
		}
	}
	t.Fatalf("no column %q", name)
	return -1
}

func TestColumns(t *testing.T) {
	assert.Len(t, Columns, 49)
	assert.Equal(t, colVariantImage, col(t, "Variant Image"))
	assert.Equal(t, colStatus, col(t, "Status"))
	assert.Equal(t, colCostPerItem, col(t, "Cost per item"))
	assert.Equal(t, colGoogleCategory, col(t, "Google Shopping / Google Product Category"))
}

func TestRows_ProductWithoutVariants(t *testing.T) {
	rows := Rows(Graph{
		Vendor:   "Acme",
		Products: []domain.Product{{ID: 1, Name: "Gift Box", Status: domain.ProductStatusActive}},
	})

	require.Len(t, rows, 1)
	row := rows[0]
	require.Len(t, row, 49)
	assert.Equal(t, "gift-box", row[col(t, "Handle")])
	assert.Equal(t, "Gift Box", row[col(t, "Title")])
	assert.Equal(t, "Title", row[col(t, "Option1 Name")])
	assert.Equal(t, "Default Title", row[col(t, "Option1 Value")])
	assert.Equal(t, "0", row[col(t, "Variant Inventory Qty")])
	assert.Equal(t, "deny", row[col(t, "Variant Inventory Policy")])
	assert.Equal(t, "manual", row[col(t, "Variant Fulfillment Service")])
	assert.Equal(t, "0.00", row[col(t, "Variant Price")])
	assert.Equal(t, "0", row[col(t, "Variant Grams")])
	assert.Equal(t, "TRUE", row[col(t, "Published")])
	assert.Empty(t, row[col(t, "Variant SKU")])
}

func threeVariantGraph() Graph {
	cat := int64(5)
	return Graph{
		Vendor:     "Acme Outdoor",
		Categories: []domain.Category{{ID: cat, Name: "Tops"}},
		Products: []domain.Product{{
			ID:              10,
			Name:            "Trail Tee",
			CategoryID:      &cat,
			Description:     domain.Ptr("Soft tee"),
			Tags:            []string{"summer", "cotton"},
			MetaTitle:       domain.Ptr("Trail Tee | Acme"),
			MetaDescription: domain.Ptr("The tee"),
			Status:          domain.ProductStatusDraft,
			BaseAttributes:  domain.JSONMap{"product_category": "Apparel & Accessories > Clothing"},
		}},
		Attributes: []domain.ProductAttribute{
			{ID: 2, ProductID: 10, AttributeID: "size", Label: "Size", SortOrder: 1, Options: domain.AttributeOptions{{Value: "s", Label: "Small"}}},
			{ID: 1, ProductID: 10, AttributeID: "color", Label: "Color", SortOrder: 0, Options: domain.AttributeOptions{{Value: "red", Label: "Red"}, {Value: "blue", Label: "Blue"}}},
		},
		Variants: []domain.ProductVariant{
			{ID: 21, ProductID: 10, SKU: "TEE-BLUE", SortOrder: 1, Price: decimal.RequireFromString("19.5"), Attributes: domain.AttributeValues{"color": "blue", "size": "s"}, Weight: domain.Ptr(1.5), WeightUnit: domain.Ptr("kg")},
			{ID: 20, ProductID: 10, SKU: "TEE-RED", SortOrder: 0, Price: decimal.NewFromInt(18), Attributes: domain.AttributeValues{"color": "red", "size": "s"}, InventoryCount: 7, InventoryPolicy: "continue", CompareAtPrice: decimal.NewNullDecimal(decimal.NewFromInt(25))},
			{ID: 22, ProductID: 10, SKU: "TEE-GREEN", SortOrder: 2, Price: decimal.NewFromInt(18), Attributes: domain.AttributeValues{"color": "green"}, Weight: domain.Ptr(1.0), WeightUnit: domain.Ptr("lb")},
		},
		Images: []domain.ProductImage{
			{ID: 31, ProductID: 10, URL: "https://cdn/blue.png", Type: domain.ImageTypeGallery, SortOrder: 0, AttributeFilters: domain.AttributeFilters{"color": {"blue"}}},
			{ID: 30, ProductID: 10, URL: "https://cdn/hero.png", Type: domain.ImageTypeHero, SortOrder: 1, AltText: domain.Ptr("Hero shot")},
		},
	}
}

func TestRows_MultiVariantGrouping(t *testing.T) {
	rows := Rows(threeVariantGraph())
	require.Len(t, rows, 3)

	productOnly := []string{"Title", "Body (HTML)", "Vendor", "Tags", "Published", "SEO Title", "SEO Description"}
	for i, row := range rows {
		assert.Equal(t, "trail-tee", row[col(t, "Handle")], "row %d", i)
		for _, name := range productOnly {
			if i == 0 {
				assert.NotEmpty(t, row[col(t, name)], "row 1 %s", name)
			} else {
				assert.Empty(t, row[col(t, name)], "row %d %s", i+1, name)
			}
		}
	}

	first := rows[0]
	assert.Equal(t, "TEE-RED", first[col(t, "Variant SKU")], "variants follow sort order")
	assert.Equal(t, "Acme Outdoor", first[col(t, "Vendor")])
	assert.Equal(t, "Tops", first[col(t, "Type")])
	assert.Equal(t, "Apparel & Accessories > Clothing", first[col(t, "Product Category")])
	assert.Equal(t, "summer, cotton", first[col(t, "Tags")])
	assert.Equal(t, "FALSE", first[col(t, "Published")])
	assert.Equal(t, "draft", first[col(t, "Status")])
	assert.Equal(t, "Color", first[col(t, "Option1 Name")])
	assert.Equal(t, "Red", first[col(t, "Option1 Value")])
	assert.Equal(t, "Size", first[col(t, "Option2 Name")])
	assert.Equal(t, "Small", first[col(t, "Option2 Value")])
	assert.Equal(t, "18.00", first[col(t, "Variant Price")])
	assert.Equal(t, "25.00", first[col(t, "Variant Compare At Price")])
	assert.Equal(t, "7", first[col(t, "Variant Inventory Qty")])
	assert.Equal(t, "continue", first[col(t, "Variant Inventory Policy")])
	assert.Equal(t, "https://cdn/hero.png", first[col(t, "Image Src")], "hero image backs the first row")
	assert.Equal(t, "2", first[col(t, "Image Position")])
	assert.Equal(t, "Hero shot", first[col(t, "Image Alt Text")])

	second := rows[1]
	assert.Empty(t, second[col(t, "Option1 Name")])
	assert.Equal(t, "Blue", second[col(t, "Option1 Value")])
	assert.Equal(t, "1500", second[col(t, "Variant Grams")])
	assert.Equal(t, "19.50", second[col(t, "Variant Price")])
	assert.Equal(t, "https://cdn/blue.png", second[col(t, "Image Src")], "filter match backs later rows")
	assert.Equal(t, "https://cdn/blue.png", second[col(t, "Variant Image")])

	third := rows[2]
	assert.Equal(t, "green", third[col(t, "Option1 Value")], "unknown option falls back to raw value")
	assert.Empty(t, third[col(t, "Option2 Value")])
	assert.Equal(t, "454", third[col(t, "Variant Grams")])
	assert.Empty(t, third[col(t, "Image Src")], "no matching image leaves the row bare")
}

func TestRows_AtMostThreeOptions(t *testing.T) {
	g := Graph{
		Products: []domain.Product{{ID: 1, Name: "Kit"}},
		Variants: []domain.ProductVariant{{ID: 2, ProductID: 1, SKU: "K", Attributes: domain.AttributeValues{"a": "1", "b": "2", "c": "3", "d": "4"}}},
	}
	for i, k := range []string{"a", "b", "c", "d"} {
		g.Attributes = append(g.Attributes, domain.ProductAttribute{ID: int64(10 + i), ProductID: 1, AttributeID: k, SortOrder: i})
	}

	rows := Rows(g)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0][col(t, "Option3 Name")])
	assert.Equal(t, "3", rows[0][col(t, "Option3 Value")])
	assert.NotContains(t, rows[0], "d")
}

func TestRows_HandlesAreNeverRewritten(t *testing.T) {
	rows := Rows(Graph{Products: []domain.Product{{ID: 1, Name: "Tee"}, {ID: 2, Name: "tee!"}}})
	require.Len(t, rows, 2)
	assert.Equal(t, "tee", rows[0][colHandle])
	assert.Equal(t, "tee", rows[1][colHandle], "same handle, same Shopify product group")
}

func TestHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Trail Tee", "trail-tee"},
		{"  Rain   Shell  ", "-rain-shell-"},
		{"Über-Jacket -- v2!", "ber-jacket-v2"},
		{"a\tb\nc", "a-b-c"},
		{"---", "-"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Handle(tt.in), "Handle(%q)", tt.in)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Best, "ever"`, `"Best, ""ever"""`},
		{"plain", "plain"},
		{"two\nlines", "\"two\nlines\""},
		{`say "hi"`, `"say ""hi"""`},
		{"semi;colon", "semi;colon"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "Escape(%q)", tt.in)
	}
}

func TestRender(t *testing.T) {
	row := newRow("tee")
	row[colBody] = `Best, "ever"`
	out := Render([][]string{row})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Handle,Title,Body (HTML),Vendor,"))
	assert.True(t, strings.HasSuffix(lines[0], ",Cost per item,Status"))
	assert.Equal(t, `tee,,"Best, ""ever""",`+strings.Repeat(",", 45), lines[1])
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestGrams(t *testing.T) {
	tests := []struct {
		name   string
		weight *float64
		unit   *string
		want   int64
	}{
		{"missing", nil, nil, 0},
		{"grams", domain.Ptr(250.0), domain.Ptr("g"), 250},
		{"kilograms", domain.Ptr(1.2), domain.Ptr("kg"), 1200},
		{"pounds", domain.Ptr(2.0), domain.Ptr("lb"), 907},
		{"ounces", domain.Ptr(10.0), domain.Ptr("oz"), 283},
		{"no unit", domain.Ptr(12.0), nil, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grams(tt.weight, tt.unit))
		})
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "spring_2025_products_2025-03-09.csv", Filename("Spring 2025", at))
	assert.Equal(t, "caf_menu_products_2025-03-09.csv", Filename("Café / Menu", at))
	assert.Equal(t, "catalog_products_2025-03-09.csv", Filename("!!!", at))
}
