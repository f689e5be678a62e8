package domain

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductStatus is the lifecycle state of a product.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusArchived ProductStatus = "archived"
)

// Product belongs to exactly one catalog and optionally one category.
type Product struct {
	ID               int64               `db:"id" json:"id"`
	CatalogID        int64               `db:"catalog_id" json:"catalog_id"`
	CategoryID       *int64              `db:"category_id" json:"category_id,omitempty"`
	Name             string              `db:"name" json:"name"`
	Description      *string             `db:"description" json:"description,omitempty"`
	ShortDescription *string             `db:"short_description" json:"short_description,omitempty"`
	Specifications   JSONMap             `db:"specifications" json:"specifications"`
	BaseAttributes   JSONMap             `db:"base_attributes" json:"base_attributes"`
	Tags             pq.StringArray      `db:"tags" json:"tags"`
	MetaTitle        *string             `db:"meta_title" json:"meta_title,omitempty"`
	MetaDescription  *string             `db:"meta_description" json:"meta_description,omitempty"`
	Status           ProductStatus       `db:"status" json:"status"`
	SortOrder        int                 `db:"sort_order" json:"sort_order"`
	MinPrice         decimal.NullDecimal `db:"min_price" json:"min_price"`
	MaxPrice         decimal.NullDecimal `db:"max_price" json:"max_price"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`
}

// AttributeOption is one selectable value of an attribute schema.
type AttributeOption struct {
	Value string `json:"value" validate:"required,max=120"`
	Label string `json:"label" validate:"max=200"`
}

// AttributeOptions is stored as a jsonb array.
type AttributeOptions []AttributeOption

func (o AttributeOptions) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return valueJSON([]AttributeOption(o))
}
func (o *AttributeOptions) Scan(src any) error { return scanJSON(src, o) }

// Values returns the option values in declaration order.
func (o AttributeOptions) Values() []string {
	out := make([]string, 0, len(o))
	for _, opt := range o {
		out = append(out, opt.Value)
	}
	return out
}

// ProductAttribute is an option-set definition attached to a product.
type ProductAttribute struct {
	ID          int64            `db:"id" json:"id"`
	ProductID   int64            `db:"product_id" json:"product_id"`
	AttributeID string           `db:"attribute_id" json:"attribute_id"`
	Label       string           `db:"label" json:"label"`
	Options     AttributeOptions `db:"options" json:"options"`
	IsRequired  bool             `db:"is_required" json:"is_required"`
	SortOrder   int              `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttributeValues maps attribute_id to the selected option value.
type AttributeValues map[string]string

func (a AttributeValues) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return valueJSON(map[string]string(a))
}
func (a *AttributeValues) Scan(src any) error { return scanJSON(src, a) }

// Inventory policies.
const (
	InventoryPolicyDeny     = "deny"
	InventoryPolicyContinue = "continue"
)

// ProductVariant is a purchasable configuration of a product.
type ProductVariant struct {
	ID              int64               `db:"id" json:"id"`
	ProductID       int64               `db:"product_id" json:"product_id"`
	SKU             string              `db:"sku" json:"sku"`
	Barcode         *string             `db:"barcode" json:"barcode,omitempty"`
	Price           decimal.Decimal     `db:"price" json:"price"`
	CompareAtPrice  decimal.NullDecimal `db:"compare_at_price" json:"compare_at_price"`
	CostPerItem     decimal.NullDecimal `db:"cost_per_item" json:"cost_per_item"`
	Attributes      AttributeValues     `db:"attributes" json:"attributes"`
	InventoryCount  int                 `db:"inventory_count" json:"inventory_count"`
	InventoryPolicy string              `db:"inventory_policy" json:"inventory_policy"`
	Weight          *float64            `db:"weight" json:"weight,omitempty"`
	WeightUnit      *string             `db:"weight_unit" json:"weight_unit,omitempty"`
	Status          string              `db:"status" json:"status"`
	SortOrder       int                 `db:"sort_order" json:"sort_order"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// AttributeFilters maps attribute_id to the values an image applies to.
type AttributeFilters map[string][]string

func (f AttributeFilters) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return valueJSON(map[string][]string(f))
}
func (f *AttributeFilters) Scan(src any) error { return scanJSON(src, f) }

// Matches reports whether any of the variant's attribute values is listed in the filters.
func (f AttributeFilters) Matches(values AttributeValues) bool {
	for key, allowed := range f {
		v, ok := values[key]
		if !ok || v == "" {
			continue
		}
		for _, a := range allowed {
			if a == v {
				return true
			}
		}
	}
	return false
}

// Image types.
const (
	ImageTypeHero      = "hero"
	ImageTypeGallery   = "gallery"
	ImageTypeDetail    = "detail"
	ImageTypeLifestyle = "lifestyle"
)

// ProductImage is an image attached to a product.
type ProductImage struct {
	ID               int64            `db:"id" json:"id"`
	ProductID        int64            `db:"product_id" json:"product_id"`
	URL              string           `db:"url" json:"url"`
	AltText          *string          `db:"alt_text" json:"alt_text,omitempty"`
	Type             string           `db:"type" json:"type"`
	ColorID          *string          `db:"color_id" json:"color_id,omitempty"`
	AttributeFilters AttributeFilters `db:"attribute_filters" json:"attribute_filters"`
	SortOrder        int              `db:"sort_order" json:"sort_order"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// ProductBundle is a product with the schemas and variants created alongside it.
type ProductBundle struct {
	Product    Product            `json:"product"`
	Attributes []ProductAttribute `json:"attributes"`
	Variants   []ProductVariant   `json:"variants"`
}
