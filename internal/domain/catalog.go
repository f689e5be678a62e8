package domain

import (
	"database/sql/driver"
	"time"
)

// Catalog statuses.
const (
	CatalogStatusDraft    = "draft"
	CatalogStatusActive   = "active"
	CatalogStatusArchived = "archived"
)

// Catalog is a named collection of categories and products scoped to one brand.
// CatalogKey is the external string key used in routes and exports.
type Catalog struct {
	ID            int64           `db:"id" json:"id"`
	CatalogKey    string          `db:"catalog_id" json:"catalog_id"`
	BrandID       int64           `db:"brand_id" json:"brand_id"`
	Name          string          `db:"name" json:"name"`
	Slug          string          `db:"slug" json:"slug"`
	Description   *string         `db:"description" json:"description,omitempty"`
	Settings      CatalogSettings `db:"settings" json:"settings"`
	Status        string          `db:"status" json:"status"`
	TotalProducts int             `db:"total_products" json:"total_products"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CatalogSettings is the catalog's settings document.
type CatalogSettings struct {
	ImageGroupPrompts []ImageGroupPrompt `json:"imageGroupPrompts,omitempty" yaml:"imageGroupPrompts" validate:"dive"`
	Currency          string             `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// ImageGroupPrompt is one named group in the catalog's image prompt library.
type ImageGroupPrompt struct {
	GroupName string   `json:"groupName" yaml:"groupName" validate:"required,max=200"`
	Prompts   []string `json:"prompts" yaml:"prompts" validate:"dive,required"`
}

func (s CatalogSettings) Value() (driver.Value, error) { return valueJSON(s) }
func (s *CatalogSettings) Scan(src any) error          { return scanJSON(src, s) }

// Category is a node in a catalog's category tree.
type Category struct {
	ID               int64     `db:"id" json:"id"`
	CatalogID        int64     `db:"catalog_id" json:"catalog_id"`
	Name             string    `db:"name" json:"name"`
	Description      *string   `db:"description" json:"description,omitempty"`
	Slug             string    `db:"slug" json:"slug"`
	ParentCategoryID *int64    `db:"parent_category_id" json:"parent_category_id,omitempty"`
	SortOrder        int       `db:"sort_order" json:"sort_order"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	Metadata         JSONMap   `db:"metadata" json:"metadata"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryNode is a proposed category with its subcategories, as produced by the catalog wizard.
type CategoryNode struct {
	Name          string         `json:"name" validate:"required,max=200"`
	Description   string         `json:"description,omitempty" validate:"max=2000"`
	Subcategories []CategoryNode `json:"subcategories,omitempty" validate:"dive"`
}
