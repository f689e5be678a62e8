package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/slug"
	"brand-catalog-service/internal/store"
)

// CatalogInput is the create shape for a catalog.
type CatalogInput struct {
	Name        string                  `json:"name" validate:"required,max=200"`
	Slug        string                  `json:"slug" validate:"omitempty,max=200"`
	Description *string                 `json:"description" validate:"omitempty,max=5000"`
	Settings    *domain.CatalogSettings `json:"settings"`
	Status      string                  `json:"status" validate:"omitempty,oneof=draft active archived"`
}

// CatalogUpdate is a partial catalog update.
type CatalogUpdate struct {
	Name        *string                 `json:"name" validate:"omitempty,min=1,max=200"`
	Slug        *string                 `json:"slug" validate:"omitempty,min=1,max=200"`
	Description *string                 `json:"description" validate:"omitempty,max=5000"`
	Settings    *domain.CatalogSettings `json:"settings"`
	Status      *string                 `json:"status" validate:"omitempty,oneof=draft active archived"`
}

// NewCatalogKey returns a fresh external catalog key.
func NewCatalogKey() string {
	return "cat_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ListCatalogs returns the catalogs of a brand.
func (s *Service) ListCatalogs(ctx context.Context, user auth.User, brandID int64) ([]domain.Catalog, error) {
	if _, err := s.owners.Brand(ctx, user, brandID); err != nil {
		return nil, err
	}
	return s.store.ListCatalogs(ctx, brandID)
}

// GetCatalog returns a catalog by numeric id.
func (s *Service) GetCatalog(ctx context.Context, user auth.User, catalogID int64) (*domain.Catalog, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	return s.store.GetCatalogByID(ctx, catalogID)
}

// GetCatalogByKey returns a catalog by its external key.
func (s *Service) GetCatalogByKey(ctx context.Context, user auth.User, catalogKey string) (*domain.Catalog, error) {
	chain, err := s.owners.CatalogByKey(ctx, user, catalogKey)
	if err != nil {
		return nil, err
	}
	return s.store.GetCatalogByID(ctx, chain.CatalogID)
}

// CreateCatalog creates a catalog under a brand. Names are unique per brand.
func (s *Service) CreateCatalog(ctx context.Context, user auth.User, brandID int64, in CatalogInput) (*domain.Catalog, error) {
	if _, err := s.owners.Brand(ctx, user, brandID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	exists, err := s.store.CatalogNameExists(ctx, brandID, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, store.ErrCatalogNameExists
	}

	catalogSlug := slug.Make(nonEmptyOr(in.Slug, in.Name))
	if catalogSlug == "" {
		return nil, invalid("catalog name must contain at least one letter or digit")
	}
	created, err := s.store.CreateCatalog(ctx, &domain.Catalog{
		CatalogKey:  NewCatalogKey(),
		BrandID:     brandID,
		Name:        in.Name,
		Slug:        catalogSlug,
		Description: in.Description,
		Settings:    valueOr(in.Settings, domain.CatalogSettings{}),
		Status:      nonEmptyOr(in.Status, domain.CatalogStatusDraft),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog created", zap.Int64("catalog_id", created.ID), zap.String("catalog_key", created.CatalogKey))
	return created, nil
}

// UpdateCatalog applies a partial update.
func (s *Service) UpdateCatalog(ctx context.Context, user auth.User, catalogID int64, in CatalogUpdate) (*domain.Catalog, error) {
	chain, err := s.owners.Catalog(ctx, user, catalogID)
	if err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	c, err := s.store.GetCatalogByID(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && *in.Name != c.Name {
		exists, err := s.store.CatalogNameExists(ctx, chain.BrandID, *in.Name, catalogID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, store.ErrCatalogNameExists
		}
		c.Name = *in.Name
	}
	if in.Slug != nil {
		c.Slug = slug.Make(*in.Slug)
		if c.Slug == "" {
			return nil, invalid("slug must contain at least one letter or digit")
		}
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.Settings != nil {
		c.Settings = *in.Settings
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	return s.store.UpdateCatalog(ctx, c)
}

// SetImagePrompts replaces the catalog's image group prompt library.
func (s *Service) SetImagePrompts(ctx context.Context, user auth.User, catalogID int64, groups []domain.ImageGroupPrompt) (*domain.Catalog, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	if err := s.validate.Var(groups, "dive"); err != nil {
		return nil, invalid("Validation failed: %s", err.Error())
	}
	c, err := s.store.GetCatalogByID(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []domain.ImageGroupPrompt{}
	}
	c.Settings.ImageGroupPrompts = groups
	return s.store.UpdateCatalog(ctx, c)
}

// DeleteCatalog removes a catalog with its categories and products.
func (s *Service) DeleteCatalog(ctx context.Context, user auth.User, catalogID int64) error {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return err
	}
	return s.store.DeleteCatalog(ctx, catalogID)
}

// --- Categories ---

// CategoryInput is the create shape for a category.
type CategoryInput struct {
	Name             string         `json:"name" validate:"required,max=200"`
	Description      *string        `json:"description" validate:"omitempty,max=2000"`
	Slug             string         `json:"slug" validate:"omitempty,max=200"`
	ParentCategoryID *int64         `json:"parent_category_id" validate:"omitempty,gt=0"`
	SortOrder        int            `json:"sort_order"`
	IsActive         *bool          `json:"is_active"`
	Metadata         domain.JSONMap `json:"metadata"`
}

// CategoryUpdate is a partial category update. RemoveParent moves the category to the top level.
type CategoryUpdate struct {
	Name             *string        `json:"name" validate:"omitempty,min=1,max=200"`
	Description      *string        `json:"description" validate:"omitempty,max=2000"`
	Slug             *string        `json:"slug" validate:"omitempty,min=1,max=200"`
	ParentCategoryID *int64         `json:"parent_category_id" validate:"omitempty,gt=0"`
	RemoveParent     bool           `json:"remove_parent"`
	SortOrder        *int           `json:"sort_order"`
	IsActive         *bool          `json:"is_active"`
	Metadata         domain.JSONMap `json:"metadata"`
}

// ListCategories returns a catalog's categories ordered by (sort_order, name).
func (s *Service) ListCategories(ctx context.Context, user auth.User, catalogID int64) ([]domain.Category, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, catalogID)
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, user auth.User, categoryID int64) (*domain.Category, error) {
	if _, err := s.owners.Category(ctx, user, categoryID); err != nil {
		return nil, err
	}
	return s.store.GetCategoryByID(ctx, categoryID)
}

// sameCatalogParent loads parentID and checks it belongs to catalogID.
func (s *Service) sameCatalogParent(ctx context.Context, catalogID, parentID int64) (*domain.Category, error) {
	parent, err := s.store.GetCategoryByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return nil, invalid("parent category %d does not exist", parentID)
		}
		return nil, err
	}
	if parent.CatalogID != catalogID {
		return nil, invalid("parent category must belong to the same catalog")
	}
	return parent, nil
}

// CreateCategory creates a category. A parent, when given, must live in the same catalog.
func (s *Service) CreateCategory(ctx context.Context, user auth.User, catalogID int64, in CategoryInput) (*domain.Category, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.ParentCategoryID != nil {
		if _, err := s.sameCatalogParent(ctx, catalogID, *in.ParentCategoryID); err != nil {
			return nil, err
		}
	}
	categorySlug := slug.Make(nonEmptyOr(in.Slug, in.Name))
	if categorySlug == "" {
		return nil, invalid("category name must contain at least one letter or digit")
	}
	return s.store.CreateCategory(ctx, &domain.Category{
		CatalogID:        catalogID,
		Name:             in.Name,
		Description:      in.Description,
		Slug:             categorySlug,
		ParentCategoryID: in.ParentCategoryID,
		SortOrder:        in.SortOrder,
		IsActive:         valueOr(in.IsActive, true),
		Metadata:         in.Metadata,
	})
}

// UpdateCategory applies a partial update. Re-parenting rejects the category itself and
// any of its descendants, so no cycle of any depth can form.
func (s *Service) UpdateCategory(ctx context.Context, user auth.User, categoryID int64, in CategoryUpdate) (*domain.Category, error) {
	chain, err := s.owners.Category(ctx, user, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	c, err := s.store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	switch {
	case in.RemoveParent:
		c.ParentCategoryID = nil
	case in.ParentCategoryID != nil:
		parentID := *in.ParentCategoryID
		if parentID == categoryID {
			return nil, invalid("a category cannot be its own parent")
		}
		parent, err := s.sameCatalogParent(ctx, chain.CatalogID, parentID)
		if err != nil {
			return nil, err
		}
		if err := s.checkNotDescendant(ctx, categoryID, parent); err != nil {
			return nil, err
		}
		c.ParentCategoryID = &parentID
	}

	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.Slug != nil {
		c.Slug = slug.Make(*in.Slug)
		if c.Slug == "" {
			return nil, invalid("slug must contain at least one letter or digit")
		}
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.Metadata != nil {
		c.Metadata = in.Metadata
	}
	return s.store.UpdateCategory(ctx, c)
}

// checkNotDescendant walks from parent up to the root and fails if it meets categoryID.
func (s *Service) checkNotDescendant(ctx context.Context, categoryID int64, parent *domain.Category) error {
	seen := map[int64]bool{}
	for cur := parent; cur.ParentCategoryID != nil; {
		next := *cur.ParentCategoryID
		if next == categoryID {
			return invalid("a category cannot be moved under one of its own subcategories")
		}
		if seen[next] {
			return invalid("category hierarchy already contains a cycle at %d", next)
		}
		seen[next] = true
		var err error
		if cur, err = s.store.GetCategoryByID(ctx, next); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCategory refuses while the category has subcategories or products.
func (s *Service) DeleteCategory(ctx context.Context, user auth.User, categoryID int64) error {
	if _, err := s.owners.Category(ctx, user, categoryID); err != nil {
		return err
	}
	hasChildren, err := s.store.HasSubcategories(ctx, categoryID)
	if err != nil {
		return err
	}
	if hasChildren {
		return invalid("cannot delete a category that has subcategories")
	}
	hasProducts, err := s.store.HasProductsInCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if hasProducts {
		return invalid("cannot delete a category that is assigned to products")
	}
	return s.store.DeleteCategory(ctx, categoryID)
}

// SaveCategoryTree inserts a proposed tree, parents before children, in one store call.
func (s *Service) SaveCategoryTree(ctx context.Context, user auth.User, catalogID int64, nodes []domain.CategoryNode) ([]domain.Category, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, invalid("category tree is empty")
	}
	if err := s.validate.Var(nodes, "dive"); err != nil {
		return nil, invalid("Validation failed: %s", err.Error())
	}
	created, err := s.store.CreateCategoryTree(ctx, catalogID, nodes)
	if err != nil {
		return nil, err
	}
	s.logger.Info("category tree saved", zap.Int64("catalog_id", catalogID), zap.Int("categories", len(created)))
	return created, nil
}
