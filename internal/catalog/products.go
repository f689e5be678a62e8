package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/store"
	"brand-catalog-service/internal/variants"
)

// ProductInput is the create shape for a product.
type ProductInput struct {
	CategoryID       *int64         `json:"category_id" validate:"omitempty,gt=0"`
	Name             string         `json:"name" validate:"required,max=255"`
	Description      *string        `json:"description" validate:"omitempty"`
	ShortDescription *string        `json:"short_description" validate:"omitempty,max=500"`
	Specifications   domain.JSONMap `json:"specifications"`
	BaseAttributes   domain.JSONMap `json:"base_attributes"`
	Tags             []string       `json:"tags" validate:"max=50,dive,max=100"`
	MetaTitle        *string        `json:"meta_title" validate:"omitempty,max=255"`
	MetaDescription  *string        `json:"meta_description" validate:"omitempty,max=500"`
	Status           string         `json:"status" validate:"omitempty,oneof=draft active inactive archived"`
	SortOrder        int            `json:"sort_order"`
}

// ProductUpdate is a partial product update. RemoveCategory clears the category.
type ProductUpdate struct {
	CategoryID       *int64         `json:"category_id" validate:"omitempty,gt=0"`
	RemoveCategory   bool           `json:"remove_category"`
	Name             *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Description      *string        `json:"description"`
	ShortDescription *string        `json:"short_description" validate:"omitempty,max=500"`
	Specifications   domain.JSONMap `json:"specifications"`
	BaseAttributes   domain.JSONMap `json:"base_attributes"`
	Tags             []string       `json:"tags" validate:"omitempty,max=50,dive,max=100"`
	MetaTitle        *string        `json:"meta_title" validate:"omitempty,max=255"`
	MetaDescription  *string        `json:"meta_description" validate:"omitempty,max=500"`
	Status           *string        `json:"status" validate:"omitempty,oneof=draft active inactive archived"`
	SortOrder        *int           `json:"sort_order"`
}

// BulkProductInput is one product of a bulk create, with the schemas and variants created alongside.
type BulkProductInput struct {
	ProductInput
	Attributes []AttributeInput `json:"attributes" validate:"dive"`
	Variants   []VariantInput   `json:"variants" validate:"dive"`
}

func (in ProductInput) toProduct(catalogID int64) domain.Product {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.Product{
		CatalogID:        catalogID,
		CategoryID:       in.CategoryID,
		Name:             in.Name,
		Description:      in.Description,
		ShortDescription: in.ShortDescription,
		Specifications:   in.Specifications,
		BaseAttributes:   in.BaseAttributes,
		Tags:             tags,
		MetaTitle:        in.MetaTitle,
		MetaDescription:  in.MetaDescription,
		Status:           domain.ProductStatus(nonEmptyOr(in.Status, string(domain.ProductStatusDraft))),
		SortOrder:        in.SortOrder,
	}
}

// checkCategory verifies categoryID belongs to catalogID.
func (s *Service) checkCategory(ctx context.Context, catalogID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	c, err := s.store.GetCategoryByID(ctx, *categoryID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return invalid("category %d does not exist", *categoryID)
		}
		return err
	}
	if c.CatalogID != catalogID {
		return invalid("category must belong to the product's catalog")
	}
	return nil
}

// ListProducts returns a catalog's products.
func (s *Service) ListProducts(ctx context.Context, user auth.User, catalogID int64) ([]domain.Product, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	return s.store.ListProducts(ctx, catalogID)
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, user auth.User, productID int64) (*domain.Product, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	return s.store.GetProductByID(ctx, productID)
}

// CreateProduct creates a product in a catalog.
func (s *Service) CreateProduct(ctx context.Context, user auth.User, catalogID int64, in ProductInput) (*domain.Product, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, catalogID, in.CategoryID); err != nil {
		return nil, err
	}
	p := in.toProduct(catalogID)
	return s.store.CreateProduct(ctx, &p)
}

// CreateMultipleProducts creates products with their attribute schemas and variants.
// Every rule is checked before the first insert; the store then writes all rows or none.
func (s *Service) CreateMultipleProducts(ctx context.Context, user auth.User, catalogID int64, items []BulkProductInput) ([]domain.ProductBundle, error) {
	if _, err := s.owners.Catalog(ctx, user, catalogID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, invalid("at least one product is required")
	}

	bundles := make([]domain.ProductBundle, 0, len(items))
	batchSKUs := make(map[string]int, len(items))
	for i, item := range items {
		if err := s.check(item); err != nil {
			return nil, invalid("product %d: %s", i, err.Error())
		}
		if err := s.checkCategory(ctx, catalogID, item.CategoryID); err != nil {
			return nil, invalid("product %d: %s", i, err.Error())
		}

		bundle := domain.ProductBundle{Product: item.toProduct(catalogID)}
		seenAttr := map[string]bool{}
		for j, a := range item.Attributes {
			if seenAttr[a.AttributeID] {
				return nil, fmt.Errorf("product %d: attribute %q: %w", i, a.AttributeID, store.ErrAttributeIDExists)
			}
			seenAttr[a.AttributeID] = true
			if err := checkOptions(a.Options); err != nil {
				return nil, invalid("product %d attribute %q: %s", i, a.AttributeID, err.Error())
			}
			bundle.Attributes = append(bundle.Attributes, a.toAttribute(0, j))
		}
		for j, v := range item.Variants {
			if prev, dup := batchSKUs[v.SKU]; dup {
				return nil, fmt.Errorf("products %d and %d share SKU %q: %w", prev, i, v.SKU, store.ErrSKUExists)
			}
			batchSKUs[v.SKU] = i
			if err := s.ensureSKUFree(ctx, v.SKU, 0); err != nil {
				return nil, fmt.Errorf("product %d: %w", i, err)
			}
			if problems := variants.Validate(bundle.Attributes, v.Attributes); len(problems) > 0 {
				return nil, invalid("product %d variant %q: %s", i, v.SKU, strings.Join(problems, "; "))
			}
			variant, err := v.toVariant(0, j)
			if err != nil {
				return nil, invalid("product %d variant %q: %s", i, v.SKU, err.Error())
			}
			bundle.Variants = append(bundle.Variants, variant)
		}
		bundles = append(bundles, bundle)
	}

	created, err := s.store.CreateProducts(ctx, catalogID, bundles)
	s.metrics.ObserveBulkCreate(err)
	if err != nil {
		s.logger.Error("bulk product create failed", zap.Int64("catalog_id", catalogID), zap.Int("products", len(bundles)), zap.Error(err))
		return nil, err
	}
	s.logger.Info("bulk products created", zap.Int64("catalog_id", catalogID), zap.Int("products", len(created)))
	return created, nil
}

// UpdateProduct applies a partial update.
func (s *Service) UpdateProduct(ctx context.Context, user auth.User, productID int64, in ProductUpdate) (*domain.Product, error) {
	chain, err := s.owners.Product(ctx, user, productID)
	if err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	p, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	switch {
	case in.RemoveCategory:
		p.CategoryID = nil
	case in.CategoryID != nil:
		if err := s.checkCategory(ctx, chain.CatalogID, in.CategoryID); err != nil {
			return nil, err
		}
		p.CategoryID = in.CategoryID
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.ShortDescription != nil {
		p.ShortDescription = in.ShortDescription
	}
	if in.Specifications != nil {
		p.Specifications = in.Specifications
	}
	if in.BaseAttributes != nil {
		p.BaseAttributes = in.BaseAttributes
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	if in.MetaTitle != nil {
		p.MetaTitle = in.MetaTitle
	}
	if in.MetaDescription != nil {
		p.MetaDescription = in.MetaDescription
	}
	if in.Status != nil {
		p.Status = domain.ProductStatus(*in.Status)
	}
	if in.SortOrder != nil {
		p.SortOrder = *in.SortOrder
	}
	return s.store.UpdateProduct(ctx, p)
}

// DeleteProduct removes a product with its schemas, variants and images.
func (s *Service) DeleteProduct(ctx context.Context, user auth.User, productID int64) error {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return err
	}
	return s.store.DeleteProduct(ctx, productID)
}
