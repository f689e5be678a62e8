// Package ownership authorizes access to catalog entities by walking their foreign-key chain
// up to the user-owned root. A broken link and a foreign owner are reported identically.
package ownership

import (
	"context"
	"errors"
	"fmt"

	"brand-catalog-service/internal/auth"
)

var (
	// ErrUnauthenticated is returned when no user is attached to the request.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNotFound covers both "does not exist" and "exists but belongs to someone else".
	ErrNotFound = errors.New("not found or access denied")
)

// BrandRoot is the owning side of a brand: a user directly, or a project.
type BrandRoot struct {
	UserID    *string
	ProjectID *int64
}

// Lookup reads single parent links. Each method reports found=false when the row is missing.
type Lookup interface {
	BrandRoot(ctx context.Context, brandID int64) (BrandRoot, bool, error)
	ProjectOwner(ctx context.Context, projectID int64) (string, bool, error)
	CatalogBrand(ctx context.Context, catalogID int64) (int64, bool, error)
	CatalogIDByKey(ctx context.Context, catalogKey string) (int64, bool, error)
	CategoryCatalog(ctx context.Context, categoryID int64) (int64, bool, error)
	ProductCatalog(ctx context.Context, productID int64) (int64, bool, error)
	VariantProduct(ctx context.Context, variantID int64) (int64, bool, error)
	AttributeProduct(ctx context.Context, attributeID int64) (int64, bool, error)
	ImageProduct(ctx context.Context, imageID int64) (int64, bool, error)
	JobOwner(ctx context.Context, jobID string) (string, bool, error)
}

// Chain is the resolved path from an entity to its owner. Fields below the
// entity that was authorized are zero.
type Chain struct {
	UserID    string
	ProjectID *int64
	BrandID   int64
	CatalogID int64
	ProductID int64
}

// Resolver re-derives ownership on every call. It keeps no cache.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver over lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Project authorizes a project.
func (r *Resolver) Project(ctx context.Context, user auth.User, projectID int64) error {
	if user.ID == "" {
		return ErrUnauthenticated
	}
	owner, ok, err := r.lookup.ProjectOwner(ctx, projectID)
	if err != nil {
		return fmt.Errorf("ownership: project %d: %w", projectID, err)
	}
	if !ok || owner != user.ID {
		return ErrNotFound
	}
	return nil
}

// Brand authorizes a brand, through its user link or, for older rows, its project.
func (r *Resolver) Brand(ctx context.Context, user auth.User, brandID int64) (Chain, error) {
	if user.ID == "" {
		return Chain{}, ErrUnauthenticated
	}
	root, ok, err := r.lookup.BrandRoot(ctx, brandID)
	if err != nil {
		return Chain{}, fmt.Errorf("ownership: brand %d: %w", brandID, err)
	}
	if !ok {
		return Chain{}, ErrNotFound
	}

	chain := Chain{BrandID: brandID, ProjectID: root.ProjectID}
	switch {
	case root.UserID != nil:
		chain.UserID = *root.UserID
	case root.ProjectID != nil:
		owner, ok, err := r.lookup.ProjectOwner(ctx, *root.ProjectID)
		if err != nil {
			return Chain{}, fmt.Errorf("ownership: project %d: %w", *root.ProjectID, err)
		}
		if !ok {
			return Chain{}, ErrNotFound
		}
		chain.UserID = owner
	default:
		return Chain{}, ErrNotFound
	}

	if chain.UserID != user.ID {
		return Chain{}, ErrNotFound
	}
	return chain, nil
}

// Catalog authorizes a catalog by numeric id.
func (r *Resolver) Catalog(ctx context.Context, user auth.User, catalogID int64) (Chain, error) {
	if user.ID == "" {
		return Chain{}, ErrUnauthenticated
	}
	brandID, err := r.parent(ctx, "catalog", catalogID, r.lookup.CatalogBrand)
	if err != nil {
		return Chain{}, err
	}
	chain, err := r.Brand(ctx, user, brandID)
	if err != nil {
		return Chain{}, err
	}
	chain.CatalogID = catalogID
	return chain, nil
}

// CatalogByKey authorizes a catalog by its external string key.
func (r *Resolver) CatalogByKey(ctx context.Context, user auth.User, catalogKey string) (Chain, error) {
	if user.ID == "" {
		return Chain{}, ErrUnauthenticated
	}
	catalogID, ok, err := r.lookup.CatalogIDByKey(ctx, catalogKey)
	if err != nil {
		return Chain{}, fmt.Errorf("ownership: catalog %q: %w", catalogKey, err)
	}
	if !ok {
		return Chain{}, ErrNotFound
	}
	return r.Catalog(ctx, user, catalogID)
}

// Category authorizes a category through its catalog.
func (r *Resolver) Category(ctx context.Context, user auth.User, categoryID int64) (Chain, error) {
	if user.ID == "" {
		return Chain{}, ErrUnauthenticated
	}
	catalogID, err := r.parent(ctx, "category", categoryID, r.lookup.CategoryCatalog)
	if err != nil {
		return Chain{}, err
	}
	return r.Catalog(ctx, user, catalogID)
}

// Product authorizes a product through its catalog.
func (r *Resolver) Product(ctx context.Context, user auth.User, productID int64) (Chain, error) {
	if user.ID == "" {
		return Chain{}, ErrUnauthenticated
	}
	catalogID, err := r.parent(ctx, "product", productID, r.lookup.ProductCatalog)
	if err != nil {
		return Chain{}, err
	}
	chain, err := r.Catalog(ctx, user, catalogID)
	if err != nil {
		return Chain{}, err
	}
	chain.ProductID = productID
	return chain, nil
}

// Variant authorizes a variant through its product.
func (r *Resolver) Variant(ctx context.Context, user auth.User, variantID int64) (Chain, error) {
	return r.underProduct(ctx, user, "variant", variantID, r.lookup.VariantProduct)
}

// Attribute authorizes an attribute schema row through its product.
func (r *Resolver) Attribute(ctx context.Context, user auth.User, attributeID int64) (Chain, error) {
	return r.underProduct(ctx, user, "attribute", attributeID, r.lookup.AttributeProduct)
}

// Image authorizes an image through its product.
func (r *Resolver) Image(ctx context.Context, user auth.User, imageID int64) (Chain, error) {
	return r.underProduct(ctx, user, "image", imageID, r.lookup.ImageProduct)
}

// Job authorizes a job record, which is owned directly by a user.
func (r *Resolver) Job(ctx context.Context, user auth.User, jobID string) error {
	if user.ID == "" {
		return ErrUnauthenticated
	}
	owner, ok, err := r.lookup.JobOwner(ctx, jobID)
	if err != nil {
		return fmt.Errorf("ownership: job %s: %w", jobID, err)
	}
	if !ok || owner != user.ID {
		return ErrNotFound
	}
	return nil
}

func (r *Resolver) underProduct(ctx context.Context, user auth.User, kind string, id int64,
	link func(context.Context, int64) (int64, bool, error)) (Chain, error) {
	if user.ID == "" {
		return Chain{}, ErrUnauthenticated
	}
	productID, err := r.parent(ctx, kind, id, link)
	if err != nil {
		return Chain{}, err
	}
	return r.Product(ctx, user, productID)
}

func (r *Resolver) parent(ctx context.Context, kind string, id int64,
	link func(context.Context, int64) (int64, bool, error)) (int64, error) {
	parentID, ok, err := link(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("ownership: %s %d: %w", kind, id, err)
	}
	if !ok {
		return 0, ErrNotFound
	}
	return parentID, nil
}
