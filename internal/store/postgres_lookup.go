package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"brand-catalog-service/internal/ownership"
)

// Single-column parent lookups backing ownership.Lookup.
const (
	brandRootQuery        = `SELECT user_id, project_id FROM brands WHERE id = $1;`
	projectOwnerQuery     = `SELECT user_id FROM projects WHERE id = $1;`
	catalogBrandQuery     = `SELECT brand_id FROM product_catalogs WHERE id = $1;`
	catalogIDByKeyQuery   = `SELECT id FROM product_catalogs WHERE catalog_id = $1;`
	categoryCatalogQuery  = `SELECT catalog_id FROM categories WHERE id = $1;`
	productCatalogQuery   = `SELECT catalog_id FROM products WHERE id = $1;`
	variantProductQuery   = `SELECT product_id FROM product_variants WHERE id = $1;`
	attributeProductQuery = `SELECT product_id FROM product_attributes WHERE id = $1;`
	imageProductQuery     = `SELECT product_id FROM product_images WHERE id = $1;`
	jobOwnerQuery         = `SELECT user_id FROM jobs WHERE id = $1;`
)

var _ ownership.Lookup = (*PostgresStore)(nil)

func (s *PostgresStore) BrandRoot(ctx context.Context, brandID int64) (ownership.BrandRoot, bool, error) {
	var row struct {
		UserID    *string `db:"user_id"`
		ProjectID *int64  `db:"project_id"`
	}
	if err := s.db.GetContext(ctx, &row, brandRootQuery, brandID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ownership.BrandRoot{}, false, nil
		}
		return ownership.BrandRoot{}, false, fmt.Errorf("store: BrandRoot: %w", err)
	}
	return ownership.BrandRoot{UserID: row.UserID, ProjectID: row.ProjectID}, true, nil
}

func (s *PostgresStore) ProjectOwner(ctx context.Context, projectID int64) (string, bool, error) {
	return lookupOne[string](ctx, s, "ProjectOwner", projectOwnerQuery, projectID)
}

func (s *PostgresStore) CatalogBrand(ctx context.Context, catalogID int64) (int64, bool, error) {
	return lookupOne[int64](ctx, s, "CatalogBrand", catalogBrandQuery, catalogID)
}

func (s *PostgresStore) CatalogIDByKey(ctx context.Context, catalogKey string) (int64, bool, error) {
	return lookupOne[int64](ctx, s, "CatalogIDByKey", catalogIDByKeyQuery, catalogKey)
}

func (s *PostgresStore) CategoryCatalog(ctx context.Context, categoryID int64) (int64, bool, error) {
	return lookupOne[int64](ctx, s, "CategoryCatalog", categoryCatalogQuery, categoryID)
}

func (s *PostgresStore) ProductCatalog(ctx context.Context, productID int64) (int64, bool, error) {
	return lookupOne[int64](ctx, s, "ProductCatalog", productCatalogQuery, productID)
}

func (s *PostgresStore) VariantProduct(ctx context.Context, variantID int64) (int64, bool, error) {
	return lookupOne[int64](ctx, s, "VariantProduct", variantProductQuery, variantID)
}

func (s *PostgresStore) AttributeProduct(ctx context.Context, attributeID int64) (int64, bool, error) {
	return lookupOne[int64](ctx, s, "AttributeProduct", attributeProductQuery, attributeID)
}

func (s *PostgresStore) ImageProduct(ctx context.Context, imageID int64) (int64, bool, error) {
	return lookupOne[int64](ctx, s, "ImageProduct", imageProductQuery, imageID)
}

// JobOwner treats an id that is not a UUID as missing rather than letting the uuid cast fail.
func (s *PostgresStore) JobOwner(ctx context.Context, jobID string) (string, bool, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return "", false, nil
	}
	return lookupOne[string](ctx, s, "JobOwner", jobOwnerQuery, jobID)
}

func lookupOne[T any](ctx context.Context, s *PostgresStore, op, query string, arg any) (T, bool, error) {
	var v T
	if err := s.db.GetContext(ctx, &v, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, false, nil
		}
		return v, false, fmt.Errorf("store: %s: %w", op, err)
	}
	return v, true, nil
}
