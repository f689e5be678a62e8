package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/slug"
)

const (
	catalogColumns = `id, catalog_id, brand_id, name, slug, description, settings, status, total_products, created_at, updated_at`

	createCatalogQuery = `
		INSERT INTO product_catalogs (catalog_id, brand_id, name, slug, description, settings, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + catalogColumns + `;`

	getCatalogByIDQuery  = `SELECT ` + catalogColumns + ` FROM product_catalogs WHERE id = $1;`
	getCatalogByKeyQuery = `SELECT ` + catalogColumns + ` FROM product_catalogs WHERE catalog_id = $1;`

	listCatalogsQuery = `
		SELECT ` + catalogColumns + `
		FROM product_catalogs
		WHERE brand_id = $1
		ORDER BY created_at DESC;`

	catalogNameExistsQuery = `
		SELECT EXISTS(SELECT 1 FROM product_catalogs WHERE brand_id = $1 AND lower(name) = lower($2) AND id <> $3);`

	updateCatalogQuery = `
		UPDATE product_catalogs
		SET name = $1, slug = $2, description = $3, settings = $4, status = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING ` + catalogColumns + `;`

	deleteCatalogQuery = `DELETE FROM product_catalogs WHERE id = $1;`

	categoryColumns = `id, catalog_id, name, description, slug, parent_category_id, sort_order, is_active, metadata, created_at, updated_at`

	createCategoryQuery = `
		INSERT INTO categories (catalog_id, name, description, slug, parent_category_id, sort_order, is_active, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + categoryColumns + `;`

	getCategoryByIDQuery = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1;`

	listCategoriesQuery = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE catalog_id = $1
		ORDER BY sort_order ASC, name ASC;`

	hasSubcategoriesQuery = `SELECT EXISTS(SELECT 1 FROM categories WHERE parent_category_id = $1);`
	hasProductsQuery      = `SELECT EXISTS(SELECT 1 FROM products WHERE category_id = $1);`

	updateCategoryQuery = `
		UPDATE categories
		SET name = $1, description = $2, slug = $3, parent_category_id = $4, sort_order = $5, is_active = $6,
			metadata = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8
		RETURNING ` + categoryColumns + `;`

	deleteCategoryQuery = `DELETE FROM categories WHERE id = $1;`

	categorySlugsQuery = `SELECT slug FROM categories WHERE catalog_id = $1;`
)

// --- CatalogStorer Implementation ---

func (s *PostgresStore) CreateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error) {
	var created domain.Catalog
	err := s.db.QueryRowxContext(ctx, createCatalogQuery,
		catalog.CatalogKey, catalog.BrandID, catalog.Name, catalog.Slug, catalog.Description, catalog.Settings, catalog.Status,
	).StructScan(&created)
	if err != nil {
		if uniqueViolationOn(err, "name") {
			return nil, ErrCatalogNameExists
		}
		return nil, fmt.Errorf("store: CreateCatalog failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCatalogByID(ctx context.Context, id int64) (*domain.Catalog, error) {
	return s.getCatalog(ctx, "GetCatalogByID", getCatalogByIDQuery, id)
}

func (s *PostgresStore) GetCatalogByKey(ctx context.Context, catalogKey string) (*domain.Catalog, error) {
	return s.getCatalog(ctx, "GetCatalogByKey", getCatalogByKeyQuery, catalogKey)
}

func (s *PostgresStore) getCatalog(ctx context.Context, op, query string, arg any) (*domain.Catalog, error) {
	var catalog domain.Catalog
	if err := s.db.GetContext(ctx, &catalog, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("store: %s failed to scan row: %w", op, err)
	}
	return &catalog, nil
}

func (s *PostgresStore) ListCatalogs(ctx context.Context, brandID int64) ([]domain.Catalog, error) {
	catalogs := []domain.Catalog{}
	if err := s.db.SelectContext(ctx, &catalogs, listCatalogsQuery, brandID); err != nil {
		return nil, fmt.Errorf("store: ListCatalogs failed to query catalogs: %w", err)
	}
	return catalogs, nil
}

func (s *PostgresStore) CatalogNameExists(ctx context.Context, brandID int64, name string, excludeID int64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, catalogNameExistsQuery, brandID, name, excludeID); err != nil {
		return false, fmt.Errorf("store: CatalogNameExists failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error) {
	var updated domain.Catalog
	err := s.db.QueryRowxContext(ctx, updateCatalogQuery,
		catalog.Name, catalog.Slug, catalog.Description, catalog.Settings, catalog.Status, catalog.ID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCatalogNotFound
		}
		if uniqueViolationOn(err, "name") {
			return nil, ErrCatalogNameExists
		}
		return nil, fmt.Errorf("store: UpdateCatalog failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteCatalog(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteCatalogQuery, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCatalog failed to execute delete: %w", err)
	}
	return checkAffected(res, "DeleteCatalog", ErrCatalogNotFound)
}

// --- CategoryStorer Implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	return insertCategory(ctx, s.db, category)
}

func insertCategory(ctx context.Context, q sqlx.QueryerContext, category *domain.Category) (*domain.Category, error) {
	var created domain.Category
	err := q.QueryRowxContext(ctx, createCategoryQuery,
		category.CatalogID, category.Name, category.Description, category.Slug, category.ParentCategoryID,
		category.SortOrder, category.IsActive, category.Metadata,
	).StructScan(&created)
	if err != nil {
		if uniqueViolationOn(err, "slug") {
			return nil, ErrCategorySlugExists
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

// CreateCategoryTree inserts a proposed tree in one transaction. Each parent is
// inserted before its children so the children can reference its id.
func (s *PostgresStore) CreateCategoryTree(ctx context.Context, catalogID int64, nodes []domain.CategoryNode) ([]domain.Category, error) {
	created := []domain.Category{}
	err := s.withTx(ctx, "CreateCategoryTree", func(tx *sqlx.Tx) error {
		created = created[:0]
		var existing []string
		if err := tx.SelectContext(ctx, &existing, categorySlugsQuery, catalogID); err != nil {
			return fmt.Errorf("store: CreateCategoryTree failed to load slugs: %w", err)
		}
		for _, c := range FlattenCategoryTree(catalogID, nodes, existing) {
			cat := c.Category
			if c.Parent >= 0 {
				parentID := created[c.Parent].ID
				cat.ParentCategoryID = &parentID
			}
			row, err := insertCategory(ctx, tx, &cat)
			if err != nil {
				return err
			}
			created = append(created, *row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PlannedCategory is one row of a flattened category tree. Parent indexes an
// earlier entry of the same plan, or is -1 for a root.
type PlannedCategory struct {
	Category domain.Category
	Parent   int
}

// FlattenCategoryTree orders a tree parent-first and assigns sort orders by
// position. Slugs are made unique against taken and against each other.
func FlattenCategoryTree(catalogID int64, nodes []domain.CategoryNode, taken []string) []PlannedCategory {
	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}
	uniqueSlug := func(name string) string {
		base := slug.Make(name)
		if base == "" {
			base = "category"
		}
		candidate := base
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		used[candidate] = true
		return candidate
	}

	var plan []PlannedCategory
	var walk func(nodes []domain.CategoryNode, parent int)
	walk = func(nodes []domain.CategoryNode, parent int) {
		for i, n := range nodes {
			cat := domain.Category{
				CatalogID: catalogID,
				Name:      n.Name,
				Slug:      uniqueSlug(n.Name),
				SortOrder: i,
				IsActive:  true,
				Metadata:  domain.JSONMap{"source": "catalog_wizard"},
			}
			if n.Description != "" {
				cat.Description = domain.Ptr(n.Description)
			}
			plan = append(plan, PlannedCategory{Category: cat, Parent: parent})
			walk(n.Subcategories, len(plan)-1)
		}
	}
	walk(nodes, -1)
	return plan
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.GetContext(ctx, &category, getCategoryByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, catalogID int64) ([]domain.Category, error) {
	categories := []domain.Category{}
	if err := s.db.SelectContext(ctx, &categories, listCategoriesQuery, catalogID); err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	return categories, nil
}

func (s *PostgresStore) HasSubcategories(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, hasSubcategoriesQuery, id); err != nil {
		return false, fmt.Errorf("store: HasSubcategories failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) HasProductsInCategory(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, hasProductsQuery, id); err != nil {
		return false, fmt.Errorf("store: HasProductsInCategory failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	var updated domain.Category
	err := s.db.QueryRowxContext(ctx, updateCategoryQuery,
		category.Name, category.Description, category.Slug, category.ParentCategoryID, category.SortOrder,
		category.IsActive, category.Metadata, category.ID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if uniqueViolationOn(err, "slug") {
			return nil, ErrCategorySlugExists
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteCategoryQuery, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	return checkAffected(res, "DeleteCategory", ErrCategoryNotFound)
}
