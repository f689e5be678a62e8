package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"brand-catalog-service/internal/domain"
)

const (
	attributeColumns = `id, product_id, attribute_id, label, options, is_required, sort_order, created_at, updated_at`

	createAttributeQuery = `
		INSERT INTO product_attributes (product_id, attribute_id, label, options, is_required, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + attributeColumns + `;`

	getAttributeByIDQuery = `SELECT ` + attributeColumns + ` FROM product_attributes WHERE id = $1;`

	listAttributesQuery = `
		SELECT ` + attributeColumns + `
		FROM product_attributes
		WHERE product_id = $1
		ORDER BY sort_order ASC, id ASC;`

	listAttributesByCatalogQuery = `
		SELECT a.id, a.product_id, a.attribute_id, a.label, a.options, a.is_required, a.sort_order, a.created_at, a.updated_at
		FROM product_attributes a
		JOIN products p ON p.id = a.product_id
		WHERE p.catalog_id = $1
		ORDER BY a.product_id ASC, a.sort_order ASC, a.id ASC;`

	attributeKeyExistsQuery = `
		SELECT EXISTS(SELECT 1 FROM product_attributes WHERE product_id = $1 AND attribute_id = $2 AND id <> $3);`

	updateAttributeQuery = `
		UPDATE product_attributes
		SET attribute_id = $1, label = $2, options = $3, is_required = $4, sort_order = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING ` + attributeColumns + `;`

	deleteAttributeQuery = `DELETE FROM product_attributes WHERE id = $1;`

	variantColumns = `id, product_id, sku, barcode, price, compare_at_price, cost_per_item, attributes,
		inventory_count, inventory_policy, weight, weight_unit, status, sort_order, created_at, updated_at`

	createVariantQuery = `
		INSERT INTO product_variants (product_id, sku, barcode, price, compare_at_price, cost_per_item, attributes,
			inventory_count, inventory_policy, weight, weight_unit, status, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + variantColumns + `;`

	getVariantByIDQuery  = `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1;`
	getVariantBySKUQuery = `SELECT ` + variantColumns + ` FROM product_variants WHERE sku = $1;`

	listVariantsQuery = `
		SELECT ` + variantColumns + `
		FROM product_variants
		WHERE product_id = $1
		ORDER BY sort_order ASC, id ASC;`

	listVariantsByCatalogQuery = `
		SELECT v.id, v.product_id, v.sku, v.barcode, v.price, v.compare_at_price, v.cost_per_item, v.attributes,
			v.inventory_count, v.inventory_policy, v.weight, v.weight_unit, v.status, v.sort_order, v.created_at, v.updated_at
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE p.catalog_id = $1
		ORDER BY v.product_id ASC, v.sort_order ASC, v.id ASC;`

	countVariantsQuery = `SELECT COUNT(*) FROM product_variants WHERE product_id = $1;`

	updateVariantQuery = `
		UPDATE product_variants
		SET sku = $1, barcode = $2, price = $3, compare_at_price = $4, cost_per_item = $5, attributes = $6,
			inventory_count = $7, inventory_policy = $8, weight = $9, weight_unit = $10, status = $11, sort_order = $12,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $13
		RETURNING ` + variantColumns + `;`

	deleteVariantQuery = `DELETE FROM product_variants WHERE id = $1 RETURNING product_id;`

	refreshPriceRangeQuery = `
		UPDATE products
		SET min_price = (SELECT MIN(price) FROM product_variants WHERE product_id = $1),
			max_price = (SELECT MAX(price) FROM product_variants WHERE product_id = $1),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1;`

	imageColumns = `id, product_id, url, alt_text, type, color_id, attribute_filters, sort_order, created_at`

	createImageQuery = `
		INSERT INTO product_images (product_id, url, alt_text, type, color_id, attribute_filters, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + imageColumns + `;`

	getImageByIDQuery = `SELECT ` + imageColumns + ` FROM product_images WHERE id = $1;`

	listImagesQuery = `
		SELECT ` + imageColumns + `
		FROM product_images
		WHERE product_id = $1
		ORDER BY sort_order ASC, id ASC;`

	listImagesByCatalogQuery = `
		SELECT i.id, i.product_id, i.url, i.alt_text, i.type, i.color_id, i.attribute_filters, i.sort_order, i.created_at
		FROM product_images i
		JOIN products p ON p.id = i.product_id
		WHERE p.catalog_id = $1
		ORDER BY i.product_id ASC, i.sort_order ASC, i.id ASC;`

	updateImageQuery = `
		UPDATE product_images
		SET url = $1, alt_text = $2, type = $3, color_id = $4, attribute_filters = $5, sort_order = $6
		WHERE id = $7
		RETURNING ` + imageColumns + `;`

	deleteImageQuery = `DELETE FROM product_images WHERE id = $1;`
)

// --- AttributeStorer Implementation ---

func (s *PostgresStore) CreateAttribute(ctx context.Context, attr *domain.ProductAttribute) (*domain.ProductAttribute, error) {
	return insertAttribute(ctx, s.db, attr)
}

func insertAttribute(ctx context.Context, q sqlx.QueryerContext, a *domain.ProductAttribute) (*domain.ProductAttribute, error) {
	var created domain.ProductAttribute
	err := q.QueryRowxContext(ctx, createAttributeQuery,
		a.ProductID, a.AttributeID, a.Label, a.Options, a.IsRequired, a.SortOrder,
	).StructScan(&created)
	if err != nil {
		if uniqueViolationOn(err, "attribute_id") {
			return nil, ErrAttributeIDExists
		}
		return nil, fmt.Errorf("store: CreateAttribute failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetAttributeByID(ctx context.Context, id int64) (*domain.ProductAttribute, error) {
	var attr domain.ProductAttribute
	if err := s.db.GetContext(ctx, &attr, getAttributeByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttributeNotFound
		}
		return nil, fmt.Errorf("store: GetAttributeByID failed to scan row: %w", err)
	}
	return &attr, nil
}

func (s *PostgresStore) ListAttributes(ctx context.Context, productID int64) ([]domain.ProductAttribute, error) {
	attrs := []domain.ProductAttribute{}
	if err := s.db.SelectContext(ctx, &attrs, listAttributesQuery, productID); err != nil {
		return nil, fmt.Errorf("store: ListAttributes failed to query attributes: %w", err)
	}
	return attrs, nil
}

func (s *PostgresStore) ListAttributesByCatalog(ctx context.Context, catalogID int64) ([]domain.ProductAttribute, error) {
	attrs := []domain.ProductAttribute{}
	if err := s.db.SelectContext(ctx, &attrs, listAttributesByCatalogQuery, catalogID); err != nil {
		return nil, fmt.Errorf("store: ListAttributesByCatalog failed to query attributes: %w", err)
	}
	return attrs, nil
}

func (s *PostgresStore) AttributeKeyExists(ctx context.Context, productID int64, attributeID string, excludeID int64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, attributeKeyExistsQuery, productID, attributeID, excludeID); err != nil {
		return false, fmt.Errorf("store: AttributeKeyExists failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateAttribute(ctx context.Context, a *domain.ProductAttribute) (*domain.ProductAttribute, error) {
	var updated domain.ProductAttribute
	err := s.db.QueryRowxContext(ctx, updateAttributeQuery,
		a.AttributeID, a.Label, a.Options, a.IsRequired, a.SortOrder, a.ID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttributeNotFound
		}
		if uniqueViolationOn(err, "attribute_id") {
			return nil, ErrAttributeIDExists
		}
		return nil, fmt.Errorf("store: UpdateAttribute failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteAttribute(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteAttributeQuery, id)
	if err != nil {
		return fmt.Errorf("store: DeleteAttribute failed to execute delete: %w", err)
	}
	return checkAffected(res, "DeleteAttribute", ErrAttributeNotFound)
}

// --- VariantStorer Implementation ---

// CreateVariant inserts the variant and refreshes the product's price range in one transaction.
func (s *PostgresStore) CreateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error) {
	var created *domain.ProductVariant
	err := s.withTx(ctx, "CreateVariant", func(tx *sqlx.Tx) error {
		var err error
		if created, err = insertVariant(ctx, tx, variant); err != nil {
			return err
		}
		return refreshPriceRange(ctx, tx, variant.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func insertVariant(ctx context.Context, q sqlx.QueryerContext, v *domain.ProductVariant) (*domain.ProductVariant, error) {
	var created domain.ProductVariant
	err := q.QueryRowxContext(ctx, createVariantQuery,
		v.ProductID, v.SKU, v.Barcode, v.Price, v.CompareAtPrice, v.CostPerItem, v.Attributes,
		v.InventoryCount, v.InventoryPolicy, v.Weight, v.WeightUnit, v.Status, v.SortOrder,
	).StructScan(&created)
	if err != nil {
		if uniqueViolationOn(err, "sku") {
			return nil, ErrSKUExists
		}
		return nil, fmt.Errorf("store: CreateVariant failed to scan row: %w", err)
	}
	return &created, nil
}

func refreshPriceRange(ctx context.Context, e sqlx.ExecerContext, productID int64) error {
	if _, err := e.ExecContext(ctx, refreshPriceRangeQuery, productID); err != nil {
		return fmt.Errorf("store: failed to refresh price range for product %d: %w", productID, err)
	}
	return nil
}

func (s *PostgresStore) GetVariantByID(ctx context.Context, id int64) (*domain.ProductVariant, error) {
	return s.getVariant(ctx, "GetVariantByID", getVariantByIDQuery, id)
}

// GetVariantBySKU is the point lookup behind SKU uniqueness checks.
func (s *PostgresStore) GetVariantBySKU(ctx context.Context, sku string) (*domain.ProductVariant, error) {
	return s.getVariant(ctx, "GetVariantBySKU", getVariantBySKUQuery, sku)
}

func (s *PostgresStore) getVariant(ctx context.Context, op, query string, arg any) (*domain.ProductVariant, error) {
	var v domain.ProductVariant
	if err := s.db.GetContext(ctx, &v, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("store: %s failed to scan row: %w", op, err)
	}
	return &v, nil
}

func (s *PostgresStore) ListVariants(ctx context.Context, productID int64) ([]domain.ProductVariant, error) {
	variants := []domain.ProductVariant{}
	if err := s.db.SelectContext(ctx, &variants, listVariantsQuery, productID); err != nil {
		return nil, fmt.Errorf("store: ListVariants failed to query variants: %w", err)
	}
	return variants, nil
}

func (s *PostgresStore) ListVariantsByCatalog(ctx context.Context, catalogID int64) ([]domain.ProductVariant, error) {
	variants := []domain.ProductVariant{}
	if err := s.db.SelectContext(ctx, &variants, listVariantsByCatalogQuery, catalogID); err != nil {
		return nil, fmt.Errorf("store: ListVariantsByCatalog failed to query variants: %w", err)
	}
	return variants, nil
}

func (s *PostgresStore) CountVariants(ctx context.Context, productID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countVariantsQuery, productID); err != nil {
		return 0, fmt.Errorf("store: CountVariants failed: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateVariant(ctx context.Context, v *domain.ProductVariant) (*domain.ProductVariant, error) {
	var updated domain.ProductVariant
	err := s.withTx(ctx, "UpdateVariant", func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, updateVariantQuery,
			v.SKU, v.Barcode, v.Price, v.CompareAtPrice, v.CostPerItem, v.Attributes,
			v.InventoryCount, v.InventoryPolicy, v.Weight, v.WeightUnit, v.Status, v.SortOrder, v.ID,
		).StructScan(&updated)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrVariantNotFound
			}
			if uniqueViolationOn(err, "sku") {
				return ErrSKUExists
			}
			return fmt.Errorf("store: UpdateVariant failed to scan row: %w", err)
		}
		return refreshPriceRange(ctx, tx, updated.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteVariant(ctx context.Context, id int64) error {
	return s.withTx(ctx, "DeleteVariant", func(tx *sqlx.Tx) error {
		var productID int64
		if err := tx.GetContext(ctx, &productID, deleteVariantQuery, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrVariantNotFound
			}
			return fmt.Errorf("store: DeleteVariant failed to execute delete: %w", err)
		}
		return refreshPriceRange(ctx, tx, productID)
	})
}

// --- ImageStorer Implementation ---

func (s *PostgresStore) CreateImage(ctx context.Context, img *domain.ProductImage) (*domain.ProductImage, error) {
	var created domain.ProductImage
	err := s.db.QueryRowxContext(ctx, createImageQuery,
		img.ProductID, img.URL, img.AltText, img.Type, img.ColorID, img.AttributeFilters, img.SortOrder,
	).StructScan(&created)
	if err != nil {
		return nil, fmt.Errorf("store: CreateImage failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetImageByID(ctx context.Context, id int64) (*domain.ProductImage, error) {
	var img domain.ProductImage
	if err := s.db.GetContext(ctx, &img, getImageByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("store: GetImageByID failed to scan row: %w", err)
	}
	return &img, nil
}

func (s *PostgresStore) ListImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	images := []domain.ProductImage{}
	if err := s.db.SelectContext(ctx, &images, listImagesQuery, productID); err != nil {
		return nil, fmt.Errorf("store: ListImages failed to query images: %w", err)
	}
	return images, nil
}

func (s *PostgresStore) ListImagesByCatalog(ctx context.Context, catalogID int64) ([]domain.ProductImage, error) {
	images := []domain.ProductImage{}
	if err := s.db.SelectContext(ctx, &images, listImagesByCatalogQuery, catalogID); err != nil {
		return nil, fmt.Errorf("store: ListImagesByCatalog failed to query images: %w", err)
	}
	return images, nil
}

func (s *PostgresStore) UpdateImage(ctx context.Context, img *domain.ProductImage) (*domain.ProductImage, error) {
	var updated domain.ProductImage
	err := s.db.QueryRowxContext(ctx, updateImageQuery,
		img.URL, img.AltText, img.Type, img.ColorID, img.AttributeFilters, img.SortOrder, img.ID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("store: UpdateImage failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteImage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteImageQuery, id)
	if err != nil {
		return fmt.Errorf("store: DeleteImage failed to execute delete: %w", err)
	}
	return checkAffected(res, "DeleteImage", ErrImageNotFound)
}
