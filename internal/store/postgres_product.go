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
	productColumns = `id, catalog_id, category_id, name, description, short_description, specifications,
		base_attributes, tags, meta_title, meta_description, status, sort_order, min_price, max_price,
		created_at, updated_at`

	createProductQuery = `
		INSERT INTO products (catalog_id, category_id, name, description, short_description, specifications,
			base_attributes, tags, meta_title, meta_description, status, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + productColumns + `;`

	getProductByIDQuery = `SELECT ` + productColumns + ` FROM products WHERE id = $1;`

	listProductsQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE catalog_id = $1
		ORDER BY sort_order ASC, name ASC, id ASC;`

	updateProductQuery = `
		UPDATE products
		SET category_id = $1, name = $2, description = $3, short_description = $4, specifications = $5,
			base_attributes = $6, tags = $7, meta_title = $8, meta_description = $9, status = $10, sort_order = $11,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $12
		RETURNING ` + productColumns + `;`

	deleteProductQuery = `DELETE FROM products WHERE id = $1 RETURNING catalog_id;`

	adjustTotalProductsQuery = `
		UPDATE product_catalogs
		SET total_products = GREATEST(total_products + $1, 0), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2;`
)

// --- ProductStorer Implementation ---

// CreateProduct inserts the product and bumps the catalog's product counter in one transaction.
func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	var created *domain.Product
	err := s.withTx(ctx, "CreateProduct", func(tx *sqlx.Tx) error {
		var err error
		if created, err = insertProduct(ctx, tx, product); err != nil {
			return err
		}
		return adjustTotalProducts(ctx, tx, product.CatalogID, 1)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func insertProduct(ctx context.Context, q sqlx.QueryerContext, p *domain.Product) (*domain.Product, error) {
	var created domain.Product
	err := q.QueryRowxContext(ctx, createProductQuery,
		p.CatalogID, p.CategoryID, p.Name, p.Description, p.ShortDescription, p.Specifications,
		p.BaseAttributes, p.Tags, p.MetaTitle, p.MetaDescription, p.Status, p.SortOrder,
	).StructScan(&created)
	if err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}
	return &created, nil
}

func adjustTotalProducts(ctx context.Context, e sqlx.ExecerContext, catalogID int64, delta int) error {
	if _, err := e.ExecContext(ctx, adjustTotalProductsQuery, delta, catalogID); err != nil {
		return fmt.Errorf("store: failed to adjust total_products for catalog %d: %w", catalogID, err)
	}
	return nil
}

// CreateProducts inserts products with their attribute schemas and variants in a
// single transaction. Returned ids are linked back to the bundle at the same index.
// Any failure rolls the whole batch back and is returned unchanged.
func (s *PostgresStore) CreateProducts(ctx context.Context, catalogID int64, bundles []domain.ProductBundle) ([]domain.ProductBundle, error) {
	out := make([]domain.ProductBundle, len(bundles))
	err := s.withTx(ctx, "CreateProducts", func(tx *sqlx.Tx) error {
		for i := range bundles {
			p := bundles[i].Product
			p.CatalogID = catalogID
			created, err := insertProduct(ctx, tx, &p)
			if err != nil {
				return fmt.Errorf("product %d: %w", i, err)
			}
			out[i].Product = *created
		}
		for i := range bundles {
			productID := out[i].Product.ID
			for _, a := range bundles[i].Attributes {
				a.ProductID = productID
				created, err := insertAttribute(ctx, tx, &a)
				if err != nil {
					return fmt.Errorf("product %d attribute %q: %w", i, a.AttributeID, err)
				}
				out[i].Attributes = append(out[i].Attributes, *created)
			}
		}
		for i := range bundles {
			productID := out[i].Product.ID
			for _, v := range bundles[i].Variants {
				v.ProductID = productID
				created, err := insertVariant(ctx, tx, &v)
				if err != nil {
					return fmt.Errorf("product %d variant %q: %w", i, v.SKU, err)
				}
				out[i].Variants = append(out[i].Variants, *created)
			}
			if len(bundles[i].Variants) > 0 {
				if err := refreshPriceRange(ctx, tx, productID); err != nil {
					return err
				}
			}
		}
		return adjustTotalProducts(ctx, tx, catalogID, len(bundles))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := s.db.GetContext(ctx, &product, getProductByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return &product, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, catalogID int64) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := s.db.SelectContext(ctx, &products, listProductsQuery, catalogID); err != nil {
		return nil, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	var updated domain.Product
	err := s.db.QueryRowxContext(ctx, updateProductQuery,
		p.CategoryID, p.Name, p.Description, p.ShortDescription, p.Specifications, p.BaseAttributes,
		p.Tags, p.MetaTitle, p.MetaDescription, p.Status, p.SortOrder, p.ID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}
	return &updated, nil
}

// DeleteProduct removes the product and decrements the catalog's product counter.
// Attribute schemas, variants and images go with it through ON DELETE CASCADE.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.withTx(ctx, "DeleteProduct", func(tx *sqlx.Tx) error {
		var catalogID int64
		if err := tx.GetContext(ctx, &catalogID, deleteProductQuery, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
		}
		return adjustTotalProducts(ctx, tx, catalogID, -1)
	})
}
