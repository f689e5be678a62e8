package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"brand-catalog-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	productRowColumns = []string{
		"id", "catalog_id", "category_id", "name", "description", "short_description", "specifications",
		"base_attributes", "tags", "meta_title", "meta_description", "status", "sort_order", "min_price", "max_price",
		"created_at", "updated_at",
	}
	attributeRowColumns = []string{
		"id", "product_id", "attribute_id", "label", "options", "is_required", "sort_order", "created_at", "updated_at",
	}
	variantRowColumns = []string{
		"id", "product_id", "sku", "barcode", "price", "compare_at_price", "cost_per_item", "attributes",
		"inventory_count", "inventory_policy", "weight", "weight_unit", "status", "sort_order", "created_at", "updated_at",
	}
	jobRowColumns = []string{
		"id", "user_id", "brand_id", "job_type", "status", "progress_percent", "progress_message",
		"input_data", "output_data", "error_data", "created_at", "updated_at", "completed_at",
	}
)

func TestPostgresStore_CreateVariant_RefreshesPriceRange(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	variant := &domain.ProductVariant{
		ProductID:       5,
		SKU:             "TEE-RED-M",
		Price:           decimal.RequireFromString("19.99"),
		Attributes:      domain.AttributeValues{"color": "red", "size": "m"},
		InventoryPolicy: domain.InventoryPolicyDeny,
		Status:          "draft",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(createVariantQuery)).
		WillReturnRows(sqlmock.NewRows(variantRowColumns).AddRow(
			int64(40), int64(5), "TEE-RED-M", nil, "19.99", nil, nil, []byte(`{"color":"red","size":"m"}`),
			0, "deny", nil, nil, "draft", 0, now, now))
	mock.ExpectExec(regexp.QuoteMeta(refreshPriceRangeQuery)).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := store.CreateVariant(context.Background(), variant)

	require.NoError(t, err)
	assert.Equal(t, int64(40), created.ID)
	assert.True(t, decimal.RequireFromString("19.99").Equal(created.Price))
	assert.Equal(t, domain.AttributeValues{"color": "red", "size": "m"}, created.Attributes)
	assert.False(t, created.CompareAtPrice.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateVariant_SKUExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(createVariantQuery)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "product_variants_sku_key"})
	mock.ExpectRollback()

	created, err := store.CreateVariant(context.Background(), &domain.ProductVariant{ProductID: 5, SKU: "DUP"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSKUExists)
	assert.Contains(t, err.Error(), "SKU already exists")
	assert.Nil(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetVariantBySKU_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(getVariantBySKUQuery)).WithArgs("NOPE").WillReturnError(sql.ErrNoRows)

	v, err := store.GetVariantBySKU(context.Background(), "NOPE")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrVariantNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteVariant_RefreshesOwningProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(deleteVariantQuery)).WithArgs(int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(int64(5)))
	mock.ExpectExec(regexp.QuoteMeta(refreshPriceRangeQuery)).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteVariant(context.Background(), 40))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProducts_RollsBackOnVariantFailure(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	bundles := []domain.ProductBundle{{
		Product: domain.Product{Name: "Tee", Status: domain.ProductStatusDraft},
		Attributes: []domain.ProductAttribute{{
			AttributeID: "color", Label: "Color",
			Options: domain.AttributeOptions{{Value: "red", Label: "Red"}},
		}},
		Variants: []domain.ProductVariant{{SKU: "TAKEN", Price: decimal.NewFromInt(10)}},
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(createProductQuery)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(
			int64(5), int64(7), nil, "Tee", nil, nil, []byte(`{}`), []byte(`{}`), []byte(`{}`), nil, nil,
			"draft", 0, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(createAttributeQuery)).
		WillReturnRows(sqlmock.NewRows(attributeRowColumns).AddRow(
			int64(9), int64(5), "color", "Color", []byte(`[{"value":"red","label":"Red"}]`), false, 0, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(createVariantQuery)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "product_variants_sku_key"})
	mock.ExpectRollback()

	out, err := store.CreateProducts(context.Background(), 7, bundles)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSKUExists)
	assert.Nil(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProducts_Commits(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(createProductQuery)).
		WithArgs(int64(7), nil, "Tee", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil, "draft", 0).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(
			int64(5), int64(7), nil, "Tee", nil, nil, []byte(`{}`), []byte(`{}`), []byte(`{tee}`), nil, nil,
			"draft", 0, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(createVariantQuery)).
		WillReturnRows(sqlmock.NewRows(variantRowColumns).AddRow(
			int64(40), int64(5), "TEE-1", nil, "12.50", nil, nil, []byte(`{}`),
			0, "deny", nil, nil, "draft", 0, now, now))
	mock.ExpectExec(regexp.QuoteMeta(refreshPriceRangeQuery)).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(adjustTotalProductsQuery)).WithArgs(1, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := store.CreateProducts(context.Background(), 7, []domain.ProductBundle{{
		Product:  domain.Product{Name: "Tee", Status: domain.ProductStatusDraft},
		Variants: []domain.ProductVariant{{SKU: "TEE-1", Price: decimal.RequireFromString("12.50")}},
	}})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(5), out[0].Product.ID)
	assert.Equal(t, []string{"tee"}, []string(out[0].Product.Tags))
	require.Len(t, out[0].Variants, 1)
	assert.Equal(t, int64(5), out[0].Variants[0].ProductID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_DecrementsCatalogCounter(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(deleteProductQuery)).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"catalog_id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(adjustTotalProductsQuery)).WithArgs(-1, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteProduct(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(deleteProductQuery)).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"catalog_id"}))
	mock.ExpectRollback()

	err := store.DeleteProduct(context.Background(), 5)
	assert.ErrorIs(t, err, ErrProductNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAttribute_DuplicateKey(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(createAttributeQuery)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "product_attributes_product_id_attribute_id_key"})

	_, err := store.CreateAttribute(context.Background(), &domain.ProductAttribute{ProductID: 5, AttributeID: "color"})
	assert.ErrorIs(t, err, ErrAttributeIDExists)
}

func TestPostgresStore_CancelJob(t *testing.T) {
	jobID := "8d1f2a52-4c0e-4f57-9d0c-3fb1d9f0a111"

	t.Run("pending job is cancelled", func(t *testing.T) {
		db, mock, store := newMockDBAndStore(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(cancelJobQuery)).WithArgs(jobID).
			WillReturnRows(sqlmock.NewRows(jobRowColumns).AddRow(
				jobID, "user-1", nil, "catalog_images", "cancelled", 40, nil, []byte(`{"n":1}`), nil, nil, now, now, now))

		job, err := store.CancelJob(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, job.Status)
		assert.JSONEq(t, `{"n":1}`, string(job.InputData))
		assert.Nil(t, job.OutputData)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed job conflicts", func(t *testing.T) {
		db, mock, store := newMockDBAndStore(t)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(cancelJobQuery)).WithArgs(jobID).WillReturnRows(sqlmock.NewRows(jobRowColumns))
		mock.ExpectQuery(regexp.QuoteMeta(jobExistsQuery)).WithArgs(jobID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := store.CancelJob(context.Background(), jobID)
		assert.ErrorIs(t, err, ErrJobStateConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing job", func(t *testing.T) {
		db, mock, store := newMockDBAndStore(t)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(cancelJobQuery)).WithArgs(jobID).WillReturnRows(sqlmock.NewRows(jobRowColumns))
		mock.ExpectQuery(regexp.QuoteMeta(jobExistsQuery)).WithArgs(jobID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := store.CancelJob(context.Background(), jobID)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestPostgresStore_Lookups(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(brandRootQuery)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "project_id"}).AddRow(nil, int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(productCatalogQuery)).WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(catalogBrandQuery)).WithArgs(int64(4)).
		WillReturnError(errors.New("timeout"))

	root, ok, err := store.BrandRoot(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, root.UserID)
	assert.Equal(t, PtrTo(int64(3)), root.ProjectID)

	_, ok, err = store.ProductCatalog(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = store.CatalogBrand(context.Background(), 4)
	assert.Error(t, err)

	_, ok, err = store.JobOwner(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
