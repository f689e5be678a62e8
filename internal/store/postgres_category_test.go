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
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Helper function to create a mock DB and PostgresStore for testing
func newMockDBAndStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	store := NewPostgresStore(sqlx.NewDb(db, "postgres"), zap.NewNop())
	require.NotNil(t, store, "Store should not be nil")

	return db, mock, store
}

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}

var categoryRowColumns = []string{
	"id", "catalog_id", "name", "description", "slug", "parent_category_id",
	"sort_order", "is_active", "metadata", "created_at", "updated_at",
}

func TestPostgresStore_CreateCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	categoryToCreate := &domain.Category{
		CatalogID:   7,
		Name:        "Outerwear",
		Description: PtrTo("Jackets and coats"),
		Slug:        "outerwear",
		IsActive:    true,
		Metadata:    domain.JSONMap{},
	}

	rows := sqlmock.NewRows(categoryRowColumns).
		AddRow(int64(1), int64(7), "Outerwear", "Jackets and coats", "outerwear", nil, 0, true, []byte(`{}`), now, now)

	mock.ExpectQuery(regexp.QuoteMeta(createCategoryQuery)).
		WithArgs(int64(7), "Outerwear", categoryToCreate.Description, "outerwear", nil, 0, true, sqlmock.AnyArg()).
		WillReturnRows(rows)

	created, err := store.CreateCategory(context.Background(), categoryToCreate)

	require.NoError(t, err, "CreateCategory should not return an error")
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(7), created.CatalogID)
	assert.Equal(t, categoryToCreate.Description, created.Description)
	assert.Nil(t, created.ParentCategoryID)
	assert.True(t, created.IsActive)
	assert.WithinDuration(t, now, created.CreatedAt, time.Second)

	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_CreateCategory_SlugExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	pqErr := &pq.Error{Code: "23505", Constraint: "categories_catalog_id_slug_key"}
	mock.ExpectQuery(regexp.QuoteMeta(createCategoryQuery)).WillReturnError(pqErr)

	created, err := store.CreateCategory(context.Background(), &domain.Category{CatalogID: 7, Name: "Dup", Slug: "dup"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCategorySlugExists), "Error should be ErrCategorySlugExists")
	assert.Nil(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCategoryByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(getCategoryByIDQuery)).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	category, err := store.GetCategoryByID(context.Background(), 99)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCategoryNotFound), "Error should be ErrCategoryNotFound")
	assert.Nil(t, category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCategories(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	listRows := sqlmock.NewRows(categoryRowColumns).
		AddRow(int64(2), int64(7), "Alpha", nil, "alpha", nil, 0, true, []byte(`{}`), now, now).
		AddRow(int64(1), int64(7), "Beta", "B", "beta", int64(2), 0, true, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(listCategoriesQuery)).WithArgs(int64(7)).WillReturnRows(listRows)

	categories, err := store.ListCategories(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Alpha", categories[0].Name)
	assert.Equal(t, "Beta", categories[1].Name)
	assert.Equal(t, PtrTo(int64(2)), categories[1].ParentCategoryID)
	assert.Contains(t, listCategoriesQuery, "ORDER BY sort_order ASC, name ASC")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCategories_Empty(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(listCategoriesQuery)).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns))

	categories, err := store.ListCategories(context.Background(), 7)

	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
}

func TestPostgresStore_ListCategories_PropagatesErrors(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(listCategoriesQuery)).WillReturnError(boom)

	categories, err := store.ListCategories(context.Background(), 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, categories)
}

func TestPostgresStore_UpdateCategory_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(updateCategoryQuery)).WillReturnError(sql.ErrNoRows)

	_, err := store.UpdateCategory(context.Background(), &domain.Category{ID: 99, Name: "Gone", Slug: "gone"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCategoryNotFound), "Error should be ErrCategoryNotFound")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteCategory_Success(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(deleteCategoryQuery)).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteCategory(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_DeleteCategory_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(deleteCategoryQuery)).WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteCategory(context.Background(), 99)

	require.Error(t, err, "DeleteCategory should return an error if no rows were affected")
	assert.True(t, errors.Is(err, ErrCategoryNotFound), "Error should be ErrCategoryNotFound")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProbes(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(hasSubcategoriesQuery)).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(hasProductsQuery)).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	hasChildren, err := store.HasSubcategories(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, hasChildren)

	hasProducts, err := store.HasProductsInCategory(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, hasProducts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCategoryTree_InsertsParentsFirst(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	nodes := []domain.CategoryNode{
		{Name: "Apparel", Subcategories: []domain.CategoryNode{{Name: "Tops"}}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(categorySlugsQuery)).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("tops"))
	mock.ExpectQuery(regexp.QuoteMeta(createCategoryQuery)).
		WithArgs(int64(7), "Apparel", nil, "apparel", nil, 0, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow(int64(10), int64(7), "Apparel", nil, "apparel", nil, 0, true, []byte(`{}`), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(createCategoryQuery)).
		WithArgs(int64(7), "Tops", nil, "tops-2", int64(10), 0, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow(int64(11), int64(7), "Tops", nil, "tops-2", int64(10), 0, true, []byte(`{}`), now, now))
	mock.ExpectCommit()

	created, err := store.CreateCategoryTree(context.Background(), 7, nodes)

	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, int64(10), *created[1].ParentCategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCategoryTree_RollsBack(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(categorySlugsQuery)).WillReturnRows(sqlmock.NewRows([]string{"slug"}))
	mock.ExpectQuery(regexp.QuoteMeta(createCategoryQuery)).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow(int64(10), int64(7), "Apparel", nil, "apparel", nil, 0, true, []byte(`{}`), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(createCategoryQuery)).WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := store.CreateCategoryTree(context.Background(), 7, []domain.CategoryNode{
		{Name: "Apparel", Subcategories: []domain.CategoryNode{{Name: "Tops"}}},
	})

	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlattenCategoryTree(t *testing.T) {
	plan := FlattenCategoryTree(3, []domain.CategoryNode{
		{Name: "Home", Description: "All home", Subcategories: []domain.CategoryNode{{Name: "Kitchen"}, {Name: "Bath"}}},
		{Name: "Garden", Subcategories: []domain.CategoryNode{{Name: "Kitchen"}}},
	}, []string{"garden"})

	require.Len(t, plan, 5)
	names := []string{}
	for _, p := range plan {
		names = append(names, p.Category.Name)
	}
	assert.Equal(t, []string{"Home", "Kitchen", "Bath", "Garden", "Kitchen"}, names)
	assert.Equal(t, []int{-1, 0, 0, -1, 3}, []int{plan[0].Parent, plan[1].Parent, plan[2].Parent, plan[3].Parent, plan[4].Parent})
	assert.Equal(t, "garden-2", plan[3].Category.Slug)
	assert.Equal(t, "kitchen-2", plan[4].Category.Slug)
	assert.Equal(t, 1, plan[2].Category.SortOrder)
	assert.Equal(t, PtrTo("All home"), plan[0].Category.Description)
}
