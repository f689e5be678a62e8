package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/ownership"
	"brand-catalog-service/internal/store"
)

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) Archive(ctx context.Context, key, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func seedCatalog(t *testing.T) (*store.MemoryStore, *domain.Catalog) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore(zap.NewNop())
	owner := "alice"
	brand, err := st.CreateBrand(ctx, &domain.Brand{UserID: &owner, Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	catalog, err := st.CreateCatalog(ctx, &domain.Catalog{BrandID: brand.ID, CatalogKey: "cat_abc", Name: "Spring Drop", Slug: "spring-drop"})
	require.NoError(t, err)

	_, err = st.CreateProducts(ctx, catalog.ID, []domain.ProductBundle{
		{
			Product:    domain.Product{Name: "Tee", Description: domain.Ptr(`Best, "ever"`), Status: domain.ProductStatusActive},
			Attributes: []domain.ProductAttribute{{AttributeID: "size", Label: "Size", Options: domain.AttributeOptions{{Value: "s"}, {Value: "m"}, {Value: "l"}}}},
			Variants: []domain.ProductVariant{
				{SKU: "TEE-S", Price: decimal.NewFromInt(10), Attributes: domain.AttributeValues{"size": "s"}, SortOrder: 0},
				{SKU: "TEE-M", Price: decimal.NewFromInt(10), Attributes: domain.AttributeValues{"size": "m"}, SortOrder: 1},
				{SKU: "TEE-L", Price: decimal.NewFromInt(12), Attributes: domain.AttributeValues{"size": "l"}, SortOrder: 2},
			},
		},
		{Product: domain.Product{Name: "Sticker", SortOrder: 1}},
	})
	require.NoError(t, err)
	return st, catalog
}

func fixedNow() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }

func TestExportCatalog(t *testing.T) {
	st, _ := seedCatalog(t)
	archiver := new(mockArchiver)
	archiver.On("Archive", mock.Anything, "cat_abc/spring_drop_products_2025-04-01.csv", "text/csv", mock.Anything).
		Return("s3://bucket/exports/cat_abc/spring_drop_products_2025-04-01.csv", nil)

	e := NewExporter(st, archiver, zap.NewNop(), nil)
	e.now = fixedNow

	res, err := e.ExportCatalog(context.Background(), auth.User{ID: "alice"}, "cat_abc")
	require.NoError(t, err)
	archiver.AssertExpectations(t)

	assert.Equal(t, "spring_drop_products_2025-04-01.csv", res.Filename)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, "s3://bucket/exports/cat_abc/spring_drop_products_2025-04-01.csv", res.Location)

	lines := strings.Split(string(res.Body), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], `tee,Tee,"Best, ""ever""",Acme,`))
	assert.True(t, strings.HasPrefix(lines[2], "tee,,,,"))
	assert.True(t, strings.HasPrefix(lines[4], "sticker,Sticker,"))
	assert.Contains(t, lines[4], ",Title,Default Title,")
}

func TestExportCatalog_ArchiveFailureDoesNotFailExport(t *testing.T) {
	st, _ := seedCatalog(t)
	archiver := new(mockArchiver)
	archiver.On("Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("s3 down"))

	e := NewExporter(st, archiver, zap.NewNop(), nil)
	res, err := e.ExportCatalog(context.Background(), auth.User{ID: "alice"}, "cat_abc")
	require.NoError(t, err)
	assert.Empty(t, res.Location)
	assert.NotEmpty(t, res.Body)
}

func TestExportCatalog_Ownership(t *testing.T) {
	st, _ := seedCatalog(t)
	e := NewExporter(st, nil, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := e.ExportCatalog(ctx, auth.User{}, "cat_abc")
	assert.ErrorIs(t, err, ownership.ErrUnauthenticated)

	_, err = e.ExportCatalog(ctx, auth.User{ID: "mallory"}, "cat_abc")
	assert.ErrorIs(t, err, ownership.ErrNotFound)

	_, err = e.ExportCatalog(ctx, auth.User{ID: "alice"}, "cat_missing")
	assert.ErrorIs(t, err, ownership.ErrNotFound)
}

func TestS3Archiver(t *testing.T) {
	putter := new(mockPutter)
	putter.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "exports-bucket" && *in.Key == "csv/cat_1/x.csv" && *in.ContentType == "text/csv"
	})).Return(&s3.PutObjectOutput{}, nil)

	a := NewS3ArchiverWithClient(putter, "exports-bucket", "csv")
	loc, err := a.Archive(context.Background(), "cat_1/x.csv", "text/csv", []byte("a,b"))
	require.NoError(t, err)
	assert.Equal(t, "s3://exports-bucket/csv/cat_1/x.csv", loc)
	putter.AssertExpectations(t)
}

func TestS3Archiver_Error(t *testing.T) {
	putter := new(mockPutter)
	putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("denied"))

	a := NewS3ArchiverWithClient(putter, "b", "")
	_, err := a.Archive(context.Background(), "k", "text/csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/k")
}
