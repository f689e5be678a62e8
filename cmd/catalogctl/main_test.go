package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/store"
)

func seeded(t *testing.T) (*services, *domain.Catalog) {
	t.Helper()
	ctx := context.Background()
	s := wire(store.NewMemoryStore(zap.NewNop()), nil, zap.NewNop())
	alice := auth.User{ID: "alice"}
	brand, err := s.catalog.CreateBrand(ctx, alice, catalog.BrandInput{Name: "Northwind"})
	require.NoError(t, err)
	c, err := s.catalog.CreateCatalog(ctx, alice, brand.ID, catalog.CatalogInput{Name: "Main"})
	require.NoError(t, err)
	return s, c
}

func TestLoadPrompts(t *testing.T) {
	groups, err := loadPrompts(strings.NewReader(`
- groupName: Lifestyle
  prompts:
    - model wearing the jacket outdoors
- groupName: Packshot
  prompts: ["front view on white", "back view on white"]
`))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Packshot", groups[1].GroupName)
	assert.Len(t, groups[1].Prompts, 2)

	groups, err = loadPrompts(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = loadPrompts(strings.NewReader("groupName: [unclosed"))
	assert.Error(t, err)
}

func TestImportPrompts(t *testing.T) {
	s, c := seeded(t)
	ctx := context.Background()
	file := "- groupName: Lifestyle\n  prompts: [outdoors]\n"

	updated, err := importPrompts(ctx, s.catalog, auth.User{ID: "alice"}, c.ID, strings.NewReader(file))
	require.NoError(t, err)
	require.Len(t, updated.Settings.ImageGroupPrompts, 1)
	assert.Equal(t, "Lifestyle", updated.Settings.ImageGroupPrompts[0].GroupName)

	_, err = importPrompts(ctx, s.catalog, auth.User{ID: "bob"}, c.ID, strings.NewReader(file))
	assert.Error(t, err, "other users cannot touch the catalog")
}

func TestExportCSV(t *testing.T) {
	s, c := seeded(t)
	out := filepath.Join(t.TempDir(), "export.csv")

	path, res, err := exportCSV(context.Background(), s.exporter, auth.User{ID: "alice"}, c.CatalogKey, out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Body, body)
	assert.True(t, strings.HasPrefix(string(body), "Handle,Title,"))

	_, _, err = exportCSV(context.Background(), s.exporter, auth.User{ID: "bob"}, c.CatalogKey, out)
	assert.Error(t, err)
}
