package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"brand-catalog-service/internal/ai"
	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/metrics"
)

// TreeGenerator proposes category trees.
type TreeGenerator interface {
	GenerateCategoryTree(ctx context.Context, req ai.CategoryTreeRequest) ([]domain.CategoryNode, error)
}

// TreeRequest is the catalog wizard input. Zero counts fall back to 5 parents with 3 subcategories.
type TreeRequest struct {
	CatalogName         string `json:"catalog_name"`
	ParentCategoryCount int    `json:"parent_category_count"`
	SubcategoryCount    int    `json:"subcategory_count"`
	Notes               string `json:"notes"`
}

// CatalogWizard is the one-shot category tree generator. Regenerating is simply
// calling Generate again; nothing is stored until Save.
type CatalogWizard struct {
	catalogs *catalog.Service
	gen      TreeGenerator
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewCatalogWizard creates a CatalogWizard.
func NewCatalogWizard(catalogs *catalog.Service, gen TreeGenerator, logger *zap.Logger, m *metrics.Metrics) *CatalogWizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogWizard{catalogs: catalogs, gen: gen, logger: logger.Named("catalog_wizard"), metrics: m}
}

// Generate proposes a category tree for one of the caller's brands.
func (w *CatalogWizard) Generate(ctx context.Context, user auth.User, brandID int64, req TreeRequest) ([]domain.CategoryNode, error) {
	brand, err := w.catalogs.GetBrand(ctx, user, brandID)
	if err != nil {
		return nil, err
	}
	if req.ParentCategoryCount < 0 || req.ParentCategoryCount > 20 || req.SubcategoryCount < 0 || req.SubcategoryCount > 20 {
		return nil, &catalog.ValidationError{Message: "category counts must be between 0 and 20"}
	}
	if req.ParentCategoryCount == 0 {
		req.ParentCategoryCount = 5
	}
	if req.SubcategoryCount == 0 {
		req.SubcategoryCount = 3
	}

	tree, err := w.gen.GenerateCategoryTree(ctx, ai.CategoryTreeRequest{
		BrandName:           brand.Name,
		BrandContext:        brandContext(brand),
		CatalogName:         req.CatalogName,
		ParentCategoryCount: req.ParentCategoryCount,
		SubcategoryCount:    req.SubcategoryCount,
		Notes:               req.Notes,
	})
	w.metrics.ObserveWizardEvent("catalog_generate", err)
	if err != nil {
		return nil, err
	}
	w.logger.Info("category tree proposed", zap.Int64("brand_id", brandID), zap.Int("parents", len(tree)))
	return tree, nil
}

// Save stores an accepted tree in the catalog, parents before children.
func (w *CatalogWizard) Save(ctx context.Context, user auth.User, catalogID int64, tree []domain.CategoryNode) ([]domain.Category, error) {
	created, err := w.catalogs.SaveCategoryTree(ctx, user, catalogID, tree)
	w.metrics.ObserveWizardEvent("catalog_save", err)
	return created, err
}

func brandContext(b *domain.Brand) string {
	var parts []string
	for _, p := range []*string{b.Tagline, b.Mission} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	if b.Positioning.Category != "" {
		parts = append(parts, "Category: "+b.Positioning.Category)
	}
	if b.Positioning.Statement != "" {
		parts = append(parts, b.Positioning.Statement)
	}
	return strings.Join(parts, " ")
}
