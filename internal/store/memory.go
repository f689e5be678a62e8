package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/ownership"
)

// MemoryStore implements Store in process memory. It backs STORE_DRIVER=memory
// for local development and the service tests. Deletes cascade the way the
// database foreign keys do.
type MemoryStore struct {
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	nextID     int64
	projects   map[int64]domain.Project
	brands     map[int64]domain.Brand
	catalogs   map[int64]domain.Catalog
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	attributes map[int64]domain.ProductAttribute
	variants   map[int64]domain.ProductVariant
	images     map[int64]domain.ProductImage
	jobs       map[string]domain.Job

	jobObserver func(domain.Job)
}

var (
	_ Store            = (*MemoryStore)(nil)
	_ Store            = (*PostgresStore)(nil)
	_ ownership.Lookup = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		projects:   map[int64]domain.Project{},
		brands:     map[int64]domain.Brand{},
		catalogs:   map[int64]domain.Catalog{},
		categories: map[int64]domain.Category{},
		products:   map[int64]domain.Product{},
		attributes: map[int64]domain.ProductAttribute{},
		variants:   map[int64]domain.ProductVariant{},
		images:     map[int64]domain.ProductImage{},
		jobs:       map[string]domain.Job{},
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// --- Projects ---

func (s *MemoryStore) CreateProject(_ context.Context, p *domain.Project) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := *p
	created.ID = s.id()
	created.CreatedAt, created.UpdatedAt = s.now(), s.now()
	s.projects[created.ID] = created
	return &created, nil
}

func (s *MemoryStore) ListProjects(_ context.Context, userID string) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Project{}
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Project) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

// --- Brands ---

func (s *MemoryStore) brandOwner(b domain.Brand) string {
	if b.UserID != nil {
		return *b.UserID
	}
	if b.ProjectID != nil {
		return s.projects[*b.ProjectID].UserID
	}
	return ""
}

func (s *MemoryStore) brandSlugTaken(b domain.Brand) bool {
	owner := s.brandOwner(b)
	for _, other := range s.brands {
		if other.ID != b.ID && other.Slug == b.Slug && s.brandOwner(other) == owner {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateBrand(_ context.Context, b *domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.brandSlugTaken(*b) {
		return nil, ErrBrandSlugExists
	}
	created := *b
	created.ID = s.id()
	created.CreatedAt, created.UpdatedAt = s.now(), s.now()
	s.brands[created.ID] = created
	return &created, nil
}

func (s *MemoryStore) GetBrandByID(_ context.Context, id int64) (*domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.brands[id]
	if !ok {
		return nil, ErrBrandNotFound
	}
	return &b, nil
}

func (s *MemoryStore) GetBrandBySlug(_ context.Context, userID, slug string) (*domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.brands {
		if b.Slug == slug && s.brandOwner(b) == userID {
			return &b, nil
		}
	}
	return nil, ErrBrandNotFound
}

func (s *MemoryStore) ListBrands(_ context.Context, userID string) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Brand{}
	for _, b := range s.brands {
		if s.brandOwner(b) == userID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.Brand) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *MemoryStore) UpdateBrand(_ context.Context, b *domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.brands[b.ID]
	if !ok {
		return nil, ErrBrandNotFound
	}
	updated := *b
	updated.UserID, updated.ProjectID, updated.CreatedAt = existing.UserID, existing.ProjectID, existing.CreatedAt
	if s.brandSlugTaken(updated) {
		return nil, ErrBrandSlugExists
	}
	updated.UpdatedAt = s.now()
	s.brands[b.ID] = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteBrand(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.brands[id]; !ok {
		return ErrBrandNotFound
	}
	for cid, c := range s.catalogs {
		if c.BrandID == id {
			s.deleteCatalogLocked(cid)
		}
	}
	delete(s.brands, id)
	return nil
}

// --- Catalogs ---

func (s *MemoryStore) catalogNameTaken(brandID int64, name string, excludeID int64) bool {
	for _, c := range s.catalogs {
		if c.BrandID == brandID && c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateCatalog(_ context.Context, c *domain.Catalog) (*domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalogNameTaken(c.BrandID, c.Name, 0) {
		return nil, ErrCatalogNameExists
	}
	for _, other := range s.catalogs {
		if other.CatalogKey == c.CatalogKey {
			return nil, fmt.Errorf("store: CreateCatalog: duplicate catalog key %q", c.CatalogKey)
		}
	}
	created := *c
	created.ID = s.id()
	created.TotalProducts = 0
	created.CreatedAt, created.UpdatedAt = s.now(), s.now()
	s.catalogs[created.ID] = created
	return &created, nil
}

func (s *MemoryStore) GetCatalogByID(_ context.Context, id int64) (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.catalogs[id]
	if !ok {
		return nil, ErrCatalogNotFound
	}
	return &c, nil
}

func (s *MemoryStore) GetCatalogByKey(_ context.Context, key string) (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.catalogs {
		if c.CatalogKey == key {
			return &c, nil
		}
	}
	return nil, ErrCatalogNotFound
}

func (s *MemoryStore) ListCatalogs(_ context.Context, brandID int64) ([]domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Catalog{}
	for _, c := range s.catalogs {
		if c.BrandID == brandID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Catalog) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *MemoryStore) CatalogNameExists(_ context.Context, brandID int64, name string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalogNameTaken(brandID, name, excludeID), nil
}

func (s *MemoryStore) UpdateCatalog(_ context.Context, c *domain.Catalog) (*domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.catalogs[c.ID]
	if !ok {
		return nil, ErrCatalogNotFound
	}
	if s.catalogNameTaken(existing.BrandID, c.Name, c.ID) {
		return nil, ErrCatalogNameExists
	}
	updated := existing
	updated.Name, updated.Slug, updated.Description = c.Name, c.Slug, c.Description
	updated.Settings, updated.Status = c.Settings, c.Status
	updated.UpdatedAt = s.now()
	s.catalogs[c.ID] = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteCatalog(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalogs[id]; !ok {
		return ErrCatalogNotFound
	}
	s.deleteCatalogLocked(id)
	return nil
}

func (s *MemoryStore) deleteCatalogLocked(id int64) {
	for pid, p := range s.products {
		if p.CatalogID == id {
			s.deleteProductLocked(pid)
		}
	}
	for cid, c := range s.categories {
		if c.CatalogID == id {
			delete(s.categories, cid)
		}
	}
	delete(s.catalogs, id)
}

func (s *MemoryStore) adjustTotalProductsLocked(catalogID int64, delta int) {
	c, ok := s.catalogs[catalogID]
	if !ok {
		return
	}
	c.TotalProducts = max(c.TotalProducts+delta, 0)
	c.UpdatedAt = s.now()
	s.catalogs[catalogID] = c
}

// --- Categories ---

func (s *MemoryStore) categorySlugTaken(catalogID int64, slug string, excludeID int64) bool {
	for _, c := range s.categories {
		if c.CatalogID == catalogID && c.ID != excludeID && c.Slug == slug {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCategoryLocked(*c)
}

func (s *MemoryStore) createCategoryLocked(c domain.Category) (*domain.Category, error) {
	if s.categorySlugTaken(c.CatalogID, c.Slug, 0) {
		return nil, ErrCategorySlugExists
	}
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	s.categories[c.ID] = c
	return &c, nil
}

// CreateCategoryTree inserts the whole tree under one lock, parents first.
func (s *MemoryStore) CreateCategoryTree(_ context.Context, catalogID int64, nodes []domain.CategoryNode) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var taken []string
	for _, c := range s.categories {
		if c.CatalogID == catalogID {
			taken = append(taken, c.Slug)
		}
	}
	created := []domain.Category{}
	for _, planned := range FlattenCategoryTree(catalogID, nodes, taken) {
		cat := planned.Category
		if planned.Parent >= 0 {
			parentID := created[planned.Parent].ID
			cat.ParentCategoryID = &parentID
		}
		row, err := s.createCategoryLocked(cat)
		if err != nil {
			for _, c := range created {
				delete(s.categories, c.ID)
			}
			return nil, err
		}
		created = append(created, *row)
	}
	return created, nil
}

func (s *MemoryStore) GetCategoryByID(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListCategories(_ context.Context, catalogID int64) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Category{}
	for _, c := range s.categories {
		if c.CatalogID == catalogID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *MemoryStore) HasSubcategories(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ParentCategoryID != nil && *c.ParentCategoryID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) HasProductsInCategory(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	if s.categorySlugTaken(existing.CatalogID, c.Slug, c.ID) {
		return nil, ErrCategorySlugExists
	}
	updated := *c
	updated.CatalogID, updated.CreatedAt, updated.UpdatedAt = existing.CatalogID, existing.CreatedAt, s.now()
	s.categories[c.ID] = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	delete(s.categories, id)
	return nil
}

// --- Products ---

func (s *MemoryStore) CreateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalogs[p.CatalogID]; !ok {
		return nil, fmt.Errorf("store: CreateProduct: catalog %d does not exist", p.CatalogID)
	}
	created := *p
	created.ID = s.id()
	created.MinPrice, created.MaxPrice = decimal.NullDecimal{}, decimal.NullDecimal{}
	created.CreatedAt, created.UpdatedAt = s.now(), s.now()
	s.products[created.ID] = created
	s.adjustTotalProductsLocked(created.CatalogID, 1)
	return &created, nil
}

// CreateProducts inserts each row through the single-row operations, linking
// dependents to the returned product ids. On failure everything inserted so
// far is deleted again in reverse dependency order (variants, attribute
// schemas, products) and the original error is returned.
func (s *MemoryStore) CreateProducts(ctx context.Context, catalogID int64, bundles []domain.ProductBundle) ([]domain.ProductBundle, error) {
	var (
		out          = make([]domain.ProductBundle, len(bundles))
		productIDs   []int64
		attributeIDs []int64
		variantIDs   []int64
	)
	unwind := func(cause error) error {
		for i := len(variantIDs) - 1; i >= 0; i-- {
			if err := s.DeleteVariant(ctx, variantIDs[i]); err != nil {
				s.logger.Error("bulk create rollback: variant", zap.Int64("variant_id", variantIDs[i]), zap.Error(err))
			}
		}
		for i := len(attributeIDs) - 1; i >= 0; i-- {
			if err := s.DeleteAttribute(ctx, attributeIDs[i]); err != nil {
				s.logger.Error("bulk create rollback: attribute", zap.Int64("attribute_id", attributeIDs[i]), zap.Error(err))
			}
		}
		for i := len(productIDs) - 1; i >= 0; i-- {
			if err := s.DeleteProduct(ctx, productIDs[i]); err != nil {
				s.logger.Error("bulk create rollback: product", zap.Int64("product_id", productIDs[i]), zap.Error(err))
			}
		}
		return cause
	}

	for i := range bundles {
		p := bundles[i].Product
		p.CatalogID = catalogID
		created, err := s.CreateProduct(ctx, &p)
		if err != nil {
			return nil, unwind(fmt.Errorf("product %d: %w", i, err))
		}
		productIDs = append(productIDs, created.ID)
		out[i].Product = *created
	}
	for i := range bundles {
		for _, a := range bundles[i].Attributes {
			a.ProductID = out[i].Product.ID
			created, err := s.CreateAttribute(ctx, &a)
			if err != nil {
				return nil, unwind(fmt.Errorf("product %d attribute %q: %w", i, a.AttributeID, err))
			}
			attributeIDs = append(attributeIDs, created.ID)
			out[i].Attributes = append(out[i].Attributes, *created)
		}
	}
	for i := range bundles {
		for _, v := range bundles[i].Variants {
			v.ProductID = out[i].Product.ID
			created, err := s.CreateVariant(ctx, &v)
			if err != nil {
				return nil, unwind(fmt.Errorf("product %d variant %q: %w", i, v.SKU, err))
			}
			variantIDs = append(variantIDs, created.ID)
			out[i].Variants = append(out[i].Variants, *created)
		}
		if p, err := s.GetProductByID(ctx, out[i].Product.ID); err == nil {
			out[i].Product = *p
		}
	}
	return out, nil
}

func (s *MemoryStore) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, catalogID int64) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Product{}
	for _, p := range s.products {
		if p.CatalogID == catalogID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return nil, ErrProductNotFound
	}
	updated := *p
	updated.CatalogID, updated.CreatedAt, updated.UpdatedAt = existing.CatalogID, existing.CreatedAt, s.now()
	updated.MinPrice, updated.MaxPrice = existing.MinPrice, existing.MaxPrice
	s.products[p.ID] = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrProductNotFound
	}
	s.deleteProductLocked(id)
	return nil
}

func (s *MemoryStore) deleteProductLocked(id int64) {
	p := s.products[id]
	for vid, v := range s.variants {
		if v.ProductID == id {
			delete(s.variants, vid)
		}
	}
	for aid, a := range s.attributes {
		if a.ProductID == id {
			delete(s.attributes, aid)
		}
	}
	for iid, img := range s.images {
		if img.ProductID == id {
			delete(s.images, iid)
		}
	}
	delete(s.products, id)
	s.adjustTotalProductsLocked(p.CatalogID, -1)
}

// --- Attributes ---

func (s *MemoryStore) attributeKeyTaken(productID int64, attributeID string, excludeID int64) bool {
	for _, a := range s.attributes {
		if a.ProductID == productID && a.ID != excludeID && a.AttributeID == attributeID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateAttribute(_ context.Context, a *domain.ProductAttribute) (*domain.ProductAttribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[a.ProductID]; !ok {
		return nil, fmt.Errorf("store: CreateAttribute: product %d does not exist", a.ProductID)
	}
	if s.attributeKeyTaken(a.ProductID, a.AttributeID, 0) {
		return nil, ErrAttributeIDExists
	}
	created := *a
	created.ID = s.id()
	created.CreatedAt, created.UpdatedAt = s.now(), s.now()
	s.attributes[created.ID] = created
	return &created, nil
}

func (s *MemoryStore) GetAttributeByID(_ context.Context, id int64) (*domain.ProductAttribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attributes[id]
	if !ok {
		return nil, ErrAttributeNotFound
	}
	return &a, nil
}

func sortAttributes(attrs []domain.ProductAttribute) {
	slices.SortFunc(attrs, func(a, b domain.ProductAttribute) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
}

func (s *MemoryStore) ListAttributes(_ context.Context, productID int64) ([]domain.ProductAttribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ProductAttribute{}
	for _, a := range s.attributes {
		if a.ProductID == productID {
			out = append(out, a)
		}
	}
	sortAttributes(out)
	return out, nil
}

func (s *MemoryStore) ListAttributesByCatalog(_ context.Context, catalogID int64) ([]domain.ProductAttribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ProductAttribute{}
	for _, a := range s.attributes {
		if s.products[a.ProductID].CatalogID == catalogID {
			out = append(out, a)
		}
	}
	sortAttributes(out)
	return out, nil
}

func (s *MemoryStore) AttributeKeyExists(_ context.Context, productID int64, attributeID string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attributeKeyTaken(productID, attributeID, excludeID), nil
}

func (s *MemoryStore) UpdateAttribute(_ context.Context, a *domain.ProductAttribute) (*domain.ProductAttribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.attributes[a.ID]
	if !ok {
		return nil, ErrAttributeNotFound
	}
	if s.attributeKeyTaken(existing.ProductID, a.AttributeID, a.ID) {
		return nil, ErrAttributeIDExists
	}
	updated := *a
	updated.ProductID, updated.CreatedAt, updated.UpdatedAt = existing.ProductID, existing.CreatedAt, s.now()
	s.attributes[a.ID] = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteAttribute(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attributes[id]; !ok {
		return ErrAttributeNotFound
	}
	delete(s.attributes, id)
	return nil
}

// --- Variants ---

func (s *MemoryStore) skuTaken(sku string, excludeID int64) bool {
	for _, v := range s.variants {
		if v.SKU == sku && v.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) refreshPriceRangeLocked(productID int64) {
	p, ok := s.products[productID]
	if !ok {
		return
	}
	p.MinPrice, p.MaxPrice = decimal.NullDecimal{}, decimal.NullDecimal{}
	for _, v := range s.variants {
		if v.ProductID != productID {
			continue
		}
		if !p.MinPrice.Valid || v.Price.LessThan(p.MinPrice.Decimal) {
			p.MinPrice = decimal.NewNullDecimal(v.Price)
		}
		if !p.MaxPrice.Valid || v.Price.GreaterThan(p.MaxPrice.Decimal) {
			p.MaxPrice = decimal.NewNullDecimal(v.Price)
		}
	}
	p.UpdatedAt = s.now()
	s.products[productID] = p
}

func (s *MemoryStore) CreateVariant(_ context.Context, v *domain.ProductVariant) (*domain.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[v.ProductID]; !ok {
		return nil, fmt.Errorf("store: CreateVariant: product %d does not exist", v.ProductID)
	}
	if s.skuTaken(v.SKU, 0) {
		return nil, ErrSKUExists
	}
	created := *v
	created.ID = s.id()
	created.CreatedAt, created.UpdatedAt = s.now(), s.now()
	s.variants[created.ID] = created
	s.refreshPriceRangeLocked(created.ProductID)
	return &created, nil
}

func (s *MemoryStore) GetVariantByID(_ context.Context, id int64) (*domain.ProductVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[id]
	if !ok {
		return nil, ErrVariantNotFound
	}
	return &v, nil
}

func (s *MemoryStore) GetVariantBySKU(_ context.Context, sku string) (*domain.ProductVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.variants {
		if v.SKU == sku {
			return &v, nil
		}
	}
	return nil, ErrVariantNotFound
}

func sortVariants(vs []domain.ProductVariant) {
	slices.SortFunc(vs, func(a, b domain.ProductVariant) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
}

func (s *MemoryStore) ListVariants(_ context.Context, productID int64) ([]domain.ProductVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ProductVariant{}
	for _, v := range s.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sortVariants(out)
	return out, nil
}

func (s *MemoryStore) ListVariantsByCatalog(_ context.Context, catalogID int64) ([]domain.ProductVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ProductVariant{}
	for _, v := range s.variants {
		if s.products[v.ProductID].CatalogID == catalogID {
			out = append(out, v)
		}
	}
	sortVariants(out)
	return out, nil
}

func (s *MemoryStore) CountVariants(_ context.Context, productID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.variants {
		if v.ProductID == productID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UpdateVariant(_ context.Context, v *domain.ProductVariant) (*domain.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.variants[v.ID]
	if !ok {
		return nil, ErrVariantNotFound
	}
	if s.skuTaken(v.SKU, v.ID) {
		return nil, ErrSKUExists
	}
	updated := *v
	updated.ProductID, updated.CreatedAt, updated.UpdatedAt = existing.ProductID, existing.CreatedAt, s.now()
	s.variants[v.ID] = updated
	s.refreshPriceRangeLocked(updated.ProductID)
	return &updated, nil
}

func (s *MemoryStore) DeleteVariant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok {
		return ErrVariantNotFound
	}
	delete(s.variants, id)
	s.refreshPriceRangeLocked(v.ProductID)
	return nil
}

// --- Images ---

func (s *MemoryStore) CreateImage(_ context.Context, img *domain.ProductImage) (*domain.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[img.ProductID]; !ok {
		return nil, fmt.Errorf("store: CreateImage: product %d does not exist", img.ProductID)
	}
	created := *img
	created.ID = s.id()
	created.CreatedAt = s.now()
	s.images[created.ID] = created
	return &created, nil
}

func (s *MemoryStore) GetImageByID(_ context.Context, id int64) (*domain.ProductImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[id]
	if !ok {
		return nil, ErrImageNotFound
	}
	return &img, nil
}

func sortImages(imgs []domain.ProductImage) {
	slices.SortFunc(imgs, func(a, b domain.ProductImage) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
}

func (s *MemoryStore) ListImages(_ context.Context, productID int64) ([]domain.ProductImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ProductImage{}
	for _, img := range s.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	sortImages(out)
	return out, nil
}

func (s *MemoryStore) ListImagesByCatalog(_ context.Context, catalogID int64) ([]domain.ProductImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ProductImage{}
	for _, img := range s.images {
		if s.products[img.ProductID].CatalogID == catalogID {
			out = append(out, img)
		}
	}
	sortImages(out)
	return out, nil
}

func (s *MemoryStore) UpdateImage(_ context.Context, img *domain.ProductImage) (*domain.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.images[img.ID]
	if !ok {
		return nil, ErrImageNotFound
	}
	updated := *img
	updated.ProductID, updated.CreatedAt = existing.ProductID, existing.CreatedAt
	s.images[img.ID] = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteImage(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[id]; !ok {
		return ErrImageNotFound
	}
	delete(s.images, id)
	return nil
}
