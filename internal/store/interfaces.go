package store

import (
	"context"

	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/ownership"
)

// ProjectStorer defines the database operations for projects.
type ProjectStorer interface {
	CreateProject(ctx context.Context, project *domain.Project) (*domain.Project, error)
	ListProjects(ctx context.Context, userID string) ([]domain.Project, error)
}

// BrandStorer defines the database operations for brands.
// List and slug lookups cover both user-owned and project-owned brands.
type BrandStorer interface {
	CreateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error)
	GetBrandByID(ctx context.Context, id int64) (*domain.Brand, error)
	GetBrandBySlug(ctx context.Context, userID, slug string) (*domain.Brand, error)
	ListBrands(ctx context.Context, userID string) ([]domain.Brand, error)
	UpdateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id int64) error
}

// CatalogStorer defines the database operations for product catalogs.
type CatalogStorer interface {
	CreateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error)
	GetCatalogByID(ctx context.Context, id int64) (*domain.Catalog, error)
	GetCatalogByKey(ctx context.Context, catalogKey string) (*domain.Catalog, error)
	ListCatalogs(ctx context.Context, brandID int64) ([]domain.Catalog, error)
	CatalogNameExists(ctx context.Context, brandID int64, name string, excludeID int64) (bool, error)
	UpdateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error)
	DeleteCatalog(ctx context.Context, id int64) error
}

// CategoryStorer defines the database operations for categories.
// ListCategories orders by (sort_order ASC, name ASC).
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	CreateCategoryTree(ctx context.Context, catalogID int64, nodes []domain.CategoryNode) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, catalogID int64) ([]domain.Category, error)
	HasSubcategories(ctx context.Context, id int64) (bool, error)
	HasProductsInCategory(ctx context.Context, id int64) (bool, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// ProductStorer defines the database operations for products.
// Creating and deleting products keeps the catalog's total_products in step.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	CreateProducts(ctx context.Context, catalogID int64, bundles []domain.ProductBundle) ([]domain.ProductBundle, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, catalogID int64) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// AttributeStorer defines the database operations for product attribute schemas.
type AttributeStorer interface {
	CreateAttribute(ctx context.Context, attr *domain.ProductAttribute) (*domain.ProductAttribute, error)
	GetAttributeByID(ctx context.Context, id int64) (*domain.ProductAttribute, error)
	ListAttributes(ctx context.Context, productID int64) ([]domain.ProductAttribute, error)
	ListAttributesByCatalog(ctx context.Context, catalogID int64) ([]domain.ProductAttribute, error)
	AttributeKeyExists(ctx context.Context, productID int64, attributeID string, excludeID int64) (bool, error)
	UpdateAttribute(ctx context.Context, attr *domain.ProductAttribute) (*domain.ProductAttribute, error)
	DeleteAttribute(ctx context.Context, id int64) error
}

// VariantStorer defines the database operations for product variants.
// Every write recomputes the product's min_price and max_price.
type VariantStorer interface {
	CreateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error)
	GetVariantByID(ctx context.Context, id int64) (*domain.ProductVariant, error)
	GetVariantBySKU(ctx context.Context, sku string) (*domain.ProductVariant, error)
	ListVariants(ctx context.Context, productID int64) ([]domain.ProductVariant, error)
	ListVariantsByCatalog(ctx context.Context, catalogID int64) ([]domain.ProductVariant, error)
	CountVariants(ctx context.Context, productID int64) (int, error)
	UpdateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error)
	DeleteVariant(ctx context.Context, id int64) error
}

// ImageStorer defines the database operations for product images.
type ImageStorer interface {
	CreateImage(ctx context.Context, image *domain.ProductImage) (*domain.ProductImage, error)
	GetImageByID(ctx context.Context, id int64) (*domain.ProductImage, error)
	ListImages(ctx context.Context, productID int64) ([]domain.ProductImage, error)
	ListImagesByCatalog(ctx context.Context, catalogID int64) ([]domain.ProductImage, error)
	UpdateImage(ctx context.Context, image *domain.ProductImage) (*domain.ProductImage, error)
	DeleteImage(ctx context.Context, id int64) error
}

// ListJobsParams filters the job list.
type ListJobsParams struct {
	UserID string
	Status *domain.JobStatus
	Limit  int
}

// JobStorer reads and transitions job records. Workers elsewhere own job execution.
// CancelJob and RetryJob only touch rows still in a source state that allows the move.
type JobStorer interface {
	ListJobs(ctx context.Context, params ListJobsParams) ([]domain.Job, error)
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	CancelJob(ctx context.Context, id string) (*domain.Job, error)
	RetryJob(ctx context.Context, id string) (*domain.Job, error)
	DeleteCompletedJobs(ctx context.Context, userID string) (int64, error)
}

// Store is everything the service layer needs from persistence.
type Store interface {
	ownership.Lookup
	ProjectStorer
	BrandStorer
	CatalogStorer
	CategoryStorer
	ProductStorer
	AttributeStorer
	VariantStorer
	ImageStorer
	JobStorer
	Close() error
}
