package catalog

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/slug"
	"brand-catalog-service/internal/store"
	"brand-catalog-service/internal/variants"
)

// --- Attribute schemas ---

// AttributeInput is the create shape for an attribute schema.
type AttributeInput struct {
	AttributeID string                   `json:"attribute_id" validate:"required,max=100"`
	Label       string                   `json:"label" validate:"max=200"`
	Options     []domain.AttributeOption `json:"options" validate:"dive"`
	IsRequired  bool                     `json:"is_required"`
	SortOrder   *int                     `json:"sort_order"`
}

// AttributeUpdate is a partial attribute schema update.
type AttributeUpdate struct {
	AttributeID *string                  `json:"attribute_id" validate:"omitempty,min=1,max=100"`
	Label       *string                  `json:"label" validate:"omitempty,max=200"`
	Options     []domain.AttributeOption `json:"options" validate:"omitempty,dive"`
	IsRequired  *bool                    `json:"is_required"`
	SortOrder   *int                     `json:"sort_order"`
}

func (in AttributeInput) toAttribute(productID int64, position int) domain.ProductAttribute {
	label := in.Label
	if label == "" {
		label = in.AttributeID
	}
	return domain.ProductAttribute{
		ProductID:   productID,
		AttributeID: in.AttributeID,
		Label:       label,
		Options:     domain.AttributeOptions(in.Options),
		IsRequired:  in.IsRequired,
		SortOrder:   valueOr(in.SortOrder, position),
	}
}

func checkOptions(opts []domain.AttributeOption) error {
	seen := make(map[string]bool, len(opts))
	for _, o := range opts {
		if seen[o.Value] {
			return fmt.Errorf("option value %q is listed twice", o.Value)
		}
		seen[o.Value] = true
	}
	return nil
}

func (s *Service) ensureAttributeKeyFree(ctx context.Context, productID int64, attributeID string, excludeID int64) error {
	exists, err := s.store.AttributeKeyExists(ctx, productID, attributeID, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrAttributeIDExists
	}
	return nil
}

// ListAttributes returns a product's attribute schemas in sort order.
func (s *Service) ListAttributes(ctx context.Context, user auth.User, productID int64) ([]domain.ProductAttribute, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	return s.store.ListAttributes(ctx, productID)
}

// CreateAttribute adds an attribute schema. attribute_id is unique per product.
func (s *Service) CreateAttribute(ctx context.Context, user auth.User, productID int64, in AttributeInput) (*domain.ProductAttribute, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if err := checkOptions(in.Options); err != nil {
		return nil, invalid("%s", err.Error())
	}
	if err := s.ensureAttributeKeyFree(ctx, productID, in.AttributeID, 0); err != nil {
		return nil, err
	}
	attr := in.toAttribute(productID, 0)
	return s.store.CreateAttribute(ctx, &attr)
}

// UpdateAttribute applies a partial update.
func (s *Service) UpdateAttribute(ctx context.Context, user auth.User, attributeID int64, in AttributeUpdate) (*domain.ProductAttribute, error) {
	if _, err := s.owners.Attribute(ctx, user, attributeID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	attr, err := s.store.GetAttributeByID(ctx, attributeID)
	if err != nil {
		return nil, err
	}
	if in.AttributeID != nil && *in.AttributeID != attr.AttributeID {
		if err := s.ensureAttributeKeyFree(ctx, attr.ProductID, *in.AttributeID, attr.ID); err != nil {
			return nil, err
		}
		attr.AttributeID = *in.AttributeID
	}
	if in.Label != nil {
		attr.Label = *in.Label
	}
	if in.Options != nil {
		if err := checkOptions(in.Options); err != nil {
			return nil, invalid("%s", err.Error())
		}
		attr.Options = in.Options
	}
	if in.IsRequired != nil {
		attr.IsRequired = *in.IsRequired
	}
	if in.SortOrder != nil {
		attr.SortOrder = *in.SortOrder
	}
	return s.store.UpdateAttribute(ctx, attr)
}

// DeleteAttribute refuses while any variant of the product carries a value for it.
func (s *Service) DeleteAttribute(ctx context.Context, user auth.User, attributeID int64) error {
	if _, err := s.owners.Attribute(ctx, user, attributeID); err != nil {
		return err
	}
	attr, err := s.store.GetAttributeByID(ctx, attributeID)
	if err != nil {
		return err
	}
	vs, err := s.store.ListVariants(ctx, attr.ProductID)
	if err != nil {
		return err
	}
	inUse := 0
	for _, v := range vs {
		if v.Attributes[attr.AttributeID] != "" {
			inUse++
		}
	}
	if inUse > 0 {
		return invalid("cannot delete attribute %q: it is used by %d variant(s)", attr.AttributeID, inUse)
	}
	return s.store.DeleteAttribute(ctx, attributeID)
}

// --- Variants ---

// VariantInput is the create shape for a variant.
type VariantInput struct {
	SKU             string            `json:"sku" validate:"required,max=100"`
	Barcode         *string           `json:"barcode" validate:"omitempty,max=100"`
	Price           decimal.Decimal   `json:"price"`
	CompareAtPrice  *decimal.Decimal  `json:"compare_at_price"`
	CostPerItem     *decimal.Decimal  `json:"cost_per_item"`
	Attributes      map[string]string `json:"attributes"`
	InventoryCount  int               `json:"inventory_count" validate:"gte=0"`
	InventoryPolicy string            `json:"inventory_policy" validate:"omitempty,oneof=deny continue"`
	Weight          *float64          `json:"weight" validate:"omitempty,gte=0"`
	WeightUnit      *string           `json:"weight_unit" validate:"omitempty,oneof=g kg lb oz"`
	Status          string            `json:"status" validate:"omitempty,oneof=draft active inactive archived"`
	SortOrder       *int              `json:"sort_order"`
}

// VariantUpdate is a partial variant update.
type VariantUpdate struct {
	SKU             *string           `json:"sku" validate:"omitempty,min=1,max=100"`
	Barcode         *string           `json:"barcode" validate:"omitempty,max=100"`
	Price           *decimal.Decimal  `json:"price"`
	CompareAtPrice  *decimal.Decimal  `json:"compare_at_price"`
	CostPerItem     *decimal.Decimal  `json:"cost_per_item"`
	Attributes      map[string]string `json:"attributes"`
	InventoryCount  *int              `json:"inventory_count" validate:"omitempty,gte=0"`
	InventoryPolicy *string           `json:"inventory_policy" validate:"omitempty,oneof=deny continue"`
	Weight          *float64          `json:"weight" validate:"omitempty,gte=0"`
	WeightUnit      *string           `json:"weight_unit" validate:"omitempty,oneof=g kg lb oz"`
	Status          *string           `json:"status" validate:"omitempty,oneof=draft active inactive archived"`
	SortOrder       *int              `json:"sort_order"`
}

func checkMoney(name string, d *decimal.Decimal) error {
	if d != nil && d.IsNegative() {
		return fmt.Errorf("%s must not be negative", name)
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func (in VariantInput) toVariant(productID int64, position int) (domain.ProductVariant, error) {
	for name, d := range map[string]*decimal.Decimal{"price": &in.Price, "compare_at_price": in.CompareAtPrice, "cost_per_item": in.CostPerItem} {
		if err := checkMoney(name, d); err != nil {
			return domain.ProductVariant{}, err
		}
	}
	attrs := domain.AttributeValues(maps.Clone(in.Attributes))
	if attrs == nil {
		attrs = domain.AttributeValues{}
	}
	return domain.ProductVariant{
		ProductID:       productID,
		SKU:             in.SKU,
		Barcode:         in.Barcode,
		Price:           in.Price,
		CompareAtPrice:  nullDecimal(in.CompareAtPrice),
		CostPerItem:     nullDecimal(in.CostPerItem),
		Attributes:      attrs,
		InventoryCount:  in.InventoryCount,
		InventoryPolicy: nonEmptyOr(in.InventoryPolicy, domain.InventoryPolicyDeny),
		Weight:          in.Weight,
		WeightUnit:      in.WeightUnit,
		Status:          nonEmptyOr(in.Status, string(domain.ProductStatusDraft)),
		SortOrder:       valueOr(in.SortOrder, position),
	}, nil
}

// ensureSKUFree is the point lookup that runs before every variant insert or SKU change.
func (s *Service) ensureSKUFree(ctx context.Context, sku string, excludeID int64) error {
	existing, err := s.store.GetVariantBySKU(ctx, sku)
	switch {
	case errors.Is(err, store.ErrVariantNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != excludeID:
		return fmt.Errorf("%w: %s", store.ErrSKUExists, sku)
	}
	return nil
}

// ListVariants returns a product's variants.
func (s *Service) ListVariants(ctx context.Context, user auth.User, productID int64) ([]domain.ProductVariant, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	return s.store.ListVariants(ctx, productID)
}

// CreateVariant adds a variant after checking SKU uniqueness and the attribute schemas.
func (s *Service) CreateVariant(ctx context.Context, user auth.User, productID int64, in VariantInput) (*domain.ProductVariant, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	variant, err := in.toVariant(productID, 0)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if err := s.ensureSKUFree(ctx, in.SKU, 0); err != nil {
		return nil, err
	}
	if err := s.checkAgainstSchemas(ctx, productID, variant.Attributes); err != nil {
		return nil, err
	}
	return s.store.CreateVariant(ctx, &variant)
}

func (s *Service) checkAgainstSchemas(ctx context.Context, productID int64, values domain.AttributeValues) error {
	schemas, err := s.store.ListAttributes(ctx, productID)
	if err != nil {
		return err
	}
	if problems := variants.Validate(schemas, values); len(problems) > 0 {
		return invalid("%s", strings.Join(problems, "; "))
	}
	return nil
}

// UpdateVariant applies a partial update.
func (s *Service) UpdateVariant(ctx context.Context, user auth.User, variantID int64, in VariantUpdate) (*domain.ProductVariant, error) {
	if _, err := s.owners.Variant(ctx, user, variantID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	for name, d := range map[string]*decimal.Decimal{"price": in.Price, "compare_at_price": in.CompareAtPrice, "cost_per_item": in.CostPerItem} {
		if err := checkMoney(name, d); err != nil {
			return nil, invalid("%s", err.Error())
		}
	}
	v, err := s.store.GetVariantByID(ctx, variantID)
	if err != nil {
		return nil, err
	}

	if in.SKU != nil && *in.SKU != v.SKU {
		if err := s.ensureSKUFree(ctx, *in.SKU, v.ID); err != nil {
			return nil, err
		}
		v.SKU = *in.SKU
	}
	if in.Attributes != nil {
		if err := s.checkAgainstSchemas(ctx, v.ProductID, in.Attributes); err != nil {
			return nil, err
		}
		v.Attributes = maps.Clone(in.Attributes)
	}
	if in.Barcode != nil {
		v.Barcode = in.Barcode
	}
	if in.Price != nil {
		v.Price = *in.Price
	}
	if in.CompareAtPrice != nil {
		v.CompareAtPrice = nullDecimal(in.CompareAtPrice)
	}
	if in.CostPerItem != nil {
		v.CostPerItem = nullDecimal(in.CostPerItem)
	}
	if in.InventoryCount != nil {
		v.InventoryCount = *in.InventoryCount
	}
	if in.InventoryPolicy != nil {
		v.InventoryPolicy = *in.InventoryPolicy
	}
	if in.Weight != nil {
		v.Weight = in.Weight
	}
	if in.WeightUnit != nil {
		v.WeightUnit = in.WeightUnit
	}
	if in.Status != nil {
		v.Status = *in.Status
	}
	if in.SortOrder != nil {
		v.SortOrder = *in.SortOrder
	}
	return s.store.UpdateVariant(ctx, v)
}

// DeleteVariant refuses to remove a product's last variant.
func (s *Service) DeleteVariant(ctx context.Context, user auth.User, variantID int64) error {
	chain, err := s.owners.Variant(ctx, user, variantID)
	if err != nil {
		return err
	}
	n, err := s.store.CountVariants(ctx, chain.ProductID)
	if err != nil {
		return err
	}
	if n <= 1 {
		return invalid("cannot delete the last variant of a product")
	}
	return s.store.DeleteVariant(ctx, variantID)
}

// GenerateInput configures variant generation from a product's attribute schemas.
type GenerateInput struct {
	BaseSKU         string          `json:"base_sku" validate:"omitempty,max=60"`
	Price           decimal.Decimal `json:"price"`
	InventoryCount  int             `json:"inventory_count" validate:"gte=0"`
	InventoryPolicy string          `json:"inventory_policy" validate:"omitempty,oneof=deny continue"`
}

// GenerateVariants creates one draft variant per attribute combination the product does not
// have yet. SKUs derive from the base and the option values; taken SKUs get a numeric suffix.
func (s *Service) GenerateVariants(ctx context.Context, user auth.User, productID int64, in GenerateInput) ([]domain.ProductVariant, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	schemas, err := s.store.ListAttributes(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(schemas) == 0 {
		return nil, invalid("product has no attribute schemas to combine")
	}
	existing, err := s.store.ListVariants(ctx, productID)
	if err != nil {
		return nil, err
	}

	base := in.BaseSKU
	if base == "" {
		base = slug.Make(product.Name)
	}
	attrs := variants.FromSchemas(schemas)
	created := []domain.ProductVariant{}
	for i, combo := range variants.Combinations(attrs) {
		if hasCombination(existing, combo) {
			continue
		}
		sku, err := s.freeSKU(ctx, variants.SKU(base, attrs, combo))
		if err != nil {
			return created, err
		}
		v, err := s.store.CreateVariant(ctx, &domain.ProductVariant{
			ProductID:       productID,
			SKU:             sku,
			Price:           in.Price,
			Attributes:      domain.AttributeValues(combo),
			InventoryCount:  in.InventoryCount,
			InventoryPolicy: nonEmptyOr(in.InventoryPolicy, domain.InventoryPolicyDeny),
			Status:          string(domain.ProductStatusDraft),
			SortOrder:       len(existing) + i,
		})
		if err != nil {
			s.metrics.AddGeneratedVariants(len(created))
			return created, err
		}
		created = append(created, *v)
	}
	s.metrics.AddGeneratedVariants(len(created))
	s.logger.Info("variants generated", zap.Int64("product_id", productID), zap.Int("created", len(created)))
	return created, nil
}

func hasCombination(existing []domain.ProductVariant, combo map[string]string) bool {
	for _, v := range existing {
		if maps.Equal(map[string]string(v.Attributes), combo) {
			return true
		}
	}
	return false
}

func (s *Service) freeSKU(ctx context.Context, sku string) (string, error) {
	candidate := sku
	for n := 2; ; n++ {
		err := s.ensureSKUFree(ctx, candidate, 0)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, store.ErrSKUExists) {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", sku, n)
	}
}

// ValidateVariantAttributes checks values against a product's schemas without writing anything.
func (s *Service) ValidateVariantAttributes(ctx context.Context, user auth.User, productID int64, values domain.AttributeValues) ([]string, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	schemas, err := s.store.ListAttributes(ctx, productID)
	if err != nil {
		return nil, err
	}
	problems := variants.Validate(schemas, values)
	if problems == nil {
		problems = []string{}
	}
	return problems, nil
}

// --- Images ---

// ImageInput is the create shape for a product image.
type ImageInput struct {
	URL              string              `json:"url" validate:"required,url,max=2048"`
	AltText          *string             `json:"alt_text" validate:"omitempty,max=500"`
	Type             string              `json:"type" validate:"omitempty,oneof=hero gallery detail lifestyle"`
	ColorID          *string             `json:"color_id" validate:"omitempty,max=100"`
	AttributeFilters map[string][]string `json:"attribute_filters"`
	SortOrder        int                 `json:"sort_order"`
}

// ImageUpdate is a partial image update.
type ImageUpdate struct {
	URL              *string             `json:"url" validate:"omitempty,url,max=2048"`
	AltText          *string             `json:"alt_text" validate:"omitempty,max=500"`
	Type             *string             `json:"type" validate:"omitempty,oneof=hero gallery detail lifestyle"`
	ColorID          *string             `json:"color_id" validate:"omitempty,max=100"`
	AttributeFilters map[string][]string `json:"attribute_filters"`
	SortOrder        *int                `json:"sort_order"`
}

// ListImages returns a product's images.
func (s *Service) ListImages(ctx context.Context, user auth.User, productID int64) ([]domain.ProductImage, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	return s.store.ListImages(ctx, productID)
}

// CreateImage attaches an image record to a product. The file itself lives elsewhere.
func (s *Service) CreateImage(ctx context.Context, user auth.User, productID int64, in ImageInput) (*domain.ProductImage, error) {
	if _, err := s.owners.Product(ctx, user, productID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	return s.store.CreateImage(ctx, &domain.ProductImage{
		ProductID:        productID,
		URL:              in.URL,
		AltText:          in.AltText,
		Type:             nonEmptyOr(in.Type, domain.ImageTypeGallery),
		ColorID:          in.ColorID,
		AttributeFilters: domain.AttributeFilters(in.AttributeFilters),
		SortOrder:        in.SortOrder,
	})
}

// UpdateImage applies a partial update.
func (s *Service) UpdateImage(ctx context.Context, user auth.User, imageID int64, in ImageUpdate) (*domain.ProductImage, error) {
	if _, err := s.owners.Image(ctx, user, imageID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	img, err := s.store.GetImageByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if in.URL != nil {
		img.URL = *in.URL
	}
	if in.AltText != nil {
		img.AltText = in.AltText
	}
	if in.Type != nil {
		img.Type = *in.Type
	}
	if in.ColorID != nil {
		img.ColorID = in.ColorID
	}
	if in.AttributeFilters != nil {
		img.AttributeFilters = in.AttributeFilters
	}
	if in.SortOrder != nil {
		img.SortOrder = *in.SortOrder
	}
	return s.store.UpdateImage(ctx, img)
}

// DeleteImage removes an image record.
func (s *Service) DeleteImage(ctx context.Context, user auth.User, imageID int64) error {
	if _, err := s.owners.Image(ctx, user, imageID); err != nil {
		return err
	}
	return s.store.DeleteImage(ctx, imageID)
}
