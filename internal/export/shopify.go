// Package export flattens a catalog's product graph into the Shopify product CSV format.
package export

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"brand-catalog-service/internal/domain"
)

// Columns is the fixed Shopify product import header.
var Columns = [...]string{
	"Handle",
	"Title",
	"Body (HTML)",
	"Vendor",
	"Product Category",
	"Type",
	"Tags",
	"Published",
	"Option1 Name",
	"Option1 Value",
	"Option2 Name",
	"Option2 Value",
	"Option3 Name",
	"Option3 Value",
	"Variant SKU",
	"Variant Grams",
	"Variant Inventory Tracker",
	"Variant Inventory Qty",
	"Variant Inventory Policy",
	"Variant Fulfillment Service",
	"Variant Price",
	"Variant Compare At Price",
	"Variant Requires Shipping",
	"Variant Taxable",
	"Variant Barcode",
	"Image Src",
	"Image Position",
	"Image Alt Text",
	"Gift Card",
	"SEO Title",
	"SEO Description",
	"Google Shopping / Google Product Category",
	"Google Shopping / Gender",
	"Google Shopping / Age Group",
	"Google Shopping / MPN",
	"Google Shopping / AdWords Grouping",
	"Google Shopping / AdWords Labels",
	"Google Shopping / Condition",
	"Google Shopping / Custom Product",
	"Google Shopping / Custom Label 0",
	"Google Shopping / Custom Label 1",
	"Google Shopping / Custom Label 2",
	"Google Shopping / Custom Label 3",
	"Google Shopping / Custom Label 4",
	"Variant Image",
	"Variant Weight Unit",
	"Variant Tax Code",
	"Cost per item",
	"Status",
}

// Column positions used while filling a row.
const (
	colHandle = iota
	colTitle
	colBody
	colVendor
	colProductCategory
	colType
	colTags
	colPublished
	colOption1Name
	colOption1Value
	colOption2Name
	colOption2Value
	colOption3Name
	colOption3Value
	colSKU
	colGrams
	colInventoryTracker
	colInventoryQty
	colInventoryPolicy
	colFulfillment
	colPrice
	colCompareAtPrice
	colRequiresShipping
	colTaxable
	colBarcode
	colImageSrc
	colImagePosition
	colImageAlt
	colGiftCard
	colSEOTitle
	colSEODescription
	colGoogleCategory
	// The remaining Google Shopping columns stay blank.
	colVariantImage = iota + 12
	colWeightUnit
	colTaxCode
	colCostPerItem
	colStatus
)

// maxOptions is Shopify's limit on variant-defining options per product.
const maxOptions = 3

var gramsPerUnit = map[string]float64{
	"g":  1,
	"kg": 1000,
	"lb": 453.592,
	"oz": 28.3495,
}

// Graph is everything one export reads. Slices may arrive in any grouping; Rows sorts
// children by sort order and id per product.
type Graph struct {
	Catalog    domain.Catalog
	Vendor     string
	Categories []domain.Category
	Products   []domain.Product
	Attributes []domain.ProductAttribute
	Variants   []domain.ProductVariant
	Images     []domain.ProductImage
}

type productChildren struct {
	attrs    []domain.ProductAttribute
	variants []domain.ProductVariant
	images   []domain.ProductImage
}

func (g Graph) children() map[int64]*productChildren {
	out := make(map[int64]*productChildren, len(g.Products))
	for _, p := range g.Products {
		out[p.ID] = &productChildren{}
	}
	for _, a := range g.Attributes {
		if c, ok := out[a.ProductID]; ok {
			c.attrs = append(c.attrs, a)
		}
	}
	for _, v := range g.Variants {
		if c, ok := out[v.ProductID]; ok {
			c.variants = append(c.variants, v)
		}
	}
	for _, img := range g.Images {
		if c, ok := out[img.ProductID]; ok {
			c.images = append(c.images, img)
		}
	}
	for _, c := range out {
		slices.SortStableFunc(c.attrs, func(a, b domain.ProductAttribute) int {
			return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
		})
		slices.SortStableFunc(c.variants, func(a, b domain.ProductVariant) int {
			return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
		})
		slices.SortStableFunc(c.images, func(a, b domain.ProductImage) int {
			return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
		})
	}
	return out
}

// Rows flattens the graph into data rows, products in the order given. A product without
// variants yields one default row; otherwise one row per variant, with product-level
// columns filled on the first row only.
func Rows(g Graph) [][]string {
	categoryNames := make(map[int64]string, len(g.Categories))
	for _, c := range g.Categories {
		categoryNames[c.ID] = c.Name
	}
	kids := g.children()

	var rows [][]string
	for _, p := range g.Products {
		c := kids[p.ID]
		handle := Handle(p.Name)
		options := c.attrs
		if len(options) > maxOptions {
			options = options[:maxOptions]
		}

		if len(c.variants) == 0 {
			row := newRow(handle)
			fillProduct(row, p, g.Vendor, categoryNames)
			row[colOption1Name] = "Title"
			row[colOption1Value] = "Default Title"
			row[colGrams] = "0"
			row[colInventoryQty] = "0"
			row[colInventoryPolicy] = domain.InventoryPolicyDeny
			row[colFulfillment] = "manual"
			row[colPrice] = "0.00"
			row[colRequiresShipping] = "TRUE"
			row[colTaxable] = "TRUE"
			row[colWeightUnit] = "g"
			fillImage(row, heroImage(c.images), c.images)
			rows = append(rows, row)
			continue
		}

		for i, v := range c.variants {
			row := newRow(handle)
			if i == 0 {
				fillProduct(row, p, g.Vendor, categoryNames)
			}
			for n, attr := range options {
				if i == 0 {
					row[colOption1Name+2*n] = attributeName(attr)
				}
				row[colOption1Value+2*n] = optionLabel(attr, v.Attributes[attr.AttributeID])
			}
			fillVariant(row, v)

			matched := filteredImage(c.images, v.Attributes)
			if matched != nil {
				row[colVariantImage] = matched.URL
			}
			if i == 0 {
				fillImage(row, heroImage(c.images), c.images)
			} else {
				fillImage(row, matched, c.images)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func newRow(handle string) []string {
	row := make([]string, len(Columns))
	row[colHandle] = handle
	return row
}

func fillProduct(row []string, p domain.Product, vendor string, categoryNames map[int64]string) {
	row[colTitle] = p.Name
	row[colBody] = deref(p.Description)
	row[colVendor] = vendor
	if pc, ok := p.BaseAttributes["product_category"].(string); ok {
		row[colProductCategory] = pc
	}
	if p.CategoryID != nil {
		row[colType] = categoryNames[*p.CategoryID]
	}
	row[colTags] = strings.Join(p.Tags, ", ")
	row[colPublished] = "FALSE"
	if p.Status == domain.ProductStatusActive {
		row[colPublished] = "TRUE"
	}
	row[colGiftCard] = "FALSE"
	row[colSEOTitle] = deref(p.MetaTitle)
	row[colSEODescription] = deref(p.MetaDescription)
	row[colStatus] = shopifyStatus(p.Status)
}

func fillVariant(row []string, v domain.ProductVariant) {
	row[colSKU] = v.SKU
	row[colGrams] = strconv.FormatInt(Grams(v.Weight, v.WeightUnit), 10)
	row[colInventoryTracker] = "shopify"
	row[colInventoryQty] = strconv.Itoa(v.InventoryCount)
	row[colInventoryPolicy] = cmp.Or(v.InventoryPolicy, domain.InventoryPolicyDeny)
	row[colFulfillment] = "manual"
	row[colPrice] = v.Price.StringFixed(2)
	if v.CompareAtPrice.Valid {
		row[colCompareAtPrice] = v.CompareAtPrice.Decimal.StringFixed(2)
	}
	row[colRequiresShipping] = "TRUE"
	row[colTaxable] = "TRUE"
	row[colBarcode] = deref(v.Barcode)
	row[colWeightUnit] = cmp.Or(deref(v.WeightUnit), "g")
	if v.CostPerItem.Valid {
		row[colCostPerItem] = v.CostPerItem.Decimal.StringFixed(2)
	}
}

func fillImage(row []string, img *domain.ProductImage, all []domain.ProductImage) {
	if img == nil {
		return
	}
	row[colImageSrc] = img.URL
	row[colImageAlt] = deref(img.AltText)
	for i := range all {
		if all[i].ID == img.ID {
			row[colImagePosition] = strconv.Itoa(i + 1)
			break
		}
	}
}

// heroImage returns the first hero image, or the first image when none is marked hero.
func heroImage(images []domain.ProductImage) *domain.ProductImage {
	for i := range images {
		if images[i].Type == domain.ImageTypeHero {
			return &images[i]
		}
	}
	if len(images) > 0 {
		return &images[0]
	}
	return nil
}

// filteredImage returns the first image whose attribute filters match the variant.
func filteredImage(images []domain.ProductImage, values domain.AttributeValues) *domain.ProductImage {
	for i := range images {
		if images[i].AttributeFilters.Matches(values) {
			return &images[i]
		}
	}
	return nil
}

func attributeName(a domain.ProductAttribute) string {
	if a.Label != "" {
		return a.Label
	}
	return a.AttributeID
}

func optionLabel(a domain.ProductAttribute, value string) string {
	for _, o := range a.Options {
		if o.Value == value && o.Label != "" {
			return o.Label
		}
	}
	return value
}

func shopifyStatus(s domain.ProductStatus) string {
	switch s {
	case domain.ProductStatusActive:
		return "active"
	case domain.ProductStatusArchived:
		return "archived"
	default:
		return "draft"
	}
}

var (
	handleDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	handleWhitespace = regexp.MustCompile(`\s+`)
	handleHyphens    = regexp.MustCompile(`-+`)
)

// Handle lowercases the title, strips everything but letters, digits, spaces and hyphens,
// turns whitespace runs into single hyphens and collapses repeated hyphens. Products with
// the same handle share it: Shopify groups rows by handle, so it is never rewritten.
func Handle(title string) string {
	h := handleDisallowed.ReplaceAllString(strings.ToLower(title), "")
	h = handleWhitespace.ReplaceAllString(h, "-")
	return handleHyphens.ReplaceAllString(h, "-")
}

// Grams converts a stored weight to whole grams. Missing weights are 0; an unknown unit is read as grams.
func Grams(weight *float64, unit *string) int64 {
	if weight == nil {
		return 0
	}
	factor, ok := gramsPerUnit[strings.ToLower(deref(unit))]
	if !ok {
		factor = 1
	}
	g := *weight * factor
	return int64(g + 0.5)
}

// Escape quotes a field only when it contains a comma, a double quote or a newline.
func Escape(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Render joins the header and rows with "\n". There is no trailing newline.
func Render(rows [][]string) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinRow(Columns[:]))
	for _, r := range rows {
		lines = append(lines, joinRow(r))
	}
	return strings.Join(lines, "\n")
}

func joinRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = Escape(f)
	}
	return strings.Join(escaped, ",")
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

// Filename is "<catalog>_products_<YYYY-MM-DD>.csv" with the catalog name reduced to [a-z0-9_].
func Filename(catalogName string, at time.Time) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(catalogName), "_"), "_")
	if name == "" {
		name = "catalog"
	}
	return fmt.Sprintf("%s_products_%s.csv", name, at.Format(time.DateOnly))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
