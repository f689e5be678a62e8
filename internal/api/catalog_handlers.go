package api

import (
	"net/http"

	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
)

// --- Category Handlers ---

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	categories, err := h.catalog.ListCategories(r.Context(), userOf(r), catalogID)
	if err != nil {
		h.respondWithServiceError(w, r, "list categories", err)
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := idParam(w, r, "categoryId")
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(r.Context(), userOf(r), categoryID)
	if err != nil {
		h.respondWithServiceError(w, r, "get category", err)
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	var input catalog.CategoryInput
	if !decodeJSON(w, r, &input) {
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), userOf(r), catalogID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "create category", err)
		return
	}
	respondWrite(w, http.StatusCreated, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := idParam(w, r, "categoryId")
	if !ok {
		return
	}
	var input catalog.CategoryUpdate
	if !decodeJSON(w, r, &input) {
		return
	}
	category, err := h.catalog.UpdateCategory(r.Context(), userOf(r), categoryID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "update category", err)
		return
	}
	respondWrite(w, http.StatusOK, category)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := idParam(w, r, "categoryId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), userOf(r), categoryID); err != nil {
		h.respondWithServiceError(w, r, "delete category", err)
		return
	}
	respondWrite(w, http.StatusOK, nil)
}

// --- Product Handlers ---

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	products, err := h.catalog.ListProducts(r.Context(), userOf(r), catalogID)
	if err != nil {
		h.respondWithServiceError(w, r, "list products", err)
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), userOf(r), productID)
	if err != nil {
		h.respondWithServiceError(w, r, "get product", err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	var input catalog.ProductInput
	if !decodeJSON(w, r, &input) {
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), userOf(r), catalogID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "create product", err)
		return
	}
	respondWrite(w, http.StatusCreated, product)
}

// BulkProductsInput is the body of a bulk product create.
type BulkProductsInput struct {
	Products []catalog.BulkProductInput `json:"products"`
}

func (h *HTTPHandler) CreateMultipleProducts(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	var input BulkProductsInput
	if !decodeJSON(w, r, &input) {
		return
	}
	bundles, err := h.catalog.CreateMultipleProducts(r.Context(), userOf(r), catalogID, input.Products)
	if err != nil {
		h.respondWithServiceError(w, r, "bulk create products", err)
		return
	}
	respondWrite(w, http.StatusCreated, bundles)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	var input catalog.ProductUpdate
	if !decodeJSON(w, r, &input) {
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), userOf(r), productID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "update product", err)
		return
	}
	respondWrite(w, http.StatusOK, product)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), userOf(r), productID); err != nil {
		h.respondWithServiceError(w, r, "delete product", err)
		return
	}
	respondWrite(w, http.StatusOK, nil)
}

// --- Attribute Handlers ---

func (h *HTTPHandler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	attrs, err := h.catalog.ListAttributes(r.Context(), userOf(r), productID)
	if err != nil {
		h.respondWithServiceError(w, r, "list attributes", err)
		return
	}
	respondWithJSON(w, http.StatusOK, attrs)
}

func (h *HTTPHandler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	var input catalog.AttributeInput
	if !decodeJSON(w, r, &input) {
		return
	}
	attr, err := h.catalog.CreateAttribute(r.Context(), userOf(r), productID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "create attribute", err)
		return
	}
	respondWrite(w, http.StatusCreated, attr)
}

func (h *HTTPHandler) UpdateAttribute(w http.ResponseWriter, r *http.Request) {
	attributeID, ok := idParam(w, r, "attributeId")
	if !ok {
		return
	}
	var input catalog.AttributeUpdate
	if !decodeJSON(w, r, &input) {
		return
	}
	attr, err := h.catalog.UpdateAttribute(r.Context(), userOf(r), attributeID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "update attribute", err)
		return
	}
	respondWrite(w, http.StatusOK, attr)
}

func (h *HTTPHandler) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	attributeID, ok := idParam(w, r, "attributeId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteAttribute(r.Context(), userOf(r), attributeID); err != nil {
		h.respondWithServiceError(w, r, "delete attribute", err)
		return
	}
	respondWrite(w, http.StatusOK, nil)
}

// --- Variant Handlers ---

func (h *HTTPHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	vs, err := h.catalog.ListVariants(r.Context(), userOf(r), productID)
	if err != nil {
		h.respondWithServiceError(w, r, "list variants", err)
		return
	}
	respondWithJSON(w, http.StatusOK, vs)
}

func (h *HTTPHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	var input catalog.VariantInput
	if !decodeJSON(w, r, &input) {
		return
	}
	v, err := h.catalog.CreateVariant(r.Context(), userOf(r), productID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "create variant", err)
		return
	}
	respondWrite(w, http.StatusCreated, v)
}

func (h *HTTPHandler) GenerateVariants(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	var input catalog.GenerateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	vs, err := h.catalog.GenerateVariants(r.Context(), userOf(r), productID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "generate variants", err)
		return
	}
	respondWrite(w, http.StatusCreated, vs)
}

// ValidateVariantInput carries the attribute values to check.
type ValidateVariantInput struct {
	Attributes domain.AttributeValues `json:"attributes"`
}

// ValidationResult lists every problem found; an empty list means valid.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (h *HTTPHandler) ValidateVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	var input ValidateVariantInput
	if !decodeJSON(w, r, &input) {
		return
	}
	problems, err := h.catalog.ValidateVariantAttributes(r.Context(), userOf(r), productID, input.Attributes)
	if err != nil {
		h.respondWithServiceError(w, r, "validate variant", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ValidationResult{Valid: len(problems) == 0, Errors: problems})
}

func (h *HTTPHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	variantID, ok := idParam(w, r, "variantId")
	if !ok {
		return
	}
	var input catalog.VariantUpdate
	if !decodeJSON(w, r, &input) {
		return
	}
	v, err := h.catalog.UpdateVariant(r.Context(), userOf(r), variantID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "update variant", err)
		return
	}
	respondWrite(w, http.StatusOK, v)
}

func (h *HTTPHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	variantID, ok := idParam(w, r, "variantId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteVariant(r.Context(), userOf(r), variantID); err != nil {
		h.respondWithServiceError(w, r, "delete variant", err)
		return
	}
	respondWrite(w, http.StatusOK, nil)
}

// --- Image Handlers ---

func (h *HTTPHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	images, err := h.catalog.ListImages(r.Context(), userOf(r), productID)
	if err != nil {
		h.respondWithServiceError(w, r, "list images", err)
		return
	}
	respondWithJSON(w, http.StatusOK, images)
}

func (h *HTTPHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productId")
	if !ok {
		return
	}
	var input catalog.ImageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	img, err := h.catalog.CreateImage(r.Context(), userOf(r), productID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "create image", err)
		return
	}
	respondWrite(w, http.StatusCreated, img)
}

func (h *HTTPHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := idParam(w, r, "imageId")
	if !ok {
		return
	}
	var input catalog.ImageUpdate
	if !decodeJSON(w, r, &input) {
		return
	}
	img, err := h.catalog.UpdateImage(r.Context(), userOf(r), imageID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "update image", err)
		return
	}
	respondWrite(w, http.StatusOK, img)
}

func (h *HTTPHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := idParam(w, r, "imageId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteImage(r.Context(), userOf(r), imageID); err != nil {
		h.respondWithServiceError(w, r, "delete image", err)
		return
	}
	respondWrite(w, http.StatusOK, nil)
}
