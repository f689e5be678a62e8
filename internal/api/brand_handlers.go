package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
)

// --- Project Handlers ---

func (h *HTTPHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.catalog.ListProjects(r.Context(), userOf(r))
	if err != nil {
		h.respondWithServiceError(w, r, "list projects", err)
		return
	}
	respondWithJSON(w, http.StatusOK, projects)
}

func (h *HTTPHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var input catalog.ProjectInput
	if !decodeJSON(w, r, &input) {
		return
	}
	project, err := h.catalog.CreateProject(r.Context(), userOf(r), input)
	if err != nil {
		h.respondWithServiceError(w, r, "create project", err)
		return
	}
	respondWrite(w, http.StatusCreated, project)
}

// --- Brand Handlers ---

func (h *HTTPHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.ListBrands(r.Context(), userOf(r))
	if err != nil {
		h.respondWithServiceError(w, r, "list brands", err)
		return
	}
	respondWithJSON(w, http.StatusOK, brands)
}

func (h *HTTPHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := idParam(w, r, "brandId")
	if !ok {
		return
	}
	brand, err := h.catalog.GetBrand(r.Context(), userOf(r), brandID)
	if err != nil {
		h.respondWithServiceError(w, r, "get brand", err)
		return
	}
	respondWithJSON(w, http.StatusOK, brand)
}

func (h *HTTPHandler) GetBrandBySlug(w http.ResponseWriter, r *http.Request) {
	brand, err := h.catalog.GetBrandBySlug(r.Context(), userOf(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondWithServiceError(w, r, "get brand by slug", err)
		return
	}
	respondWithJSON(w, http.StatusOK, brand)
}

func (h *HTTPHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var input catalog.BrandInput
	if !decodeJSON(w, r, &input) {
		return
	}
	brand, err := h.catalog.CreateBrand(r.Context(), userOf(r), input)
	if err != nil {
		h.respondWithServiceError(w, r, "create brand", err)
		return
	}
	respondWrite(w, http.StatusCreated, brand)
}

func (h *HTTPHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := idParam(w, r, "brandId")
	if !ok {
		return
	}
	var input catalog.BrandUpdate
	if !decodeJSON(w, r, &input) {
		return
	}
	brand, err := h.catalog.UpdateBrand(r.Context(), userOf(r), brandID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "update brand", err)
		return
	}
	respondWrite(w, http.StatusOK, brand)
}

func (h *HTTPHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := idParam(w, r, "brandId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteBrand(r.Context(), userOf(r), brandID); err != nil {
		h.respondWithServiceError(w, r, "delete brand", err)
		return
	}
	respondWrite(w, http.StatusOK, nil)
}

// --- Catalog Handlers ---

func (h *HTTPHandler) ListCatalogs(w http.ResponseWriter, r *http.Request) {
	brandID, ok := idParam(w, r, "brandId")
	if !ok {
		return
	}
	catalogs, err := h.catalog.ListCatalogs(r.Context(), userOf(r), brandID)
	if err != nil {
		h.respondWithServiceError(w, r, "list catalogs", err)
		return
	}
	respondWithJSON(w, http.StatusOK, catalogs)
}

func (h *HTTPHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	c, err := h.catalog.GetCatalog(r.Context(), userOf(r), catalogID)
	if err != nil {
		h.respondWithServiceError(w, r, "get catalog", err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	brandID, ok := idParam(w, r, "brandId")
	if !ok {
		return
	}
	var input catalog.CatalogInput
	if !decodeJSON(w, r, &input) {
		return
	}
	c, err := h.catalog.CreateCatalog(r.Context(), userOf(r), brandID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "create catalog", err)
		return
	}
	respondWrite(w, http.StatusCreated, c)
}

func (h *HTTPHandler) UpdateCatalog(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	var input catalog.CatalogUpdate
	if !decodeJSON(w, r, &input) {
		return
	}
	c, err := h.catalog.UpdateCatalog(r.Context(), userOf(r), catalogID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "update catalog", err)
		return
	}
	respondWrite(w, http.StatusOK, c)
}

func (h *HTTPHandler) DeleteCatalog(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCatalog(r.Context(), userOf(r), catalogID); err != nil {
		h.respondWithServiceError(w, r, "delete catalog", err)
		return
	}
	respondWrite(w, http.StatusOK, nil)
}

// ImagePromptsInput replaces a catalog's image prompt library.
type ImagePromptsInput struct {
	ImageGroupPrompts []domain.ImageGroupPrompt `json:"imageGroupPrompts"`
}

func (h *HTTPHandler) SetImagePrompts(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	var input ImagePromptsInput
	if !decodeJSON(w, r, &input) {
		return
	}
	c, err := h.catalog.SetImagePrompts(r.Context(), userOf(r), catalogID, input.ImageGroupPrompts)
	if err != nil {
		h.respondWithServiceError(w, r, "set image prompts", err)
		return
	}
	respondWrite(w, http.StatusOK, c)
}

// ExportShopifyCSV streams the catalog, addressed by its external key, as a
// Shopify product import file.
func (h *HTTPHandler) ExportShopifyCSV(w http.ResponseWriter, r *http.Request) {
	res, err := h.exporter.ExportCatalog(r.Context(), userOf(r), chi.URLParam(r, "catalogId"))
	if err != nil {
		h.respondWithServiceError(w, r, "export csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}
