package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"brand-catalog-service/internal/ai"
	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/export"
	"brand-catalog-service/internal/jobs"
	"brand-catalog-service/internal/ownership"
	"brand-catalog-service/internal/store"
	"brand-catalog-service/internal/workflow"
)

const maxBodyBytes = 4 << 20

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog       *catalog.Service
	exporter      *export.Exporter
	brandWizard   *workflow.BrandWizard
	catalogWizard *workflow.CatalogWizard
	jobs          *jobs.Service
	jobStream     http.Handler
	logger        *zap.Logger
}

// Deps groups the services the HTTP layer routes to.
type Deps struct {
	Catalog       *catalog.Service
	Exporter      *export.Exporter
	BrandWizard   *workflow.BrandWizard
	CatalogWizard *workflow.CatalogWizard
	Jobs          *jobs.Service
	JobStream     http.Handler
	Logger        *zap.Logger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(d Deps) *HTTPHandler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		catalog:       d.Catalog,
		exporter:      d.Exporter,
		brandWizard:   d.BrandWizard,
		catalogWizard: d.CatalogWizard,
		jobs:          d.Jobs,
		jobStream:     d.JobStream,
		logger:        logger.Named("http"),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Envelope wraps the result of every write.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		// Headers are already out; nothing left to do but drop the body.
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondWrite(w http.ResponseWriter, code int, data any) {
	respondWithJSON(w, code, Envelope{Success: true, Data: data})
}

// respondWithServiceError maps a service error onto a status code. Anything
// unrecognized is logged and reported as a plain 500.
func (h *HTTPHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	respondWithError(w, code, msg)
}

var conflicts = []error{
	store.ErrSKUExists,
	store.ErrAttributeIDExists,
	store.ErrCatalogNameExists,
	store.ErrBrandSlugExists,
	store.ErrCategorySlugExists,
	store.ErrJobStateConflict,
	workflow.ErrInvalidTransition,
	workflow.ErrPhaseLocked,
	workflow.ErrPayloadPending,
	workflow.ErrStalePayload,
}

var notFounds = []error{
	ownership.ErrNotFound,
	store.ErrProjectNotFound,
	store.ErrBrandNotFound,
	store.ErrCatalogNotFound,
	store.ErrCategoryNotFound,
	store.ErrProductNotFound,
	store.ErrAttributeNotFound,
	store.ErrVariantNotFound,
	store.ErrImageNotFound,
	store.ErrJobNotFound,
}

func statusFor(err error) (int, string) {
	if errors.Is(err, ownership.ErrUnauthenticated) {
		return http.StatusUnauthorized, "Authentication required"
	}
	for _, target := range notFounds {
		if errors.Is(err, target) {
			return http.StatusNotFound, ownership.ErrNotFound.Error()
		}
	}
	if catalog.IsValidation(err) || errors.Is(err, workflow.ErrInvalidSelection) {
		return http.StatusUnprocessableEntity, err.Error()
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict, err.Error()
		}
	}
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable, "AI generation is not configured"
	case errors.Is(err, ai.ErrInvalidResponse):
		return http.StatusBadGateway, "AI generation returned an unusable response"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "Invalid request payload: empty body")
			return false
		}
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" format")
		return 0, false
	}
	return id, true
}

// userOf returns the authenticated user, or the zero user which every
// service rejects as unauthenticated.
func userOf(r *http.Request) auth.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service under /api/v1.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
		})

		r.Route("/brands", func(r chi.Router) {
			r.Get("/", h.ListBrands)
			r.Post("/", h.CreateBrand)
			r.Get("/slug/{slug}", h.GetBrandBySlug)
			r.Route("/{brandId}", func(r chi.Router) {
				r.Get("/", h.GetBrand)
				r.Patch("/", h.UpdateBrand)
				r.Delete("/", h.DeleteBrand)
				r.Get("/catalogs", h.ListCatalogs)
				r.Post("/catalogs", h.CreateCatalog)
				r.Post("/catalog-wizard/generate", h.GenerateCategoryTree)
			})
		})

		r.Route("/catalogs/{catalogId}", func(r chi.Router) {
			r.Get("/", h.GetCatalog)
			r.Patch("/", h.UpdateCatalog)
			r.Delete("/", h.DeleteCatalog)
			r.Put("/image-prompts", h.SetImagePrompts)
			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)
			r.Get("/products", h.ListProducts)
			r.Post("/products", h.CreateProduct)
			r.Post("/products/bulk", h.CreateMultipleProducts)
			r.Get("/export-shopify-csv", h.ExportShopifyCSV)
			r.Post("/catalog-wizard/save", h.SaveCategoryTree)
		})

		r.Route("/categories/{categoryId}", func(r chi.Router) {
			r.Get("/", h.GetCategory)
			r.Patch("/", h.UpdateCategory)
			r.Delete("/", h.DeleteCategory)
		})

		r.Route("/products/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProduct)
			r.Patch("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)
			r.Get("/attributes", h.ListAttributes)
			r.Post("/attributes", h.CreateAttribute)
			r.Get("/variants", h.ListVariants)
			r.Post("/variants", h.CreateVariant)
			r.Post("/variants/generate", h.GenerateVariants)
			r.Post("/variants/validate", h.ValidateVariant)
			r.Get("/images", h.ListImages)
			r.Post("/images", h.CreateImage)
		})

		r.Patch("/attributes/{attributeId}", h.UpdateAttribute)
		r.Delete("/attributes/{attributeId}", h.DeleteAttribute)
		r.Patch("/variants/{variantId}", h.UpdateVariant)
		r.Delete("/variants/{variantId}", h.DeleteVariant)
		r.Patch("/images/{imageId}", h.UpdateImage)
		r.Delete("/images/{imageId}", h.DeleteImage)

		r.Route("/brand-wizard/sessions", func(r chi.Router) {
			r.Post("/", h.CreateWizardSession)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", h.GetWizardSession)
				r.Delete("/", h.DiscardWizardSession)
				r.Post("/start", h.StartWizard)
				r.Post("/select", h.SelectWizardOption)
				r.Post("/advance", h.AdvanceWizard)
				r.Post("/retry", h.RetryWizard)
				r.Post("/save", h.SaveWizard)
			})
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Delete("/completed", h.DeleteCompletedJobs)
			if h.jobStream != nil {
				r.Get("/stream", h.jobStream.ServeHTTP)
			}
			r.Route("/{jobId}", func(r chi.Router) {
				r.Get("/", h.GetJob)
				r.Post("/cancel", h.CancelJob)
				r.Post("/retry", h.RetryJob)
			})
		})
	})
}
