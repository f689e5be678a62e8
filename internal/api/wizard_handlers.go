package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/workflow"
)

// --- Brand Wizard Handlers ---

// WizardSessionView is a session as the client sees it.
type WizardSessionView struct {
	*workflow.Session
	Generating bool `json:"generating"`
}

func (h *HTTPHandler) view(s *workflow.Session) WizardSessionView {
	return WizardSessionView{Session: s, Generating: h.brandWizard.Generating(s.ID)}
}

// CreateSessionInput optionally places the resulting brand under a project.
type CreateSessionInput struct {
	ProjectID *int64 `json:"project_id"`
}

func (h *HTTPHandler) CreateWizardSession(w http.ResponseWriter, r *http.Request) {
	var input CreateSessionInput
	if r.ContentLength != 0 && !decodeJSON(w, r, &input) {
		return
	}
	s, err := h.brandWizard.Create(r.Context(), userOf(r), input.ProjectID)
	if err != nil {
		h.respondWithServiceError(w, r, "create wizard session", err)
		return
	}
	respondWrite(w, http.StatusCreated, h.view(s))
}

func (h *HTTPHandler) GetWizardSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.brandWizard.Get(r.Context(), userOf(r), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.respondWithServiceError(w, r, "get wizard session", err)
		return
	}
	respondWithJSON(w, http.StatusOK, h.view(s))
}

func (h *HTTPHandler) DiscardWizardSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.brandWizard.Discard(r.Context(), userOf(r), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.respondWithServiceError(w, r, "discard wizard session", err)
		return
	}
	respondWrite(w, http.StatusOK, h.view(s))
}

// StartInput is the free-text brief that opens a session.
type StartInput struct {
	Prompt string `json:"prompt"`
}

func (h *HTTPHandler) StartWizard(w http.ResponseWriter, r *http.Request) {
	var input StartInput
	if !decodeJSON(w, r, &input) {
		return
	}
	s, err := h.brandWizard.Start(r.Context(), userOf(r), chi.URLParam(r, "sessionId"), input.Prompt)
	if err != nil {
		h.respondWithServiceError(w, r, "start wizard", err)
		return
	}
	respondWrite(w, http.StatusAccepted, h.view(s))
}

// SelectInput picks one proposal of a phase by its position.
type SelectInput struct {
	Phase int `json:"phase"`
	Index int `json:"index"`
}

func (h *HTTPHandler) SelectWizardOption(w http.ResponseWriter, r *http.Request) {
	var input SelectInput
	if !decodeJSON(w, r, &input) {
		return
	}
	phase, ok := phaseOf(w, input.Phase)
	if !ok {
		return
	}
	s, err := h.brandWizard.Select(r.Context(), userOf(r), chi.URLParam(r, "sessionId"), phase, input.Index)
	if err != nil {
		h.respondWithServiceError(w, r, "select wizard option", err)
		return
	}
	respondWrite(w, http.StatusAccepted, h.view(s))
}

// AdvanceInput names the phase to move to.
type AdvanceInput struct {
	Phase int `json:"phase"`
}

func (h *HTTPHandler) AdvanceWizard(w http.ResponseWriter, r *http.Request) {
	var input AdvanceInput
	if !decodeJSON(w, r, &input) {
		return
	}
	phase, ok := phaseOf(w, input.Phase)
	if !ok {
		return
	}
	s, err := h.brandWizard.Advance(r.Context(), userOf(r), chi.URLParam(r, "sessionId"), phase)
	if err != nil {
		h.respondWithServiceError(w, r, "advance wizard", err)
		return
	}
	respondWrite(w, http.StatusOK, h.view(s))
}

func (h *HTTPHandler) RetryWizard(w http.ResponseWriter, r *http.Request) {
	s, err := h.brandWizard.Retry(r.Context(), userOf(r), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.respondWithServiceError(w, r, "retry wizard", err)
		return
	}
	respondWrite(w, http.StatusAccepted, h.view(s))
}

// SaveResult is the completed session together with the brand it created.
type SaveResult struct {
	Session WizardSessionView `json:"session"`
	Brand   *domain.Brand     `json:"brand"`
}

func (h *HTTPHandler) SaveWizard(w http.ResponseWriter, r *http.Request) {
	s, brand, err := h.brandWizard.Save(r.Context(), userOf(r), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.respondWithServiceError(w, r, "save wizard", err)
		return
	}
	respondWrite(w, http.StatusCreated, SaveResult{Session: h.view(s), Brand: brand})
}

func phaseOf(w http.ResponseWriter, n int) (workflow.Phase, bool) {
	p, ok := workflow.PhaseNumber(n)
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid phase %d (want 1-5)", n))
	}
	return p, ok
}

// --- Catalog Wizard Handlers ---

func (h *HTTPHandler) GenerateCategoryTree(w http.ResponseWriter, r *http.Request) {
	brandID, ok := idParam(w, r, "brandId")
	if !ok {
		return
	}
	var input workflow.TreeRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &input) {
		return
	}
	tree, err := h.catalogWizard.Generate(r.Context(), userOf(r), brandID, input)
	if err != nil {
		h.respondWithServiceError(w, r, "generate category tree", err)
		return
	}
	respondWrite(w, http.StatusOK, map[string]any{"categories": tree})
}

// SaveTreeInput is an accepted category tree proposal.
type SaveTreeInput struct {
	Categories []domain.CategoryNode `json:"categories"`
}

func (h *HTTPHandler) SaveCategoryTree(w http.ResponseWriter, r *http.Request) {
	catalogID, ok := idParam(w, r, "catalogId")
	if !ok {
		return
	}
	var input SaveTreeInput
	if !decodeJSON(w, r, &input) {
		return
	}
	created, err := h.catalogWizard.Save(r.Context(), userOf(r), catalogID, input.Categories)
	if err != nil {
		h.respondWithServiceError(w, r, "save category tree", err)
		return
	}
	respondWrite(w, http.StatusCreated, created)
}
