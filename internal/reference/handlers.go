package reference

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-procure/internal/common"
)

// Handler exposes replacement-chain endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Resolve handles GET /api/v1/items/{itemID}/reference.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reference service not configured", nil)
		return
	}
	itemID := chi.URLParam(r, "itemID")
	view, err := h.Svc.Resolve(r.Context(), itemID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Declare handles POST /api/v1/reference-changes.
func (h *Handler) Declare(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reference service not configured", nil)
		return
	}
	var in DeclareInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid reference change", map[string]any{"error": err.Error()})
			return
		}
	}
	edge, err := h.Svc.Declare(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": edge})
}

// Remove handles DELETE /api/v1/reference-changes/{id}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reference service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid reference change id", nil)
		return
	}
	if err := h.Svc.Remove(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}
