package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-procure/internal/common"
)

// Handler exposes inventory endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// List handles GET /api/v1/items.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := common.AtoiDefault(r.URL.Query().Get("page"), 1)
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	result, err := h.Svc.List(r.Context(), page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Detail handles GET /api/v1/items/{itemID}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Svc.Detail(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Save handles PUT /api/v1/items.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var in ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid item", map[string]any{"error": err.Error()})
			return
		}
	}
	item, err := h.Svc.Save(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// Remove handles DELETE /api/v1/items/{itemID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Remove(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}
