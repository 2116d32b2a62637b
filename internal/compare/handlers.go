package compare

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-procure/internal/common"
)

// Handler exposes the comparison view and its session mutations.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// ToggleInput selects or deselects one offer group.
type ToggleInput struct {
	GroupKey string `json:"group_key" validate:"required"`
}

// OverrideInput records a temporary price for one item in one group.
type OverrideInput struct {
	ItemID   string  `json:"item_id" validate:"required"`
	GroupKey string  `json:"group_key" validate:"required"`
	Price    float64 `json:"price" validate:"required,gt=0"`
}

// View handles GET /api/v1/inquiries/{inquiryID}/comparison.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.View(r.Context(), chi.URLParam(r, "inquiryID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Toggle handles POST /api/v1/inquiries/{inquiryID}/comparison/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var in ToggleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid toggle request", map[string]any{"error": err.Error()})
			return
		}
	}
	view, err := h.Svc.Toggle(r.Context(), chi.URLParam(r, "inquiryID"), in.GroupKey)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetOverride handles PUT /api/v1/inquiries/{inquiryID}/comparison/override.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var in OverrideInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid override request", map[string]any{"error": err.Error()})
			return
		}
	}
	view, err := h.Svc.SetOverride(r.Context(), chi.URLParam(r, "inquiryID"), in.ItemID, in.GroupKey, in.Price)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// ClearOverride handles DELETE /api/v1/inquiries/{inquiryID}/comparison/override.
func (h *Handler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("item_id")
	groupKey := r.URL.Query().Get("group_key")
	if itemID == "" || groupKey == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "item_id and group_key are required", nil)
		return
	}
	view, err := h.Svc.ClearOverride(r.Context(), chi.URLParam(r, "inquiryID"), itemID, groupKey)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// CloseSession handles DELETE /api/v1/inquiries/{inquiryID}/comparison/session.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.CloseSession(r.Context(), chi.URLParam(r, "inquiryID")); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"closed": true}})
}
