package supplier

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-procure/internal/common"
)

// Handler exposes supplier endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// List handles GET /api/v1/suppliers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": suppliers})
}

// Get handles GET /api/v1/suppliers/{supplierID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sup, err := h.Svc.Get(r.Context(), chi.URLParam(r, "supplierID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sup})
}

// Save handles PUT /api/v1/suppliers.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var in SupplierInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid supplier", map[string]any{"error": err.Error()})
			return
		}
	}
	sup, err := h.Svc.Save(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sup})
}

// Remove handles DELETE /api/v1/suppliers/{supplierID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Remove(r.Context(), chi.URLParam(r, "supplierID")); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// Responses handles GET /api/v1/inquiries/{inquiryID}/responses.
func (h *Handler) Responses(w http.ResponseWriter, r *http.Request) {
	records, err := h.Svc.Responses(r.Context(), chi.URLParam(r, "inquiryID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": records})
}

// Coverage handles GET /api/v1/inquiries/{inquiryID}/suppliers/{supplierID}/coverage.
func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
	cov, err := h.Svc.Coverage(r.Context(), chi.URLParam(r, "inquiryID"), chi.URLParam(r, "supplierID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cov})
}
