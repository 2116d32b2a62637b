package inquiry

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-procure/internal/common"
)

// Handler exposes inquiry endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Create handles POST /api/v1/inquiries.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid inquiry", map[string]any{"error": err.Error()})
			return
		}
	}
	inq, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": inq})
}

// List handles GET /api/v1/inquiries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	inquiries, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inquiries})
}

// Get handles GET /api/v1/inquiries/{inquiryID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inq, err := h.Svc.Get(r.Context(), chi.URLParam(r, "inquiryID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inq})
}

// Close handles POST /api/v1/inquiries/{inquiryID}/close.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.CloseInquiry(r.Context(), chi.URLParam(r, "inquiryID")); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"closed": true}})
}

// EditPrice handles PUT /api/v1/inquiries/{inquiryID}/prices. Mounted behind
// the idempotency middleware so a retried request replays instead of
// double-applying.
func (h *Handler) EditPrice(w http.ResponseWriter, r *http.Request) {
	var in PriceEditInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid price edit", map[string]any{"error": err.Error()})
			return
		}
	}
	if err := h.Svc.EditPrice(r.Context(), chi.URLParam(r, "inquiryID"), in); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"updated": true}})
}
