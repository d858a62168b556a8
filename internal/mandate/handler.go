package mandate

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/mukeshbadgujar/emandate-service/internal"
	"github.com/mukeshbadgujar/emandate-service/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Logger:      logger,
	}
}

// Authorize handles POST /mandates
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var dto AuthorizeMandateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Authorize: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	m, jobID, err := h.Service.Authorize(r.Context(), dto)
	if err != nil {
		h.Logger.Error("Authorize: service error", "error", err, "customer_id", dto.CustomerID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, AuthorizeResponse{
		Mandate: ToView(m),
		JobID:   jobID,
	})
}

// Get handles GET /mandates/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mandateID(w, r)
	if !ok {
		return
	}

	m, err := h.Service.Get(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToView(m))
}

// Validate handles GET /mandates/{id}/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mandateID(w, r)
	if !ok {
		return
	}

	valid, err := h.Service.Validate(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	m, err := h.Service.Get(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ValidateResponse{
		MandateID: id,
		Status:    string(m.Status),
		Valid:     valid,
	})
}

// Cancel handles POST /mandates/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mandateID(w, r)
	if !ok {
		return
	}

	m, err := h.Service.Cancel(r.Context(), id)
	if err != nil {
		h.Logger.Error("Cancel: service error", "error", err, "mandate_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToView(m))
}

// ListByCustomer handles GET /customers/{id}/mandates
func (h *Handler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid customer ID", errors.ErrCodeValidationFailed))
		return
	}

	limit, offset := transport.Pagination(r, 50)

	mandates, err := h.Service.ListByCustomer(customerID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	views := make([]*MandateView, 0, len(mandates))
	for _, m := range mandates {
		views = append(views, ToView(m))
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"mandates": views})
}

func (h *Handler) mandateID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid mandate ID", errors.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}
