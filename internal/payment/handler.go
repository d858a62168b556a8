package payment

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

// Create handles POST /payments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreatePaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Create: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	p, jobID, err := h.Service.CreateRecurringPayment(r.Context(), dto)
	if err != nil {
		h.Logger.Error("Create: service error", "error", err, "mandate_id", dto.MandateID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, CreatePaymentResponse{
		Payment: ToView(p),
		JobID:   jobID,
	})
}

// Get handles GET /payments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid payment ID", errors.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.Get(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToView(p))
}

// ListByMandate handles GET /mandates/{id}/payments
func (h *Handler) ListByMandate(w http.ResponseWriter, r *http.Request) {
	mandateID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid mandate ID", errors.ErrCodeValidationFailed))
		return
	}

	limit, offset := transport.Pagination(r, 50)

	payments, err := h.Service.ListByMandate(mandateID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	views := make([]*PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, ToView(p))
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"payments": views})
}
