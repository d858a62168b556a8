package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/mukeshbadgujar/emandate-service/internal"
	"github.com/mukeshbadgujar/emandate-service/internal/transport"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"

	// Provider webhook bodies are small; cap reads to keep a hostile
	// payload from exhausting memory.
	maxBodyBytes = 1 << 20
)

// SignatureVerifier authenticates the raw callback body.
type SignatureVerifier interface {
	VerifySignature(payload []byte, signature string) bool
}

// ReconcilerAPI is the single entry point for verified events.
type ReconcilerAPI interface {
	ApplyEvent(ctx context.Context, gatewayEventID, eventType string, payload json.RawMessage) error
}

type Handler struct {
	*transport.BaseHandler
	Reconciler ReconcilerAPI
	Verifier   SignatureVerifier
	Logger     *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, reconciler ReconcilerAPI, verifier SignatureVerifier, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Reconciler:  reconciler,
		Verifier:    verifier,
		Logger:      logger,
	}
}

// Receive handles POST /webhooks/razorpay. The signature is checked over
// the raw body before any parsing; an unauthenticated caller learns nothing
// beyond the 401.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.Logger.Error("webhook: failed to read body", "error", err)
		h.HandleError(w, errors.NewValidationError("unreadable request body", errors.ErrCodeValidationFailed))
		return
	}

	signature := r.Header.Get(signatureHeader)
	if !h.Verifier.VerifySignature(body, signature) {
		h.Logger.Warn("webhook signature verification failed",
			"remote_addr", r.RemoteAddr)
		h.HandleError(w, errors.ErrInvalidSignature)
		return
	}

	gatewayEventID := r.Header.Get(eventIDHeader)
	if gatewayEventID == "" {
		h.Logger.Warn("webhook missing event id header")
		h.HandleError(w, errors.NewValidationError("missing event id", errors.ErrCodeValidationFailed))
		return
	}

	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Event == "" {
		h.Logger.Warn("webhook body missing event type", "error", err)
		h.HandleError(w, errors.NewValidationError("missing event type", errors.ErrCodeValidationFailed))
		return
	}

	if err := h.Reconciler.ApplyEvent(r.Context(), gatewayEventID, probe.Event, body); err != nil {
		h.Logger.Error("webhook reconciliation failed",
			"gateway_event_id", gatewayEventID,
			"event_type", probe.Event,
			"error", err)
		h.HandleError(w, errors.NewInternalError("failed to process webhook", err))
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
