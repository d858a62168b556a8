package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
	"github.com/mukeshbadgujar/emandate-service/internal/transport"
	"github.com/mukeshbadgujar/emandate-service/internal/webhook"
)

type recordingReconciler struct {
	calls   int
	eventID string
	event   string
	err     error
}

func (r *recordingReconciler) ApplyEvent(_ context.Context, gatewayEventID, eventType string, payload json.RawMessage) error {
	r.calls++
	r.eventID = gatewayEventID
	r.event = eventType
	return r.err
}

var _ = Describe("Webhook Handler", func() {
	const secret = "whsec_test"

	var (
		reconciler *recordingReconciler
		handler    *webhook.Handler
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		reconciler = &recordingReconciler{}
		handler = webhook.NewHandler(
			transport.NewBaseHandler(logger),
			reconciler,
			gateway.NewMockClient(secret),
			logger,
		)
	})

	post := func(body []byte, signature, eventID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("X-Razorpay-Signature", signature)
		}
		if eventID != "" {
			req.Header.Set("X-Razorpay-Event-Id", eventID)
		}
		rec := httptest.NewRecorder()
		handler.Receive(rec, req)
		return rec
	}

	It("accepts a correctly signed event", func() {
		body := []byte(`{"event":"mandate.confirmed","payload":{"mandate":{"entity":{"id":"mandate_gw_1"}}}}`)
		rec := post(body, gateway.SignPayload(body, secret), "evt_1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(reconciler.calls).To(Equal(1))
		Expect(reconciler.eventID).To(Equal("evt_1"))
		Expect(reconciler.event).To(Equal("mandate.confirmed"))
	})

	It("rejects a bad signature with 401", func() {
		body := []byte(`{"event":"mandate.confirmed"}`)
		rec := post(body, "deadbeef", "evt_1")

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(reconciler.calls).To(BeZero())
	})

	It("rejects a missing signature with 401", func() {
		body := []byte(`{"event":"mandate.confirmed"}`)
		rec := post(body, "", "evt_1")

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(reconciler.calls).To(BeZero())
	})

	It("rejects a tampered body with 401", func() {
		body := []byte(`{"event":"mandate.confirmed"}`)
		signature := gateway.SignPayload(body, secret)
		tampered := []byte(`{"event":"mandate.cancelled"}`)

		rec := post(tampered, signature, "evt_1")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("requires the event id header", func() {
		body := []byte(`{"event":"mandate.confirmed"}`)
		rec := post(body, gateway.SignPayload(body, secret), "")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(reconciler.calls).To(BeZero())
	})

	It("requires an event type in the body", func() {
		body := []byte(`{"payload":{}}`)
		rec := post(body, gateway.SignPayload(body, secret), "evt_1")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 500 when reconciliation fails", func() {
		reconciler.err = context.DeadlineExceeded

		body := []byte(`{"event":"mandate.confirmed"}`)
		rec := post(body, gateway.SignPayload(body, secret), "evt_1")

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
	})
})
