package payment_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/mukeshbadgujar/emandate-service/internal"
	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	paymentmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/payment"
	"github.com/mukeshbadgujar/emandate-service/internal/core/events"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
	paymentPkg "github.com/mukeshbadgujar/emandate-service/internal/payment"
)

func TestPaymentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Service Suite")
}

type mockPaymentRepository struct {
	payments    map[int64]*paymentmodel.Payment
	nextID      int64
	createError error
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{payments: make(map[int64]*paymentmodel.Payment)}
}

func (m *mockPaymentRepository) Create(p *paymentmodel.Payment) error {
	if m.createError != nil {
		return m.createError
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepository) GetByID(id int64) (*paymentmodel.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, errors.New("payment not found")
	}
	copied := *p
	return &copied, nil
}

func (m *mockPaymentRepository) GetByGatewayID(gatewayPaymentID string) (*paymentmodel.Payment, error) {
	for _, p := range m.payments {
		if p.GatewayPaymentID == gatewayPaymentID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, errors.New("payment not found")
}

func (m *mockPaymentRepository) GetByMandateID(mandateID int64, limit, offset int) ([]*paymentmodel.Payment, error) {
	var out []*paymentmodel.Payment
	for _, p := range m.payments {
		if p.MandateID == mandateID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) Transition(id int64, from, to paymentmodel.Status, updates map[string]interface{}) (bool, error) {
	p, ok := m.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if reason, ok := updates["failure_reason"].(string); ok {
		p.FailureReason = &reason
	}
	if gid, ok := updates["gateway_payment_id"].(string); ok {
		p.GatewayPaymentID = gid
	}
	if to == paymentmodel.StatusCaptured {
		now := time.Now()
		p.CapturedAt = &now
	}
	return true, nil
}

type mockMandateReader struct {
	mandates map[int64]*mandatemodel.Mandate
}

func (m *mockMandateReader) GetByID(id int64) (*mandatemodel.Mandate, error) {
	record, ok := m.mandates[id]
	if !ok {
		return nil, errors.New("mandate not found")
	}
	return record, nil
}

type mockChargeGateway struct {
	paymentID string
	err       error
	calls     int
	lastRef   string
	lastKey   string
}

func (m *mockChargeGateway) CreatePayment(_ context.Context, mandateRef string, amountPaise int64, idempotencyKey string) (string, error) {
	m.calls++
	m.lastRef = mandateRef
	m.lastKey = idempotencyKey
	if m.err != nil {
		return "", m.err
	}
	return m.paymentID, nil
}

type mockEnqueuer struct {
	jobs []dispatcher.JobType
	err  error
}

func (m *mockEnqueuer) Enqueue(_ context.Context, jobType dispatcher.JobType, payload interface{}) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.jobs = append(m.jobs, jobType)
	return "job-1", nil
}

var _ = Describe("PaymentService", func() {
	var (
		repo     *mockPaymentRepository
		mandates *mockMandateReader
		gw       *mockChargeGateway
		enqueuer *mockEnqueuer
		service  *paymentPkg.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockPaymentRepository()
		mandates = &mockMandateReader{mandates: map[int64]*mandatemodel.Mandate{
			1: {ID: 1, CustomerID: 1, GatewayMandateID: "mandate_gw_1", Status: mandatemodel.StatusConfirmed},
			2: {ID: 2, CustomerID: 1, Status: mandatemodel.StatusPending},
		}}
		gw = &mockChargeGateway{paymentID: "pay_gw_1"}
		enqueuer = &mockEnqueuer{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus := events.NewEventBus(logger)
		service = paymentPkg.NewService(repo, mandates, gw, enqueuer, bus, logger)
		ctx = context.Background()
	})

	Describe("CreateRecurringPayment", func() {
		It("persists a pending payment and enqueues exactly one charge job", func() {
			p, jobID, err := service.CreateRecurringPayment(ctx, paymentPkg.CreatePaymentDTO{
				MandateID:   1,
				AmountPaise: 49900,
				Receipt:     "rcpt-2026-08-01",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Status).To(Equal(paymentmodel.StatusPending))
			Expect(p.IdempotencyKey).To(Equal("rcpt-2026-08-01"))
			Expect(jobID).To(Equal("job-1"))
			Expect(enqueuer.jobs).To(HaveLen(1))
			Expect(enqueuer.jobs[0]).To(Equal(dispatcher.JobTypePaymentCharge))
			Expect(gw.calls).To(BeZero())
		})

		It("generates an idempotency key when no receipt is supplied", func() {
			p, _, err := service.CreateRecurringPayment(ctx, paymentPkg.CreatePaymentDTO{
				MandateID:   1,
				AmountPaise: 49900,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(p.IdempotencyKey).To(HavePrefix("payment-"))
		})

		It("rejects a mandate that is not confirmed and writes no record", func() {
			_, _, err := service.CreateRecurringPayment(ctx, paymentPkg.CreatePaymentDTO{
				MandateID:   2,
				AmountPaise: 49900,
			})

			Expect(err).To(Equal(apperrors.ErrMandateNotConfirmed))
			Expect(repo.payments).To(BeEmpty())
			Expect(enqueuer.jobs).To(BeEmpty())
		})

		It("rejects an unknown mandate and writes no record", func() {
			_, _, err := service.CreateRecurringPayment(ctx, paymentPkg.CreatePaymentDTO{
				MandateID:   99,
				AmountPaise: 49900,
			})

			Expect(err).To(Equal(apperrors.ErrMandateNotFound))
			Expect(repo.payments).To(BeEmpty())
		})

		It("marks the payment failed when enqueueing fails", func() {
			enqueuer.err = errors.New("redis down")

			_, _, err := service.CreateRecurringPayment(ctx, paymentPkg.CreatePaymentDTO{
				MandateID:   1,
				AmountPaise: 49900,
			})

			Expect(err).To(HaveOccurred())
			stored := repo.payments[1]
			Expect(stored.Status).To(Equal(paymentmodel.StatusFailed))
			Expect(*stored.FailureReason).To(Equal(paymentmodel.ReasonCancelledBeforeDispatch))
		})
	})

	Describe("ProcessCharge", func() {
		BeforeEach(func() {
			repo.payments[1] = &paymentmodel.Payment{
				ID:             1,
				MandateID:      1,
				CustomerID:     1,
				AmountPaise:    49900,
				IdempotencyKey: "rcpt-2026-08-01",
				Status:         paymentmodel.StatusPending,
			}
			repo.nextID = 1
		})

		It("moves the payment to processing with the gateway id", func() {
			err := service.ProcessCharge(ctx, 1)
			Expect(err).ToNot(HaveOccurred())

			stored := repo.payments[1]
			Expect(stored.Status).To(Equal(paymentmodel.StatusProcessing))
			Expect(stored.GatewayPaymentID).To(Equal("pay_gw_1"))
			Expect(gw.lastRef).To(Equal("mandate_gw_1"))
		})

		It("forwards the stored idempotency key to the gateway", func() {
			err := service.ProcessCharge(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.lastKey).To(Equal("rcpt-2026-08-01"))
		})

		It("fails the payment when the mandate is no longer confirmed", func() {
			mandates.mandates[1].Status = mandatemodel.StatusCancelled

			err := service.ProcessCharge(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.calls).To(BeZero())
			Expect(repo.payments[1].Status).To(Equal(paymentmodel.StatusFailed))
		})

		It("records a gateway rejection as terminal failure without retrying", func() {
			gw.err = &gateway.APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "mandate paused"}

			err := service.ProcessCharge(ctx, 1)
			Expect(err).ToNot(HaveOccurred())

			stored := repo.payments[1]
			Expect(stored.Status).To(Equal(paymentmodel.StatusFailed))
			Expect(*stored.FailureReason).To(Equal(paymentmodel.ReasonGatewayRejected))
		})

		It("surfaces a transient gateway error for the dispatcher to retry", func() {
			gw.err = &gateway.APIError{StatusCode: 502, Code: "GATEWAY_ERROR", Description: "bad gateway"}

			err := service.ProcessCharge(ctx, 1)
			Expect(err).To(HaveOccurred())
			Expect(repo.payments[1].Status).To(Equal(paymentmodel.StatusPending))
		})

		It("skips a payment that is no longer pending", func() {
			repo.payments[1].Status = paymentmodel.StatusCaptured

			err := service.ProcessCharge(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.calls).To(BeZero())
		})
	})
})
