package mandate_test

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
	customermodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/customer"
	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	"github.com/mukeshbadgujar/emandate-service/internal/core/events"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
	mandatePkg "github.com/mukeshbadgujar/emandate-service/internal/mandate"
)

func TestMandateService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mandate Service Suite")
}

// Mock repository for testing
type mockMandateRepository struct {
	mandates    map[int64]*mandatemodel.Mandate
	nextID      int64
	createError error
}

func newMockMandateRepository() *mockMandateRepository {
	return &mockMandateRepository{mandates: make(map[int64]*mandatemodel.Mandate)}
}

func (m *mockMandateRepository) Create(record *mandatemodel.Mandate) error {
	if m.createError != nil {
		return m.createError
	}
	m.nextID++
	record.ID = m.nextID
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	m.mandates[record.ID] = record
	return nil
}

func (m *mockMandateRepository) GetByID(id int64) (*mandatemodel.Mandate, error) {
	record, ok := m.mandates[id]
	if !ok {
		return nil, errors.New("mandate not found")
	}
	copied := *record
	return &copied, nil
}

func (m *mockMandateRepository) GetByGatewayID(gatewayMandateID string) (*mandatemodel.Mandate, error) {
	for _, record := range m.mandates {
		if record.GatewayMandateID == gatewayMandateID {
			copied := *record
			return &copied, nil
		}
	}
	return nil, errors.New("mandate not found")
}

func (m *mockMandateRepository) GetByCustomerID(customerID int64, limit, offset int) ([]*mandatemodel.Mandate, error) {
	var out []*mandatemodel.Mandate
	for _, record := range m.mandates {
		if record.CustomerID == customerID {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockMandateRepository) Transition(id int64, from, to mandatemodel.Status, updates map[string]interface{}) (bool, error) {
	record, ok := m.mandates[id]
	if !ok || record.Status != from {
		return false, nil
	}
	record.Status = to
	if reason, ok := updates["failure_reason"].(string); ok {
		record.FailureReason = &reason
	}
	if gid, ok := updates["gateway_mandate_id"].(string); ok {
		record.GatewayMandateID = gid
	}
	if to == mandatemodel.StatusConfirmed {
		now := time.Now()
		record.ConfirmedAt = &now
	}
	return true, nil
}

type mockCustomerReader struct {
	customers map[int64]*customermodel.Customer
}

func (m *mockCustomerReader) GetByID(id int64) (*customermodel.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, errors.New("customer not found")
	}
	return c, nil
}

type mockGateway struct {
	mandateID string
	err       error
	calls     int
	lastKey   string
	lastRef   string
}

func (m *mockGateway) CreateMandate(_ context.Context, customerRef string, amountPaise int64, frequency, idempotencyKey string) (string, error) {
	m.calls++
	m.lastKey = idempotencyKey
	m.lastRef = customerRef
	if m.err != nil {
		return "", m.err
	}
	return m.mandateID, nil
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

var _ = Describe("MandateService", func() {
	var (
		repo      *mockMandateRepository
		customers *mockCustomerReader
		gw        *mockGateway
		enqueuer  *mockEnqueuer
		service   *mandatePkg.Service
		ctx       context.Context
	)

	BeforeEach(func() {
		repo = newMockMandateRepository()
		customers = &mockCustomerReader{customers: map[int64]*customermodel.Customer{
			1: {ID: 1, GatewayCustomerID: "cust_gw_1", Name: "Asha", Email: "asha@mail.com"},
		}}
		gw = &mockGateway{mandateID: "mandate_gw_1"}
		enqueuer = &mockEnqueuer{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus := events.NewEventBus(logger)
		service = mandatePkg.NewService(repo, customers, gw, enqueuer, bus, logger)
		ctx = context.Background()
	})

	Describe("Authorize", func() {
		It("persists a pending mandate and enqueues exactly one job", func() {
			m, jobID, err := service.Authorize(ctx, mandatePkg.AuthorizeMandateDTO{
				CustomerID:  1,
				AmountPaise: 49900,
				Frequency:   "monthly",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(m.Status).To(Equal(mandatemodel.StatusPending))
			Expect(jobID).To(Equal("job-1"))
			Expect(enqueuer.jobs).To(HaveLen(1))
			Expect(enqueuer.jobs[0]).To(Equal(dispatcher.JobTypeMandateAuthorize))
			// the gateway is never touched on the request path
			Expect(gw.calls).To(BeZero())
		})

		It("rejects an unknown frequency", func() {
			_, _, err := service.Authorize(ctx, mandatePkg.AuthorizeMandateDTO{
				CustomerID:  1,
				AmountPaise: 49900,
				Frequency:   "weekly",
			})

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			Expect(enqueuer.jobs).To(BeEmpty())
		})

		It("rejects a non-positive amount", func() {
			_, _, err := service.Authorize(ctx, mandatePkg.AuthorizeMandateDTO{
				CustomerID:  1,
				AmountPaise: 0,
				Frequency:   "monthly",
			})

			Expect(err).To(HaveOccurred())
			Expect(enqueuer.jobs).To(BeEmpty())
		})

		It("fails when the customer does not exist", func() {
			_, _, err := service.Authorize(ctx, mandatePkg.AuthorizeMandateDTO{
				CustomerID:  42,
				AmountPaise: 49900,
				Frequency:   "monthly",
			})

			Expect(err).To(Equal(apperrors.ErrCustomerNotFound))
		})

		It("marks the mandate failed when enqueueing fails", func() {
			enqueuer.err = errors.New("redis down")

			_, _, err := service.Authorize(ctx, mandatePkg.AuthorizeMandateDTO{
				CustomerID:  1,
				AmountPaise: 49900,
				Frequency:   "monthly",
			})

			Expect(err).To(HaveOccurred())
			stored := repo.mandates[1]
			Expect(stored.Status).To(Equal(mandatemodel.StatusFailed))
			Expect(*stored.FailureReason).To(Equal(mandatemodel.ReasonCancelledBeforeDispatch))
		})
	})

	Describe("Validate", func() {
		It("returns true only for a confirmed mandate", func() {
			repo.mandates[7] = &mandatemodel.Mandate{ID: 7, CustomerID: 1, Status: mandatemodel.StatusConfirmed}
			repo.mandates[8] = &mandatemodel.Mandate{ID: 8, CustomerID: 1, Status: mandatemodel.StatusProcessing}

			valid, err := service.Validate(7)
			Expect(err).ToNot(HaveOccurred())
			Expect(valid).To(BeTrue())

			valid, err = service.Validate(8)
			Expect(err).ToNot(HaveOccurred())
			Expect(valid).To(BeFalse())
		})

		It("returns not found for a missing mandate", func() {
			_, err := service.Validate(99)
			Expect(err).To(Equal(apperrors.ErrMandateNotFound))
		})
	})

	Describe("Cancel", func() {
		It("fails a pending mandate with a cancellation reason", func() {
			repo.mandates[1] = &mandatemodel.Mandate{ID: 1, CustomerID: 1, Status: mandatemodel.StatusPending}
			repo.nextID = 1

			m, err := service.Cancel(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Status).To(Equal(mandatemodel.StatusFailed))
			Expect(*m.FailureReason).To(Equal(mandatemodel.ReasonCancelledBeforeDispatch))
		})

		It("cancels a confirmed mandate", func() {
			repo.mandates[1] = &mandatemodel.Mandate{ID: 1, CustomerID: 1, Status: mandatemodel.StatusConfirmed}
			repo.nextID = 1

			m, err := service.Cancel(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Status).To(Equal(mandatemodel.StatusCancelled))
		})

		It("refuses to cancel a mandate already dispatched to the gateway", func() {
			repo.mandates[1] = &mandatemodel.Mandate{ID: 1, CustomerID: 1, Status: mandatemodel.StatusProcessing}
			repo.nextID = 1

			_, err := service.Cancel(ctx, 1)
			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeInvalidState))
		})

		It("refuses to cancel a terminal mandate", func() {
			repo.mandates[1] = &mandatemodel.Mandate{ID: 1, CustomerID: 1, Status: mandatemodel.StatusFailed}
			repo.nextID = 1

			_, err := service.Cancel(ctx, 1)
			Expect(err).To(Equal(apperrors.ErrMandateTerminal))
		})
	})

	Describe("ProcessAuthorization", func() {
		BeforeEach(func() {
			repo.mandates[1] = &mandatemodel.Mandate{
				ID:          1,
				CustomerID:  1,
				AmountPaise: 49900,
				Frequency:   "monthly",
				Status:      mandatemodel.StatusPending,
			}
			repo.nextID = 1
		})

		It("moves the mandate to processing with the gateway id", func() {
			err := service.ProcessAuthorization(ctx, 1)
			Expect(err).ToNot(HaveOccurred())

			stored := repo.mandates[1]
			Expect(stored.Status).To(Equal(mandatemodel.StatusProcessing))
			Expect(stored.GatewayMandateID).To(Equal("mandate_gw_1"))
			Expect(gw.lastRef).To(Equal("cust_gw_1"))
		})

		It("derives the idempotency key from the mandate id", func() {
			err := service.ProcessAuthorization(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.lastKey).To(Equal("mandate-1"))
		})

		It("records a gateway rejection as terminal failure without retrying", func() {
			gw.err = &gateway.APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "invalid frequency"}

			err := service.ProcessAuthorization(ctx, 1)
			Expect(err).ToNot(HaveOccurred())

			stored := repo.mandates[1]
			Expect(stored.Status).To(Equal(mandatemodel.StatusFailed))
			Expect(*stored.FailureReason).To(Equal(mandatemodel.ReasonGatewayRejected))
		})

		It("surfaces a transient gateway error for the dispatcher to retry", func() {
			gw.err = &gateway.APIError{StatusCode: 503, Code: "SERVER_ERROR", Description: "upstream unavailable"}

			err := service.ProcessAuthorization(ctx, 1)
			Expect(err).To(HaveOccurred())

			stored := repo.mandates[1]
			Expect(stored.Status).To(Equal(mandatemodel.StatusPending))
		})

		It("skips a mandate that is no longer pending", func() {
			repo.mandates[1].Status = mandatemodel.StatusConfirmed

			err := service.ProcessAuthorization(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.calls).To(BeZero())
		})
	})
})
