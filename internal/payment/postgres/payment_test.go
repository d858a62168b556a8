package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	paymentmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/payment"
)

func TestPaymentRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Repository Suite")
}

var _ = ginkgo.Describe("PaymentRepository", func() {
	var (
		db   *gorm.DB
		repo *PaymentRepository
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			TranslateError: true,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&paymentmodel.Payment{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewPaymentRepository(db).(*PaymentRepository)
	})

	newPending := func(key string) *paymentmodel.Payment {
		p := &paymentmodel.Payment{
			MandateID:      1,
			AmountPaise:    49900,
			IdempotencyKey: key,
			Status:         paymentmodel.StatusPending,
		}
		gomega.Expect(repo.Create(p)).To(gomega.Succeed())
		return p
	}

	ginkgo.Describe("Create", func() {
		ginkgo.It("inserts a payment and sets its ID", func() {
			p := newPending("rcpt-1")
			gomega.Expect(p.ID).To(gomega.BeNumerically(">", 0))
		})

		ginkgo.It("rejects a duplicate idempotency key", func() {
			newPending("rcpt-1")
			dup := &paymentmodel.Payment{
				MandateID:      1,
				AmountPaise:    49900,
				IdempotencyKey: "rcpt-1",
				Status:         paymentmodel.StatusPending,
			}
			err := repo.Create(dup)
			gomega.Expect(err).To(gomega.MatchError(gorm.ErrDuplicatedKey))
		})
	})

	ginkgo.Describe("Transition", func() {
		ginkgo.It("applies when the source status matches", func() {
			p := newPending("rcpt-1")

			applied, err := repo.Transition(p.ID, paymentmodel.StatusPending, paymentmodel.StatusProcessing, map[string]interface{}{
				"gateway_payment_id": "pay_gw_1",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(applied).To(gomega.BeTrue())

			stored, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Status).To(gomega.Equal(paymentmodel.StatusProcessing))
			gomega.Expect(stored.GatewayPaymentID).To(gomega.Equal("pay_gw_1"))
		})

		ginkgo.It("does not apply when the source status differs", func() {
			p := newPending("rcpt-1")

			applied, err := repo.Transition(p.ID, paymentmodel.StatusProcessing, paymentmodel.StatusCaptured, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(applied).To(gomega.BeFalse())

			stored, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Status).To(gomega.Equal(paymentmodel.StatusPending))
		})

		ginkgo.It("lets only one of two competing transitions win", func() {
			p := newPending("rcpt-1")

			first, err := repo.Transition(p.ID, paymentmodel.StatusPending, paymentmodel.StatusProcessing, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			second, err := repo.Transition(p.ID, paymentmodel.StatusPending, paymentmodel.StatusFailed, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(first).To(gomega.BeTrue())
			gomega.Expect(second).To(gomega.BeFalse())
		})

		ginkgo.It("stamps captured_at when the payment settles", func() {
			p := newPending("rcpt-1")

			_, err := repo.Transition(p.ID, paymentmodel.StatusPending, paymentmodel.StatusProcessing, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			applied, err := repo.Transition(p.ID, paymentmodel.StatusProcessing, paymentmodel.StatusCaptured, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(applied).To(gomega.BeTrue())

			stored, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.CapturedAt).ToNot(gomega.BeNil())
		})
	})

	ginkgo.Describe("GetByGatewayID", func() {
		ginkgo.It("finds a payment by its gateway reference", func() {
			p := newPending("rcpt-1")
			_, err := repo.Transition(p.ID, paymentmodel.StatusPending, paymentmodel.StatusProcessing, map[string]interface{}{
				"gateway_payment_id": "pay_gw_42",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored, err := repo.GetByGatewayID("pay_gw_42")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.ID).To(gomega.Equal(p.ID))
		})
	})

	ginkgo.Describe("GetByMandateID", func() {
		ginkgo.It("returns only the mandate's payments", func() {
			newPending("rcpt-1")
			other := &paymentmodel.Payment{MandateID: 2, AmountPaise: 1000, IdempotencyKey: "rcpt-2", Status: paymentmodel.StatusPending}
			gomega.Expect(repo.Create(other)).To(gomega.Succeed())

			payments, err := repo.GetByMandateID(1, 50, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(payments).To(gomega.HaveLen(1))
			gomega.Expect(payments[0].MandateID).To(gomega.Equal(int64(1)))
		})
	})
})
