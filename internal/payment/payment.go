package payment

import (
	"context"

	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	paymentmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/payment"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
)

// RepositoryAPI defines the data access methods for payments. Transition
// is the same compare-and-swap pattern the mandate repository uses.
type RepositoryAPI interface {
	Create(p *paymentmodel.Payment) error
	GetByID(id int64) (*paymentmodel.Payment, error)
	GetByGatewayID(gatewayPaymentID string) (*paymentmodel.Payment, error)
	GetByMandateID(mandateID int64, limit, offset int) ([]*paymentmodel.Payment, error)
	Transition(id int64, from, to paymentmodel.Status, updates map[string]interface{}) (bool, error)
}

// MandateReader supplies the mandate rows that gate payment creation and
// carry the gateway reference the charge needs.
type MandateReader interface {
	GetByID(id int64) (*mandatemodel.Mandate, error)
}

// GatewayAPI is the provider capability used by the charge job.
type GatewayAPI interface {
	CreatePayment(ctx context.Context, mandateRef string, amountPaise int64, idempotencyKey string) (string, error)
}

type ServiceAPI interface {
	CreateRecurringPayment(ctx context.Context, dto CreatePaymentDTO) (*paymentmodel.Payment, string, error)
	Get(id int64) (*paymentmodel.Payment, error)
	ListByMandate(mandateID int64, limit, offset int) ([]*paymentmodel.Payment, error)
	ProcessCharge(ctx context.Context, paymentID int64) error
}

func (s *Service) Processor() dispatcher.Processor {
	return dispatcher.Processor{
		Handle:      s.handleChargeJob,
		OnExhausted: s.handleChargeExhausted,
	}
}
