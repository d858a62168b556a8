package mandate

import (
	"context"

	customermodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/customer"
	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
)

// RepositoryAPI defines the data access methods for mandates. Transition
// is a compare-and-swap on status: it only applies when the row still holds
// the expected source state, so concurrent workers cannot both move a
// mandate into a terminal state.
type RepositoryAPI interface {
	Create(m *mandatemodel.Mandate) error
	GetByID(id int64) (*mandatemodel.Mandate, error)
	GetByGatewayID(gatewayMandateID string) (*mandatemodel.Mandate, error)
	GetByCustomerID(customerID int64, limit, offset int) ([]*mandatemodel.Mandate, error)
	Transition(id int64, from, to mandatemodel.Status, updates map[string]interface{}) (bool, error)
}

// CustomerReader is the slice of the customer module the mandate service
// needs: existence checks on authorize.
type CustomerReader interface {
	GetByID(id int64) (*customermodel.Customer, error)
}

// GatewayAPI is the provider capability used during authorization.
type GatewayAPI interface {
	CreateMandate(ctx context.Context, customerRef string, amountPaise int64, frequency, idempotencyKey string) (string, error)
}

// ServiceAPI is what handlers and the webhook reconciler see.
type ServiceAPI interface {
	Authorize(ctx context.Context, dto AuthorizeMandateDTO) (*mandatemodel.Mandate, string, error)
	Get(id int64) (*mandatemodel.Mandate, error)
	ListByCustomer(customerID int64, limit, offset int) ([]*mandatemodel.Mandate, error)
	Validate(id int64) (bool, error)
	Cancel(ctx context.Context, id int64) (*mandatemodel.Mandate, error)
	ProcessAuthorization(ctx context.Context, mandateID int64) error
}

// Processor adapts the service's authorization job onto the dispatcher
// contract.
func (s *Service) Processor() dispatcher.Processor {
	return dispatcher.Processor{
		Handle:      s.handleAuthorizeJob,
		OnExhausted: s.handleAuthorizeExhausted,
	}
}
