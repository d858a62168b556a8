package customer

import (
	"context"

	customermodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/customer"
	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
)

// RepositoryAPI defines the data access methods for customers.
type RepositoryAPI interface {
	Create(c *customermodel.Customer) error
	GetByID(id int64) (*customermodel.Customer, error)
	GetByEmail(email string) (*customermodel.Customer, error)
	List(limit, offset int) ([]*customermodel.Customer, error)
}

// GatewayAPI registers the customer with the payment provider.
type GatewayAPI interface {
	CreateCustomer(ctx context.Context, params gateway.CustomerParams) (string, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateCustomerDTO) (*customermodel.Customer, error)
	Get(id int64) (*customermodel.Customer, error)
	List(limit, offset int) ([]*customermodel.Customer, error)
}
