package customer

import (
	"context"
	"log/slog"

	errors "github.com/mukeshbadgujar/emandate-service/internal"
	customermodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/customer"
	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
)

// Service registers customers with the provider before persisting them.
// Registration happens synchronously on the request path: a customer record
// without a gateway reference cannot anchor a mandate.
type Service struct {
	repo    RepositoryAPI
	gateway GatewayAPI
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, gw GatewayAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gw,
		logger:  logger,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateCustomerDTO) (*customermodel.Customer, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("customer validation failed", "error", err, "email", dto.Email)
		return nil, err
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		s.logger.Warn("customer already exists", "email", dto.Email, "customer_id", existing.ID)
		return nil, errors.NewConflictError("customer with this email already exists", errors.ErrCodeCustomerExists)
	}

	gatewayCustomerID, err := s.gateway.CreateCustomer(ctx, gateway.CustomerParams{
		Name:    dto.Name,
		Email:   dto.Email,
		Contact: dto.Contact,
		GSTIN:   dto.GSTIN,
	})
	if err != nil {
		s.logger.Error("gateway customer registration failed", "error", err, "email", dto.Email)
		if gateway.IsRejection(err) {
			return nil, errors.NewValidationError("payment provider rejected customer details", errors.ErrCodeGatewayFailure)
		}
		return nil, errors.NewExternalError("payment provider unavailable", err)
	}

	c := &customermodel.Customer{
		GatewayCustomerID: gatewayCustomerID,
		Name:              dto.Name,
		Email:             dto.Email,
		Contact:           dto.Contact,
		GSTIN:             dto.GSTIN,
	}

	if err := s.repo.Create(c); err != nil {
		s.logger.Error("failed to create customer", "error", err, "email", dto.Email)
		return nil, errors.NewInternalError("failed to create customer", err)
	}

	s.logger.Info("customer created",
		"customer_id", c.ID,
		"gateway_customer_id", gatewayCustomerID)

	return c, nil
}

func (s *Service) Get(id int64) (*customermodel.Customer, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get customer", "error", err, "customer_id", id)
		return nil, errors.ErrCustomerNotFound
	}
	return c, nil
}

func (s *Service) List(limit, offset int) ([]*customermodel.Customer, error) {
	customers, err := s.repo.List(limit, offset)
	if err != nil {
		s.logger.Error("failed to list customers", "error", err)
		return nil, err
	}
	return customers, nil
}
