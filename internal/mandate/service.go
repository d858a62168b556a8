package mandate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	errors "github.com/mukeshbadgujar/emandate-service/internal"
	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	"github.com/mukeshbadgujar/emandate-service/internal/core/events"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
)

// Service owns the mandate state machine. Authorize never blocks on the
// gateway: it persists a pending mandate and hands the gateway call to the
// dispatcher.
type Service struct {
	repo      RepositoryAPI
	customers CustomerReader
	gateway   GatewayAPI
	enqueuer  dispatcher.Enqueuer
	eventBus  *events.EventBus
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, customers CustomerReader, gw GatewayAPI, enqueuer dispatcher.Enqueuer, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		gateway:   gw,
		enqueuer:  enqueuer,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Authorize validates the request, persists the mandate in pending and
// enqueues exactly one authorization job.
func (s *Service) Authorize(ctx context.Context, dto AuthorizeMandateDTO) (*mandatemodel.Mandate, string, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("mandate authorization validation failed", "error", err, "customer_id", dto.CustomerID)
		return nil, "", err
	}

	if _, err := s.customers.GetByID(dto.CustomerID); err != nil {
		s.logger.Warn("authorize rejected: customer not found", "customer_id", dto.CustomerID)
		return nil, "", errors.ErrCustomerNotFound
	}

	m := &mandatemodel.Mandate{
		CustomerID:  dto.CustomerID,
		AmountPaise: dto.AmountPaise,
		Currency:    "INR",
		Frequency:   dto.Frequency,
		Status:      mandatemodel.StatusPending,
	}

	if err := s.repo.Create(m); err != nil {
		s.logger.Error("failed to create mandate", "error", err, "customer_id", dto.CustomerID)
		return nil, "", errors.NewInternalError("failed to create mandate", err)
	}

	jobID, err := s.enqueuer.Enqueue(ctx, dispatcher.JobTypeMandateAuthorize, AuthorizeJobPayload{MandateID: m.ID})
	if err != nil {
		s.logger.Error("failed to enqueue authorization job", "error", err, "mandate_id", m.ID)

		reason := mandatemodel.ReasonCancelledBeforeDispatch
		if _, terr := s.repo.Transition(m.ID, mandatemodel.StatusPending, mandatemodel.StatusFailed, map[string]interface{}{
			"failure_reason": reason,
		}); terr != nil {
			s.logger.Error("failed to mark mandate failed after enqueue error", "error", terr, "mandate_id", m.ID)
		}
		return nil, "", errors.NewInternalError("failed to enqueue authorization job", err)
	}

	s.logger.Info("mandate authorization accepted",
		"mandate_id", m.ID,
		"customer_id", dto.CustomerID,
		"amount_paise", dto.AmountPaise,
		"frequency", dto.Frequency,
		"job_id", jobID)

	return m, jobID, nil
}

func (s *Service) Get(id int64) (*mandatemodel.Mandate, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get mandate", "error", err, "mandate_id", id)
		return nil, errors.ErrMandateNotFound
	}
	return m, nil
}

func (s *Service) ListByCustomer(customerID int64, limit, offset int) ([]*mandatemodel.Mandate, error) {
	mandates, err := s.repo.GetByCustomerID(customerID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list mandates", "error", err, "customer_id", customerID)
		return nil, err
	}
	return mandates, nil
}

// Validate is a pure read used as the precondition gate for payment
// creation. It never mutates.
func (s *Service) Validate(id int64) (bool, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return false, errors.ErrMandateNotFound
	}
	return m.Status == mandatemodel.StatusConfirmed, nil
}

// Cancel stops a mandate. A pending mandate whose job has not reached the
// gateway is failed with a cancellation reason; a confirmed mandate is
// cancelled; anything in flight or already terminal cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) (*mandatemodel.Mandate, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrMandateNotFound
	}

	switch m.Status {
	case mandatemodel.StatusPending:
		reason := mandatemodel.ReasonCancelledBeforeDispatch
		applied, err := s.repo.Transition(id, mandatemodel.StatusPending, mandatemodel.StatusFailed, map[string]interface{}{
			"failure_reason": reason,
		})
		if err != nil {
			return nil, errors.NewInternalError("failed to cancel mandate", err)
		}
		if !applied {
			// lost the race against the authorization job
			return nil, errors.ErrInvalidTransition
		}

		s.logger.Info("mandate cancelled before dispatch", "mandate_id", id)

	case mandatemodel.StatusConfirmed:
		applied, err := s.repo.Transition(id, mandatemodel.StatusConfirmed, mandatemodel.StatusCancelled, nil)
		if err != nil {
			return nil, errors.NewInternalError("failed to cancel mandate", err)
		}
		if !applied {
			return nil, errors.ErrInvalidTransition
		}

		s.logger.Info("mandate cancelled", "mandate_id", id)
		s.eventBus.Publish(ctx, events.NewMandateCancelledEvent(id, m.CustomerID))

	case mandatemodel.StatusProcessing:
		s.logger.Warn("cancel rejected: authorization already dispatched", "mandate_id", id)
		return nil, errors.NewInvalidStateError("authorization already dispatched to gateway, cannot cancel", errors.ErrCodeInvalidTransition)

	default:
		return nil, errors.ErrMandateTerminal
	}

	return s.repo.GetByID(id)
}

// ProcessAuthorization is the body of the mandate.authorize job. It is
// idempotent against at-least-once delivery: only a pending mandate is
// acted on. Transient gateway errors are returned so the dispatcher
// retries with backoff; rejections are terminal and recorded here.
func (s *Service) ProcessAuthorization(ctx context.Context, mandateID int64) error {
	m, err := s.repo.GetByID(mandateID)
	if err != nil {
		s.logger.Error("authorization job: mandate not found", "mandate_id", mandateID, "error", err)
		return nil
	}

	if m.Status != mandatemodel.StatusPending {
		s.logger.Info("authorization job: mandate no longer pending, skipping",
			"mandate_id", mandateID,
			"status", m.Status)
		return nil
	}

	c, err := s.customers.GetByID(m.CustomerID)
	if err != nil {
		s.logger.Error("authorization job: customer not found", "mandate_id", mandateID, "customer_id", m.CustomerID)
		s.failMandate(ctx, m, mandatemodel.ReasonGatewayRejected)
		return nil
	}

	idempotencyKey := fmt.Sprintf("mandate-%d", mandateID)

	gatewayMandateID, err := s.gateway.CreateMandate(ctx, c.GatewayCustomerID, m.AmountPaise, m.Frequency, idempotencyKey)
	if err != nil {
		if gateway.IsRejection(err) {
			s.logger.Warn("gateway rejected mandate authorization",
				"mandate_id", mandateID,
				"error", err)
			s.failMandate(ctx, m, mandatemodel.ReasonGatewayRejected)
			return nil
		}

		s.logger.Warn("transient gateway error during authorization, will retry",
			"mandate_id", mandateID,
			"error", err)
		return err
	}

	applied, err := s.repo.Transition(mandateID, mandatemodel.StatusPending, mandatemodel.StatusProcessing, map[string]interface{}{
		"gateway_mandate_id": gatewayMandateID,
	})
	if err != nil {
		return fmt.Errorf("record authorization dispatch: %w", err)
	}
	if !applied {
		s.logger.Info("authorization job: mandate moved concurrently, skipping", "mandate_id", mandateID)
		return nil
	}

	s.logger.Info("mandate authorization dispatched",
		"mandate_id", mandateID,
		"gateway_mandate_id", gatewayMandateID)

	return nil
}

func (s *Service) failMandate(ctx context.Context, m *mandatemodel.Mandate, reason string) {
	applied, err := s.repo.Transition(m.ID, mandatemodel.StatusPending, mandatemodel.StatusFailed, map[string]interface{}{
		"failure_reason": reason,
	})
	if err != nil {
		s.logger.Error("failed to mark mandate failed", "error", err, "mandate_id", m.ID)
		return
	}
	if applied {
		s.eventBus.Publish(ctx, events.NewMandateFailedEvent(m.ID, m.CustomerID, reason))
	}
}

func (s *Service) handleAuthorizeJob(ctx context.Context, payload json.RawMessage) error {
	var p AuthorizeJobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.logger.Error("invalid authorization job payload", "error", err)
		return nil
	}
	return s.ProcessAuthorization(ctx, p.MandateID)
}

func (s *Service) handleAuthorizeExhausted(ctx context.Context, payload json.RawMessage, lastErr error) {
	var p AuthorizeJobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	s.logger.Error("mandate authorization retries exhausted, surfacing for manual intervention",
		"mandate_id", p.MandateID,
		"error", lastErr)

	m, err := s.repo.GetByID(p.MandateID)
	if err != nil {
		return
	}
	if m.Status == mandatemodel.StatusPending {
		s.failMandate(ctx, m, mandatemodel.ReasonRetryExhausted)
	}
}
