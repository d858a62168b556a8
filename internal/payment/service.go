package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	errors "github.com/mukeshbadgujar/emandate-service/internal"
	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	paymentmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/payment"
	"github.com/mukeshbadgujar/emandate-service/internal/core/events"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
)

// Service owns the payment state machine. Creation only persists a pending
// record and enqueues the charge; the gateway is never called on the
// request path.
type Service struct {
	repo     RepositoryAPI
	mandates MandateReader
	gateway  GatewayAPI
	enqueuer dispatcher.Enqueuer
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, mandates MandateReader, gw GatewayAPI, enqueuer dispatcher.Enqueuer, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		mandates: mandates,
		gateway:  gw,
		enqueuer: enqueuer,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateRecurringPayment fails with an invalid-state error unless the
// mandate is confirmed; no payment record is written in that case.
func (s *Service) CreateRecurringPayment(ctx context.Context, dto CreatePaymentDTO) (*paymentmodel.Payment, string, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("payment validation failed", "error", err, "mandate_id", dto.MandateID)
		return nil, "", err
	}

	m, err := s.mandates.GetByID(dto.MandateID)
	if err != nil {
		s.logger.Warn("payment rejected: mandate not found", "mandate_id", dto.MandateID)
		return nil, "", errors.ErrMandateNotFound
	}

	if m.Status != mandatemodel.StatusConfirmed {
		s.logger.Warn("payment rejected: mandate not confirmed",
			"mandate_id", dto.MandateID,
			"mandate_status", m.Status)
		return nil, "", errors.ErrMandateNotConfirmed
	}

	// The idempotency key pins duplicate job executions to one external
	// charge. Receipts are caller-supplied retry tokens and double as the
	// key; without one, each request charges independently.
	idempotencyKey := dto.Receipt
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("payment-%s", uuid.NewString())
	}

	p := &paymentmodel.Payment{
		MandateID:      dto.MandateID,
		CustomerID:     m.CustomerID,
		AmountPaise:    dto.AmountPaise,
		Currency:       "INR",
		Receipt:        dto.Receipt,
		IdempotencyKey: idempotencyKey,
		Status:         paymentmodel.StatusPending,
	}

	if err := s.repo.Create(p); err != nil {
		s.logger.Error("failed to create payment", "error", err, "mandate_id", dto.MandateID)
		return nil, "", errors.NewInternalError("failed to create payment", err)
	}

	jobID, err := s.enqueuer.Enqueue(ctx, dispatcher.JobTypePaymentCharge, ChargeJobPayload{PaymentID: p.ID})
	if err != nil {
		s.logger.Error("failed to enqueue charge job", "error", err, "payment_id", p.ID)

		reason := paymentmodel.ReasonCancelledBeforeDispatch
		if _, terr := s.repo.Transition(p.ID, paymentmodel.StatusPending, paymentmodel.StatusFailed, map[string]interface{}{
			"failure_reason": reason,
		}); terr != nil {
			s.logger.Error("failed to mark payment failed after enqueue error", "error", terr, "payment_id", p.ID)
		}
		return nil, "", errors.NewInternalError("failed to enqueue charge job", err)
	}

	s.logger.Info("recurring payment accepted",
		"payment_id", p.ID,
		"mandate_id", dto.MandateID,
		"amount_paise", dto.AmountPaise,
		"idempotency_key", idempotencyKey,
		"job_id", jobID)

	return p, jobID, nil
}

func (s *Service) Get(id int64) (*paymentmodel.Payment, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get payment", "error", err, "payment_id", id)
		return nil, errors.ErrPaymentNotFound
	}
	return p, nil
}

func (s *Service) ListByMandate(mandateID int64, limit, offset int) ([]*paymentmodel.Payment, error) {
	payments, err := s.repo.GetByMandateID(mandateID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list payments", "error", err, "mandate_id", mandateID)
		return nil, err
	}
	return payments, nil
}

// ProcessCharge is the body of the payment.charge job. Idempotent against
// redelivery: only a pending payment is dispatched, and the idempotency
// key collapses duplicate gateway calls that slip through anyway.
func (s *Service) ProcessCharge(ctx context.Context, paymentID int64) error {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		s.logger.Error("charge job: payment not found", "payment_id", paymentID, "error", err)
		return nil
	}

	if p.Status != paymentmodel.StatusPending {
		s.logger.Info("charge job: payment no longer pending, skipping",
			"payment_id", paymentID,
			"status", p.Status)
		return nil
	}

	m, err := s.mandates.GetByID(p.MandateID)
	if err != nil {
		s.logger.Error("charge job: mandate not found", "payment_id", paymentID, "mandate_id", p.MandateID)
		s.failPayment(ctx, p, paymentmodel.ReasonGatewayRejected)
		return nil
	}

	if m.Status != mandatemodel.StatusConfirmed {
		s.logger.Warn("charge job: mandate no longer confirmed",
			"payment_id", paymentID,
			"mandate_id", p.MandateID,
			"mandate_status", m.Status)
		s.failPayment(ctx, p, paymentmodel.ReasonGatewayRejected)
		return nil
	}

	gatewayPaymentID, err := s.gateway.CreatePayment(ctx, m.GatewayMandateID, p.AmountPaise, p.IdempotencyKey)
	if err != nil {
		if gateway.IsRejection(err) {
			s.logger.Warn("gateway rejected charge", "payment_id", paymentID, "error", err)
			s.failPayment(ctx, p, paymentmodel.ReasonGatewayRejected)
			return nil
		}

		s.logger.Warn("transient gateway error during charge, will retry",
			"payment_id", paymentID,
			"error", err)
		return err
	}

	applied, err := s.repo.Transition(paymentID, paymentmodel.StatusPending, paymentmodel.StatusProcessing, map[string]interface{}{
		"gateway_payment_id": gatewayPaymentID,
	})
	if err != nil {
		return fmt.Errorf("record charge dispatch: %w", err)
	}
	if !applied {
		s.logger.Info("charge job: payment moved concurrently, skipping", "payment_id", paymentID)
		return nil
	}

	s.logger.Info("charge dispatched",
		"payment_id", paymentID,
		"gateway_payment_id", gatewayPaymentID)

	return nil
}

func (s *Service) failPayment(ctx context.Context, p *paymentmodel.Payment, reason string) {
	applied, err := s.repo.Transition(p.ID, p.Status, paymentmodel.StatusFailed, map[string]interface{}{
		"failure_reason": reason,
	})
	if err != nil {
		s.logger.Error("failed to mark payment failed", "error", err, "payment_id", p.ID)
		return
	}
	if applied {
		s.eventBus.Publish(ctx, events.NewPaymentFailedEvent(p.ID, p.MandateID, p.AmountPaise, reason))
	}
}

func (s *Service) handleChargeJob(ctx context.Context, payload json.RawMessage) error {
	var p ChargeJobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.logger.Error("invalid charge job payload", "error", err)
		return nil
	}
	return s.ProcessCharge(ctx, p.PaymentID)
}

func (s *Service) handleChargeExhausted(ctx context.Context, payload json.RawMessage, lastErr error) {
	var p ChargeJobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	s.logger.Error("charge retries exhausted, surfacing for manual intervention",
		"payment_id", p.PaymentID,
		"error", lastErr)

	record, err := s.repo.GetByID(p.PaymentID)
	if err != nil {
		return
	}
	if record.Status == paymentmodel.StatusPending {
		s.failPayment(ctx, record, paymentmodel.ReasonRetryExhausted)
	}
}
