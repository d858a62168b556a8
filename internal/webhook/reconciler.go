// Package webhook reconciles provider callbacks with the local mandate and
// payment state machines. Every callback is recorded exactly once and
// applied to at most one state transition; redeliveries and out-of-order
// arrivals degrade to no-ops instead of corrupting state.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	paymentmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/payment"
	webhookmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/webhook"
	"github.com/mukeshbadgujar/emandate-service/internal/core/events"
	mandatepg "github.com/mukeshbadgujar/emandate-service/internal/mandate/postgres"
	paymentpg "github.com/mukeshbadgujar/emandate-service/internal/payment/postgres"
	webhookpg "github.com/mukeshbadgujar/emandate-service/internal/webhook/postgres"
)

// Provider event types the reconciler knows how to apply. Anything else is
// recorded and skipped so that new provider events never break ingestion.
const (
	TypeMandateConfirmed = "mandate.confirmed"
	TypeMandateRejected  = "mandate.rejected"
	TypeMandateCancelled = "mandate.cancelled"
	TypePaymentCaptured  = "payment.captured"
	TypePaymentFailed    = "payment.failed"
)

// envelope is the provider callback body. Mandate and payment events carry
// their entity under different keys; unused branches stay zero-valued.
type envelope struct {
	Payload struct {
		Mandate struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"mandate"`
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Reconciler applies verified provider events inside a single database
// transaction: the dedup insert and the state transition commit or roll
// back together, so a concurrently redelivered event can never double-apply.
type Reconciler struct {
	db       *gorm.DB
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewReconciler(db *gorm.DB, eventBus *events.EventBus, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		db:       db,
		eventBus: eventBus,
		logger:   logger,
	}
}

// ApplyEvent records the event under gatewayEventID and applies the matching
// state transition. A replay of an already recorded event returns nil with
// no side effects. Unknown event types are recorded without a transition.
func (r *Reconciler) ApplyEvent(ctx context.Context, gatewayEventID, eventType string, payload json.RawMessage) error {
	var published []events.Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventRepo := webhookpg.NewEventRepository(tx)

		record := &webhookmodel.Event{
			GatewayEventID: gatewayEventID,
			EventType:      eventType,
			Payload:        payload,
		}
		if err := eventRepo.Create(record); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				r.logger.Info("duplicate webhook event, skipping",
					"gateway_event_id", gatewayEventID,
					"event_type", eventType)
				return errAlreadyApplied
			}
			return fmt.Errorf("record webhook event: %w", err)
		}

		applied, domainEvents, applyErr := r.apply(tx, eventType, payload)
		if applyErr != nil {
			return applyErr
		}

		note := ""
		if !applied {
			note = "no transition applied"
		}
		if err := eventRepo.MarkProcessed(record.ID, applied, note); err != nil {
			return fmt.Errorf("mark webhook event processed: %w", err)
		}

		published = domainEvents
		return nil
	})
	if errors.Is(err, errAlreadyApplied) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, ev := range published {
		r.eventBus.Publish(ctx, ev)
	}

	return nil
}

var errAlreadyApplied = errors.New("webhook event already recorded")

// apply dispatches to the state machine matching the event type. It returns
// whether a transition landed and the domain events to publish after commit.
func (r *Reconciler) apply(tx *gorm.DB, eventType string, payload json.RawMessage) (bool, []events.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.logger.Warn("unparseable webhook payload, recording without transition",
			"event_type", eventType,
			"error", err)
		return false, nil, nil
	}

	switch eventType {
	case TypeMandateConfirmed:
		return r.applyMandate(tx, env.Payload.Mandate.Entity.ID,
			mandatemodel.StatusProcessing, mandatemodel.StatusConfirmed, "")
	case TypeMandateRejected:
		return r.applyMandate(tx, env.Payload.Mandate.Entity.ID,
			mandatemodel.StatusProcessing, mandatemodel.StatusFailed, mandatemodel.ReasonGatewayRejected)
	case TypeMandateCancelled:
		return r.applyMandate(tx, env.Payload.Mandate.Entity.ID,
			mandatemodel.StatusConfirmed, mandatemodel.StatusCancelled, "")
	case TypePaymentCaptured:
		return r.applyPayment(tx, env.Payload.Payment.Entity.ID,
			paymentmodel.StatusProcessing, paymentmodel.StatusCaptured, "")
	case TypePaymentFailed:
		reason := env.Payload.Payment.Entity.ErrorDescription
		if reason == "" {
			reason = paymentmodel.ReasonGatewayRejected
		}
		return r.applyPayment(tx, env.Payload.Payment.Entity.ID,
			paymentmodel.StatusProcessing, paymentmodel.StatusFailed, reason)
	default:
		r.logger.Info("unknown webhook event type, recorded without transition",
			"event_type", eventType)
		return false, nil, nil
	}
}

func (r *Reconciler) applyMandate(tx *gorm.DB, gatewayMandateID string, from, to mandatemodel.Status, reason string) (bool, []events.Event, error) {
	if gatewayMandateID == "" {
		r.logger.Warn("mandate webhook without entity id")
		return false, nil, nil
	}

	repo := mandatepg.NewMandateRepository(tx)
	m, err := repo.GetByGatewayID(gatewayMandateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn("mandate webhook for unknown mandate",
				"gateway_mandate_id", gatewayMandateID)
			return false, nil, nil
		}
		return false, nil, err
	}

	updates := map[string]interface{}{}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	applied, err := repo.Transition(m.ID, from, to, updates)
	if err != nil {
		return false, nil, err
	}
	if !applied {
		r.logger.Info("mandate transition source state no longer holds",
			"mandate_id", m.ID,
			"current_status", m.Status,
			"expected_from", from,
			"to", to)
		return false, nil, nil
	}

	var domainEvents []events.Event
	switch to {
	case mandatemodel.StatusConfirmed:
		domainEvents = append(domainEvents, events.NewMandateConfirmedEvent(m.ID, m.CustomerID, gatewayMandateID))
	case mandatemodel.StatusFailed:
		domainEvents = append(domainEvents, events.NewMandateFailedEvent(m.ID, m.CustomerID, reason))
	case mandatemodel.StatusCancelled:
		domainEvents = append(domainEvents, events.NewMandateCancelledEvent(m.ID, m.CustomerID))
	}

	return true, domainEvents, nil
}

func (r *Reconciler) applyPayment(tx *gorm.DB, gatewayPaymentID string, from, to paymentmodel.Status, reason string) (bool, []events.Event, error) {
	if gatewayPaymentID == "" {
		r.logger.Warn("payment webhook without entity id")
		return false, nil, nil
	}

	repo := paymentpg.NewPaymentRepository(tx)
	p, err := repo.GetByGatewayID(gatewayPaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn("payment webhook for unknown payment",
				"gateway_payment_id", gatewayPaymentID)
			return false, nil, nil
		}
		return false, nil, err
	}

	updates := map[string]interface{}{}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	applied, err := repo.Transition(p.ID, from, to, updates)
	if err != nil {
		return false, nil, err
	}
	if !applied {
		r.logger.Info("payment transition source state no longer holds",
			"payment_id", p.ID,
			"current_status", p.Status,
			"expected_from", from,
			"to", to)
		return false, nil, nil
	}

	var domainEvents []events.Event
	switch to {
	case paymentmodel.StatusCaptured:
		domainEvents = append(domainEvents, events.NewPaymentCapturedEvent(p.ID, p.MandateID, gatewayPaymentID, p.AmountPaise))
	case paymentmodel.StatusFailed:
		domainEvents = append(domainEvents, events.NewPaymentFailedEvent(p.ID, p.MandateID, p.AmountPaise, reason))
	}

	return true, domainEvents, nil
}
