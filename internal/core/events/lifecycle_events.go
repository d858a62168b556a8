package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeMandateConfirmed = "mandate.confirmed"
	EventTypeMandateFailed    = "mandate.failed"
	EventTypeMandateCancelled = "mandate.cancelled"
	EventTypePaymentCaptured  = "payment.captured"
	EventTypePaymentFailed    = "payment.failed"
)

type MandateConfirmedEvent struct {
	BaseEvent
	MandateID        int64  `json:"mandate_id"`
	CustomerID       int64  `json:"customer_id"`
	GatewayMandateID string `json:"gateway_mandate_id"`
}

func NewMandateConfirmedEvent(mandateID, customerID int64, gatewayMandateID string) *MandateConfirmedEvent {
	return &MandateConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeMandateConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"mandate_id":         mandateID,
				"customer_id":        customerID,
				"gateway_mandate_id": gatewayMandateID,
			},
		},
		MandateID:        mandateID,
		CustomerID:       customerID,
		GatewayMandateID: gatewayMandateID,
	}
}

type MandateFailedEvent struct {
	BaseEvent
	MandateID     int64  `json:"mandate_id"`
	CustomerID    int64  `json:"customer_id"`
	FailureReason string `json:"failure_reason"`
}

func NewMandateFailedEvent(mandateID, customerID int64, failureReason string) *MandateFailedEvent {
	return &MandateFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeMandateFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"mandate_id":     mandateID,
				"customer_id":    customerID,
				"failure_reason": failureReason,
			},
		},
		MandateID:     mandateID,
		CustomerID:    customerID,
		FailureReason: failureReason,
	}
}

type MandateCancelledEvent struct {
	BaseEvent
	MandateID  int64 `json:"mandate_id"`
	CustomerID int64 `json:"customer_id"`
}

func NewMandateCancelledEvent(mandateID, customerID int64) *MandateCancelledEvent {
	return &MandateCancelledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeMandateCancelled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"mandate_id":  mandateID,
				"customer_id": customerID,
			},
		},
		MandateID:  mandateID,
		CustomerID: customerID,
	}
}

type PaymentCapturedEvent struct {
	BaseEvent
	PaymentID        int64  `json:"payment_id"`
	MandateID        int64  `json:"mandate_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	AmountPaise      int64  `json:"amount_paise"`
}

func NewPaymentCapturedEvent(paymentID, mandateID int64, gatewayPaymentID string, amountPaise int64) *PaymentCapturedEvent {
	return &PaymentCapturedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCaptured,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":         paymentID,
				"mandate_id":         mandateID,
				"gateway_payment_id": gatewayPaymentID,
				"amount_paise":       amountPaise,
			},
		},
		PaymentID:        paymentID,
		MandateID:        mandateID,
		GatewayPaymentID: gatewayPaymentID,
		AmountPaise:      amountPaise,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	MandateID     int64  `json:"mandate_id"`
	AmountPaise   int64  `json:"amount_paise"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentFailedEvent(paymentID, mandateID, amountPaise int64, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"mandate_id":     mandateID,
				"amount_paise":   amountPaise,
				"failure_reason": failureReason,
			},
		},
		PaymentID:     paymentID,
		MandateID:     mandateID,
		AmountPaise:   amountPaise,
		FailureReason: failureReason,
	}
}
