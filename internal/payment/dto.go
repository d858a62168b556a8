package payment

import (
	"time"

	errors "github.com/mukeshbadgujar/emandate-service/internal"
	"github.com/mukeshbadgujar/emandate-service/internal/core/common/validation"
	paymentmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/payment"
)

// CreatePaymentDTO is the request payload for POST /payments.
type CreatePaymentDTO struct {
	MandateID   int64  `json:"mandate_id"`
	AmountPaise int64  `json:"amount_paise"`
	Receipt     string `json:"receipt,omitempty"`
}

func (d *CreatePaymentDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("mandate_id", d.MandateID).Required()
	validator.Field("amount_paise", d.AmountPaise).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	validator.Field("receipt", d.Receipt).MaxLength(255)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ChargeJobPayload rides through the dispatcher for charge jobs.
type ChargeJobPayload struct {
	PaymentID int64 `json:"payment_id"`
}

type PaymentView struct {
	ID               int64      `json:"id"`
	MandateID        int64      `json:"mandate_id"`
	CustomerID       int64      `json:"customer_id"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	AmountPaise      int64      `json:"amount_paise"`
	Currency         string     `json:"currency"`
	Receipt          string     `json:"receipt,omitempty"`
	Status           string     `json:"status"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	CapturedAt       *time.Time `json:"captured_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func ToView(p *paymentmodel.Payment) *PaymentView {
	return &PaymentView{
		ID:               p.ID,
		MandateID:        p.MandateID,
		CustomerID:       p.CustomerID,
		GatewayPaymentID: p.GatewayPaymentID,
		AmountPaise:      p.AmountPaise,
		Currency:         p.Currency,
		Receipt:          p.Receipt,
		Status:           string(p.Status),
		FailureReason:    p.FailureReason,
		CapturedAt:       p.CapturedAt,
		CreatedAt:        p.CreatedAt,
	}
}

type CreatePaymentResponse struct {
	Payment *PaymentView `json:"payment"`
	JobID   string       `json:"job_id"`
}
