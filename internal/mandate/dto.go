package mandate

import (
	"time"

	errors "github.com/mukeshbadgujar/emandate-service/internal"
	"github.com/mukeshbadgujar/emandate-service/internal/core/common/validation"
	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
)

// AuthorizeMandateDTO is the request payload for POST /mandates.
type AuthorizeMandateDTO struct {
	CustomerID  int64  `json:"customer_id"`
	AmountPaise int64  `json:"amount_paise"`
	Frequency   string `json:"frequency"`
}

func (d *AuthorizeMandateDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("customer_id", d.CustomerID).Required()
	validator.Field("amount_paise", d.AmountPaise).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	validator.Field("frequency", d.Frequency).Required().OneOf(validation.AllowedFrequencies, errors.ErrCodeInvalidFrequency)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// AuthorizeJobPayload is what rides through the dispatcher for
// authorization jobs.
type AuthorizeJobPayload struct {
	MandateID int64 `json:"mandate_id"`
}

// MandateView is the outward-facing shape: current status and reason codes
// only, never raw gateway internals.
type MandateView struct {
	ID               int64      `json:"id"`
	CustomerID       int64      `json:"customer_id"`
	GatewayMandateID string     `json:"gateway_mandate_id,omitempty"`
	AmountPaise      int64      `json:"amount_paise"`
	Currency         string     `json:"currency"`
	Frequency        string     `json:"frequency"`
	Status           string     `json:"status"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func ToView(m *mandatemodel.Mandate) *MandateView {
	return &MandateView{
		ID:               m.ID,
		CustomerID:       m.CustomerID,
		GatewayMandateID: m.GatewayMandateID,
		AmountPaise:      m.AmountPaise,
		Currency:         m.Currency,
		Frequency:        m.Frequency,
		Status:           string(m.Status),
		FailureReason:    m.FailureReason,
		ConfirmedAt:      m.ConfirmedAt,
		CreatedAt:        m.CreatedAt,
	}
}

// AuthorizeResponse carries the new mandate plus the async job handle.
type AuthorizeResponse struct {
	Mandate *MandateView `json:"mandate"`
	JobID   string       `json:"job_id"`
}

// ValidateResponse is the read-only confirmation gate result.
type ValidateResponse struct {
	MandateID int64  `json:"mandate_id"`
	Status    string `json:"status"`
	Valid     bool   `json:"valid"`
}
