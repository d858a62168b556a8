package payment

import "time"

// Status is the payment lifecycle state: pending -> processing ->
// captured|failed, pending -> failed. captured and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

const (
	ReasonCancelledBeforeDispatch = "cancelled_before_dispatch"
	ReasonGatewayRejected         = "gateway_rejected"
	ReasonRetryExhausted          = "retry_exhausted"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCaptured, StatusFailed},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCaptured || s == StatusFailed
}

type Payment struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty" gorm:"column:gateway_payment_id;index"`
	MandateID        int64      `json:"mandate_id" gorm:"column:mandate_id;not null;index"`
	CustomerID       int64      `json:"customer_id" gorm:"column:customer_id;not null;index"`
	AmountPaise      int64      `json:"amount_paise" gorm:"column:amount_paise;not null"`
	Currency         string     `json:"currency" gorm:"column:currency;default:INR"`
	Receipt          string     `json:"receipt,omitempty" gorm:"column:receipt"`
	IdempotencyKey   string     `json:"idempotency_key" gorm:"column:idempotency_key;not null;uniqueIndex"`
	Status           Status     `json:"status" gorm:"column:status;default:pending"`
	FailureReason    *string    `json:"failure_reason,omitempty" gorm:"column:failure_reason"`
	CapturedAt       *time.Time `json:"captured_at,omitempty" gorm:"column:captured_at"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}
