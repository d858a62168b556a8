package mandate

import "time"

// Status is the mandate lifecycle state. Transitions only move forward:
// pending -> processing -> confirmed|failed, confirmed -> cancelled.
// failed and cancelled are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusConfirmed  Status = "confirmed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Failure reason codes recorded when a mandate ends up failed.
const (
	ReasonCancelledBeforeDispatch = "cancelled_before_dispatch"
	ReasonGatewayRejected         = "gateway_rejected"
	ReasonRetryExhausted          = "retry_exhausted"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusConfirmed, StatusFailed},
	StatusConfirmed:  {StatusCancelled},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusCancelled
}

type Mandate struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	GatewayMandateID string     `json:"gateway_mandate_id,omitempty" gorm:"column:gateway_mandate_id;index"`
	CustomerID       int64      `json:"customer_id" gorm:"column:customer_id;not null;index"`
	AmountPaise      int64      `json:"amount_paise" gorm:"column:amount_paise;not null"`
	Currency         string     `json:"currency" gorm:"column:currency;default:INR"`
	Frequency        string     `json:"frequency" gorm:"column:frequency;not null"`
	Status           Status     `json:"status" gorm:"column:status;default:pending"`
	FailureReason    *string    `json:"failure_reason,omitempty" gorm:"column:failure_reason"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty" gorm:"column:confirmed_at"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Mandate) TableName() string {
	return "mandates"
}
