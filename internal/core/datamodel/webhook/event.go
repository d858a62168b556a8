package webhook

import (
	"encoding/json"
	"time"
)

// Event is an append-only record of a provider callback. GatewayEventID is
// the dedup key: the unique index enforces at-most-once effect application
// for redelivered events.
type Event struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	GatewayEventID  string          `json:"gateway_event_id" gorm:"column:gateway_event_id;not null;uniqueIndex"`
	EventType       string          `json:"event_type" gorm:"column:event_type;not null"`
	Payload         json.RawMessage `json:"payload" gorm:"column:payload;type:jsonb"`
	Applied         bool            `json:"applied" gorm:"column:applied;default:false"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty" gorm:"column:processed_at"`
	ProcessingError *string         `json:"processing_error,omitempty" gorm:"column:processing_error"`
	CreatedAt       time.Time       `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Event) TableName() string {
	return "webhook_events"
}
