package postgres

import (
	"time"

	"gorm.io/gorm"

	webhookmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/webhook"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create relies on the unique index on gateway_event_id; a duplicate
// surfaces as gorm.ErrDuplicatedKey for the caller to treat as a replay.
func (r *EventRepository) Create(e *webhookmodel.Event) error {
	return r.db.Create(e).Error
}

// MarkProcessed stamps the processing outcome on a recorded event. note is
// stored when no transition was applied.
func (r *EventRepository) MarkProcessed(id int64, applied bool, note string) error {
	updates := map[string]interface{}{
		"applied":      applied,
		"processed_at": time.Now().UTC(),
	}
	if note != "" {
		updates["processing_error"] = note
	}
	return r.db.Model(&webhookmodel.Event{}).Where("id = ?", id).Updates(updates).Error
}

func (r *EventRepository) GetByGatewayEventID(gatewayEventID string) (*webhookmodel.Event, error) {
	var e webhookmodel.Event
	err := r.db.Where("gateway_event_id = ?", gatewayEventID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) List(limit, offset int) ([]*webhookmodel.Event, error) {
	var events []*webhookmodel.Event
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, err
}
