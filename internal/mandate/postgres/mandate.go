package postgres

import (
	"time"

	"gorm.io/gorm"

	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
	mandatepkg "github.com/mukeshbadgujar/emandate-service/internal/mandate"
)

type MandateRepository struct {
	db *gorm.DB
}

func NewMandateRepository(db *gorm.DB) mandatepkg.RepositoryAPI {
	return &MandateRepository{db: db}
}

func (r *MandateRepository) Create(m *mandatemodel.Mandate) error {
	return r.db.Create(m).Error
}

func (r *MandateRepository) GetByID(id int64) (*mandatemodel.Mandate, error) {
	var m mandatemodel.Mandate
	err := r.db.First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MandateRepository) GetByGatewayID(gatewayMandateID string) (*mandatemodel.Mandate, error) {
	var m mandatemodel.Mandate
	err := r.db.Where("gateway_mandate_id = ?", gatewayMandateID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MandateRepository) GetByCustomerID(customerID int64, limit, offset int) ([]*mandatemodel.Mandate, error) {
	var mandates []*mandatemodel.Mandate
	err := r.db.Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&mandates).Error
	return mandates, err
}

// Transition applies a compare-and-swap status update. The WHERE clause on
// the current status serializes concurrent writers: only one of two racing
// workers sees RowsAffected == 1.
func (r *MandateRepository) Transition(id int64, from, to mandatemodel.Status, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	if to == mandatemodel.StatusConfirmed {
		updates["confirmed_at"] = time.Now().UTC()
	}

	result := r.db.Model(&mandatemodel.Mandate{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
