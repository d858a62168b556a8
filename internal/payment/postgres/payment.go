package postgres

import (
	"time"

	"gorm.io/gorm"

	paymentmodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/payment"
	paymentpkg "github.com/mukeshbadgujar/emandate-service/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *paymentmodel.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id int64) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayID(gatewayPaymentID string) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByMandateID(mandateID int64, limit, offset int) ([]*paymentmodel.Payment, error) {
	var payments []*paymentmodel.Payment
	err := r.db.Where("mandate_id = ?", mandateID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	return payments, err
}

// Transition applies the same compare-and-swap status update the mandate
// repository uses. captured_at is stamped when the payment settles.
func (r *PaymentRepository) Transition(id int64, from, to paymentmodel.Status, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	if to == paymentmodel.StatusCaptured {
		updates["captured_at"] = time.Now().UTC()
	}

	result := r.db.Model(&paymentmodel.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
