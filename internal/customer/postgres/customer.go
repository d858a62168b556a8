package postgres

import (
	"gorm.io/gorm"

	customermodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/customer"
	customerpkg "github.com/mukeshbadgujar/emandate-service/internal/customer"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) customerpkg.RepositoryAPI {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(c *customermodel.Customer) error {
	return r.db.Create(c).Error
}

func (r *CustomerRepository) GetByID(id int64) (*customermodel.Customer, error) {
	var c customermodel.Customer
	err := r.db.First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) GetByEmail(email string) (*customermodel.Customer, error) {
	var c customermodel.Customer
	err := r.db.Where("email = ?", email).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) List(limit, offset int) ([]*customermodel.Customer, error) {
	var customers []*customermodel.Customer
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&customers).Error
	return customers, err
}
