package customer

import "time"

type Customer struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	GatewayCustomerID string    `json:"gateway_customer_id" gorm:"column:gateway_customer_id;uniqueIndex"`
	Name              string    `json:"name" gorm:"column:name;not null"`
	Email             string    `json:"email" gorm:"column:email;not null;uniqueIndex"`
	Contact           string    `json:"contact" gorm:"column:contact"`
	GSTIN             string    `json:"gstin,omitempty" gorm:"column:gstin"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Customer) TableName() string {
	return "customers"
}
