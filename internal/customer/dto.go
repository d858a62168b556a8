package customer

import (
	"time"

	"github.com/mukeshbadgujar/emandate-service/internal/core/common/validation"
	customermodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/customer"
)

// CreateCustomerDTO is the request payload for POST /customers.
type CreateCustomerDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
}

func (d *CreateCustomerDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("name", d.Name).Required().MaxLength(255)
	validator.Field("email", d.Email).Required().Email()
	validator.Field("contact", d.Contact).MaxLength(20)
	validator.Field("gstin", d.GSTIN).MaxLength(15)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CustomerView struct {
	ID                int64     `json:"id"`
	GatewayCustomerID string    `json:"gateway_customer_id,omitempty"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Contact           string    `json:"contact,omitempty"`
	GSTIN             string    `json:"gstin,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func ToView(c *customermodel.Customer) *CustomerView {
	return &CustomerView{
		ID:                c.ID,
		GatewayCustomerID: c.GatewayCustomerID,
		Name:              c.Name,
		Email:             c.Email,
		Contact:           c.Contact,
		GSTIN:             c.GSTIN,
		CreatedAt:         c.CreatedAt,
	}
}
