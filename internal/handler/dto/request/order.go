package request

import (
	"storefront/internal/domain/order"
)

type ShippingAddressRequest struct {
	Street  string `json:"street" binding:"required,max=200"`
	City    string `json:"city" binding:"required,max=100"`
	State   string `json:"state" binding:"required,max=100"`
	Zip     string `json:"zip" binding:"required,max=20"`
	Country string `json:"country" binding:"required,max=100"`
}

type CreateOrderRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shippingAddress" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (r *ShippingAddressRequest) ToDomain() order.ShippingAddress {
	return order.ShippingAddress{
		Street:  r.Street,
		City:    r.City,
		State:   r.State,
		Zip:     r.Zip,
		Country: r.Country,
	}
}
