package request

import "github.com/google/uuid"

type AddCartItemRequest struct {
	ProductID  uuid.UUID `json:"productId" binding:"required"`
	VariantSKU string    `json:"variantSku" binding:"required,max=64"`
	Quantity   int       `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}
