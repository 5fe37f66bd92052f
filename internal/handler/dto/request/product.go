package request

import (
	"storefront/internal/pkg/patch"
	"storefront/internal/usecase/commands"
)

type OptionRequest struct {
	Name   string   `json:"name" binding:"required"`
	Values []string `json:"values" binding:"required,min=1,dive,required"`
}

type VariantRequest struct {
	SKU        string            `json:"sku" binding:"required,max=64"`
	Attributes map[string]string `json:"attributes"`
	Stock      *int              `json:"stock" binding:"required,min=0"`
	Price      *int64            `json:"price" binding:"required,min=0"`
	Images     []string          `json:"images" binding:"omitempty,dive,url"`
}

type CreateProductRequest struct {
	Title       string           `json:"title" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=5000"`
	Options     []OptionRequest  `json:"options" binding:"dive"`
	Variants    []VariantRequest `json:"variants" binding:"required,min=1,dive"`
}

type UpdateVariantRequest struct {
	Price      *int64             `json:"price" binding:"omitempty,min=0"`
	Stock      *int               `json:"stock" binding:"omitempty,min=0"`
	Images     *[]string          `json:"images"`
	Attributes *map[string]string `json:"attributes"`
}

func (r *CreateProductRequest) ToCommand() commands.CreateProductRequest {
	cmd := commands.CreateProductRequest{
		Title:       r.Title,
		Description: r.Description,
		Options:     make([]commands.OptionInput, 0, len(r.Options)),
		Variants:    make([]commands.VariantInput, 0, len(r.Variants)),
	}
	for _, o := range r.Options {
		cmd.Options = append(cmd.Options, commands.OptionInput{Name: o.Name, Values: o.Values})
	}
	for _, v := range r.Variants {
		cmd.Variants = append(cmd.Variants, commands.VariantInput{
			SKU:        v.SKU,
			Attributes: v.Attributes,
			Stock:      patch.Coalesce(v.Stock, 0),
			Price:      patch.Coalesce(v.Price, int64(0)),
			Images:     v.Images,
		})
	}
	return cmd
}

func (r *UpdateVariantRequest) ToCommand() commands.UpdateVariantRequest {
	return commands.UpdateVariantRequest{
		Price:      r.Price,
		Stock:      r.Stock,
		Images:     r.Images,
		Attributes: r.Attributes,
	}
}
