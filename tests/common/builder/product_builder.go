//go:build unit || e2e

package builder

import (
	"time"

	"storefront/internal/domain/catalog"
	reqdto "storefront/internal/handler/dto/request"
	"storefront/internal/usecase/commands"
	"storefront/internal/usecase/queries"
)

type OptionSpec struct {
	Name   string
	Values []string
}

type VariantSpec struct {
	SKU        string
	Attributes map[string]string
	Stock      int
	Price      int64
	Images     []string
}

type ProductBuilder struct {
	Title       string
	Description string
	Options     []OptionSpec
	Variants    []VariantSpec
	Now         time.Time
}

func NewProductBuilder() *ProductBuilder {
	return &ProductBuilder{
		Title:       "Classic Tee",
		Description: "100% cotton",
		Options: []OptionSpec{
			{Name: "size", Values: []string{"S", "M", "L"}},
			{Name: "color", Values: []string{"red", "blue"}},
		},
		Variants: []VariantSpec{
			{
				SKU:        "TEE-M-RED",
				Attributes: map[string]string{"size": "M", "color": "red"},
				Stock:      10,
				Price:      1999,
				Images:     []string{"https://cdn.example.com/tee-red.png", "https://cdn.example.com/tee-red-back.png"},
			},
		},
		Now: time.Now(),
	}
}

func (b *ProductBuilder) With(mutate func(*ProductBuilder)) *ProductBuilder {
	mutate(b)
	return b
}

func (b *ProductBuilder) WithTitle(title string) *ProductBuilder {
	b.Title = title
	return b
}

func (b *ProductBuilder) WithVariant(v VariantSpec) *ProductBuilder {
	b.Variants = append(b.Variants, v)
	return b
}

func (b *ProductBuilder) WithVariants(vs ...VariantSpec) *ProductBuilder {
	b.Variants = vs
	return b
}

func (b *ProductBuilder) WithStock(stock int) *ProductBuilder {
	for i := range b.Variants {
		b.Variants[i].Stock = stock
	}
	return b
}

func (b *ProductBuilder) WithPrice(price int64) *ProductBuilder {
	for i := range b.Variants {
		b.Variants[i].Price = price
	}
	return b
}

func (b *ProductBuilder) BuildDomain() (*catalog.Product, error) {
	options := make([]catalog.Option, 0, len(b.Options))
	for _, o := range b.Options {
		opt, err := catalog.NewOption(o.Name, o.Values)
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}

	variants := make([]catalog.Variant, 0, len(b.Variants))
	for _, v := range b.Variants {
		price, err := catalog.NewMoney(v.Price)
		if err != nil {
			return nil, err
		}
		variant, err := catalog.NewVariant(v.SKU, v.Attributes, v.Stock, price, v.Images)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}

	return catalog.NewProduct(b.Title, b.Description, options, variants, b.Now)
}

// MustBuildDomain is for fixtures whose validity is not under test.
func (b *ProductBuilder) MustBuildDomain() *catalog.Product {
	p, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	return p
}

func (b *ProductBuilder) BuildCreateCommand() commands.CreateProductRequest {
	req := commands.CreateProductRequest{
		Title:       b.Title,
		Description: b.Description,
	}
	for _, o := range b.Options {
		req.Options = append(req.Options, commands.OptionInput{Name: o.Name, Values: o.Values})
	}
	for _, v := range b.Variants {
		req.Variants = append(req.Variants, commands.VariantInput{
			SKU:        v.SKU,
			Attributes: v.Attributes,
			Stock:      v.Stock,
			Price:      v.Price,
			Images:     v.Images,
		})
	}
	return req
}

func (b *ProductBuilder) BuildCreateRequestDTO() reqdto.CreateProductRequest {
	req := reqdto.CreateProductRequest{
		Title:       b.Title,
		Description: b.Description,
	}
	for _, o := range b.Options {
		req.Options = append(req.Options, reqdto.OptionRequest{Name: o.Name, Values: o.Values})
	}
	for _, v := range b.Variants {
		stock := v.Stock
		price := v.Price
		req.Variants = append(req.Variants, reqdto.VariantRequest{
			SKU:        v.SKU,
			Attributes: v.Attributes,
			Stock:      &stock,
			Price:      &price,
			Images:     v.Images,
		})
	}
	return req
}

// BuildView renders the builder as the read model returned by product queries.
func (b *ProductBuilder) BuildView() (*queries.ProductView, error) {
	p, err := b.BuildDomain()
	if err != nil {
		return nil, err
	}
	return queries.ProductViewFromDomain(p), nil
}
