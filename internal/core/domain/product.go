package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64
	Name string
	Slug string
}

type Product struct {
	ID               int64
	Name             string
	Slug             string
	Category         *Category
	Price            decimal.Decimal
	Description      string
	ShortDescription string
	SKU              string
	Brand            string
	IsFeatured       bool
	IsVerified       bool
	Stock            int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductFilter narrows a catalog listing. Zero values disable a filter.
type ProductFilter struct {
	Query        string
	CategorySlug string
	VerifiedOnly bool
	InStockOnly  bool
	Page         int
	PageSize     int
}

// Offset returns the row offset for the 1-based Page.
func (f ProductFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

type ProductPage struct {
	Products   []Product
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

func (p ProductPage) HasNext() bool {
	return p.Page < p.TotalPages
}
