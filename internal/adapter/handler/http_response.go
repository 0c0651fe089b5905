package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type statusResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// cartMutationResponse is the body every AJAX cart mutation answers with.
type cartMutationResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	CartCount  int    `json:"cart_count"`
	CartItems  int    `json:"cart_items"`
	Quantity   int    `json:"quantity"`
	Subtotal   string `json:"subtotal,omitempty"`
	TotalPrice string `json:"total_price"`
	Adjusted   bool   `json:"adjusted,omitempty"`
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type productResponse struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	Category         *categoryResponse `json:"category,omitempty"`
	Price            string            `json:"price"`
	Description      string            `json:"description,omitempty"`
	ShortDescription string            `json:"short_description,omitempty"`
	SKU              string            `json:"sku,omitempty"`
	Brand            string            `json:"brand,omitempty"`
	IsFeatured       bool              `json:"is_featured"`
	IsVerified       bool              `json:"is_verified"`
	Stock            int               `json:"stock"`
	InStock          bool              `json:"in_stock"`
}

type cartLineResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	Items      []cartLineResponse `json:"items"`
	TotalPrice string             `json:"total_price"`
	CartCount  int                `json:"cart_count"`
	CartItems  int                `json:"cart_items"`
	Messages   []domain.Message   `json:"messages,omitempty"`
}

type orderItemResponse struct {
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      string `json:"price"`
	TotalPrice string `json:"total_price"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Status          domain.OrderStatus  `json:"status"`
	TotalPrice      string              `json:"total_price"`
	ItemsCount      int                 `json:"items_count"`
	Items           []orderItemResponse `json:"items"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	BillingAddress  string              `json:"billing_address,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toProductResponse(p domain.Product) productResponse {
	out := productResponse{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Price:            money(p.Price),
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		SKU:              p.SKU,
		Brand:            p.Brand,
		IsFeatured:       p.IsFeatured,
		IsVerified:       p.IsVerified,
		Stock:            p.Stock,
		InStock:          p.InStock(),
	}
	if p.Category != nil {
		out.Category = &categoryResponse{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	return out
}

func toProductResponses(ps []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toCategoryResponses(cs []domain.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	return out
}

func toCartResponse(v service.CartView, msgs []domain.Message) cartResponse {
	out := cartResponse{
		Items:      make([]cartLineResponse, 0, len(v.Lines)),
		TotalPrice: money(v.Total),
		CartCount:  v.Count,
		CartItems:  v.Items,
		Messages:   msgs,
	}
	for _, ln := range v.Lines {
		out.Items = append(out.Items, cartLineResponse{
			ProductID: ln.Product.ID,
			Name:      ln.Product.Name,
			Price:     money(ln.Product.Price),
			Quantity:  ln.Quantity,
			Stock:     ln.Product.Stock,
			Subtotal:  money(ln.Subtotal),
		})
	}
	return out
}

func toOrderResponse(o *domain.Order) orderResponse {
	out := orderResponse{
		ID:              o.ID,
		Status:          o.Status,
		TotalPrice:      money(o.TotalPrice),
		ItemsCount:      o.ItemsCount(),
		Items:           make([]orderItemResponse, 0, len(o.Items)),
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			ProductID:  it.ProductID,
			Name:       it.ProductName,
			Quantity:   it.Quantity,
			Price:      money(it.Price),
			TotalPrice: money(it.TotalPrice()),
		})
	}
	return out
}

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}
