package domain

import "time"

// CartLine is one (user, product) row. Quantity is always >= 1 and
// PriceAtAdd is frozen at first insertion.
type CartLine struct {
	UserID     string    `json:"userId" dynamodbav:"user_id"`
	ProductID  string    `json:"productId" dynamodbav:"product_id"`
	Quantity   int       `json:"quantity" dynamodbav:"quantity"`
	PriceAtAdd float64   `json:"priceAtAdd" dynamodbav:"price_at_add"`
	AddedAt    time.Time `json:"addedAt" dynamodbav:"added_at"`
	UpdatedAt  time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// CartItem is a cart line enriched with live catalog data.
type CartItem struct {
	CartLine
	Name         string   `json:"name,omitempty"`
	Image        string   `json:"image,omitempty"`
	CurrentPrice *float64 `json:"currentPrice,omitempty"`
	Stock        *int     `json:"stock,omitempty"`
}

type Cart struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

type AddCartItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=128"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

// CartUpdate is the outcome of setting a line quantity.
type CartUpdate struct {
	Deleted bool
	Line    *CartLine
}
