package domain

import "time"

// OrderStatusCreated is the only status an order ever has.
const OrderStatusCreated = "CREATED"

type OrderItem struct {
	ProductID string  `json:"productId" dynamodbav:"product_id"`
	Quantity  int     `json:"quantity" dynamodbav:"quantity"`
	Price     float64 `json:"price" dynamodbav:"price"`
	Subtotal  float64 `json:"subtotal" dynamodbav:"subtotal"`
}

// Order is immutable once written.
type Order struct {
	UserID    string      `json:"userId" dynamodbav:"user_id"`
	OrderID   string      `json:"orderId" dynamodbav:"order_id"`
	Items     []OrderItem `json:"items" dynamodbav:"items"`
	Total     float64     `json:"total" dynamodbav:"total"`
	Status    string      `json:"status" dynamodbav:"status"`
	CreatedAt time.Time   `json:"createdAt" dynamodbav:"created_at"`
}

type OrderPage struct {
	Items      []Order `json:"items"`
	PageSize   int     `json:"pageSize"`
	CursorNext string  `json:"cursorNext,omitempty"`
}

// Email is a rendered message handed to a notification transport.
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}
