package domain

import "time"

type Product struct {
	ProductID   string    `json:"productId" dynamodbav:"product_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Category    string    `json:"category" dynamodbav:"category"`
	Stock       int       `json:"stock" dynamodbav:"stock"`
	Image       string    `json:"image,omitempty" dynamodbav:"image,omitempty"`
	Brand       string    `json:"brand,omitempty" dynamodbav:"brand,omitempty"`
	Description string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero" dynamodbav:"created_at"`
}

// Catalog sort orders. Sorting applies to the fetched page only.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
)

// ProductQuery is the catalog list request after query-string parsing.
type ProductQuery struct {
	Search   string `json:"search,omitempty" validate:"omitempty,min=1,max=100"`
	Category string `json:"category,omitempty" validate:"omitempty,oneof=futbol baloncesto tenis running natacion ciclismo gimnasio yoga padel voleibol rugby"`
	Min      *int   `json:"min,omitempty" validate:"omitempty,min=0"`
	Max      *int   `json:"max,omitempty" validate:"omitempty,min=0"`
	Sort     string `json:"sort,omitempty" validate:"omitempty,oneof=price_asc price_desc name_asc name_desc"`
	PageSize int    `json:"pageSize" validate:"min=1,max=100"`
	Cursor   string `json:"cursor,omitempty"`
}

type ProductPage struct {
	Items      []Product `json:"items"`
	PageSize   int       `json:"pageSize"`
	CursorNext string    `json:"cursorNext,omitempty"`
}
