package dynamo

// DynamoDB attribute names used in key, update and filter expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID     = "user_id"
	fieldProductID  = "product_id"
	fieldOrderID    = "order_id"
	fieldName       = "name"
	fieldPrice      = "price"
	fieldCategory   = "category"
	fieldImage      = "image"
	fieldStock      = "stock"
	fieldQuantity   = "quantity"
	fieldPriceAtAdd = "price_at_add"
	fieldAddedAt    = "added_at"
	fieldUpdatedAt  = "updated_at"
)
