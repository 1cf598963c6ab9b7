package events

const (
	OrderCreatedName    = "OrderCreated"
	OrderCreatedVersion = 1

	OrderCancelledName    = "OrderCancelled"
	OrderCancelledVersion = 1
)

type OrderLine struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderCreated announces a freshly committed order. Consumers key on
// the store for per-vendor fan-out.
type OrderCreated struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	StoreID     string      `json:"storeId"`
	TotalAmount float64     `json:"totalAmount"`
	Items       []OrderLine `json:"items"`
}

// OrderCancelled announces a cancellation; the quantities have already
// been returned to the ledger when this is published.
type OrderCancelled struct {
	OrderID string      `json:"orderId"`
	UserID  string      `json:"userId"`
	StoreID string      `json:"storeId"`
	Items   []OrderLine `json:"items"`
}
