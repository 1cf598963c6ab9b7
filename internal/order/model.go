package order

import "time"

type Item struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is an immutable snapshot of purchase intent. Prices are captured
// at order time; only Status (and UpdatedAt) change afterwards.
type Order struct {
	ID          string    `json:"orderId"`
	UserID      string    `json:"userId"`
	StoreID     string    `json:"storeId"`
	Address     string    `json:"address"`
	Items       []Item    `json:"items"`
	TotalAmount float64   `json:"totalAmount"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UserSummary struct {
	ID    string `json:"userId"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type StoreSummary struct {
	ID      string `json:"storeId"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

type ItemDetail struct {
	Item
	Name string `json:"name,omitempty"`
}

// Detail is the track view: the order enriched with user and product
// summaries.
type Detail struct {
	Order    Order        `json:"order"`
	User     UserSummary  `json:"user"`
	Products []ItemDetail `json:"products"`
}

// AdminEntry is one row of the admin listing.
type AdminEntry struct {
	Order Order        `json:"order"`
	User  UserSummary  `json:"user"`
	Store StoreSummary `json:"store"`
}

type Dashboard struct {
	TotalOrders    int            `json:"totalOrders"`
	TotalRevenue   float64        `json:"totalRevenue"`
	OrdersByStatus map[Status]int `json:"ordersByStatus"`
}
