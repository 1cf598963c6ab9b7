package cart

import "time"

type Item struct {
	ProductID string  `json:"productId"`
	StoreID   string  `json:"storeId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Cart struct {
	ID        string    `json:"cartId"`
	UserID    string    `json:"userId"`
	Items     []Item    `json:"items"`
	Total     float64   `json:"totalAmount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemsForStore returns the line items belonging to one store. A cart
// may span multiple stores; checkout consumes one store at a time.
func (c *Cart) ItemsForStore(storeID string) []Item {
	var out []Item
	for _, it := range c.Items {
		if it.StoreID == storeID {
			out = append(out, it)
		}
	}
	return out
}

func (c *Cart) recalcTotal() {
	total := 0.0
	for _, it := range c.Items {
		total += float64(it.Quantity) * it.Price
	}
	c.Total = total
}

// DetailItem is a line item resolved to catalog product detail.
type DetailItem struct {
	Item
	Name     string  `json:"name"`
	Subtotal float64 `json:"subtotal"`
}

type Detail struct {
	ID        string       `json:"cartId"`
	UserID    string       `json:"userId"`
	Items     []DetailItem `json:"items"`
	Total     float64      `json:"totalAmount"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
