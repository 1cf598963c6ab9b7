package inventory

import "fmt"

type StockItem struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
}

type Line struct {
	ProductID string
	Quantity  int
}

// ShortStockError reports the offending line of a failed reservation.
type ShortStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *ShortStockError) Error() string {
	return fmt.Sprintf("requested %d of product %s, available %d", e.Requested, e.ProductID, e.Available)
}
