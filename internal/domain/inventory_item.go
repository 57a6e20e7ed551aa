package domain

// LowStockThreshold marks items the merchant should restock
const LowStockThreshold = 5

// InventoryItem represents one sellable part
type InventoryItem struct {
	ID          string  `json:"id"`
	PartNumber  string  `json:"part_number"`
	Name        string  `json:"name"`
	Origin      Origin  `json:"origin"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
	CustomerRef string  `json:"customer_ref,omitempty"`
}

// LowStock reports whether the quantity is below the restock threshold
func (i InventoryItem) LowStock() bool {
	return i.Quantity < LowStockThreshold
}
