package inventory

import "time"

const (
	EventStockIncreased = "StockIncreased"
	EventStockDecreased = "StockDecreased"
)

type StockIncreased struct {
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	IncreasedAt time.Time `json:"increased_at"`
}

type StockDecreased struct {
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	DecreasedAt time.Time `json:"decreased_at"`
}
