package models

import "gorm.io/gorm"

// Trade is the write-once record of a completed sell, keyed by the
// exchange-assigned order id.
type Trade struct {
	gorm.Model
	OrderID       int64   `json:"order_id" gorm:"uniqueIndex"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	Quantity      float64 `json:"quantity"`
	QuoteQuantity float64 `json:"quote_quantity"`
	Status        string  `json:"status"`
	Timestamp     int64   `json:"timestamp"`
}
