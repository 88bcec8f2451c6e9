package main

import "github.com/shopspring/decimal"

// OrderOpened is emitted when a new order is created for a customer.
type OrderOpened struct {
	OrderID  string `json:"orderId"`
	Customer string `json:"customer"`
}

func (OrderOpened) EventType() string { return "OrderOpened" }

// LineAdded is emitted when a line item is added to an open order.
type LineAdded struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (LineAdded) EventType() string { return "LineAdded" }

// OrderClosed is emitted when an order is finalized and accepts no further lines.
type OrderClosed struct{}

func (OrderClosed) EventType() string { return "OrderClosed" }
