package main

import "github.com/shopspring/decimal"

// OpenOrderCommand is the intent to start a new order for a customer.
type OpenOrderCommand struct {
	OrderID  string
	Customer string
}

// AddLineCommand is the intent to add a line item to an open order.
type AddLineCommand struct {
	OrderID   string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CloseOrderCommand is the intent to finalize an order.
type CloseOrderCommand struct {
	OrderID string
}
