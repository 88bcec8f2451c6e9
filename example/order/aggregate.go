package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	elfaes "github.com/elfaes-go/elfaes"
)

// Line is one priced item on an order.
type Line struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// namedPayload is the minimal shape record needs: a payload that names
// its own wire event type, matching elfaes.EventTyper.
type namedPayload interface {
	EventType() string
}

// Order is the aggregate root: its state is the fold of OrderOpened,
// LineAdded, and OrderClosed events. It embeds elfaes.Base for the
// version-counter/applier boilerplate and supplies the actual state
// transition as the applier function wired up in NewOrder.
type Order struct {
	elfaes.Base

	ID       string
	Customer string
	Lines    []Line
	Total    decimal.Decimal
	Closed   bool

	opened  bool
	pending []namedPayload
}

// NewOrder returns an Order ready to have commands handled against it
// or events folded into it.
func NewOrder() *Order {
	o := &Order{}
	o.Init(o.applyEvent)
	return o
}

// Pending returns events recorded by Handle but not yet saved.
func (o *Order) Pending() []namedPayload { return o.pending }

// ClearPending drops the pending buffer after a successful save.
func (o *Order) ClearPending() { o.pending = nil }

// Handle routes a command to domain logic, recording the resulting event(s).
func (o *Order) Handle(cmd any) error {
	switch c := cmd.(type) {
	case OpenOrderCommand:
		if o.opened {
			return fmt.Errorf("order %s already opened", o.ID)
		}
		if c.OrderID == "" {
			return fmt.Errorf("empty order id")
		}
		o.record(OrderOpened{OrderID: c.OrderID, Customer: c.Customer})
		return nil

	case AddLineCommand:
		if !o.opened {
			return fmt.Errorf("order not opened")
		}
		if o.Closed {
			return fmt.Errorf("order %s is closed", o.ID)
		}
		if c.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive")
		}
		o.record(LineAdded{SKU: c.SKU, Quantity: c.Quantity, UnitPrice: c.UnitPrice})
		return nil

	case CloseOrderCommand:
		if !o.opened {
			return fmt.Errorf("order not opened")
		}
		if o.Closed {
			return nil
		}
		o.record(OrderClosed{})
		return nil
	}
	return fmt.Errorf("unknown command type %T", cmd)
}

// record applies payload to the in-memory state immediately (so
// subsequent commands in the same Handle batch see consistent state)
// and stages it for Save.
func (o *Order) record(payload namedPayload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("order event payloads must marshal cleanly: %v", err))
	}
	o.pending = append(o.pending, payload)
	o.Apply(elfaes.NewEvent(payload.EventType(), 1, raw))
}

// applyEvent is Order's state transition, wired as Base's applier: it
// folds a single committed or staged event into state.
func (o *Order) applyEvent(e elfaes.Event) {
	switch e.EventType {
	case "OrderOpened":
		var ev OrderOpened
		if err := json.Unmarshal(e.Payload, &ev); err != nil {
			return
		}
		o.ID = ev.OrderID
		o.Customer = ev.Customer
		o.opened = true
	case "LineAdded":
		var ev LineAdded
		if err := json.Unmarshal(e.Payload, &ev); err != nil {
			return
		}
		o.Lines = append(o.Lines, Line{SKU: ev.SKU, Quantity: ev.Quantity, UnitPrice: ev.UnitPrice})
		o.Total = o.Total.Add(ev.UnitPrice.Mul(decimal.NewFromInt(int64(ev.Quantity))))
	case "OrderClosed":
		o.Closed = true
	}
}

var _ elfaes.Aggregate = (*Order)(nil)
