package main

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	elfaes "github.com/elfaes-go/elfaes"
)

// orderSnapshot is the persisted shape stored by SnapshotStore.Put.
type orderSnapshot struct {
	ID       string          `json:"id"`
	Customer string          `json:"customer"`
	Lines    []Line          `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Closed   bool            `json:"closed"`
	Version  int64           `json:"version"`
}

// SnapshotState serializes the order's current state.
func (o *Order) SnapshotState() ([]byte, error) {
	return json.Marshal(orderSnapshot{
		ID:       o.ID,
		Customer: o.Customer,
		Lines:    o.Lines,
		Total:    o.Total,
		Closed:   o.Closed,
		Version:  o.Version(),
	})
}

// RestoreSnapshot rehydrates state from a previously captured blob.
func (o *Order) RestoreSnapshot(data []byte) error {
	var s orderSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.ID = s.ID
	o.Customer = s.Customer
	o.Lines = s.Lines
	o.Total = s.Total
	o.Closed = s.Closed
	o.opened = s.ID != ""
	o.SetVersion(s.Version)
	return nil
}

var (
	_ elfaes.SnapshotProducer = (*Order)(nil)
	_ elfaes.SnapshotRestorer = (*Order)(nil)
)
