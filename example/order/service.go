package main

import (
	"context"

	elfaes "github.com/elfaes-go/elfaes"
)

// OrderService orchestrates command handling end to end: load, route
// to domain logic, save.
type OrderService struct {
	repo *OrderRepository
}

// NewOrderService wires a repository into a service.
func NewOrderService(repo *OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// Handle executes cmd against the order it targets, persisting any
// resulting events.
func (s *OrderService) Handle(ctx context.Context, cmd any, md elfaes.Metadata) error {
	id := orderIDOf(cmd)
	order, stream, err := s.repo.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := order.Handle(cmd); err != nil {
		return err
	}
	return s.repo.Save(ctx, stream, order, md)
}

func orderIDOf(cmd any) string {
	switch c := cmd.(type) {
	case OpenOrderCommand:
		return c.OrderID
	case AddLineCommand:
		return c.OrderID
	case CloseOrderCommand:
		return c.OrderID
	default:
		return ""
	}
}
