// Command order is a runnable walkthrough of the elfaes core: opening
// an order, adding lines, closing it, and reloading it from storage
// with snapshotting and config-driven policy resolution wired in.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	elfaes "github.com/elfaes-go/elfaes"
	"github.com/elfaes-go/elfaes/config"
	"github.com/elfaes-go/elfaes/logging"
	"github.com/elfaes-go/elfaes/policy/snapshot"
	"github.com/elfaes-go/elfaes/stores/mem"
)

func main() {
	ctx := context.Background()

	cfg := config.New(
		config.WithDefaultSnapshotPolicy(snapshot.Policy{
			Every:                   2,
			OnEvents:                map[string]struct{}{"OrderClosed": {}},
			KeepSnapshots:           3,
			MinEventsBeforeSnapshot: 1,
			Enabled:                 true,
		}),
		config.WithSnapshotTimeout(2*time.Second),
	)

	store := mem.New()
	registry := elfaes.NewRegistry()
	if err := registry.Register("OrderOpened", 1, elfaes.TypeInfo{Factory: func() any { return &OrderOpened{} }, CodecHint: "json"}); err != nil {
		log.Fatal(err)
	}
	if err := registry.Register("LineAdded", 1, elfaes.TypeInfo{Factory: func() any { return &LineAdded{} }, CodecHint: "json"}); err != nil {
		log.Fatal(err)
	}
	if err := registry.Register("OrderClosed", 1, elfaes.TypeInfo{Factory: func() any { return &OrderClosed{} }, CodecHint: "json"}); err != nil {
		log.Fatal(err)
	}

	resolver := cfg.SnapshotResolver()
	policy := resolver.Resolve("Order", "Order", nil)

	repo := NewOrderRepository(store, store, store.Snapshots(), registry, policy, elfaes.NoopNotifier{}, cfg.SnapshotTimeout)
	svc := NewOrderService(repo)

	logger := logging.Std()
	id := uuid.NewString()
	md := elfaes.Metadata{"tenant_id": "t1", "user_id": "u1"}

	must(svc.Handle(ctx, OpenOrderCommand{OrderID: id, Customer: "Taro"}, md))
	must(svc.Handle(ctx, AddLineCommand{OrderID: id, SKU: "sku-1", Quantity: 2, UnitPrice: decimal.NewFromFloat(9.99)}, md))
	must(svc.Handle(ctx, AddLineCommand{OrderID: id, SKU: "sku-2", Quantity: 1, UnitPrice: decimal.NewFromFloat(49.50)}, md))
	must(svc.Handle(ctx, CloseOrderCommand{OrderID: id}, md))

	order, _, err := repo.Load(ctx, id)
	must(err)

	logger.Info(ctx, "order reloaded", logging.String("orderId", order.ID), logging.Any("total", order.Total.String()))
	fmt.Printf("order %s for %s: total=%s closed=%t lines=%d\n", order.ID, order.Customer, order.Total.String(), order.Closed, len(order.Lines))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
