package payment

import (
	"context"
	"fmt"
	"sync"
)

// FakeGateway is an in-memory Gateway for tests and local runs without
// processor credentials. Orders start as "created"; MarkPaid settles them.
type FakeGateway struct {
	mu     sync.Mutex
	orders map[string]*Order
	seq    int
	// FailCreate makes CreateOrder return this error when set.
	FailCreate error
	// FailFetch makes FetchOrder return this error when set.
	FailFetch error
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{orders: make(map[string]*Order)}
}

func (f *FakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate != nil {
		return nil, f.FailCreate
	}
	f.seq++
	o := &Order{ID: fmt.Sprintf("order_fake_%d", f.seq), Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}
	f.orders[o.ID] = o
	copied := *o
	return &copied, nil
}

func (f *FakeGateway) FetchOrder(_ context.Context, orderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailFetch != nil {
		return nil, f.FailFetch
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	copied := *o
	return &copied, nil
}

// MarkPaid settles an order previously returned by CreateOrder.
func (f *FakeGateway) MarkPaid(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok {
		o.Status = StatusPaid
	}
}
