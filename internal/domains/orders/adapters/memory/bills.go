package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

var _ ports.BillStore = (*BillStore)(nil)

// BillStore keeps bills and per-restaurant number counters in memory.
type BillStore struct {
	mu       sync.Mutex
	bills    map[string]*domain.Bill // keyed by order ID, 1:1
	counters map[string]int64
}

func NewBillStore() *BillStore {
	return &BillStore{
		bills:    map[string]*domain.Bill{},
		counters: map[string]int64{},
	}
}

func (s *BillStore) AllocateNumber(_ context.Context, restaurantID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[restaurantID]++
	return s.counters[restaurantID], nil
}

func (s *BillStore) Save(_ context.Context, bill *domain.Bill) (*domain.Bill, error) {
	if bill == nil {
		return nil, errors.New("bill is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[bill.OrderID]; ok {
		return nil, fmt.Errorf("bill already exists for order %s", bill.OrderID)
	}
	s.bills[bill.OrderID] = bill.Clone()
	return bill.Clone(), nil
}

func (s *BillStore) GetByOrderID(_ context.Context, orderID string) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[orderID]
	if !ok {
		return nil, ports.ErrBillNotFound
	}
	return bill.Clone(), nil
}

func (s *BillStore) MarkPaid(_ context.Context, orderID string, at time.Time) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[orderID]
	if !ok {
		return nil, ports.ErrBillNotFound
	}
	if err := bill.MarkPaid(at); err != nil {
		return nil, err
	}
	return bill.Clone(), nil
}

type billSnapshot struct {
	bills    map[string]*domain.Bill
	counters map[string]int64
}

// Snapshot captures bills and counters for the in-memory unit of work.
func (s *BillStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := billSnapshot{
		bills:    make(map[string]*domain.Bill, len(s.bills)),
		counters: make(map[string]int64, len(s.counters)),
	}
	for id, bill := range s.bills {
		snap.bills[id] = bill.Clone()
	}
	for id, n := range s.counters {
		snap.counters[id] = n
	}
	return snap
}

// Restore rolls the store back to a previously captured snapshot.
func (s *BillStore) Restore(snapshot any) {
	snap, ok := snapshot.(billSnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills = snap.bills
	s.counters = snap.counters
}
