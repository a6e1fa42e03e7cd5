package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore is an in-memory order persistence adapter for development and
// tests.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: map[string]*domain.Order{}}
}

func (s *OrderStore) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return nil, fmt.Errorf("order %s already exists", order.ID)
	}
	s.orders[order.ID] = order.Clone()
	return order.Clone(), nil
}

func (s *OrderStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, order *domain.Order, expected domain.Status) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[order.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if current.Status != expected {
		return nil, ports.ErrStatusConflict
	}
	s.orders[order.ID] = order.Clone()
	return order.Clone(), nil
}

// Snapshot captures the store's state for the in-memory unit of work.
func (s *OrderStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copy := make(map[string]*domain.Order, len(s.orders))
	for id, order := range s.orders {
		copy[id] = order.Clone()
	}
	return copy
}

// Restore rolls the store back to a previously captured snapshot.
func (s *OrderStore) Restore(snapshot any) {
	orders, ok := snapshot.(map[string]*domain.Order)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
}
