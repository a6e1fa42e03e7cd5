package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/dinecore/order-engine/internal/domains/loyalty/domain"
	"github.com/dinecore/order-engine/internal/domains/loyalty/ports"
)

var _ ports.Store = (*Store)(nil)

type accrual struct {
	programID string
	points    int64
}

// Store is an in-memory loyalty adapter.
type Store struct {
	mu           sync.Mutex
	programs     map[string]*domain.Program // by program ID
	byRestaurant map[string]string
	accruals     map[string]accrual // by order ID, exactly one per order
}

func NewStore() *Store {
	return &Store{
		programs:     map[string]*domain.Program{},
		byRestaurant: map[string]string{},
		accruals:     map[string]accrual{},
	}
}

func (s *Store) ActiveProgram(_ context.Context, restaurantID string) (*domain.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRestaurant[restaurantID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *s.programs[id]
	return &clone, nil
}

func (s *Store) RecordAccrual(_ context.Context, programID, orderID string, points int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accruals[orderID]; ok {
		// Points were already credited for this order.
		return nil
	}
	program, ok := s.programs[programID]
	if !ok {
		return ports.ErrNotFound
	}
	program.TotalPointsIssued += points
	s.accruals[orderID] = accrual{programID: programID, points: points}
	return nil
}

func (s *Store) Save(_ context.Context, program *domain.Program) (*domain.Program, error) {
	if program == nil {
		return nil, errors.New("program is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *program
	s.programs[clone.ID] = &clone
	s.byRestaurant[clone.RestaurantID] = clone.ID
	saved := clone
	return &saved, nil
}

type loyaltySnapshot struct {
	programs     map[string]*domain.Program
	byRestaurant map[string]string
	accruals     map[string]accrual
}

// Snapshot captures the store's state for the in-memory unit of work.
func (s *Store) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := loyaltySnapshot{
		programs:     make(map[string]*domain.Program, len(s.programs)),
		byRestaurant: make(map[string]string, len(s.byRestaurant)),
		accruals:     make(map[string]accrual, len(s.accruals)),
	}
	for id, program := range s.programs {
		clone := *program
		snap.programs[id] = &clone
	}
	for rid, id := range s.byRestaurant {
		snap.byRestaurant[rid] = id
	}
	for orderID, a := range s.accruals {
		snap.accruals[orderID] = a
	}
	return snap
}

// Restore rolls the store back to a previously captured snapshot.
func (s *Store) Restore(snapshot any) {
	snap, ok := snapshot.(loyaltySnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs = snap.programs
	s.byRestaurant = snap.byRestaurant
	s.accruals = snap.accruals
}
