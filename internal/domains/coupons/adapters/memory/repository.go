package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/dinecore/order-engine/internal/domains/coupons/domain"
	"github.com/dinecore/order-engine/internal/domains/coupons/ports"
)

var _ ports.Store = (*Store)(nil)

// Store is an in-memory coupon adapter. Codes are indexed per restaurant
// after normalization so lookups stay case-insensitive.
type Store struct {
	mu          sync.Mutex
	coupons     map[string]*domain.Coupon // by coupon ID
	byCode      map[string]string         // restaurantID + "/" + CODE -> coupon ID
	redemptions map[string]map[string]bool
}

func NewStore() *Store {
	return &Store{
		coupons:     map[string]*domain.Coupon{},
		byCode:      map[string]string{},
		redemptions: map[string]map[string]bool{},
	}
}

func (s *Store) FindByCode(_ context.Context, restaurantID, code string) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[codeKey(restaurantID, code)]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return s.coupons[id].Clone(), nil
}

func (s *Store) Consume(_ context.Context, couponID, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coupon, ok := s.coupons[couponID]
	if !ok {
		return ports.ErrNotFound
	}
	if s.redemptions[couponID][orderID] {
		// Already consumed by this order; replays are no-ops.
		return nil
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return domain.ErrCouponExhausted
	}
	coupon.UsedCount++
	if s.redemptions[couponID] == nil {
		s.redemptions[couponID] = map[string]bool{}
	}
	s.redemptions[couponID][orderID] = true
	return nil
}

func (s *Store) Save(_ context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	if coupon == nil {
		return nil, errors.New("coupon is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := coupon.Clone()
	clone.Code = domain.NormalizeCode(clone.Code)
	s.coupons[clone.ID] = clone
	s.byCode[codeKey(clone.RestaurantID, clone.Code)] = clone.ID
	return clone.Clone(), nil
}

func codeKey(restaurantID, code string) string {
	return restaurantID + "/" + domain.NormalizeCode(code)
}

type couponSnapshot struct {
	coupons     map[string]*domain.Coupon
	byCode      map[string]string
	redemptions map[string]map[string]bool
}

// Snapshot captures the store's state for the in-memory unit of work.
func (s *Store) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := couponSnapshot{
		coupons:     make(map[string]*domain.Coupon, len(s.coupons)),
		byCode:      make(map[string]string, len(s.byCode)),
		redemptions: make(map[string]map[string]bool, len(s.redemptions)),
	}
	for id, coupon := range s.coupons {
		snap.coupons[id] = coupon.Clone()
	}
	for key, id := range s.byCode {
		snap.byCode[key] = id
	}
	for id, orders := range s.redemptions {
		copied := make(map[string]bool, len(orders))
		for orderID := range orders {
			copied[orderID] = true
		}
		snap.redemptions[id] = copied
	}
	return snap
}

// Restore rolls the store back to a previously captured snapshot.
func (s *Store) Restore(snapshot any) {
	snap, ok := snapshot.(couponSnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons = snap.coupons
	s.byCode = snap.byCode
	s.redemptions = snap.redemptions
}
