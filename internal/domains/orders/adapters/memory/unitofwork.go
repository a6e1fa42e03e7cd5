package memory

import (
	"context"
	"sync"

	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// Transactional is implemented by in-memory stores that can capture and
// restore their state, giving the development unit of work rollback
// semantics comparable to a database transaction.
type Transactional interface {
	Snapshot() any
	Restore(snapshot any)
}

// UnitOfWork serializes commits over the shared in-memory stores. On
// failure every participant is rolled back to its pre-transaction state,
// so a rejected completion leaves no partial billing behind.
type UnitOfWork struct {
	mu           sync.Mutex
	stores       ports.TxStores
	participants []Transactional
}

func NewUnitOfWork(stores ports.TxStores, participants ...Transactional) *UnitOfWork {
	return &UnitOfWork{stores: stores, participants: participants}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, stores ports.TxStores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	snapshots := make([]any, len(u.participants))
	for i, p := range u.participants {
		snapshots[i] = p.Snapshot()
	}
	if err := fn(ctx, u.stores); err != nil {
		for i, p := range u.participants {
			p.Restore(snapshots[i])
		}
		return err
	}
	return nil
}
