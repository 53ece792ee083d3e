package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// QuotaGate decides whether a user may run a job and records completed ones.
type QuotaGate struct {
	store      ports.UserStore
	dailyLimit int
	now        func() time.Time

	mu     sync.Mutex
	active map[int64]struct{}
}

// NewQuotaGate creates a gate allowing dailyLimit jobs per calendar day to non-premium users.
func NewQuotaGate(store ports.UserStore, dailyLimit int) *QuotaGate {
	return &QuotaGate{
		store:      store,
		dailyLimit: dailyLimit,
		now:        time.Now,
		active:     make(map[int64]struct{}),
	}
}

func (g *QuotaGate) today() string {
	return domain.DateKey(g.now())
}

// Check reports whether userID may start a job now. It never writes.
func (g *QuotaGate) Check(ctx context.Context, userID int64) (bool, error) {
	ok, err := g.store.CanTranslate(ctx, userID, g.today(), g.dailyLimit)
	if err != nil {
		return false, domain.StorageError("check quota", err)
	}
	return ok, nil
}

// Commit counts one completed job for userID today.
func (g *QuotaGate) Commit(ctx context.Context, userID int64) error {
	if err := g.store.RecordSuccess(ctx, userID, g.today()); err != nil {
		return domain.StorageError("commit quota", err)
	}
	return nil
}

// Lease is the exclusive right of one user to run one job.
type Lease struct {
	gate   *QuotaGate
	userID int64
	once   sync.Once
}

// Begin reserves the user's job slot and checks the quota under it, so that two
// requests from one user cannot both pass Check before either commits.
// The caller must Release the lease.
func (g *QuotaGate) Begin(ctx context.Context, userID int64) (*Lease, error) {
	g.mu.Lock()
	if _, busy := g.active[userID]; busy {
		g.mu.Unlock()
		return nil, domain.ErrJobInProgress
	}
	g.active[userID] = struct{}{}
	g.mu.Unlock()

	lease := &Lease{gate: g, userID: userID}
	ok, err := g.Check(ctx, userID)
	if err != nil {
		lease.Release()
		return nil, err
	}
	if !ok {
		lease.Release()
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrQuotaExceeded)
	}
	return lease, nil
}

// Commit records the successful job held by the lease.
func (l *Lease) Commit(ctx context.Context) error {
	return l.gate.Commit(ctx, l.userID)
}

// Release frees the user's job slot. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.gate.mu.Lock()
		delete(l.gate.active, l.userID)
		l.gate.mu.Unlock()
	})
}
