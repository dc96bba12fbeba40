// Package admission enforces at most one pending transfer per operator.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"airtime/internal/core"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/transaction"
	"airtime/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// State is how many pending transfers an operator has.
type State int

const (
	None State = iota
	One
	Many
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case One:
		return "one"
	default:
		return "many"
	}
}

// Locker hands out non-blocking per-key locks. ok is false when the key is
// already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(context.Context) error, ok bool, err error)
}

// Guard serializes transfer admission per operator
type Guard struct {
	transactions repositories.TransactionRepository
	locker       Locker
}

// NewGuard creates a guard. A nil locker falls back to an in-process lock,
// which is only correct with a single airtimed instance.
func NewGuard(transactions repositories.TransactionRepository, locker Locker) *Guard {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Guard{transactions: transactions, locker: locker}
}

// Lookup reports how many transfers are pending for def.
func (g *Guard) Lookup(ctx context.Context, def *operator.Definition) (State, []*transaction.Transfer, error) {
	pending, err := g.transactions.FindPendingTransfers(ctx, def.Short)
	if err != nil {
		return None, nil, fmt.Errorf("find pending transfers for %s: %w", def.Short, err)
	}
	switch len(pending) {
	case 0:
		return None, nil, nil
	case 1:
		return One, pending, nil
	default:
		return Many, pending, nil
	}
}

// PendingTransfer returns the single pending transfer for def, nil if there is
// none, or ErrAmbiguousState if the store holds more than one.
func (g *Guard) PendingTransfer(ctx context.Context, def *operator.Definition) (*transaction.Transfer, error) {
	state, pending, err := g.Lookup(ctx, def)
	if err != nil {
		return nil, err
	}
	switch state {
	case None:
		return nil, nil
	case One:
		return pending[0], nil
	}
	log.Error().Str("operator", def.Short).Int("pending", len(pending)).Msg("multiple pending transfers")
	return nil, fmt.Errorf("%s has %d pending transfers: %w", def.Short, len(pending), core.ErrAmbiguousState)
}

// Admit runs fn while holding the operator lock, and only if no transfer is
// pending for def. fn is expected to dispatch the command and create the
// pending transfer.
func (g *Guard) Admit(ctx context.Context, def *operator.Definition, fn func(ctx context.Context) error) error {
	unlock, ok, err := g.locker.TryLock(ctx, def.Short)
	if err != nil {
		return fmt.Errorf("admission lock: %w", err)
	}
	if !ok {
		return core.ErrTransferBusy
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Str("operator", def.Short).Msg("admission unlock failed")
		}
	}()

	pending, err := g.PendingTransfer(ctx, def)
	if err != nil {
		return err
	}
	if pending != nil {
		log.Info().Str("operator", def.Short).Int64("transaction_id", pending.ID).Msg("transfer refused: one pending")
		return core.ErrTransferBusy
	}

	err = fn(ctx)
	if errors.Is(err, repositories.ErrPendingTransferExists) {
		return fmt.Errorf("%w: %w", core.ErrTransferBusy, err)
	}
	return err
}

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, true, nil
}
