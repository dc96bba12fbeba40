// Package memory keeps SIM, transaction and notification records in process.
// It enforces the same constraints as the postgres schema and backs tests and
// APP_ENV=dev runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"airtime/internal/domain/notification"
	"airtime/internal/domain/sim"
	"airtime/internal/domain/transaction"
	"airtime/internal/store/repositories"
)

// Store holds all records behind one mutex.
type Store struct {
	mu            sync.Mutex
	txMu          sync.Mutex
	nextID        int64
	sims          map[int64]*sim.SIM
	transfers     map[int64]*transaction.Transfer
	recharges     map[int64]*transaction.Recharge
	notifications map[int64]*notification.Notification
}

// New creates an empty store
func New() *Store {
	return &Store{
		sims:          make(map[int64]*sim.SIM),
		transfers:     make(map[int64]*transaction.Transfer),
		recharges:     make(map[int64]*transaction.Recharge),
		notifications: make(map[int64]*notification.Notification),
	}
}

func (s *Store) SIMs() repositories.SIMRepository                   { return simRepo{s} }
func (s *Store) Transactions() repositories.TransactionRepository   { return txnRepo{s: s} }
func (s *Store) Notifications() repositories.NotificationRepository { return noteRepo{s: s} }
func (s *Store) UnitOfWork() repositories.UnitOfWork                { return unitOfWork{s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ---- SIMs ----

type simRepo struct{ s *Store }

func (r simRepo) Save(_ context.Context, in *sim.SIM) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if in.ID == 0 {
		in.ID = r.s.id()
	} else if _, ok := r.s.sims[in.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *in
	r.s.sims[in.ID] = &cp
	return nil
}

func (r simRepo) FindByID(_ context.Context, id int64) (*sim.SIM, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.sims[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r simRepo) FindAll(_ context.Context) ([]*sim.SIM, error) {
	return r.filter(func(*sim.SIM) bool { return true }), nil
}

func (r simRepo) FindByOperator(_ context.Context, operatorName string) ([]*sim.SIM, error) {
	return r.filter(func(v *sim.SIM) bool { return v.OperatorName == operatorName }), nil
}

func (r simRepo) UpdateBalance(_ context.Context, id int64, balance string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.sims[id]
	if !ok {
		return repositories.ErrNotFound
	}
	v.SetBalance(balance)
	return nil
}

func (r simRepo) filter(keep func(*sim.SIM) bool) []*sim.SIM {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*sim.SIM
	for _, v := range r.s.sims {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- transactions ----

// txnRepo and noteRepo record undo steps when used inside a unit of work.
type txnRepo struct {
	s    *Store
	undo *[]func()
}

func (r txnRepo) CreateTransfer(_ context.Context, t *transaction.Transfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.transfers {
		if v.OperatorName == t.OperatorName && v.Result == transaction.ResultPending {
			return repositories.ErrPendingTransferExists
		}
	}
	t.ID = r.s.id()
	cp := *t
	r.s.transfers[t.ID] = &cp
	r.record(func() { delete(r.s.transfers, cp.ID) })
	return nil
}

func (r txnRepo) CreateRecharge(_ context.Context, rc *transaction.Recharge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rc.ID = r.s.id()
	cp := *rc
	r.s.recharges[rc.ID] = &cp
	r.record(func() { delete(r.s.recharges, cp.ID) })
	return nil
}

func (r txnRepo) FindTransferByID(_ context.Context, id int64) (*transaction.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.transfers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r txnRepo) FindPendingTransfers(_ context.Context, operatorName string) ([]*transaction.Transfer, error) {
	return r.transfers(func(v *transaction.Transfer) bool {
		return v.OperatorName == operatorName && v.Result == transaction.ResultPending
	}), nil
}

func (r txnRepo) ListTransfers(_ context.Context, limit, offset int) ([]*transaction.Transfer, error) {
	all := r.transfers(func(*transaction.Transfer) bool { return true })
	// newest first, like the postgres listing
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, limit, offset), nil
}

func (r txnRepo) SetResult(_ context.Context, id int64, result transaction.Result) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v, ok := r.s.transfers[id]; ok {
		return r.setResult(&v.Transaction, result)
	}
	if v, ok := r.s.recharges[id]; ok {
		return r.setResult(&v.Transaction, result)
	}
	return repositories.ErrNotFound
}

func (r txnRepo) setResult(t *transaction.Transaction, result transaction.Result) error {
	if t.Result != transaction.ResultPending {
		return repositories.ErrConflict
	}
	t.Result = result
	r.record(func() { t.Result = transaction.ResultPending })
	return nil
}

func (r txnRepo) transfers(keep func(*transaction.Transfer) bool) []*transaction.Transfer {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*transaction.Transfer
	for _, v := range r.s.transfers {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r txnRepo) record(fn func()) {
	if r.undo != nil {
		*r.undo = append(*r.undo, fn)
	}
}

// ---- notifications ----

type noteRepo struct {
	s    *Store
	undo *[]func()
}

func (r noteRepo) Save(_ context.Context, n *notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID != 0 {
		// existing rows only change through LinkTransaction
		if _, ok := r.s.notifications[n.ID]; !ok {
			return repositories.ErrNotFound
		}
		return nil
	}
	n.ID = r.s.id()
	cp := *n
	r.s.notifications[n.ID] = &cp
	if r.undo != nil {
		*r.undo = append(*r.undo, func() { delete(r.s.notifications, cp.ID) })
	}
	return nil
}

func (r noteRepo) FindByID(_ context.Context, id int64) (*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r noteRepo) List(_ context.Context, limit, offset int) ([]*notification.Notification, error) {
	r.s.mu.Lock()
	out := make([]*notification.Notification, 0, len(r.s.notifications))
	for _, v := range r.s.notifications {
		cp := *v
		out = append(out, &cp)
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r noteRepo) LinkTransaction(_ context.Context, notificationID, transactionID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.notifications[notificationID]
	if !ok {
		return repositories.ErrNotFound
	}
	if v.TransactionID != nil {
		return repositories.ErrConflict
	}
	id := transactionID
	v.TransactionID = &id
	if r.undo != nil {
		*r.undo = append(*r.undo, func() { v.TransactionID = nil })
	}
	return nil
}

// ---- unit of work ----

type unitOfWork struct{ s *Store }

// Begin serializes units of work; writes apply immediately and are undone on
// Rollback.
func (u unitOfWork) Begin(_ context.Context) (repositories.Transaction, error) {
	u.s.txMu.Lock()
	return &memTx{s: u.s}, nil
}

type memTx struct {
	s    *Store
	undo []func()
	done bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.undo = nil
	t.s.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	t.undo = nil
	t.s.txMu.Unlock()
	return nil
}

func (t *memTx) TransactionRepository() repositories.TransactionRepository {
	return txnRepo{s: t.s, undo: &t.undo}
}

func (t *memTx) NotificationRepository() repositories.NotificationRepository {
	return noteRepo{s: t.s, undo: &t.undo}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
