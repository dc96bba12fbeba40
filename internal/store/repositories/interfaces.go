package repositories

import (
	"context"
	"errors"

	"airtime/internal/domain/notification"
	"airtime/internal/domain/sim"
	"airtime/internal/domain/transaction"
)

var (
	// ErrNotFound is returned by lookups by id.
	ErrNotFound = errors.New("record not found")
	// ErrPendingTransferExists is returned when creating a transfer would leave
	// two pending transfers on the same operator.
	ErrPendingTransferExists = errors.New("pending transfer already exists for operator")
	// ErrConflict is returned when a conditional update matched nothing:
	// the transfer is no longer pending or the notification is already linked.
	ErrConflict = errors.New("record changed concurrently")
)

// SIMRepository defines the contract for SIM data access
type SIMRepository interface {
	Save(ctx context.Context, s *sim.SIM) error
	FindByID(ctx context.Context, id int64) (*sim.SIM, error)
	FindAll(ctx context.Context) ([]*sim.SIM, error)
	FindByOperator(ctx context.Context, operatorName string) ([]*sim.SIM, error)
	UpdateBalance(ctx context.Context, id int64, balance string) error
}

// TransactionRepository defines the contract for airtime transaction data access
type TransactionRepository interface {
	// CreateTransfer inserts a pending transfer. It fails with
	// ErrPendingTransferExists if the operator already has one.
	CreateTransfer(ctx context.Context, t *transaction.Transfer) error
	CreateRecharge(ctx context.Context, r *transaction.Recharge) error
	FindTransferByID(ctx context.Context, id int64) (*transaction.Transfer, error)
	FindPendingTransfers(ctx context.Context, operatorName string) ([]*transaction.Transfer, error)
	ListTransfers(ctx context.Context, limit, offset int) ([]*transaction.Transfer, error)
	// SetResult moves a pending transaction to result; ErrConflict if it is
	// not pending anymore.
	SetResult(ctx context.Context, id int64, result transaction.Result) error
}

// NotificationRepository defines the contract for operator notification data access
type NotificationRepository interface {
	Save(ctx context.Context, n *notification.Notification) error
	FindByID(ctx context.Context, id int64) (*notification.Notification, error)
	List(ctx context.Context, limit, offset int) ([]*notification.Notification, error)
	// LinkTransaction sets the back-link once; ErrConflict if already set.
	LinkTransaction(ctx context.Context, notificationID, transactionID int64) error
}

// UnitOfWork defines transactional operations
type UnitOfWork interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction defines a database transaction
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	TransactionRepository() TransactionRepository
	NotificationRepository() NotificationRepository
}

// Store groups the repositories of one backing store.
type Store interface {
	SIMs() SIMRepository
	Transactions() TransactionRepository
	Notifications() NotificationRepository
	UnitOfWork() UnitOfWork
}
