// Package reconcile settles pending transfers from operator notifications.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airtime/internal/core"
	"airtime/internal/domain/notification"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/sim"
	"airtime/internal/domain/transaction"
	"airtime/internal/services/admission"
	"airtime/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Outcome describes what HandleInbound did with a message.
type Outcome struct {
	// Ignored is true when the sender is not a known operator.
	Ignored      bool
	Operator     string
	Notification *notification.Notification
	// Transfer is the pending transfer the notification was linked to, if any.
	Transfer *transaction.Transfer
	// Settled is true when the transfer's result was changed.
	Settled bool
}

// Service handles inbound operator notifications
type Service struct {
	directory     *operator.Directory
	sims          repositories.SIMRepository
	notifications repositories.NotificationRepository
	uow           repositories.UnitOfWork
	guard         *admission.Guard
	now           func() time.Time
}

// NewService creates a new reconcile service
func NewService(directory *operator.Directory, store repositories.Store, guard *admission.Guard) *Service {
	return &Service{
		directory:     directory,
		sims:          store.SIMs(),
		notifications: store.Notifications(),
		uow:           store.UnitOfWork(),
		guard:         guard,
		now:           time.Now,
	}
}

// IsOperator reports whether identity belongs to a known operator.
func (s *Service) IsOperator(identity string) bool {
	_, err := s.directory.FindByNotificationIdentity(identity)
	return err == nil
}

// HandleInbound records a message from identity and, when a transfer is
// pending for that operator, links the message to it. Success and failure
// notices also settle the transfer; other types only link.
func (s *Service) HandleInbound(ctx context.Context, identity, text string) (Outcome, error) {
	def, err := s.directory.FindByNotificationIdentity(identity)
	if errors.Is(err, core.ErrUnknownOperator) {
		log.Debug().Str("identity", identity).Msg("ignoring message from non-operator")
		return Outcome{Ignored: true}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Operator: def.Short}
	typ := def.Classify(text)

	owner, err := s.simFor(ctx, def)
	if err != nil {
		return out, err
	}

	n := notification.New(owner.ID, identity, text, typ, s.now())
	if err := s.notifications.Save(ctx, n); err != nil {
		return out, fmt.Errorf("save notification: %w", err)
	}
	out.Notification = n

	pending, err := s.guard.PendingTransfer(ctx, def)
	if err != nil {
		return out, err
	}
	if pending == nil {
		log.Info().Str("operator", def.Short).Str("type", typ.String()).Int64("notification_id", n.ID).Msg("notification stored unlinked")
		return out, nil
	}

	settled, err := s.settle(ctx, n, pending)
	if err != nil {
		return out, err
	}
	out.Transfer = pending
	out.Settled = settled

	log.Info().
		Str("operator", def.Short).
		Str("type", typ.String()).
		Int64("notification_id", n.ID).
		Int64("transaction_id", pending.ID).
		Str("result", pending.Result.String()).
		Msg("notification linked to transfer")
	return out, nil
}

// settle links n to tr and applies the result n carries, in one unit of work.
func (s *Service) settle(ctx context.Context, n *notification.Notification, tr *transaction.Transfer) (bool, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.NotificationRepository().LinkTransaction(ctx, n.ID, tr.ID); err != nil {
		return false, fmt.Errorf("link notification %d to transaction %d: %w", n.ID, tr.ID, err)
	}

	result, ok := n.Type.TransferResult()
	if ok {
		if err := tx.TransactionRepository().SetResult(ctx, tr.ID, result); err != nil {
			return false, fmt.Errorf("settle transaction %d: %w", tr.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	_ = n.Link(tr.ID)
	if ok {
		_ = tr.Resolve(result)
	}
	return ok, nil
}

// simFor returns the one SIM registered for def.
func (s *Service) simFor(ctx context.Context, def *operator.Definition) (*sim.SIM, error) {
	sims, err := s.sims.FindByOperator(ctx, def.Short)
	if err != nil {
		return nil, fmt.Errorf("find sims for %s: %w", def.Short, err)
	}
	switch len(sims) {
	case 0:
		return nil, fmt.Errorf("%s: %w", def.Short, core.ErrMissingSIM)
	case 1:
		return sims[0], nil
	}
	log.Error().Str("operator", def.Short).Int("sims", len(sims)).Msg("notification cannot be attributed to a sim")
	return nil, fmt.Errorf("%s has %d sims: %w", def.Short, len(sims), core.ErrAmbiguousState)
}
