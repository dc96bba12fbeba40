// Package ussd checks SIM balances and sends airtime transfers over USSD.
package ussd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airtime/internal/core"
	"airtime/internal/domain/notification"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/sim"
	"airtime/internal/domain/transaction"
	"airtime/internal/provider"
	"airtime/internal/services/admission"
	"airtime/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// BalanceResult is the outcome of one balance check. Err is only set by
// UpdateAllBalances, which keeps going past failing SIMs.
type BalanceResult struct {
	SIMID    int64  `json:"sim_id"`
	Operator string `json:"operator"`
	Balance  string `json:"balance,omitempty"`
	Reply    string `json:"reply,omitempty"`
	Err      error  `json:"-"`
}

// TransferResult carries the pending transfer and the network's reply.
type TransferResult struct {
	Transfer *transaction.Transfer
	Reply    string
}

// Service handles balance and transfer requests
type Service struct {
	directory     *operator.Directory
	sims          repositories.SIMRepository
	transactions  repositories.TransactionRepository
	notifications repositories.NotificationRepository
	executor      provider.Executor
	guard         *admission.Guard
	now           func() time.Time
}

// NewService creates a new USSD service
func NewService(directory *operator.Directory, store repositories.Store, executor provider.Executor, guard *admission.Guard) *Service {
	return &Service{
		directory:     directory,
		sims:          store.SIMs(),
		transactions:  store.Transactions(),
		notifications: store.Notifications(),
		executor:      executor,
		guard:         guard,
		now:           time.Now,
	}
}

// SIM loads a SIM by id
func (s *Service) SIM(ctx context.Context, id int64) (*sim.SIM, error) {
	v, err := s.sims.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("sim %d: %w", id, core.ErrUnknownSIM)
	}
	return v, err
}

// CheckBalance asks the network for the SIM's balance, records the reply and
// caches the parsed balance on the SIM.
func (s *Service) CheckBalance(ctx context.Context, v *sim.SIM) (BalanceResult, error) {
	res := BalanceResult{SIMID: v.ID, Operator: v.OperatorName}

	def, err := s.directory.FindByShortName(v.OperatorName)
	if err != nil {
		return res, err
	}

	reply, err := s.executor.Execute(ctx, v.BackendID, operator.BuildBalanceCommand(def))
	if err != nil {
		return res, err
	}
	if strings.TrimSpace(reply) == "" {
		return res, fmt.Errorf("balance on sim %d: %w", v.ID, core.ErrNoResponse)
	}
	res.Reply = reply
	log.Debug().Int64("sim_id", v.ID).Str("reply", reply).Msg("balance reply")

	n := notification.New(v.ID, notification.IdentityUSSD, reply, notification.TypeBalance, s.now())
	if err := s.notifications.Save(ctx, n); err != nil {
		return res, fmt.Errorf("save balance reply: %w", err)
	}

	res.Balance = ParseBalance(reply)
	if err := s.sims.UpdateBalance(ctx, v.ID, res.Balance); err != nil {
		return res, fmt.Errorf("update balance: %w", err)
	}
	v.SetBalance(res.Balance)

	log.Info().Int64("sim_id", v.ID).Str("operator", v.OperatorName).Str("balance", res.Balance).Msg("balance updated")
	return res, nil
}

// UpdateAllBalances checks every SIM in id order. A failing SIM is reported
// in its result and does not stop the sweep.
func (s *Service) UpdateAllBalances(ctx context.Context) ([]BalanceResult, error) {
	all, err := s.sims.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sims: %w", err)
	}

	results := make([]BalanceResult, 0, len(all))
	for _, v := range all {
		res, err := s.CheckBalance(ctx, v)
		if err != nil {
			log.Error().Err(err).Int64("sim_id", v.ID).Str("operator", v.OperatorName).Msg("balance check failed")
			res.Err = err
		}
		results = append(results, res)
	}
	return results, nil
}

// TransferAirtime sends amount to destination from the SIM. The transfer is
// stored as pending; only an operator notification settles it.
func (s *Service) TransferAirtime(ctx context.Context, v *sim.SIM, destination, amount, pin string) (TransferResult, error) {
	var res TransferResult

	def, err := s.directory.FindByShortName(v.OperatorName)
	if err != nil {
		return res, err
	}

	err = s.guard.Admit(ctx, def, func(ctx context.Context) error {
		cmd, err := operator.BuildTransferCommand(def, destination, amount, pin)
		if err != nil {
			return err
		}
		units, err := transaction.ParseAmount(amount)
		if err != nil {
			return &core.ValidationError{Code: core.InvalidAmount, Field: operator.FieldAmount, Message: err.Error()}
		}

		reply, err := s.executor.Execute(ctx, v.BackendID, cmd)
		if err != nil {
			return err
		}
		if strings.TrimSpace(reply) == "" {
			return fmt.Errorf("transfer on sim %d: %w", v.ID, core.ErrNoResponse)
		}

		tr, err := transaction.NewTransfer(v.ID, def.Short, destination, units, s.now())
		if err != nil {
			return err
		}
		if err := s.transactions.CreateTransfer(ctx, tr); err != nil {
			// the command already went out; this needs a human
			log.Error().Err(err).Int64("sim_id", v.ID).Str("destination", destination).Msg("transfer sent but not recorded")
			return fmt.Errorf("%w: %w", core.ErrTransferUnrecorded, err)
		}

		log.Info().
			Int64("transaction_id", tr.ID).
			Str("reference", tr.Reference).
			Str("operator", def.Short).
			Str("destination", destination).
			Int64("amount", units).
			Msg("transfer pending")
		res = TransferResult{Transfer: tr, Reply: reply}
		return nil
	})
	return res, err
}

// RechargeAirtime would load a scratch card onto the SIM. No operator
// template exists for it yet.
func (s *Service) RechargeAirtime(_ context.Context, v *sim.SIM, code string) (*transaction.Recharge, error) {
	return nil, fmt.Errorf("recharge on sim %d: %w", v.ID, core.ErrNotImplemented)
}

// ParseBalance returns the first whitespace separated token made only of
// ASCII digits, or the whole reply when there is none.
func ParseBalance(reply string) string {
	for _, tok := range strings.Fields(reply) {
		if isDigits(tok) {
			return tok
		}
	}
	return reply
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
