// Package command turns free-text messages into engine and reconciler calls.
package command

import (
	"context"
	"fmt"
	"strings"

	"airtime/internal/core"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/sim"
	"airtime/internal/services/reconcile"
	"airtime/internal/services/ussd"
	"airtime/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Engine is the part of ussd.Service the dispatcher drives.
type Engine interface {
	UpdateAllBalances(ctx context.Context) ([]ussd.BalanceResult, error)
	TransferAirtime(ctx context.Context, s *sim.SIM, destination, amount, pin string) (ussd.TransferResult, error)
}

// Reconciler is the part of reconcile.Service the dispatcher drives.
type Reconciler interface {
	IsOperator(identity string) bool
	HandleInbound(ctx context.Context, identity, text string) (reconcile.Outcome, error)
}

// Reply is what goes back to the sender. Text is empty for operator
// notifications, which get no answer.
type Reply struct {
	Handled bool   `json:"handled"`
	Text    string `json:"text,omitempty"`
}

// Dispatcher routes inbound messages
type Dispatcher struct {
	engine     Engine
	reconciler Reconciler
	sims       repositories.SIMRepository
	directory  *operator.Directory
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(engine Engine, reconciler Reconciler, sims repositories.SIMRepository, directory *operator.Directory) *Dispatcher {
	return &Dispatcher{engine: engine, reconciler: reconciler, sims: sims, directory: directory}
}

// Handle processes one message. Messages from operator identities are
// notifications; anyone else may send "balance" or
// "send <destination> <amount> [pin]". The returned error is the failure
// behind the reply, if any.
func (d *Dispatcher) Handle(ctx context.Context, identity, text string) (Reply, error) {
	if d.reconciler.IsOperator(identity) {
		_, err := d.reconciler.HandleInbound(ctx, identity, text)
		return Reply{Handled: true}, err
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Reply{}, nil
	}
	switch strings.ToLower(fields[0]) {
	case "balance":
		return d.balance(ctx)
	case "send":
		return d.send(ctx, identity, fields[1:])
	}
	log.Debug().Str("identity", identity).Msg("message is not a command")
	return Reply{}, nil
}

func (d *Dispatcher) balance(ctx context.Context) (Reply, error) {
	results, err := d.engine.UpdateAllBalances(ctx)
	if err != nil {
		return Reply{Handled: true, Text: core.Reason(err)}, err
	}
	if len(results) == 0 {
		return Reply{Handled: true, Text: core.Reason(core.ErrMissingSIM)}, nil
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		value := r.Balance
		if r.Err != nil {
			value = core.Reason(r.Err)
		}
		lines = append(lines, fmt.Sprintf("%s #%d: %s", r.Operator, r.SIMID, value))
	}
	return Reply{Handled: true, Text: strings.Join(lines, "\n")}, nil
}

func (d *Dispatcher) send(ctx context.Context, identity string, args []string) (Reply, error) {
	var destination, amount, pin string
	if len(args) > 0 {
		destination = args[0]
	}
	if len(args) > 1 {
		amount = args[1]
	}
	if len(args) > 2 {
		pin = args[2]
	}

	from, err := d.pickSIM(ctx, destination)
	if err != nil {
		return Reply{Handled: true, Text: core.Reason(err)}, err
	}

	res, err := d.engine.TransferAirtime(ctx, from, destination, amount, pin)
	if err != nil {
		log.Info().Err(err).Str("identity", identity).Str("destination", destination).Msg("transfer request refused")
		return Reply{Handled: true, Text: core.Reason(err)}, err
	}
	return Reply{Handled: true, Text: res.Reply}, nil
}

// pickSIM prefers a SIM on the destination's own network, then the first SIM.
func (d *Dispatcher) pickSIM(ctx context.Context, destination string) (*sim.SIM, error) {
	all, err := d.sims.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sims: %w", err)
	}
	if len(all) == 0 {
		return nil, core.ErrMissingSIM
	}
	for _, s := range all {
		def, err := d.directory.FindByShortName(s.OperatorName)
		if err == nil && def.MatchesSubscriber(destination) {
			return s, nil
		}
	}
	return all[0], nil
}
