package sweep

import (
	"context"
	"time"

	"airtime/internal/services/ussd"

	"github.com/rs/zerolog/log"
)

// Sweeper refreshes every SIM balance. *ussd.Service satisfies it.
type Sweeper interface {
	UpdateAllBalances(ctx context.Context) ([]ussd.BalanceResult, error)
}

type Worker struct {
	sweeper Sweeper
	every   time.Duration
}

func NewWorker(sweeper Sweeper, every time.Duration) *Worker {
	return &Worker{sweeper: sweeper, every: every}
}

// Run sweeps on every tick until ctx is done. A zero interval returns at once.
func (w *Worker) Run(ctx context.Context) {
	if w.every <= 0 {
		return
	}
	log.Info().Dur("every", w.every).Msg("balance sweep worker: started")
	t := time.NewTicker(w.every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("balance sweep worker: stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) (ok, failed int) {
	results, err := w.sweeper.UpdateAllBalances(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweep: listing sims failed")
		return 0, 0
	}
	for _, r := range results {
		if r.Err != nil {
			failed++
			// the next tick retries; nothing is persisted for a failed check
			log.Warn().Err(r.Err).Int64("sim_id", r.SIMID).Str("operator", r.Operator).Msg("sweep: balance check failed")
			continue
		}
		ok++
	}
	log.Info().Int("updated", ok).Int("failed", failed).Msg("sweep: done")
	return ok, failed
}
