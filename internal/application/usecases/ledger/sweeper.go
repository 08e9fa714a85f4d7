package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/Haleralex/walletledger/internal/application/ports"
)

// HoldSweeper is a best-effort background expirer. Lazy expiry on access is
// the correctness mechanism; the sweeper only keeps balances tidy for holds
// nobody touches. Each hold is expired in its own transaction so one poisoned
// row cannot wedge the batch.
type HoldSweeper struct {
	holdRepo ports.HoldRepository
	expirer  *HoldExpirer
	clock    ports.Clock
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewHoldSweeper(holdRepo ports.HoldRepository, expirer *HoldExpirer, clock ports.Clock, interval time.Duration, batch int, logger *slog.Logger) *HoldSweeper {
	if batch <= 0 {
		batch = 100
	}
	return &HoldSweeper{
		holdRepo: holdRepo,
		expirer:  expirer,
		clock:    clock,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run loops until the context is cancelled. Call in its own goroutine.
func (s *HoldSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *HoldSweeper) sweep(ctx context.Context) {
	holds, err := s.holdRepo.FindExpiredCapturable(ctx, s.clock.Now(), s.batch)
	if err != nil {
		s.logger.WarnContext(ctx, "hold sweep query failed", slog.String("error", err.Error()))
		return
	}
	for _, hold := range holds {
		if ctx.Err() != nil {
			return
		}
		if err := s.expirer.ExpireIfDue(ctx, hold.ID()); err != nil {
			s.logger.WarnContext(ctx, "hold sweep expiry failed",
				slog.String("hold_id", hold.ID().String()),
				slog.String("error", err.Error()))
		}
	}
	if len(holds) > 0 {
		s.logger.InfoContext(ctx, "hold sweep finished", slog.Int("expired", len(holds)))
	}
}
