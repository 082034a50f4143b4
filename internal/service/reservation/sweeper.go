package reservation

import (
	"context"
	"io"
	"log"
	"time"

	"storecheckout/internal/repository/stock"
)

// Sweeper deletes expired holds on a fixed interval.
type Sweeper struct {
	ledger   stock.Ledger
	interval time.Duration
	logger   *log.Logger
}

func NewSweeper(ledger stock.Ledger, interval time.Duration, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{ledger: ledger, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := s.ledger.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Printf("sweeper: error=%v", err)
		}
		return 0
	}
	if n > 0 {
		s.logger.Printf("sweeper: removed %d expired holds", n)
	}
	return n
}
