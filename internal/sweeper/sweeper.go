package sweeper

import (
	"context"
	"log"
	"time"
)

type expiredSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper periodically reclaims expired payment holds. It is the only
// active mechanism freeing stuck slots; confirmation-time expiry checks
// cover the rest.
type Sweeper struct {
	payments expiredSweeper
	interval time.Duration
}

func New(payments expiredSweeper, interval time.Duration) *Sweeper {
	return &Sweeper{payments: payments, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("sweeper started (interval %s)", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper stopped")
			return
		case <-ticker.C:
			count, err := s.payments.SweepExpired(ctx)
			if err != nil {
				log.Printf("sweeper: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("sweeper: released %d expired hold(s)", count)
			}
		}
	}
}
