// Package sweeper periodically closes open listings whose deadline has passed.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"unihive/metrics"
)

// Closer is the slice of the listing repository the sweeper needs.
type Closer interface {
	CloseExpired(ctx context.Context, today time.Time) (int64, error)
}

type Sweeper struct {
	cron   *cron.Cron
	closer Closer
	spec   string
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates a Sweeper that runs on spec, e.g. "@every 1h".
func New(closer Closer, spec string) *Sweeper {
	return &Sweeper{
		cron:   cron.New(),
		closer: closer,
		spec:   spec,
		now:    time.Now,
	}
}

// Start registers the job, starts the scheduler and runs one sweep right away.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Printf("[sweeper] cron started, spec: %s", s.spec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunOnce(ctx)
	}()
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Printf("[sweeper] cron stopped")
}

// RunOnce closes every open listing whose deadline is before today (UTC).
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	n, err := s.closer.CloseExpired(ctx, today)
	if err != nil {
		log.Printf("[sweeper] close expired: %v", err)
		return 0
	}
	if n > 0 {
		metrics.SweptListings.Add(float64(n))
		log.Printf("[sweeper] closed %d expired listing(s)", n)
	}
	return n
}
