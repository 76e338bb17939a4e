package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cardpot/potsync/internal/domain"
	"github.com/cardpot/potsync/internal/reconciliation"
	"github.com/cardpot/potsync/internal/repository"
)

// Scheduler triggers a reconciliation pass for every monitored account on a
// fixed interval. Each account runs in its own goroutine so a slow provider
// cannot hold up the others; per-account mutual exclusion lives in the engine.
type Scheduler struct {
	cron     *cron.Cron
	engine   *reconciliation.Service
	accounts *repository.AccountRepo

	interval    time.Duration
	maxAttempts int
	baseBackoff time.Duration

	ctx context.Context
	wg  sync.WaitGroup
}

func New(ctx context.Context, engine *reconciliation.Service, accounts *repository.AccountRepo,
	interval time.Duration, maxAttempts int, baseBackoff time.Duration) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		engine:      engine,
		accounts:    accounts,
		interval:    interval,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		ctx:         ctx,
	}
}

// Start registers the interval job and begins scheduling.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register sync job: %w", err)
	}
	s.cron.Start()
	log.Printf("[scheduler] started, syncing every %s", s.interval)
	return nil
}

// Stop stops scheduling new passes and waits for in-flight ones.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
	log.Println("[scheduler] stopped")
}

// RunNow triggers an immediate pass for all accounts, outside the schedule.
func (s *Scheduler) RunNow() {
	s.tick()
}

func (s *Scheduler) tick() {
	accs, err := s.accounts.List()
	if err != nil {
		log.Printf("[scheduler] list accounts: %v", err)
		return
	}
	if len(accs) == 0 {
		return
	}
	log.Printf("[scheduler] tick: %d account(s)", len(accs))

	for i := range accs {
		acc := accs[i]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runAccount(&acc)
		}()
	}
}

// runAccount runs one pass, retrying transient failures with exponential
// backoff up to the attempt budget. A fatal error (auth, consistency) or an
// exhausted budget waits for the next scheduled tick.
func (s *Scheduler) runAccount(acc *domain.MonitoredAccount) {
	backoff := s.baseBackoff
	for attempt := 1; ; attempt++ {
		res := s.engine.SyncAccount(s.ctx, acc)
		if res.Outcome != domain.OutcomeError {
			return
		}
		if res.ErrorKind != "transient" || attempt >= s.maxAttempts {
			log.Printf("[scheduler] %s: giving up after attempt %d (%s): %s",
				acc.ID, attempt, res.ErrorKind, res.Detail)
			return
		}

		log.Printf("[scheduler] %s: attempt %d failed, retrying in %s", acc.ID, attempt, backoff)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
