package reconciliation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cardpot/potsync/internal/domain"
	"github.com/cardpot/potsync/internal/metrics"
	"github.com/cardpot/potsync/internal/provider"
	"github.com/cardpot/potsync/internal/repository"
)

// Service is the reconciliation engine. Each call to SyncAccount runs one
// tick for one account: both balances are fetched, the decision state machine
// runs over the pair, at most one pot movement is issued, and the cooldown
// record is persisted only after the movement succeeded. Ticks for the same
// account are serialized; ticks for different accounts are independent.
type Service struct {
	pot      provider.PotSource
	balances func(domain.ProviderKind) provider.BalanceSource

	cooldowns *repository.CooldownRepo
	results   *repository.ResultRepo
	settings  *repository.SettingRepo

	cooldownDuration time.Duration
	callTimeout      time.Duration
	now              func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(
	pot provider.PotSource,
	balances func(domain.ProviderKind) provider.BalanceSource,
	cooldowns *repository.CooldownRepo,
	results *repository.ResultRepo,
	settings *repository.SettingRepo,
	cooldownDuration, callTimeout time.Duration,
) *Service {
	return &Service{
		pot:              pot,
		balances:         balances,
		cooldowns:        cooldowns,
		results:          results,
		settings:         settings,
		cooldownDuration: cooldownDuration,
		callTimeout:      callTimeout,
		now:              time.Now,
		locks:            make(map[string]*sync.Mutex),
	}
}

// SyncAccount reconciles one account now and reports what happened. The
// result is also appended to the history for the status API.
func (s *Service) SyncAccount(ctx context.Context, acc *domain.MonitoredAccount) *domain.SyncResult {
	timer := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(timer).Seconds()) }()

	lock := s.lockFor(acc.ID)
	lock.Lock()
	res := s.syncLocked(ctx, acc)
	lock.Unlock()

	res.CompletedAt = s.now()
	if err := s.results.Insert(res); err != nil {
		log.Printf("[engine] %s: record result: %v", acc.ID, err)
	}
	return res
}

func (s *Service) syncLocked(ctx context.Context, acc *domain.MonitoredAccount) *domain.SyncResult {
	enabled, err := s.settings.SyncEnabled()
	if err != nil {
		return s.errResult(acc, 0, 0, fmt.Errorf("read sync switch: %w", err))
	}
	if !enabled {
		log.Printf("[engine] %s: sync disabled, skipping", acc.ID)
		return &domain.SyncResult{AccountID: acc.ID, Outcome: domain.OutcomeNoop, Detail: "sync disabled"}
	}

	rec, err := s.cooldowns.Load(acc.ID)
	if err != nil {
		return s.errResult(acc, 0, 0, fmt.Errorf("load cooldown record: %w", err))
	}

	// Both balances are captured before any decision; a failed fetch aborts
	// the tick with the record untouched.
	card, pot, err := s.fetchBalances(ctx, acc)
	if err != nil {
		return s.errResult(acc, 0, 0, err)
	}
	log.Printf("[engine] %s: card=%s pot=%s status=%s", acc.ID, card.Pounds(), pot.Pounds(), rec.Status)

	d, err := decide(*rec, card, pot, acc.OverrideEnabled, s.cooldownDuration, s.now())
	if err != nil {
		return s.errResult(acc, card, pot, err)
	}

	if err := s.applyMovement(ctx, acc, d); err != nil {
		// The movement did not happen; the record stays as it was so the
		// next tick re-derives from fresh balances.
		return s.errResult(acc, card, pot, err)
	}

	if d.saveRecord {
		if err := s.cooldowns.Save(&d.record); err != nil {
			// Money may already have moved. The stored record is stale but
			// safe: deposits shrink the live delta, so re-running the tick
			// converges instead of double-funding.
			log.Printf("[engine] %s: save record after %s: %v", acc.ID, d.outcome, err)
		}
	}

	s.observe(d)
	log.Printf("[engine] %s: %s %s (%s)", acc.ID, d.outcome, d.amount.Pounds(), d.detail)

	return &domain.SyncResult{
		AccountID:   acc.ID,
		Outcome:     d.outcome,
		Amount:      d.amount,
		CardBalance: card,
		PotBalance:  pot,
		Detail:      d.detail,
	}
}

func (s *Service) fetchBalances(ctx context.Context, acc *domain.MonitoredAccount) (card, pot domain.Money, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	source := s.balances(acc.Provider)
	if source == nil {
		return 0, 0, fmt.Errorf("no balance source for provider %q: %w", acc.Provider, domain.ErrConsistency)
	}
	card, err = source.GetBalance(ctx, acc)
	if err != nil {
		return 0, 0, fmt.Errorf("card balance: %w", err)
	}
	pot, err = s.pot.GetPotBalance(ctx, acc.PotID)
	if err != nil {
		return 0, 0, fmt.Errorf("pot balance: %w", err)
	}
	return card, pot, nil
}

func (s *Service) applyMovement(ctx context.Context, acc *domain.MonitoredAccount, d decision) error {
	if d.action == actionNone {
		return nil
	}
	if d.amount <= 0 {
		return fmt.Errorf("movement amount %d: %w", d.amount, domain.ErrConsistency)
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	switch d.action {
	case actionDeposit:
		// The funding account must cover the deposit. Running it dry is
		// worse than pausing sync, so a shortfall flips the kill switch and
		// tells the owner what to top up.
		available, err := s.pot.GetAccountBalance(ctx)
		if err != nil {
			return fmt.Errorf("funding balance: %w", err)
		}
		if available < d.amount {
			missing := d.amount - available
			if err := s.settings.SetSyncEnabled(false); err != nil {
				log.Printf("[engine] %s: disable sync: %v", acc.ID, err)
			}
			s.notify(ctx,
				fmt.Sprintf("Lacking %s - Insufficient Funds, Sync Disabled", missing.Pounds()),
				fmt.Sprintf("Required deposit: %s, available: %s. Top up at least %s and re-enable sync.",
					d.amount.Pounds(), available.Pounds(), missing.Pounds()))
			return fmt.Errorf("deposit %s, available %s: %w", d.amount.Pounds(), available.Pounds(), domain.ErrInsufficientFunds)
		}
		if err := s.pot.Deposit(ctx, acc.PotID, d.amount); err != nil {
			return err
		}
	case actionWithdraw:
		if err := s.pot.Withdraw(ctx, acc.PotID, d.amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) errResult(acc *domain.MonitoredAccount, card, pot domain.Money, err error) *domain.SyncResult {
	kind := domain.ErrorKind(err)
	metrics.SyncErrors.WithLabelValues(kind).Inc()
	log.Printf("[engine] %s: %s error: %v", acc.ID, kind, err)
	return &domain.SyncResult{
		AccountID:   acc.ID,
		Outcome:     domain.OutcomeError,
		CardBalance: card,
		PotBalance:  pot,
		ErrorKind:   kind,
		Detail:      err.Error(),
	}
}

func (s *Service) observe(d decision) {
	switch d.outcome {
	case domain.OutcomeDeposited:
		metrics.Deposits.Inc()
		metrics.DepositedPence.Add(float64(d.amount))
	case domain.OutcomeWithdrew:
		metrics.Withdrawals.Inc()
		metrics.WithdrawnPence.Add(float64(d.amount))
	case domain.OutcomeArmedCooldown:
		metrics.CooldownsArmed.Inc()
	case domain.OutcomeResolvedCooldown:
		metrics.CooldownsResolved.Inc()
		if d.amount > 0 {
			metrics.Deposits.Inc()
			metrics.DepositedPence.Add(float64(d.amount))
		}
	}
}

func (s *Service) notify(ctx context.Context, title, body string) {
	if err := s.pot.Notify(ctx, title, body); err != nil {
		log.Printf("[engine] notify: %v", err)
	}
}

func (s *Service) lockFor(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}
