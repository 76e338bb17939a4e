package reconciliation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cardpot/potsync/internal/domain"
	"github.com/cardpot/potsync/internal/provider"
	"github.com/cardpot/potsync/internal/repository"
)

type fakeBalance struct {
	balance domain.Money
	err     error
	calls   int
}

func (f *fakeBalance) GetBalance(ctx context.Context, acc *domain.MonitoredAccount) (domain.Money, error) {
	f.calls++
	return f.balance, f.err
}

func (f *fakeBalance) Name() string { return "fake" }

type fakePot struct {
	potBalance     domain.Money
	accountBalance domain.Money

	depositErr  error
	withdrawErr error

	deposits      []domain.Money
	withdrawals   []domain.Money
	notifications []string
	potCalls      int
}

func (f *fakePot) GetPotBalance(ctx context.Context, potID string) (domain.Money, error) {
	f.potCalls++
	return f.potBalance, nil
}

func (f *fakePot) Deposit(ctx context.Context, potID string, amount domain.Money) error {
	if f.depositErr != nil {
		return f.depositErr
	}
	f.deposits = append(f.deposits, amount)
	f.potBalance += amount
	return nil
}

func (f *fakePot) Withdraw(ctx context.Context, potID string, amount domain.Money) error {
	if f.withdrawErr != nil {
		return f.withdrawErr
	}
	f.withdrawals = append(f.withdrawals, amount)
	f.potBalance -= amount
	return nil
}

func (f *fakePot) GetAccountBalance(ctx context.Context) (domain.Money, error) {
	return f.accountBalance, nil
}

func (f *fakePot) Notify(ctx context.Context, title, body string) error {
	f.notifications = append(f.notifications, title)
	return nil
}

type testEnv struct {
	svc      *Service
	pot      *fakePot
	card     *fakeBalance
	acc      *domain.MonitoredAccount
	cooldown *repository.CooldownRepo
	results  *repository.ResultRepo
	settings *repository.SettingRepo
	now      *time.Time
}

func newTestEnv(t *testing.T, override bool) *testEnv {
	t.Helper()

	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := repository.NewAccountRepo(db)
	cooldowns := repository.NewCooldownRepo(db)
	results := repository.NewResultRepo(db)
	settings := repository.NewSettingRepo(db)

	acc := &domain.MonitoredAccount{
		ID:              "acc-1",
		Provider:        domain.ProviderAmex,
		PotID:           "pot-1",
		OverrideEnabled: override,
	}
	if err := accounts.Upsert(acc); err != nil {
		t.Fatalf("upsert account: %v", err)
	}

	pot := &fakePot{accountBalance: 1_000_000}
	card := &fakeBalance{}
	now := testNow

	svc := NewService(pot,
		func(domain.ProviderKind) provider.BalanceSource { return card },
		cooldowns, results, settings, testCooldown, 5*time.Second)
	svc.now = func() time.Time { return now }

	return &testEnv{
		svc: svc, pot: pot, card: card, acc: acc,
		cooldown: cooldowns, results: results, settings: settings, now: &now,
	}
}

func (e *testEnv) sync(t *testing.T) *domain.SyncResult {
	t.Helper()
	return e.svc.SyncAccount(context.Background(), e.acc)
}

func TestSyncAccount_FullCooldownLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	// In sync: nothing happens, baselines are captured.
	env.card.balance = 20000
	env.pot.potBalance = 20000
	if res := env.sync(t); res.Outcome != domain.OutcomeNoop {
		t.Fatalf("tick 1: expected NO_OP, got %s (%s)", res.Outcome, res.Detail)
	}

	// The pot drops to £90 on its own: cooldown arms, no money moves.
	env.pot.potBalance = 9000
	res := env.sync(t)
	if res.Outcome != domain.OutcomeArmedCooldown {
		t.Fatalf("tick 2: expected ARMED_COOLDOWN, got %s (%s)", res.Outcome, res.Detail)
	}
	if len(env.pot.deposits) != 0 {
		t.Fatalf("tick 2: no deposit expected, got %v", env.pot.deposits)
	}
	rec, err := env.cooldown.Load("acc-1")
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != domain.CooldownArmed || rec.Shortfall != 11000 {
		t.Fatalf("tick 2: expected armed shortfall 11000, got %s/%d", rec.Status, rec.Shortfall)
	}

	// New spend of £10 during the window is funded under override; the
	// shortfall stays queued.
	env.card.balance = 21000
	res = env.sync(t)
	if res.Outcome != domain.OutcomeDeposited || res.Amount != 1000 {
		t.Fatalf("tick 3: expected override deposit 1000, got %s %d", res.Outcome, res.Amount)
	}
	if env.pot.potBalance != 10000 {
		t.Fatalf("tick 3: expected pot 10000, got %d", env.pot.potBalance)
	}

	// Holding inside the window without further spend.
	if res := env.sync(t); res.Outcome != domain.OutcomeNoop {
		t.Fatalf("tick 4: expected NO_OP, got %s (%s)", res.Outcome, res.Detail)
	}

	// Expiry settles the remaining £110 and the pot matches the card.
	*env.now = testNow.Add(testCooldown + time.Minute)
	res = env.sync(t)
	if res.Outcome != domain.OutcomeResolvedCooldown || res.Amount != 11000 {
		t.Fatalf("tick 5: expected resolve 11000, got %s %d", res.Outcome, res.Amount)
	}
	if env.pot.potBalance != env.card.balance {
		t.Fatalf("tick 5: pot %d != card %d", env.pot.potBalance, env.card.balance)
	}

	rec, err = env.cooldown.Load("acc-1")
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != domain.CooldownIdle || rec.ExpiresAt != nil {
		t.Fatalf("expected idle record after expiry, got %s", rec.Status)
	}
	if len(env.pot.withdrawals) != 0 {
		t.Fatalf("no withdrawal expected in this lifecycle, got %v", env.pot.withdrawals)
	}
}

func TestSyncAccount_WithdrawsSurplus(t *testing.T) {
	env := newTestEnv(t, false)
	env.card.balance = 20000
	env.pot.potBalance = 25000

	res := env.sync(t)
	if res.Outcome != domain.OutcomeWithdrew || res.Amount != 5000 {
		t.Fatalf("expected WITHDREW 5000, got %s %d", res.Outcome, res.Amount)
	}
	if env.pot.potBalance != 20000 {
		t.Fatalf("expected pot 20000 after withdrawal, got %d", env.pot.potBalance)
	}
}

func TestSyncAccount_MovementFailureLeavesRecordUntouched(t *testing.T) {
	env := newTestEnv(t, false)
	env.card.balance = 20000
	env.pot.potBalance = 20000
	env.sync(t)

	// Spend of £50, but the deposit call fails.
	env.card.balance = 25000
	env.pot.depositErr = fmt.Errorf("deposit: %w", domain.ErrTransientFetch)

	res := env.sync(t)
	if res.Outcome != domain.OutcomeError || res.ErrorKind != "transient" {
		t.Fatalf("expected transient error, got %s/%s", res.Outcome, res.ErrorKind)
	}
	rec, err := env.cooldown.Load("acc-1")
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.LastCardBalance != 20000 {
		t.Fatalf("record must be untouched after failed movement, got baseline %d", rec.LastCardBalance)
	}

	// Re-running the tick from scratch converges: one deposit, same amount.
	env.pot.depositErr = nil
	res = env.sync(t)
	if res.Outcome != domain.OutcomeDeposited || res.Amount != 5000 {
		t.Fatalf("expected deposit 5000 on retry, got %s %d", res.Outcome, res.Amount)
	}
	if len(env.pot.deposits) != 1 {
		t.Fatalf("expected exactly one deposit, got %v", env.pot.deposits)
	}
}

func TestSyncAccount_AuthErrorAbortsBeforePotFetch(t *testing.T) {
	env := newTestEnv(t, false)
	env.card.err = fmt.Errorf("card balance: %w", domain.ErrAuth)

	res := env.sync(t)
	if res.Outcome != domain.OutcomeError || res.ErrorKind != "auth" {
		t.Fatalf("expected auth error, got %s/%s", res.Outcome, res.ErrorKind)
	}
	if env.pot.potCalls != 0 {
		t.Errorf("pot must not be fetched after a failed card fetch, got %d calls", env.pot.potCalls)
	}
	if len(env.pot.deposits)+len(env.pot.withdrawals) != 0 {
		t.Error("no movement expected on a failed tick")
	}
}

func TestSyncAccount_InsufficientFundsDisablesSync(t *testing.T) {
	env := newTestEnv(t, false)
	env.card.balance = 20000
	env.pot.potBalance = 20000
	env.sync(t)

	env.card.balance = 30000
	env.pot.accountBalance = 4000 // cannot cover the 10000 deposit

	res := env.sync(t)
	if res.Outcome != domain.OutcomeError || res.ErrorKind != "insufficient_funds" {
		t.Fatalf("expected insufficient_funds error, got %s/%s", res.Outcome, res.ErrorKind)
	}
	if len(env.pot.deposits) != 0 {
		t.Fatalf("no deposit expected, got %v", env.pot.deposits)
	}
	if len(env.pot.notifications) != 1 {
		t.Fatalf("expected one notification, got %v", env.pot.notifications)
	}
	enabled, err := env.settings.SyncEnabled()
	if err != nil {
		t.Fatalf("read switch: %v", err)
	}
	if enabled {
		t.Fatal("sync must be disabled after an insufficient-funds rejection")
	}

	// The next tick is a no-op until the switch is flipped back.
	if res := env.sync(t); res.Outcome != domain.OutcomeNoop || res.Detail != "sync disabled" {
		t.Fatalf("expected disabled no-op, got %s (%s)", res.Outcome, res.Detail)
	}
}

func TestSyncAccount_RecordsResultHistory(t *testing.T) {
	env := newTestEnv(t, false)
	env.card.balance = 25000
	env.pot.potBalance = 20000
	env.sync(t)

	latest, err := env.results.Latest("acc-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Outcome != domain.OutcomeDeposited || latest.Amount != 5000 {
		t.Fatalf("expected deposited 5000 in history, got %+v", latest)
	}
}
