package provider

import (
	"context"

	"github.com/cardpot/potsync/internal/domain"
)

// BalanceSource returns the normalized current balance of a credit account,
// in minor units, including pending transactions where the provider supports
// them. One implementation per provider family; the engine consumes only the
// normalized number.
type BalanceSource interface {
	GetBalance(ctx context.Context, acc *domain.MonitoredAccount) (domain.Money, error)
	Name() string
}

// PotSource exposes the linked savings pot and its funding account.
type PotSource interface {
	GetPotBalance(ctx context.Context, potID string) (domain.Money, error)
	Deposit(ctx context.Context, potID string, amount domain.Money) error
	Withdraw(ctx context.Context, potID string, amount domain.Money) error

	// GetAccountBalance returns the available balance of the funding account,
	// checked before deposits so a top-up never overdraws it.
	GetAccountBalance(ctx context.Context) (domain.Money, error)

	// Notify posts a feed item to the account owner. Failures are logged and
	// never fail a pass.
	Notify(ctx context.Context, title, body string) error
}
