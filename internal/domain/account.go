package domain

import "time"

type ProviderKind string

const (
	ProviderAmex        ProviderKind = "amex"
	ProviderBarclaycard ProviderKind = "barclaycard"
	ProviderHalifax     ProviderKind = "halifax"
	ProviderNatWest     ProviderKind = "natwest"
)

// IncludesPending reports whether the provider's balance feed already reflects
// pending transactions. The engine never branches on this; adapters use it to
// decide whether a separate pending fetch is needed to normalize the balance.
func (k ProviderKind) IncludesPending() bool {
	switch k {
	case ProviderAmex, ProviderNatWest:
		return true
	default:
		return false
	}
}

// MonitoredAccount is one credit card under sync, linked to exactly one pot.
type MonitoredAccount struct {
	ID              string       `json:"id"`
	Provider        ProviderKind `json:"provider"`
	PotID           string       `json:"pot_id"`
	OverrideEnabled bool         `json:"override_enabled"`
	AccessToken     string       `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Pot is a balance-bearing container on the linked Monzo account. Personal
// and joint pots are treated identically here.
type Pot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance Money  `json:"balance"`
	Deleted bool   `json:"deleted"`
}
