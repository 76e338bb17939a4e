package domain

import "fmt"

// Money is an amount in integral minor currency units (pence). Balances and
// pot movements never use floating point.
type Money int64

// Pounds renders the amount as a human-readable major-unit string for logs.
func (m Money) Pounds() string {
	return fmt.Sprintf("£%.2f", float64(m)/100)
}
