// Package valueobjects - Money is the most critical value object in the
// ledger. It combines an exact integer amount with a currency to prevent the
// two classic bugs of financial software: floating-point drift and mixed
// currencies.
package valueobjects

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Money represents a non-negative monetary amount in the currency's minor
// unit (cents for USD). Amounts are plain int64 — the journal never needs
// fractions of a minor unit, and integer arithmetic keeps the accounting
// identity exact.
//
// Value Object Pattern:
// - Immutable: all operations return new Money instances
// - Self-validating: cannot create negative Money
// - Type-safe: prevents mixing currencies
type Money struct {
	minor    int64
	currency Currency
}

// Common domain errors for Money operations.
var (
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrCurrencyMismatch = errors.New("cannot operate on different currencies")
	ErrInvalidAmount    = errors.New("invalid amount format")
	ErrAmountOverflow   = errors.New("amount arithmetic overflow")
)

// NewMoney creates Money from a minor-unit amount (e.g. cents).
// This is the storage format: the journal persists minor units as BIGINT.
func NewMoney(minor int64, currency Currency) (Money, error) {
	if minor < 0 {
		return Money{}, ErrNegativeAmount
	}
	if currency.IsZero() {
		return Money{}, ErrInvalidCurrency
	}
	return Money{minor: minor, currency: currency}, nil
}

// MustNewMoney panics on invalid input. For tests and seed code only.
func MustNewMoney(minor int64, currency Currency) Money {
	m, err := NewMoney(minor, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero creates a zero amount for the given currency.
func Zero(currency Currency) Money {
	return Money{minor: 0, currency: currency}
}

// ParseMoney parses a decimal string ("100.50", "0.01", "7") into Money,
// normalizing to the currency's minor unit.
//
// Returns ErrInvalidAmount if:
//   - the string is not a plain decimal number,
//   - it carries more fractional digits than the currency's scale,
//   - the normalized value overflows int64.
//
// Returns ErrNegativeAmount for negative inputs. Scientific notation,
// thousands separators and leading '+' are rejected: the wire format is a
// canonical decimal string.
func ParseMoney(s string, currency Currency) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if s[0] == '-' {
		return Money{}, ErrNegativeAmount
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
		if fracPart == "" {
			return Money{}, ErrInvalidAmount
		}
	}
	if intPart == "" {
		return Money{}, ErrInvalidAmount
	}
	if len(fracPart) > currency.Scale() {
		return Money{}, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, currency.Scale())
	}

	for _, part := range []string{intPart, fracPart} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return Money{}, ErrInvalidAmount
			}
		}
	}

	// Pad the fraction to the full scale so "1.5" in USD becomes 150 cents.
	for len(fracPart) < currency.Scale() {
		fracPart += "0"
	}

	var minor int64
	for _, digit := range intPart + fracPart {
		d := int64(digit - '0')
		if minor > (math.MaxInt64-d)/10 {
			return Money{}, ErrAmountOverflow
		}
		minor = minor*10 + d
	}

	return Money{minor: minor, currency: currency}, nil
}

// Currency returns the currency of this money.
func (m Money) Currency() Currency {
	return m.currency
}

// MinorUnits returns the amount as an integer count of minor units.
// This is the preferred storage and wire format.
func (m Money) MinorUnits() int64 {
	return m.minor
}

// String returns the canonical decimal representation, e.g. "100.50" for
// 10050 USD cents. It is the inverse of ParseMoney and is used verbatim in
// API responses and idempotency snapshots.
func (m Money) String() string {
	return FormatMinor(m.minor, m.currency)
}

// FormatMinor renders a signed minor-unit amount as a canonical decimal
// string. Money itself is non-negative; derived balances are not — the
// system funding account runs a negative available balance by construction.
func FormatMinor(minor int64, currency Currency) string {
	sign := ""
	u := uint64(minor)
	if minor < 0 {
		sign = "-"
		u = uint64(-(minor + 1)) + 1 // negation that survives MinInt64
	}
	scale := currency.Scale()
	if scale == 0 {
		return fmt.Sprintf("%s%d", sign, u)
	}
	pow := uint64(1)
	for i := 0; i < scale; i++ {
		pow *= 10
	}
	return fmt.Sprintf("%s%d.%0*d", sign, u/pow, scale, u%pow)
}

// Add returns a new Money with the sum of two amounts.
// Fails with ErrAmountOverflow if the sum does not fit in int64.
func (m Money) Add(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, ErrCurrencyMismatch
	}
	if m.minor > math.MaxInt64-other.minor {
		return Money{}, ErrAmountOverflow
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// Subtract returns a new Money with the difference.
// Returns ErrNegativeAmount if the result would be negative — the ledger has
// no concept of a negative amount, only of debit and credit sides.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, ErrCurrencyMismatch
	}
	if m.minor < other.minor {
		return Money{}, ErrNegativeAmount
	}
	return Money{minor: m.minor - other.minor, currency: m.currency}, nil
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.minor == 0
}

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.minor > 0
}

// GreaterThan checks if this money is greater than another.
func (m Money) GreaterThan(other Money) (bool, error) {
	if !m.currency.Equals(other.currency) {
		return false, ErrCurrencyMismatch
	}
	return m.minor > other.minor, nil
}

// GreaterThanOrEqual checks if this money is >= another.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if !m.currency.Equals(other.currency) {
		return false, ErrCurrencyMismatch
	}
	return m.minor >= other.minor, nil
}

// LessThan checks if this money is less than another.
func (m Money) LessThan(other Money) (bool, error) {
	if !m.currency.Equals(other.currency) {
		return false, ErrCurrencyMismatch
	}
	return m.minor < other.minor, nil
}

// Equals checks if two money values are equal (amount and currency).
func (m Money) Equals(other Money) bool {
	return m.currency.Equals(other.currency) && m.minor == other.minor
}
