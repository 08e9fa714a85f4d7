// Package valueobjects contains immutable value objects that represent domain
// concepts without identity. They are compared by their values, not by identity.
//
// SOLID Principles Applied:
// - SRP: Currency only handles currency validation and representation
// - OCP: Can extend supported currencies without modifying existing code
package valueobjects

import (
	"errors"
	"strings"
)

// Currency represents a monetary currency code (ISO 4217) together with its
// minor-unit scale (number of decimal digits in the smallest unit).
//
// Value Object Pattern: No identity, compared by value, immutable.
// The ledger stores every amount as an integer count of minor units, so the
// scale is the single source of truth for parsing and formatting decimal
// strings.
type Currency struct {
	code  string
	scale int
}

// Predefined supported currencies.
var (
	USD = Currency{code: "USD", scale: 2}
	EUR = Currency{code: "EUR", scale: 2}
	GBP = Currency{code: "GBP", scale: 2}
	JPY = Currency{code: "JPY", scale: 0}
)

// supportedCurrencies defines the whitelist of allowed currencies and their
// minor-unit scales. New currencies are added here without changing the
// validation logic.
var supportedCurrencies = map[string]int{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"JPY": 0,
}

// ErrInvalidCurrency is returned when an invalid currency code is provided.
var ErrInvalidCurrency = errors.New("invalid currency code")

// NewCurrency creates a new Currency value object with validation.
// Factory function pattern ensures all Currency instances are valid.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	scale, ok := supportedCurrencies[code]
	if !ok {
		return Currency{}, ErrInvalidCurrency
	}

	return Currency{code: code, scale: scale}, nil
}

// MustNewCurrency is a convenience function that panics on invalid input.
// Use only in initialization code where invalid input indicates a programming
// error.
func MustNewCurrency(code string) Currency {
	curr, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return curr
}

// Code returns the ISO 4217 currency code.
func (c Currency) Code() string {
	return c.code
}

// Scale returns the number of decimal digits in the currency's minor unit
// (2 for USD cents, 0 for JPY).
func (c Currency) Scale() int {
	return c.scale
}

// Equals checks if two currencies are the same.
func (c Currency) Equals(other Currency) bool {
	return c.code == other.code
}

// String implements fmt.Stringer for readable output.
func (c Currency) String() string {
	return c.code
}

// IsZero checks if this is an uninitialized currency.
// Useful for optional currency fields.
func (c Currency) IsZero() bool {
	return c.code == ""
}
