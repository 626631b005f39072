// Package core provides money parsing and handling utilities.
//
// This file contains the Money value type, currency-checked arithmetic and
// parsing of decimal strings into minor units.
package core

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units of a single currency.
// Positive amounts are income, negative amounts are expenses.
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// minorUnitExponents lists ISO 4217 currencies whose minor unit is not
// the cent.
var minorUnitExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0,
	"KRW": 0, "PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0,
	"XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// MinorUnits returns the number of decimal places of currency's minor
// unit. Unknown codes default to 2.
func MinorUnits(currency string) int32 {
	if e, ok := minorUnitExponents[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return e
	}
	return 2
}

// NewMoney builds a Money value with a normalized currency code.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(strings.TrimSpace(currency))}
}

func (m Money) sameCurrency(o Money) error {
	if m.Currency != o.Currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return nil
}

// Add returns m+o. Both values must share a currency.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

// Sub returns m-o. Both values must share a currency.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

// Cmp compares two amounts of the same currency and returns -1, 0 or 1.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < o.Amount:
		return -1, nil
	case m.Amount > o.Amount:
		return 1, nil
	}
	return 0, nil
}

func (m Money) Abs() Money {
	if m.Amount < 0 {
		return Money{Amount: -m.Amount, Currency: m.Currency}
	}
	return m
}

func (m Money) Neg() Money { return Money{Amount: -m.Amount, Currency: m.Currency} }

func (m Money) IsNegative() bool { return m.Amount < 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsZero() bool     { return m.Amount == 0 }

// Decimal returns the amount in major units, e.g. -1599 EUR -> -15.99
// and 1500 JPY -> 1500.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -MinorUnits(m.Currency))
}

// String formats the amount as "15.99 EUR".
func (m Money) String() string {
	s := m.Decimal().StringFixed(MinorUnits(m.Currency))
	if m.Currency == "" {
		return s
	}
	return s + " " + m.Currency
}

// Validate reports whether the money value carries a currency code.
func (m Money) Validate() error {
	if strings.TrimSpace(m.Currency) == "" {
		return ErrMissingCurrency
	}
	return nil
}

// ParseDecimal converts a decimal string to a Money value with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Amounts are rounded half away from zero to the
// currency's minor unit (cents unless MinorUnits says otherwise).
//
// Examples:
//
//	ParseDecimal("12.34", "EUR")  -> {1234 EUR}
//	ParseDecimal("-12,345", "EUR") -> {-1235 EUR}
func ParseDecimal(s, currency string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	if fracPart == "" {
		fracPart = "0"
	}
	d, err := decimal.NewFromString(intPart + "." + fracPart)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	minor := d.Shift(MinorUnits(currency)).Round(0)
	if minor.GreaterThan(maxMinor) {
		return Money{}, ErrInvalidAmount
	}
	if negative {
		minor = minor.Neg()
	}
	return NewMoney(minor.IntPart(), currency), nil
}

// Sum adds amounts of one currency. An empty slice yields zero in currency.
func Sum(currency string, amounts ...Money) (Money, error) {
	total := NewMoney(0, currency)
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
