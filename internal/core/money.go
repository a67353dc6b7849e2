// Package core holds the domain model of the finance app: money, plans,
// transactions, balances and the validation rules that guard them.
//
// Amounts are stored as integer cents. Parsing goes through shopspring/decimal
// so that user input is rounded exactly, never through float64.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents caps a single amount at one hundred billion reais. It keeps
// SQL sums of a user's rows far from int64 overflow.
const MaxAmountCents int64 = 10_000_000_000_000

var (
	maxCents = decimal.NewFromInt(MaxAmountCents)
	hundred  = decimal.NewFromInt(100)
)

// ParseDecimalToCents converts a user supplied decimal string to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Values are
// rounded half-up to two places. Zero, negative, malformed and values above
// MaxAmountCents return ErrInvalidAmount.
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil
//	ParseDecimalToCents("0.001")  -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// decimal accepts exponents and signs; a form field should not.
	if strings.ContainsAny(s, "eE+") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsPositive() || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseMoney is ParseDecimalToCents wrapped in a Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the exact decimal value of m in reais.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders m with a dot separator and exactly two places ("7.05").
// This is the form used to pre-fill inputs.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// BRL renders m for display: "R$ 1.234,56", "-R$ 3,00".
func (m Money) BRL() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		// MinInt64 has no positive counterpart; go through decimal.
		if cents == math.MinInt64 {
			return sign + "R$ " + strings.Replace(m.Decimal().Neg().StringFixed(2), ".", ",", 1)
		}
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return sign + "R$ " + b.String()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
