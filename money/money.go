/*
Package money provides the fixed-point currency type used by every
monetary field in the system.

PURPOSE:
  All amounts (receivable, received, waived, arrears, wallet balances)
  are 2-decimal fixed-point values. Arithmetic is exact; anything that
  could produce more than 2 fractional digits is rounded half-up.

WHY NOT float64?
  Binary floating point cannot represent amounts like 0.1 or 0.3
  exactly, and repeated allocation/waiver operations compound the
  error until "arrears == 0" checks need fuzzy epsilons. With decimal
  money every threshold becomes an exact comparison.

PARSING:
  Parse accepts operator-entered and spreadsheet-sourced strings:
  thousands separators, currency glyphs, and surrounding whitespace
  are tolerated. Unparsable input returns the zero value together
  with ErrInvalidAmount - never a silently wrong magnitude.

SEE ALSO:
  - ledger/types.go: the entities built on Money
*/
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for unparsable or out-of-domain amounts
// (e.g. a negative payment). Use with errors.Is().
var ErrInvalidAmount = errors.New("invalid amount")

// Money is a currency amount scaled to 2 decimal places.
// The zero value is ¥0.00 and ready to use.
type Money struct {
	Value decimal.Decimal
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func Zero() Money { return Money{} }

// glyphs and separators stripped before decimal parsing
var cleaner = strings.NewReplacer(
	",", "", "，", "",
	"¥", "", "￥", "", "$", "", "元", "",
	" ", "", " ", "", "\t", "",
)

// Parse converts a string to Money. Thousands separators and currency
// glyphs are stripped first. On failure the zero value is returned
// along with an error wrapping ErrInvalidAmount.
func Parse(s string) (Money, error) {
	cleaned := strings.TrimSpace(cleaner.Replace(s))
	if cleaned == "" {
		return Money{}, fmt.Errorf("%w: empty input", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Money{Value: d}.Round2(), nil
}

// MustParse is Parse for trusted inputs (literals in tests, values the
// store itself wrote). Panics on failure.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func (m Money) Add(o Money) Money { return Money{Value: m.Value.Add(o.Value)}.Round2() }
func (m Money) Sub(o Money) Money { return Money{Value: m.Value.Sub(o.Value)}.Round2() }
func (m Money) Neg() Money        { return Money{Value: m.Value.Neg()} }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

// Round2 rounds half-up (half away from zero) to 2 decimal places.
func (m Money) Round2() Money { return Money{Value: m.Value.Round(2)} }

// =============================================================================
// COMPARISONS
// =============================================================================

func (m Money) Cmp(o Money) int          { return m.Value.Cmp(o.Value) }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) LessThan(o Money) bool    { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }

// String renders the canonical fixed 2-place form, e.g. "1234.50".
func (m Money) String() string { return m.Value.StringFixed(2) }
