/*
allocator.go - Payment waterfall across fee standards

PURPOSE:
  Splits one cash amount across an ordered list of fee standards,
  producing one line per fee type. Used on the cash-based onboarding
  path (importer.BulkOnboard): each line maps 1:1 to a created bill.

ALGORITHM:
  1. Walk standards in priority order; each takes
     min(remaining, standardAmount).
  2. Business rule preserved from the property/elevator split: when
     the SECOND standard's amount is zero, nothing is split - the
     whole payment covers the first fee. A zero-amount FIRST standard
     likewise absorbs the full payment (the one-tier re-ingest case).
  3. Whatever survives the whole list is added to the last standard
     touched as overpayment (negative arrears), never dropped.
  4. A line is emitted when allocated > 0 or standardAmount > 0, so a
     nonzero obligation with no payment still becomes an unpaid bill.

Pure function, no side effects.
*/
package ledger

import "github.com/centuryview/feeledger/money"

// AllocationLine is one fee type's share of a payment. Receivable is
// the standard amount billed; Allocated is the cash applied to it.
type AllocationLine struct {
	FeeType    string
	Receivable money.Money
	Allocated  money.Money
}

// Allocate runs the waterfall. standards must already be in priority
// order; totalPaid may be zero (pure billing, no cash).
func Allocate(totalPaid money.Money, standards []FeeStandard) []AllocationLine {
	remaining := totalPaid

	// Don't-split cases: the full payment goes to the first standard.
	allToFirst := false
	if len(standards) > 0 && standards[0].Amount.IsZero() {
		allToFirst = true
	}
	if len(standards) > 1 && standards[1].Amount.IsZero() {
		allToFirst = true
	}

	lines := make([]AllocationLine, 0, len(standards))
	lastTouched := -1
	for i, std := range standards {
		alloc := remaining.Min(std.Amount)
		if i == 0 && allToFirst {
			alloc = remaining
		}
		if alloc.IsNegative() {
			alloc = money.Zero()
		}
		remaining = remaining.Sub(alloc)

		if alloc.IsPositive() || std.Amount.IsPositive() {
			lines = append(lines, AllocationLine{
				FeeType:    std.FeeType,
				Receivable: std.Amount,
				Allocated:  alloc,
			})
			if alloc.IsPositive() {
				lastTouched = len(lines) - 1
			}
		}
	}

	// Leftover cash becomes overpayment on the last line touched.
	if remaining.IsPositive() && lastTouched >= 0 {
		lines[lastTouched].Allocated = lines[lastTouched].Allocated.Add(remaining)
	}

	return lines
}
