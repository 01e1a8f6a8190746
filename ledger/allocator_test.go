package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centuryview/feeledger/ledger"
	"github.com/centuryview/feeledger/money"
)

func standards(property, elevator string) []ledger.FeeStandard {
	return []ledger.FeeStandard{
		{FeeType: ledger.FeeTypeProperty, Amount: money.MustParse(property)},
		{FeeType: ledger.FeeTypeElevator, Amount: money.MustParse(elevator)},
	}
}

// =============================================================================
// WATERFALL SPLITS
// =============================================================================

func TestAllocate_ExactSplit(t *testing.T) {
	// GIVEN: standards 800 property + 200 elevator
	// WHEN: owner pays exactly 1000
	// THEN: each fee is fully covered

	lines := ledger.Allocate(money.MustParse("1000"), standards("800", "200"))

	require.Len(t, lines, 2)
	assert.Equal(t, ledger.FeeTypeProperty, lines[0].FeeType)
	assert.Equal(t, "800.00", lines[0].Allocated.String())
	assert.Equal(t, ledger.FeeTypeElevator, lines[1].FeeType)
	assert.Equal(t, "200.00", lines[1].Allocated.String())
}

func TestAllocate_PartialPayment_FillsInOrder(t *testing.T) {
	// GIVEN: standards 800 + 200
	// WHEN: owner pays 500
	// THEN: all 500 goes to the first fee, second stays unpaid

	lines := ledger.Allocate(money.MustParse("500"), standards("800", "200"))

	require.Len(t, lines, 2)
	assert.Equal(t, "500.00", lines[0].Allocated.String())
	assert.Equal(t, "0.00", lines[1].Allocated.String())
}

func TestAllocate_PartialPayment_SpillsToSecond(t *testing.T) {
	lines := ledger.Allocate(money.MustParse("900"), standards("800", "200"))

	require.Len(t, lines, 2)
	assert.Equal(t, "800.00", lines[0].Allocated.String())
	assert.Equal(t, "100.00", lines[1].Allocated.String())
}

func TestAllocate_ZeroSecondStandard_NoSplit(t *testing.T) {
	// GIVEN: the unit has no elevator fee (standard 0)
	// WHEN: owner pays any amount
	// THEN: everything lands on the property fee, even past its standard

	lines := ledger.Allocate(money.MustParse("950"), standards("800", "0"))

	require.Len(t, lines, 1)
	assert.Equal(t, ledger.FeeTypeProperty, lines[0].FeeType)
	assert.Equal(t, "950.00", lines[0].Allocated.String())
}

func TestAllocate_ZeroFirstStandard_AbsorbsAll(t *testing.T) {
	// Re-ingest case: a single-tier unit keyed on the first slot.
	lines := ledger.Allocate(money.MustParse("600"), []ledger.FeeStandard{
		{FeeType: ledger.FeeTypeProperty, Amount: money.Zero()},
		{FeeType: ledger.FeeTypeElevator, Amount: money.MustParse("200")},
	})

	require.Len(t, lines, 2)
	assert.Equal(t, "600.00", lines[0].Allocated.String())
	assert.Equal(t, "0.00", lines[1].Allocated.String())
}

func TestAllocate_Overpayment_GoesToLastTouchedLine(t *testing.T) {
	// GIVEN: standards 800 + 200
	// WHEN: owner pays 1200
	// THEN: the 200 surplus rides on the elevator line as overpayment

	lines := ledger.Allocate(money.MustParse("1200"), standards("800", "200"))

	require.Len(t, lines, 2)
	assert.Equal(t, "800.00", lines[0].Allocated.String())
	assert.Equal(t, "400.00", lines[1].Allocated.String())
}

func TestAllocate_NoPayment_StillBillsEveryStandard(t *testing.T) {
	lines := ledger.Allocate(money.Zero(), standards("800", "200"))

	require.Len(t, lines, 2)
	assert.Equal(t, "800.00", lines[0].Receivable.String())
	assert.True(t, lines[0].Allocated.IsZero())
	assert.True(t, lines[1].Allocated.IsZero())
}

func TestAllocate_EmptyStandards(t *testing.T) {
	lines := ledger.Allocate(money.MustParse("100"), nil)
	assert.Empty(t, lines)
}

// =============================================================================
// PERIOD KEYS
// =============================================================================

func TestPeriodKey_RecognizedFormats(t *testing.T) {
	cases := map[string]string{
		"2025.8.6-2026.8.5":  "2025-08-06",
		"2024-12-01":         "2024-12-01",
		"2024/3/15":          "2024-03-15",
		"2023年7月8日":          "2023-07-08",
		"2024年8月-2025年8月":    "2024-08-01",
		"2025.11":            "2025-11-01",
		"第三期":                "~第三期",
		"19期":                "~19期",
		"2024.13.40 invalid": "2024-01-01",
	}
	for label, want := range cases {
		assert.Equal(t, want, ledger.PeriodKey(label), label)
	}
}

func TestPeriodKey_SortsChronologically(t *testing.T) {
	early := ledger.PeriodKey("2024.1.1-2024.12.31")
	late := ledger.PeriodKey("2024.2.1-2025.1.31")
	assert.Less(t, early, late)

	// Undated labels rank after every dated key, even when they start
	// with a low digit.
	assert.Greater(t, ledger.PeriodKey("19期"), late)
	assert.Greater(t, ledger.PeriodKey("第三期"), late)
}
