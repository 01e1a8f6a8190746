package spreadsheet_test

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/centuryview/feeledger/ledger"
	"github.com/centuryview/feeledger/money"
	"github.com/centuryview/feeledger/spreadsheet"
)

// buildWorkbook writes rows (header included) into the first sheet of
// an in-memory xlsx.
func buildWorkbook(t *testing.T, rows [][]any) *bytes.Reader {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, v := range row {
			col, err := excelize.ColumnNumberToName(j + 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", fmt.Sprintf("%s%d", col, i+1), v))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

// =============================================================================
// ARREARS READER
// =============================================================================

func TestReadArrearsRows_FixedLayout(t *testing.T) {
	r := buildWorkbook(t, [][]any{
		{"unit", "owner", "prop owed", "period", "prop prepaid", "period", "elev owed", "period", "elev prepaid", "period"},
		{"3-1-501", "Zhang", "1,200.50", "2024.1.1-2024.12.31", "¥300", "2026", "240", "2024", "", ""},
		{"3-1-502", "Li", "", "", "", "", "", "", "100", "2026"},
	})

	rows, err := spreadsheet.ReadArrearsRows(r)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "3-1-501", first.UnitID)
	assert.Equal(t, "Zhang", first.OwnerName)
	require.Len(t, first.Slots, 2)
	assert.Equal(t, ledger.FeeTypeProperty, first.Slots[0].FeeType)
	assert.Equal(t, "1200.50", first.Slots[0].Owed.String())
	assert.Equal(t, "2024.1.1-2024.12.31", first.Slots[0].OwedPeriod)
	assert.Equal(t, "300.00", first.Slots[0].Prepaid.String())
	assert.Equal(t, ledger.FeeTypeElevator, first.Slots[1].FeeType)
	assert.Equal(t, "240.00", first.Slots[1].Owed.String())
	assert.True(t, first.Slots[1].Prepaid.IsZero())

	second := rows[1]
	assert.Equal(t, "3-1-502", second.UnitID)
	assert.True(t, second.Slots[0].Owed.IsZero())
	assert.Equal(t, "100.00", second.Slots[1].Prepaid.String())
}

func TestReadArrearsRows_MalformedCellZeroesOut_RowSurvives(t *testing.T) {
	r := buildWorkbook(t, [][]any{
		{"unit", "owner", "prop owed", "period", "prop prepaid", "period", "elev owed", "period", "elev prepaid", "period"},
		{"3-1-501", "Zhang", "not a number", "2024", "50", "", "", "", "", ""},
	})

	rows, err := spreadsheet.ReadArrearsRows(r)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Slots[0].Owed.IsZero())
	assert.Equal(t, "50.00", rows[0].Slots[0].Prepaid.String())
}

func TestReadArrearsRows_MissingUnitID_KeptForImporterPolicy(t *testing.T) {
	r := buildWorkbook(t, [][]any{
		{"unit", "owner"},
		{"", "Zhang", "100", "2024"},
	})

	rows, err := spreadsheet.ReadArrearsRows(r)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].UnitID)
}

func TestReadArrearsRows_SkipsBlankRows(t *testing.T) {
	r := buildWorkbook(t, [][]any{
		{"unit", "owner"},
		{"", "", "", ""},
		{"3-1-501", "Zhang", "100", "2024"},
	})

	rows, err := spreadsheet.ReadArrearsRows(r)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "3-1-501", rows[0].UnitID)
}

func TestReadArrearsRows_NotAWorkbook(t *testing.T) {
	_, err := spreadsheet.ReadArrearsRows(bytes.NewReader([]byte("plain text")))
	assert.Error(t, err)
}

// =============================================================================
// ONBOARDING READER
// =============================================================================

func TestReadOnboardingRows_FixedLayout(t *testing.T) {
	r := buildWorkbook(t, [][]any{
		{"unit", "owner", "prop std", "elev std", "period", "pay date", "receipt", "total"},
		{"3-1-501", "Zhang", "800", "200", "2025.8.6-2026.8.5", "2025-08-06", "R-001", "1,000"},
	})

	rows, err := spreadsheet.ReadOnboardingRows(r)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "3-1-501", row.UnitID)
	require.Len(t, row.Standards, 2)
	assert.Equal(t, "800.00", row.Standards[0].Amount.String())
	assert.Equal(t, "200.00", row.Standards[1].Amount.String())
	assert.Equal(t, "2025.8.6-2026.8.5", row.Period)
	require.NotNil(t, row.PayDate)
	assert.Equal(t, "2025-08-06", row.PayDate.Format("2006-01-02"))
	assert.Equal(t, "R-001", row.ReceiptNo)
	assert.Equal(t, "1000.00", row.TotalPaid.String())
}

// =============================================================================
// LEDGER EXPORT
// =============================================================================

func TestWriteLedgerXLSX_RoundTrip(t *testing.T) {
	chargeDate := time.Date(2025, 8, 6, 0, 0, 0, 0, time.UTC)
	bills := []ledger.Bill{
		{
			ID:         "bill-1",
			UnitID:     "3-1-501",
			OwnerName:  "Zhang",
			FeeType:    ledger.FeeTypeProperty,
			Period:     "2025.8.6-2026.8.5",
			Receivable: money.MustParse("1000"),
			Received:   money.MustParse("400"),
			Waived:     money.Zero(),
			Arrears:    money.MustParse("600"),
			Status:     ledger.StatusPartiallyPaid,
			ChargeDate: &chargeDate,
			ReceiptNo:  "R-001",
			Operator:   "tester",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, spreadsheet.WriteLedgerXLSX(&buf, bills))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ledger")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Unit", rows[0][0])
	assert.Equal(t, "3-1-501", rows[1][0])
	assert.Equal(t, "Zhang", rows[1][1])
	assert.Equal(t, "1000.00", rows[1][4])
	assert.Equal(t, "600.00", rows[1][7])
	assert.Equal(t, "partially_paid", rows[1][8])
	assert.Equal(t, "2025-08-06", rows[1][9])
}
