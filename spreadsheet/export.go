package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/centuryview/feeledger/ledger"
)

// WriteLedgerXLSX renders bills as a single-sheet workbook for the
// finance office download. Amounts are written as their canonical
// 2-place strings so nothing re-rounds in the spreadsheet program.
func WriteLedgerXLSX(w io.Writer, bills []ledger.Bill) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "ledger"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Unit", "Owner", "Fee Type", "Period", "Receivable", "Received",
		"Waived", "Arrears", "Status", "Charge Date", "Receipt No",
		"Operator", "Remark",
	}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetCellValue(sheet, fmt.Sprintf("%s1", col), h)
	}

	for i, b := range bills {
		row := i + 2
		chargeDate := ""
		if b.ChargeDate != nil {
			chargeDate = b.ChargeDate.Format("2006-01-02")
		}
		values := []any{
			b.UnitID, b.OwnerName, b.FeeType, b.Period,
			b.Receivable.String(), b.Received.String(), b.Waived.String(),
			b.Arrears.String(), string(b.Status), chargeDate, b.ReceiptNo,
			b.Operator, b.Remark,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			_ = f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
