/*
Package spreadsheet adapts fixed-layout xlsx workbooks to and from
ledger row shapes.

PURPOSE:
  The bulk importer consumes rows in memory; this package is the only
  place that knows workbook cell positions. Layouts are fixed by
  agreement with the finance office and documented next to each
  reader. There is no header sniffing.

CELL POLICY:
  Malformed money cells parse to zero and the row is kept; a missing
  unit id is left in place for the importer's own row policy to skip
  and report. The reader never drops rows on its own.

SEE ALSO:
  - ledger/importer.go: row policy and batch transaction semantics
*/
package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/centuryview/feeledger/ledger"
	"github.com/centuryview/feeledger/money"
)

// Arrears workbook layout (first sheet, one header row):
//
//	A unit id                 F property prepaid period
//	B owner name              G elevator owed
//	C property owed           H elevator owed period
//	D property owed period    I elevator prepaid
//	E property prepaid        J elevator prepaid period
const (
	arrearsColUnitID = iota
	arrearsColOwner
	arrearsColPropOwed
	arrearsColPropOwedPeriod
	arrearsColPropPrepaid
	arrearsColPropPrepaidPeriod
	arrearsColElevOwed
	arrearsColElevOwedPeriod
	arrearsColElevPrepaid
	arrearsColElevPrepaidPeriod
)

// ReadArrearsRows parses a historical-arrears workbook into importer rows.
func ReadArrearsRows(r io.Reader) ([]ledger.ImportRow, error) {
	rows, err := sheetRows(r)
	if err != nil {
		return nil, err
	}

	var out []ledger.ImportRow
	for i, cells := range rows {
		if i == 0 {
			continue // header
		}
		if blankRow(cells) {
			continue
		}
		row := ledger.ImportRow{
			UnitID:    strings.TrimSpace(cell(cells, arrearsColUnitID)),
			OwnerName: strings.TrimSpace(cell(cells, arrearsColOwner)),
			Slots: []ledger.ImportSlot{
				{
					FeeType:       ledger.FeeTypeProperty,
					Owed:          cellMoney(cells, arrearsColPropOwed),
					OwedPeriod:    strings.TrimSpace(cell(cells, arrearsColPropOwedPeriod)),
					Prepaid:       cellMoney(cells, arrearsColPropPrepaid),
					PrepaidPeriod: strings.TrimSpace(cell(cells, arrearsColPropPrepaidPeriod)),
				},
				{
					FeeType:       ledger.FeeTypeElevator,
					Owed:          cellMoney(cells, arrearsColElevOwed),
					OwedPeriod:    strings.TrimSpace(cell(cells, arrearsColElevOwedPeriod)),
					Prepaid:       cellMoney(cells, arrearsColElevPrepaid),
					PrepaidPeriod: strings.TrimSpace(cell(cells, arrearsColElevPrepaidPeriod)),
				},
			},
		}
		out = append(out, row)
	}
	return out, nil
}

// Onboarding workbook layout (first sheet, one header row):
//
//	A unit id                 E billing period
//	B owner name              F pay date
//	C property fee standard   G receipt no
//	D elevator fee standard   H total paid
const (
	onboardColUnitID = iota
	onboardColOwner
	onboardColPropStandard
	onboardColElevStandard
	onboardColPeriod
	onboardColPayDate
	onboardColReceiptNo
	onboardColTotalPaid
)

// ReadOnboardingRows parses a current-year ledger workbook into
// onboarding rows. The two fee standards feed the payment waterfall.
func ReadOnboardingRows(r io.Reader) ([]ledger.OnboardingRow, error) {
	rows, err := sheetRows(r)
	if err != nil {
		return nil, err
	}

	var out []ledger.OnboardingRow
	for i, cells := range rows {
		if i == 0 {
			continue // header
		}
		if blankRow(cells) {
			continue
		}
		row := ledger.OnboardingRow{
			UnitID:    strings.TrimSpace(cell(cells, onboardColUnitID)),
			OwnerName: strings.TrimSpace(cell(cells, onboardColOwner)),
			Standards: []ledger.FeeStandard{
				{FeeType: ledger.FeeTypeProperty, Amount: cellMoney(cells, onboardColPropStandard)},
				{FeeType: ledger.FeeTypeElevator, Amount: cellMoney(cells, onboardColElevStandard)},
			},
			Period:    strings.TrimSpace(cell(cells, onboardColPeriod)),
			PayDate:   cellDate(cells, onboardColPayDate),
			ReceiptNo: strings.TrimSpace(cell(cells, onboardColReceiptNo)),
			TotalPaid: cellMoney(cells, onboardColTotalPaid),
		}
		out = append(out, row)
	}
	return out, nil
}

func sheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func cell(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func cellMoney(cells []string, idx int) money.Money {
	raw := strings.TrimSpace(cell(cells, idx))
	if raw == "" {
		return money.Zero()
	}
	m, err := money.Parse(raw)
	if err != nil {
		return money.Zero()
	}
	return m
}

func cellDate(cells []string, idx int) *time.Time {
	raw := strings.TrimSpace(cell(cells, idx))
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", "2006.01.02", "01-02-06", "1/2/06"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
