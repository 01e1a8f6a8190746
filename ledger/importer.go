/*
importer.go - Bulk reconciliation and cash-based onboarding imports

PURPOSE:
  Consumes rows already parsed by the spreadsheet collaborator and
  turns them into bill and wallet mutations plus minimal unit upserts.

TWO FAILURE CLASSES, TWO POLICIES:
  1. A structurally invalid row (missing unit id) is skipped and
     reported with its reason; the rest of the batch continues.
  2. A persistence failure mid-batch rolls the ENTIRE batch back -
     never a partially imported file. The error wraps
     ErrTransactionAborted.

TWO ROW SHAPES:
  ImportRow     - reconciliation: per fee slot, an owed amount becomes
                  a HistoricalArrears bill and a prepaid amount becomes
                  an ImportPrepay wallet credit.
  OnboardingRow - current-year ledger: fee standards plus one total
                  paid amount, split by the waterfall allocator into
                  bill lines carrying their allocations.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/centuryview/feeledger/money"
)

// ImportSlot is one fee column pair of a reconciliation row.
type ImportSlot struct {
	FeeType       string
	Owed          money.Money
	OwedPeriod    string
	Prepaid       money.Money
	PrepaidPeriod string
}

// ImportRow is one parsed reconciliation row.
type ImportRow struct {
	UnitID    string
	OwnerName string
	Slots     []ImportSlot
}

// OnboardingRow is one parsed current-year ledger row.
type OnboardingRow struct {
	UnitID    string
	OwnerName string
	Standards []FeeStandard
	Period    string
	PayDate   *time.Time
	ReceiptNo string
	TotalPaid money.Money
}

// RowError reports why a row was skipped.
type RowError struct {
	Index  int
	Reason string
}

// ImportResult summarizes a batch: what landed, what was skipped and why.
type ImportResult struct {
	BatchID  string
	Imported int
	Skipped  int
	Errors   []RowError
	Bills    int
	Prepays  int
}

// Importer runs all-or-nothing import batches.
type Importer struct {
	Store TxStore
}

func NewImporter(store TxStore) *Importer {
	return &Importer{Store: store}
}

// BulkImport applies a reconciliation batch. Invalid rows are skipped
// and reported; valid rows commit together or not at all.
func (im *Importer) BulkImport(ctx context.Context, rows []ImportRow, operator string) (*ImportResult, error) {
	res := &ImportResult{BatchID: newID("batch")}
	valid := make([]ImportRow, 0, len(rows))
	for i, row := range rows {
		if row.UnitID == "" {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Index: i, Reason: "missing unit id"})
			continue
		}
		valid = append(valid, row)
	}

	err := im.Store.WithTx(ctx, func(st Store) error {
		now := time.Now()
		for _, row := range valid {
			if err := upsertUnitTx(ctx, st, row.UnitID, row.OwnerName, now); err != nil {
				return err
			}
			for _, slot := range row.Slots {
				if slot.Owed.IsPositive() {
					b := newBill(CreateBillParams{
						UnitID:     row.UnitID,
						FeeType:    slot.FeeType,
						Receivable: slot.Owed,
						Period:     slot.OwedPeriod,
						Source:     SourceHistorical,
						Remark:     "reconciliation import",
						Operator:   operator,
					}, row.OwnerName, money.Zero(), money.Zero(), now)
					if err := st.InsertBill(ctx, b); err != nil {
						return err
					}
					res.Bills++
				}
				if slot.Prepaid.IsPositive() {
					remark := "imported prepay"
					if slot.PrepaidPeriod != "" {
						remark = "imported prepay " + slot.PrepaidPeriod
					}
					if _, err := creditTx(ctx, st, row.UnitID, slot.Prepaid, KindImportPrepay, res.BatchID, remark, operator); err != nil {
						return err
					}
					res.Prepays++
				}
			}
			res.Imported++
		}
		return st.AppendAudit(ctx, AuditEntry{
			At:       now,
			Operator: operator,
			Action:   "bulk_import",
			Detail: fmt.Sprintf("batch %s: %d row(s) imported, %d skipped, %d bill(s), %d prepay(s)",
				res.BatchID, res.Imported, res.Skipped, res.Bills, res.Prepays),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bulk import batch %s: %v", ErrTransactionAborted, res.BatchID, err)
	}
	return res, nil
}

// BulkOnboard applies a current-year onboarding batch. Each row runs
// the payment waterfall; every allocation line becomes a bill carrying
// its receivable and allocated amounts. Same skip-vs-rollback policy
// as BulkImport.
func (im *Importer) BulkOnboard(ctx context.Context, rows []OnboardingRow, operator string) (*ImportResult, error) {
	res := &ImportResult{BatchID: newID("batch")}
	valid := make([]OnboardingRow, 0, len(rows))
	for i, row := range rows {
		if row.UnitID == "" {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Index: i, Reason: "missing unit id"})
			continue
		}
		valid = append(valid, row)
	}

	err := im.Store.WithTx(ctx, func(st Store) error {
		now := time.Now()
		for _, row := range valid {
			if err := upsertUnitTx(ctx, st, row.UnitID, row.OwnerName, now); err != nil {
				return err
			}
			for _, line := range Allocate(row.TotalPaid, row.Standards) {
				b := newBill(CreateBillParams{
					UnitID:     row.UnitID,
					FeeType:    line.FeeType,
					Receivable: line.Receivable,
					Period:     row.Period,
					Source:     SourceOnboarding,
					ChargeDate: row.PayDate,
					ReceiptNo:  row.ReceiptNo,
					Remark:     "onboarding auto-allocation",
					Operator:   operator,
				}, row.OwnerName, line.Allocated, money.Zero(), now)
				if err := st.InsertBill(ctx, b); err != nil {
					return err
				}
				res.Bills++
			}
			res.Imported++
		}
		return st.AppendAudit(ctx, AuditEntry{
			At:       now,
			Operator: operator,
			Action:   "bulk_onboard",
			Detail: fmt.Sprintf("batch %s: %d row(s) imported, %d skipped, %d bill(s)",
				res.BatchID, res.Imported, res.Skipped, res.Bills),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: onboarding batch %s: %v", ErrTransactionAborted, res.BatchID, err)
	}
	return res, nil
}

// upsertUnitTx records the minimal master data an import row carries.
// An existing unit keeps its owner name unless the row supplies one.
func upsertUnitTx(ctx context.Context, st Store, unitID, owner string, now time.Time) error {
	existing, err := st.GetUnit(ctx, unitID)
	if err != nil {
		return err
	}
	u := Unit{ID: unitID, OwnerName: owner, CreatedAt: now}
	if existing != nil {
		u.CreatedAt = existing.CreatedAt
		if owner == "" {
			u.OwnerName = existing.OwnerName
		}
	}
	return st.UpsertUnit(ctx, u)
}
