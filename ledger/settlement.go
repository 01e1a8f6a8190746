/*
settlement.go - Applying one payment across several outstanding bills

PURPOSE:
  The single entry point the cashier screen calls. Given a unit, a
  selection of its outstanding bills, and an actual payment amount
  (cash or wallet), the engine pays the selection down oldest period
  first and commits every write as one transaction.

ORDERING:
  The caller's selection order is ignored. Bills are sorted by period
  key ascending with creation time and id as tie-breaks, so the oldest
  obligation is always paid before newer ones and the walk is fully
  deterministic.

FAILURE MODEL:
  - amount exceeding the selection's total arrears is a caller error,
    rejected before any write (PaymentExceedsSelectionError)
  - a wallet-sourced payment consumes the wallet first; an
    insufficient balance aborts the whole operation with no bill
    mutation
  - any storage failure rolls everything back to the pre-call state
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/centuryview/feeledger/money"
)

// PaymentSource selects where the settlement cash comes from.
type PaymentSource string

const (
	PayCash   PaymentSource = "cash"
	PayWallet PaymentSource = "wallet"
)

// SettleParams captures every input before the transaction opens.
type SettleParams struct {
	UnitID    string
	BillIDs   []string
	Amount    money.Money
	Source    PaymentSource
	Operator  string
	ReceiptNo string
	Remark    string
}

// Deduction is one bill's share of a settlement.
type Deduction struct {
	BillID       string
	FeeType      string
	Period       string
	Deducted     money.Money
	ArrearsAfter money.Money
	Status       BillStatus
}

// SettlementResult reports what a settlement did.
type SettlementResult struct {
	UnitID     string
	Source     PaymentSource
	Paid       money.Money
	Deductions []Deduction
	SettledAt  time.Time
}

// SettlementEngine applies payments across bill selections.
type SettlementEngine struct {
	Store TxStore
}

func NewSettlementEngine(store TxStore) *SettlementEngine {
	return &SettlementEngine{Store: store}
}

// Settle pays the selected bills down oldest first. All Bill and
// Wallet writes land in one transaction or not at all.
func (e *SettlementEngine) Settle(ctx context.Context, p SettleParams) (*SettlementResult, error) {
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: settlement amount %s", money.ErrInvalidAmount, p.Amount)
	}
	if len(p.BillIDs) == 0 {
		return nil, fmt.Errorf("%w: empty bill selection", money.ErrInvalidAmount)
	}
	if p.Source != PayCash && p.Source != PayWallet {
		return nil, fmt.Errorf("%w: payment source %q", money.ErrInvalidAmount, p.Source)
	}

	var result *SettlementResult
	err := e.Store.WithTx(ctx, func(st Store) error {
		bills, err := loadSelection(ctx, st, p.UnitID, p.BillIDs)
		if err != nil {
			return err
		}

		// Oldest obligation first, regardless of selection order.
		sort.Slice(bills, func(i, j int) bool {
			if bills[i].PeriodKey != bills[j].PeriodKey {
				return bills[i].PeriodKey < bills[j].PeriodKey
			}
			if !bills[i].CreatedAt.Equal(bills[j].CreatedAt) {
				return bills[i].CreatedAt.Before(bills[j].CreatedAt)
			}
			return bills[i].ID < bills[j].ID
		})

		total := money.Zero()
		for _, b := range bills {
			if b.Arrears.IsPositive() {
				total = total.Add(b.Arrears)
			}
		}
		if p.Amount.GreaterThan(total) {
			return &PaymentExceedsSelectionError{
				UnitID:          p.UnitID,
				SelectedArrears: total,
				Requested:       p.Amount,
			}
		}

		now := time.Now()
		res := &SettlementResult{UnitID: p.UnitID, Source: p.Source, Paid: p.Amount, SettledAt: now}
		settlementID := newID("settle")

		if p.Source == PayWallet {
			if _, err := consumeTx(ctx, st, p.UnitID, p.Amount, settlementID, p.Remark, p.Operator); err != nil {
				return err
			}
		}

		remaining := p.Amount
		for i := range bills {
			if !remaining.IsPositive() {
				break
			}
			b := &bills[i]
			if !b.Arrears.IsPositive() {
				continue
			}
			deduct := remaining.Min(b.Arrears)
			updated, err := applyPaymentTx(ctx, st, b.ID, deduct)
			if err != nil {
				return err
			}
			if p.ReceiptNo != "" && updated.ReceiptNo == "" {
				updated.ReceiptNo = p.ReceiptNo
				if err := st.UpdateBill(ctx, *updated); err != nil {
					return err
				}
			}
			remaining = remaining.Sub(deduct)
			res.Deductions = append(res.Deductions, Deduction{
				BillID:       updated.ID,
				FeeType:      updated.FeeType,
				Period:       updated.Period,
				Deducted:     deduct,
				ArrearsAfter: updated.Arrears,
				Status:       updated.Status,
			})
		}

		result = res
		return st.AppendAudit(ctx, AuditEntry{
			At:       now,
			Operator: p.Operator,
			Action:   "settlement",
			Detail: fmt.Sprintf("unit %s paid %s via %s across %d bill(s)",
				p.UnitID, p.Amount, p.Source, len(res.Deductions)),
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// loadSelection fetches the selected bills and verifies each exists
// and belongs to the unit being settled.
func loadSelection(ctx context.Context, st Store, unitID string, billIDs []string) ([]Bill, error) {
	bills := make([]Bill, 0, len(billIDs))
	seen := make(map[string]bool, len(billIDs))
	for _, id := range billIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		b, err := st.GetBill(ctx, id)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, fmt.Errorf("%w: %s", ErrBillNotFound, id)
		}
		if b.UnitID != unitID {
			return nil, fmt.Errorf("%w: bill %s belongs to %s", ErrUnitMismatch, id, b.UnitID)
		}
		bills = append(bills, *b)
	}
	return bills, nil
}
