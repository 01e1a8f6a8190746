/*
bill.go - Bill lifecycle: creation, payments, waivers, queries

PURPOSE:
  The only code paths that mutate a bill's quantities. Both mutations
  keep the invariant arrears == receivable - received - waived by
  recomputing arrears and status together, and both run inside the
  caller's transaction so a paired wallet write lands atomically.

STATUS:
  Derived, never written independently. A payment driving arrears to
  exactly zero yields Paid; a waiver doing the same yields
  SettledByWaiver. Comparisons are exact - no epsilon thresholds.

CORRECTIONS:
  Bills are never deleted. Reverse appends an offsetting line with
  negated quantities referencing the original, so the pair nets to
  zero in every aggregate.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/centuryview/feeledger/money"
)

// CreateBillParams carries the inputs for a manually billed line.
type CreateBillParams struct {
	UnitID     string
	FeeType    string
	Receivable money.Money
	Period     string
	Source     BillSource
	ChargeDate *time.Time
	ReceiptNo  string
	Remark     string
	Operator   string
}

// BillService exposes the bill operations the UI and the other core
// services call.
type BillService struct {
	Store TxStore
}

func NewBillService(store TxStore) *BillService {
	return &BillService{Store: store}
}

// newBill builds a line from quantities, deriving arrears and status.
func newBill(p CreateBillParams, owner string, received, waived money.Money, now time.Time) Bill {
	b := Bill{
		ID:         newID("bill"),
		UnitID:     p.UnitID,
		OwnerName:  owner,
		FeeType:    p.FeeType,
		Period:     p.Period,
		PeriodKey:  PeriodKey(p.Period),
		Receivable: p.Receivable,
		Received:   received,
		Waived:     waived,
		ChargeDate: p.ChargeDate,
		ReceiptNo:  p.ReceiptNo,
		Remark:     p.Remark,
		Operator:   p.Operator,
		Source:     p.Source,
		CreatedAt:  now,
	}
	b.recompute()
	return b
}

// CreateBill records a new obligation for an existing unit.
// received and waived start at zero; status derives to Unpaid when
// receivable > 0, Paid otherwise.
func (s *BillService) CreateBill(ctx context.Context, p CreateBillParams) (*Bill, error) {
	if p.Receivable.IsNegative() {
		return nil, fmt.Errorf("%w: receivable %s", money.ErrInvalidAmount, p.Receivable)
	}
	if p.Source == "" {
		p.Source = SourceManual
	}

	var created *Bill
	err := s.Store.WithTx(ctx, func(st Store) error {
		unit, err := st.GetUnit(ctx, p.UnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return fmt.Errorf("%w: %s", ErrUnitNotFound, p.UnitID)
		}

		b := newBill(p, unit.OwnerName, money.Zero(), money.Zero(), time.Now())
		if err := st.InsertBill(ctx, b); err != nil {
			return err
		}
		created = &b
		return st.AppendAudit(ctx, AuditEntry{
			At:       b.CreatedAt,
			Operator: p.Operator,
			Action:   "bill_created",
			Detail:   fmt.Sprintf("unit %s %s receivable %s period %s", b.UnitID, b.FeeType, b.Receivable, b.Period),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ApplyPayment applies a cash payment to a single bill.
func (s *BillService) ApplyPayment(ctx context.Context, billID string, amount money.Money, operator, receiptNo string) (*Bill, error) {
	var updated *Bill
	err := s.Store.WithTx(ctx, func(st Store) error {
		b, err := applyPaymentTx(ctx, st, billID, amount)
		if err != nil {
			return err
		}
		if receiptNo != "" {
			b.ReceiptNo = receiptNo
			if err := st.UpdateBill(ctx, *b); err != nil {
				return err
			}
		}
		updated = b
		return st.AppendAudit(ctx, AuditEntry{
			At:       time.Now(),
			Operator: operator,
			Action:   "payment_applied",
			Detail:   fmt.Sprintf("bill %s amount %s arrears now %s", b.ID, amount, b.Arrears),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApplyWaiver applies an approved waiver amount to a single bill.
// Callers outside the waiver workflow should not reach for this; the
// approval gate lives in WaiverService.
func (s *BillService) ApplyWaiver(ctx context.Context, billID string, amount money.Money, operator string) (*Bill, error) {
	var updated *Bill
	err := s.Store.WithTx(ctx, func(st Store) error {
		b, err := applyWaiverTx(ctx, st, billID, amount)
		if err != nil {
			return err
		}
		updated = b
		return st.AppendAudit(ctx, AuditEntry{
			At:       time.Now(),
			Operator: operator,
			Action:   "waiver_applied",
			Detail:   fmt.Sprintf("bill %s waived %s arrears now %s", b.ID, amount, b.Arrears),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyPaymentTx is the in-transaction payment primitive shared with
// the settlement engine. amount must be positive and within arrears.
func applyPaymentTx(ctx context.Context, st Store, billID string, amount money.Money) (*Bill, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment %s", money.ErrInvalidAmount, amount)
	}
	b, err := st.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBillNotFound, billID)
	}
	if amount.GreaterThan(b.Arrears) {
		return nil, fmt.Errorf("%w: bill %s arrears %s, payment %s",
			ErrPaymentExceedsArrears, billID, b.Arrears, amount)
	}

	b.Received = b.Received.Add(amount)
	b.recompute()
	if err := st.UpdateBill(ctx, *b); err != nil {
		return nil, err
	}
	return b, nil
}

// applyWaiverTx is the in-transaction waiver primitive shared with the
// waiver workflow.
func applyWaiverTx(ctx context.Context, st Store, billID string, amount money.Money) (*Bill, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: waiver %s", money.ErrInvalidAmount, amount)
	}
	b, err := st.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBillNotFound, billID)
	}
	if amount.GreaterThan(b.Arrears) {
		return nil, &WaiverExceedsArrearsError{BillID: billID, Arrears: b.Arrears, Requested: amount}
	}

	b.Waived = b.Waived.Add(amount)
	b.recompute()
	if err := st.UpdateBill(ctx, *b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListOutstanding returns the unit's open obligations oldest first.
// This ordering is the policy input to the settlement engine.
func (s *BillService) ListOutstanding(ctx context.Context, unitID string) ([]Bill, error) {
	return s.Store.ListOutstanding(ctx, unitID)
}

// ListAll returns bills matching the filter.
func (s *BillService) ListAll(ctx context.Context, f BillFilter) ([]Bill, error) {
	return s.Store.ListBills(ctx, f)
}

// Reverse appends an offsetting line for a mis-entered bill. The pair
// nets to zero; the original stays in the ledger untouched.
func (s *BillService) Reverse(ctx context.Context, billID, operator, remark string) (*Bill, error) {
	var created *Bill
	err := s.Store.WithTx(ctx, func(st Store) error {
		orig, err := st.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if orig == nil {
			return fmt.Errorf("%w: %s", ErrBillNotFound, billID)
		}

		now := time.Now()
		rev := Bill{
			ID:         newID("bill"),
			UnitID:     orig.UnitID,
			OwnerName:  orig.OwnerName,
			FeeType:    orig.FeeType,
			Period:     orig.Period,
			PeriodKey:  orig.PeriodKey,
			Receivable: orig.Receivable.Neg(),
			Received:   orig.Received.Neg(),
			Waived:     orig.Waived.Neg(),
			ReceiptNo:  orig.ReceiptNo,
			Remark:     remark,
			Operator:   operator,
			Source:     SourceReversal,
			RefID:      orig.ID,
			CreatedAt:  now,
		}
		rev.recompute()
		if err := st.InsertBill(ctx, rev); err != nil {
			return err
		}
		created = &rev
		return st.AppendAudit(ctx, AuditEntry{
			At:       now,
			Operator: operator,
			Action:   "bill_reversed",
			Detail:   fmt.Sprintf("bill %s offset by %s", orig.ID, rev.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
