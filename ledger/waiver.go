/*
waiver.go - The waiver approval state machine

PURPOSE:
  A waiver reduces a bill's arrears without cash, so it is gated
  behind an approval decision:

      submit ──▶ Pending ──▶ Approved   (mutates the bill)
                        └──▶ Rejected   (no side effects)

  Both terminal transitions happen exactly once; deciding a decided
  request fails with ErrInvalidState.

RE-VALIDATION:
  Arrears may shrink between submission and approval if a payment
  lands first. Approval therefore re-reads the bill inside its
  transaction and validates the waive amount against the LIVE arrears,
  not the snapshot captured at submission. Two approvals racing on the
  same bill serialize through the store; the second either succeeds
  against the reduced arrears or fails cleanly.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/centuryview/feeledger/money"
)

// WaiverService runs the request lifecycle.
type WaiverService struct {
	Store TxStore
}

func NewWaiverService(store TxStore) *WaiverService {
	return &WaiverService{Store: store}
}

// Submit creates a Pending request against a bill. The waive amount is
// validated against the bill's arrears at submission; the value seen
// here is recorded as OriginalArrears for the approver's context.
func (s *WaiverService) Submit(ctx context.Context, unitID, billID string, amount money.Money, reason, applicant string) (*WaiverRequest, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: waive amount %s", money.ErrInvalidAmount, amount)
	}

	var created *WaiverRequest
	err := s.Store.WithTx(ctx, func(st Store) error {
		bill, err := st.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if bill == nil {
			return fmt.Errorf("%w: %s", ErrBillNotFound, billID)
		}
		if bill.UnitID != unitID {
			return fmt.Errorf("%w: bill %s belongs to %s", ErrUnitMismatch, billID, bill.UnitID)
		}
		if amount.GreaterThan(bill.Arrears) {
			return &WaiverExceedsArrearsError{BillID: billID, Arrears: bill.Arrears, Requested: amount}
		}

		now := time.Now()
		req := WaiverRequest{
			ID:              newID("waiver"),
			UnitID:          unitID,
			FeeType:         bill.FeeType,
			BillRefID:       billID,
			OriginalArrears: bill.Arrears,
			WaiveAmount:     amount,
			Reason:          reason,
			Applicant:       applicant,
			SubmittedAt:     now,
			Status:          WaiverPending,
		}
		if err := st.InsertWaiver(ctx, req); err != nil {
			return err
		}
		created = &req
		return st.AppendAudit(ctx, AuditEntry{
			At:       now,
			Operator: applicant,
			Action:   "waiver_submitted",
			Detail:   fmt.Sprintf("request %s bill %s amount %s", req.ID, billID, amount),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Approve re-validates against the bill's current arrears and, if the
// waiver still fits, mutates the bill and marks the request Approved -
// atomically. A stale request fails with WaiverExceedsArrearsError and
// stays Pending.
func (s *WaiverService) Approve(ctx context.Context, requestID, approver, opinion string) (*WaiverRequest, error) {
	var decided *WaiverRequest
	err := s.Store.WithTx(ctx, func(st Store) error {
		req, err := st.GetWaiver(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("%w: %s", ErrWaiverNotFound, requestID)
		}
		if req.Status != WaiverPending {
			return fmt.Errorf("%w: request %s is %s", ErrInvalidState, requestID, req.Status)
		}

		bill, err := applyWaiverTx(ctx, st, req.BillRefID, req.WaiveAmount)
		if err != nil {
			// Attach the request id when the re-validation failed.
			var exceeds *WaiverExceedsArrearsError
			if errors.As(err, &exceeds) {
				exceeds.RequestID = requestID
			}
			return err
		}

		now := time.Now()
		if err := st.UpdateWaiverDecision(ctx, requestID, WaiverApproved, approver, opinion, now); err != nil {
			return err
		}
		req.Status = WaiverApproved
		req.Approver = approver
		req.Opinion = opinion
		req.DecidedAt = &now
		decided = req
		return st.AppendAudit(ctx, AuditEntry{
			At:       now,
			Operator: approver,
			Action:   "waiver_approved",
			Detail: fmt.Sprintf("request %s bill %s waived %s arrears now %s",
				requestID, bill.ID, req.WaiveAmount, bill.Arrears),
		})
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// Reject marks the request Rejected. No bill side effects.
func (s *WaiverService) Reject(ctx context.Context, requestID, approver, opinion string) (*WaiverRequest, error) {
	var decided *WaiverRequest
	err := s.Store.WithTx(ctx, func(st Store) error {
		req, err := st.GetWaiver(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("%w: %s", ErrWaiverNotFound, requestID)
		}
		if req.Status != WaiverPending {
			return fmt.Errorf("%w: request %s is %s", ErrInvalidState, requestID, req.Status)
		}

		now := time.Now()
		if err := st.UpdateWaiverDecision(ctx, requestID, WaiverRejected, approver, opinion, now); err != nil {
			return err
		}
		req.Status = WaiverRejected
		req.Approver = approver
		req.Opinion = opinion
		req.DecidedAt = &now
		decided = req
		return st.AppendAudit(ctx, AuditEntry{
			At:       now,
			Operator: approver,
			Action:   "waiver_rejected",
			Detail:   fmt.Sprintf("request %s: %s", requestID, opinion),
		})
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// ListPending returns undecided requests for the approval screen.
func (s *WaiverService) ListPending(ctx context.Context) ([]WaiverRequest, error) {
	return s.Store.ListWaivers(ctx, WaiverPending)
}
