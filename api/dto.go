/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ON THE WIRE:
  Every amount travels as its canonical fixed 2-place string, never as
  a JSON number. Clients send strings too; handlers parse them through
  the money package so thousands separators and currency glyphs are
  accepted the same way the importer accepts them.

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/centuryview/feeledger/ledger"
)

// =============================================================================
// BILLS
// =============================================================================

// BillDTO represents a bill in API responses.
type BillDTO struct {
	ID         string `json:"id"`
	UnitID     string `json:"unit_id"`
	OwnerName  string `json:"owner_name,omitempty"`
	FeeType    string `json:"fee_type"`
	Period     string `json:"period,omitempty"`
	PeriodKey  string `json:"period_key,omitempty"`
	Receivable string `json:"receivable"`
	Received   string `json:"received"`
	Waived     string `json:"waived"`
	Arrears    string `json:"arrears"`
	Status     string `json:"status"`
	ChargeDate string `json:"charge_date,omitempty"`
	ReceiptNo  string `json:"receipt_no,omitempty"`
	Remark     string `json:"remark,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Source     string `json:"source,omitempty"`
	RefID      string `json:"ref_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// CreateBillRequest is the request to create a bill.
type CreateBillRequest struct {
	UnitID     string `json:"unit_id"`
	FeeType    string `json:"fee_type"`
	Receivable string `json:"receivable"`
	Period     string `json:"period"`
	ChargeDate string `json:"charge_date,omitempty"`
	ReceiptNo  string `json:"receipt_no,omitempty"`
	Remark     string `json:"remark,omitempty"`
	Operator   string `json:"operator,omitempty"`
}

// PaymentRequest applies a payment to a single bill.
type PaymentRequest struct {
	Amount    string `json:"amount"`
	Operator  string `json:"operator,omitempty"`
	ReceiptNo string `json:"receipt_no,omitempty"`
}

// ReverseRequest creates an offsetting reversal entry.
type ReverseRequest struct {
	Operator string `json:"operator,omitempty"`
	Remark   string `json:"remark,omitempty"`
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

// SettleRequest settles a selection of bills with one payment.
type SettleRequest struct {
	UnitID    string   `json:"unit_id"`
	BillIDs   []string `json:"bill_ids"`
	Amount    string   `json:"amount"`
	Source    string   `json:"source"` // "cash" or "wallet"
	Operator  string   `json:"operator,omitempty"`
	ReceiptNo string   `json:"receipt_no,omitempty"`
	Remark    string   `json:"remark,omitempty"`
}

// DeductionDTO is one bill's share of a settlement.
type DeductionDTO struct {
	BillID       string `json:"bill_id"`
	FeeType      string `json:"fee_type"`
	Period       string `json:"period,omitempty"`
	Deducted     string `json:"deducted"`
	ArrearsAfter string `json:"arrears_after"`
	Status       string `json:"status"`
}

// SettlementDTO reports what a settlement did.
type SettlementDTO struct {
	UnitID     string         `json:"unit_id"`
	Source     string         `json:"source"`
	Paid       string         `json:"paid"`
	Deductions []DeductionDTO `json:"deductions"`
	SettledAt  string         `json:"settled_at"`
}

// =============================================================================
// WALLET
// =============================================================================

// WalletBalanceDTO is the balance response.
type WalletBalanceDTO struct {
	UnitID  string `json:"unit_id"`
	Balance string `json:"balance"`
}

// RechargeRequest adds funds to a unit's wallet.
type RechargeRequest struct {
	Amount   string `json:"amount"`
	Remark   string `json:"remark,omitempty"`
	Operator string `json:"operator,omitempty"`
}

// WalletTransactionDTO is one row of the wallet log.
type WalletTransactionDTO struct {
	ID           string `json:"id"`
	UnitID       string `json:"unit_id"`
	OccurredAt   string `json:"occurred_at"`
	Kind         string `json:"kind"`
	Amount       string `json:"amount"`
	BalanceAfter string `json:"balance_after"`
	RefID        string `json:"ref_id,omitempty"`
	Remark       string `json:"remark,omitempty"`
	Operator     string `json:"operator,omitempty"`
}

// =============================================================================
// WAIVERS
// =============================================================================

// SubmitWaiverRequest opens a waiver request against a bill.
type SubmitWaiverRequest struct {
	UnitID    string `json:"unit_id"`
	BillID    string `json:"bill_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	Applicant string `json:"applicant,omitempty"`
}

// DecideWaiverRequest approves or rejects a pending waiver.
type DecideWaiverRequest struct {
	Approver string `json:"approver,omitempty"`
	Opinion  string `json:"opinion,omitempty"`
}

// WaiverDTO represents a waiver request in API responses.
type WaiverDTO struct {
	ID              string `json:"id"`
	UnitID          string `json:"unit_id"`
	FeeType         string `json:"fee_type,omitempty"`
	BillID          string `json:"bill_id"`
	OriginalArrears string `json:"original_arrears"`
	WaiveAmount     string `json:"waive_amount"`
	Reason          string `json:"reason,omitempty"`
	Applicant       string `json:"applicant,omitempty"`
	SubmittedAt     string `json:"submitted_at"`
	Status          string `json:"status"`
	Approver        string `json:"approver,omitempty"`
	Opinion         string `json:"opinion,omitempty"`
	DecidedAt       string `json:"decided_at,omitempty"`
}

// =============================================================================
// IMPORTS
// =============================================================================

// ImportSlotDTO is one fee-type slot of a reconciliation row.
type ImportSlotDTO struct {
	FeeType       string `json:"fee_type"`
	Owed          string `json:"owed,omitempty"`
	OwedPeriod    string `json:"owed_period,omitempty"`
	Prepaid       string `json:"prepaid,omitempty"`
	PrepaidPeriod string `json:"prepaid_period,omitempty"`
}

// ImportRowDTO is one reconciliation row in a JSON import batch.
type ImportRowDTO struct {
	UnitID    string          `json:"unit_id"`
	OwnerName string          `json:"owner_name,omitempty"`
	Slots     []ImportSlotDTO `json:"slots"`
}

// ImportRequest is a JSON reconciliation batch.
type ImportRequest struct {
	Rows     []ImportRowDTO `json:"rows"`
	Operator string         `json:"operator,omitempty"`
}

// OnboardingRowDTO is one current-year ledger row.
type OnboardingRowDTO struct {
	UnitID           string `json:"unit_id"`
	OwnerName        string `json:"owner_name,omitempty"`
	PropertyStandard string `json:"property_standard"`
	ElevatorStandard string `json:"elevator_standard"`
	Period           string `json:"period,omitempty"`
	PayDate          string `json:"pay_date,omitempty"`
	ReceiptNo        string `json:"receipt_no,omitempty"`
	TotalPaid        string `json:"total_paid"`
}

// OnboardingRequest is a JSON onboarding batch.
type OnboardingRequest struct {
	Rows     []OnboardingRowDTO `json:"rows"`
	Operator string             `json:"operator,omitempty"`
}

// RowErrorDTO reports why an input row was skipped.
type RowErrorDTO struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResultDTO summarizes an import batch.
type ImportResultDTO struct {
	BatchID  string        `json:"batch_id"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []RowErrorDTO `json:"errors,omitempty"`
	Bills    int           `json:"bills"`
	Prepays  int           `json:"prepays"`
}

// =============================================================================
// MASTER DATA / AUDIT
// =============================================================================

// UnitDTO is the minimal master record.
type UnitDTO struct {
	ID        string `json:"id"`
	OwnerName string `json:"owner_name,omitempty"`
	CreatedAt string `json:"created_at"`
}

// AuditEntryDTO is one audit trail row.
type AuditEntryDTO struct {
	ID       int64  `json:"id"`
	At       string `json:"at"`
	Operator string `json:"operator,omitempty"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

const wireTime = "2006-01-02T15:04:05Z07:00"

func toBillDTO(b ledger.Bill) BillDTO {
	dto := BillDTO{
		ID:         b.ID,
		UnitID:     b.UnitID,
		OwnerName:  b.OwnerName,
		FeeType:    b.FeeType,
		Period:     b.Period,
		PeriodKey:  b.PeriodKey,
		Receivable: b.Receivable.String(),
		Received:   b.Received.String(),
		Waived:     b.Waived.String(),
		Arrears:    b.Arrears.String(),
		Status:     string(b.Status),
		ReceiptNo:  b.ReceiptNo,
		Remark:     b.Remark,
		Operator:   b.Operator,
		Source:     string(b.Source),
		RefID:      b.RefID,
		CreatedAt:  b.CreatedAt.Format(wireTime),
	}
	if b.ChargeDate != nil {
		dto.ChargeDate = b.ChargeDate.Format("2006-01-02")
	}
	return dto
}

func toBillDTOs(bills []ledger.Bill) []BillDTO {
	dtos := make([]BillDTO, 0, len(bills))
	for _, b := range bills {
		dtos = append(dtos, toBillDTO(b))
	}
	return dtos
}

func toSettlementDTO(r *ledger.SettlementResult) SettlementDTO {
	dto := SettlementDTO{
		UnitID:    r.UnitID,
		Source:    string(r.Source),
		Paid:      r.Paid.String(),
		SettledAt: r.SettledAt.Format(wireTime),
	}
	for _, d := range r.Deductions {
		dto.Deductions = append(dto.Deductions, DeductionDTO{
			BillID:       d.BillID,
			FeeType:      d.FeeType,
			Period:       d.Period,
			Deducted:     d.Deducted.String(),
			ArrearsAfter: d.ArrearsAfter.String(),
			Status:       string(d.Status),
		})
	}
	return dto
}

func toWalletTransactionDTO(t ledger.WalletTransaction) WalletTransactionDTO {
	return WalletTransactionDTO{
		ID:           t.ID,
		UnitID:       t.UnitID,
		OccurredAt:   t.OccurredAt.Format(wireTime),
		Kind:         string(t.Kind),
		Amount:       t.Amount.String(),
		BalanceAfter: t.BalanceAfter.String(),
		RefID:        t.RefID,
		Remark:       t.Remark,
		Operator:     t.Operator,
	}
}

func toWaiverDTO(w ledger.WaiverRequest) WaiverDTO {
	dto := WaiverDTO{
		ID:              w.ID,
		UnitID:          w.UnitID,
		FeeType:         w.FeeType,
		BillID:          w.BillRefID,
		OriginalArrears: w.OriginalArrears.String(),
		WaiveAmount:     w.WaiveAmount.String(),
		Reason:          w.Reason,
		Applicant:       w.Applicant,
		SubmittedAt:     w.SubmittedAt.Format(wireTime),
		Status:          string(w.Status),
		Approver:        w.Approver,
		Opinion:         w.Opinion,
	}
	if w.DecidedAt != nil {
		dto.DecidedAt = w.DecidedAt.Format(wireTime)
	}
	return dto
}

func toImportResultDTO(r *ledger.ImportResult) ImportResultDTO {
	dto := ImportResultDTO{
		BatchID:  r.BatchID,
		Imported: r.Imported,
		Skipped:  r.Skipped,
		Bills:    r.Bills,
		Prepays:  r.Prepays,
	}
	for _, e := range r.Errors {
		dto.Errors = append(dto.Errors, RowErrorDTO{Index: e.Index, Reason: e.Reason})
	}
	return dto
}
