/*
errors.go - Centralized error types for the fee-ledger core

PURPOSE:
  All domain error kinds in one place. Every error is recovered at the
  operation boundary and returned to the caller as a typed result; no
  error path may leave the stores violating the ledger invariants.

ERROR CATEGORIES:
  1. Validation errors  - bad input (amounts, unknown entities)
  2. Insufficiency errors - balance/arrears limits exceeded
  3. State errors       - re-deciding a terminal waiver
  4. Batch errors       - import row defects vs. aborted transactions

USAGE:
  if errors.Is(err, ledger.ErrWaiverExceedsArrears) { ... }

  var short *ledger.InsufficientBalanceError
  if errors.As(err, &short) { ... short.Available ... }

SEE ALSO:
  - money/money.go: ErrInvalidAmount for unparsable/negative amounts
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/centuryview/feeledger/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a wallet consumption
	// exceeds the unit's prepaid balance.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrPaymentExceedsArrears is returned when a single-bill payment
	// exceeds that bill's current arrears.
	ErrPaymentExceedsArrears = errors.New("payment exceeds bill arrears")

	// ErrPaymentExceedsSelection is returned when a settlement amount
	// exceeds the total arrears of the selected bills. Caller error,
	// rejected at validation time rather than silently absorbed.
	ErrPaymentExceedsSelection = errors.New("payment exceeds selected arrears")

	// ErrWaiverExceedsArrears is returned when a waiver amount exceeds
	// the referenced bill's arrears - checked at submission and again
	// against the live arrears at approval time.
	ErrWaiverExceedsArrears = errors.New("waiver exceeds bill arrears")

	// ErrInvalidState is returned when deciding an already-decided
	// waiver request.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrUnitNotFound is returned for operations against an unknown
	// unit where unit existence is required.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrBillNotFound is returned when a referenced bill doesn't exist.
	ErrBillNotFound = errors.New("bill not found")

	// ErrWaiverNotFound is returned when a referenced request doesn't exist.
	ErrWaiverNotFound = errors.New("waiver request not found")

	// ErrUnitMismatch is returned when a referenced bill belongs to a
	// different unit than the one the operation names.
	ErrUnitMismatch = errors.New("bill belongs to a different unit")

	// ErrBatchRowInvalid classifies a structurally defective import row.
	// Non-fatal: the row is skipped and reported, the batch continues.
	ErrBatchRowInvalid = errors.New("invalid import row")

	// ErrTransactionAborted is returned when a multi-step operation
	// fails partway. The whole operation is rolled back.
	ErrTransactionAborted = errors.New("transaction aborted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry amounts for the caller
// =============================================================================

// InsufficientBalanceError details a wallet shortage.
type InsufficientBalanceError struct {
	UnitID    string
	Available money.Money
	Requested money.Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for unit %s: available %s, requested %s",
		e.UnitID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// PaymentExceedsSelectionError details a settlement overpay.
type PaymentExceedsSelectionError struct {
	UnitID          string
	SelectedArrears money.Money
	Requested       money.Money
}

func (e *PaymentExceedsSelectionError) Error() string {
	return fmt.Sprintf("payment %s exceeds selected arrears %s for unit %s",
		e.Requested, e.SelectedArrears, e.UnitID)
}

func (e *PaymentExceedsSelectionError) Unwrap() error { return ErrPaymentExceedsSelection }

// WaiverExceedsArrearsError details an approval-time re-validation failure.
type WaiverExceedsArrearsError struct {
	RequestID string
	BillID    string
	Arrears   money.Money
	Requested money.Money
}

func (e *WaiverExceedsArrearsError) Error() string {
	return fmt.Sprintf("waiver %s exceeds current arrears %s on bill %s (requested %s)",
		e.RequestID, e.Arrears, e.BillID, e.Requested)
}

func (e *WaiverExceedsArrearsError) Unwrap() error { return ErrWaiverExceedsArrears }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, money.ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrPaymentExceedsArrears) ||
		errors.Is(err, ErrPaymentExceedsSelection) ||
		errors.Is(err, ErrWaiverExceedsArrears) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrUnitMismatch) ||
		errors.Is(err, ErrBatchRowInvalid)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrBillNotFound) ||
		errors.Is(err, ErrWaiverNotFound)
}
