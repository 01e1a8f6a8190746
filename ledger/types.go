/*
Package ledger is the fee-collection core: bills, wallet balances,
waiver requests, and the services that mutate them.

PURPOSE:
  One Bill is one ledger line: one unit, one fee type, one billing
  period. A unit's prepaid wallet is a balance plus an append-only
  transaction log. Waiver requests gate reductions of a bill behind
  an approval decision.

KEY INVARIANTS:
  1. arrears == receivable - received - waived, always.
  2. status is DERIVED from the quantities. No constructor or store
     write accepts a status from outside.
  3. wallet balance == sum of its transaction log, replayed in order.
  4. bills are never deleted; corrections are offsetting reversal lines.

SEE ALSO:
  - allocator.go:  payment waterfall across fee standards
  - settlement.go: multi-bill oldest-first settlement
  - waiver.go:     the approval state machine
  - importer.go:   bulk reconciliation and onboarding imports
  - store.go:      persistence interfaces
*/
package ledger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/centuryview/feeledger/money"
)

// =============================================================================
// BILL - one obligation line
// =============================================================================

// BillStatus is derived from the bill's quantities, never stored
// independently of them.
type BillStatus string

const (
	StatusUnpaid            BillStatus = "unpaid"
	StatusPartiallyPaid     BillStatus = "partially_paid"
	StatusPaid              BillStatus = "paid"
	StatusOverpaid          BillStatus = "overpaid"
	StatusSettledByWaiver   BillStatus = "settled_by_waiver"
	StatusHistoricalArrears BillStatus = "historical_arrears"
)

// BillSource records which path created the line.
type BillSource string

const (
	SourceManual     BillSource = "manual"
	SourceOnboarding BillSource = "onboarding_import"
	SourceHistorical BillSource = "historical_import"
	SourceReversal   BillSource = "reversal"
)

// Well-known fee types from the property master data. FeeType is an
// open string; these are the two the waterfall split was built for.
const (
	FeeTypeProperty = "property_service"
	FeeTypeElevator = "elevator_operation"
)

// Bill is one ledger line for one unit, one fee type, one period.
// Mutated only by payments (received up) and waivers (waived up);
// corrections append an offsetting reversal line.
type Bill struct {
	ID         string
	UnitID     string
	OwnerName  string
	FeeType    string
	Period     string // free-form billing interval label
	PeriodKey  string // sortable key derived from Period
	Receivable money.Money
	Received   money.Money
	Waived     money.Money
	Arrears    money.Money
	Status     BillStatus
	ChargeDate *time.Time
	ReceiptNo  string
	Remark     string
	Operator   string
	Source     BillSource
	RefID      string // reversal lines point at the line they offset
	CreatedAt  time.Time
}

// DeriveStatus computes arrears and status from the quantities.
// This is the only way a status comes into existence.
func DeriveStatus(receivable, received, waived money.Money, historical bool) (money.Money, BillStatus) {
	arrears := receivable.Sub(received).Sub(waived)
	switch {
	case arrears.IsNegative():
		return arrears, StatusOverpaid
	case arrears.IsZero():
		if waived.IsPositive() {
			return arrears, StatusSettledByWaiver
		}
		return arrears, StatusPaid
	case received.IsPositive() || waived.IsPositive():
		return arrears, StatusPartiallyPaid
	case historical:
		return arrears, StatusHistoricalArrears
	default:
		return arrears, StatusUnpaid
	}
}

// recompute refreshes the derived fields after a quantity change.
func (b *Bill) recompute() {
	b.Arrears, b.Status = DeriveStatus(b.Receivable, b.Received, b.Waived, b.Source == SourceHistorical)
}

// =============================================================================
// WALLET - prepaid balance per unit
// =============================================================================

type WalletAccount struct {
	UnitID    string
	OwnerName string
	Balance   money.Money
	UpdatedAt time.Time
}

type WalletTxKind string

const (
	KindRecharge     WalletTxKind = "recharge"
	KindConsumption  WalletTxKind = "consumption"
	KindImportPrepay WalletTxKind = "import_prepay"
)

// WalletTransaction is one immutable row of the wallet log.
// Amount is signed; BalanceAfter is the running sum through this row.
type WalletTransaction struct {
	ID           string
	UnitID       string
	OccurredAt   time.Time
	Kind         WalletTxKind
	Amount       money.Money
	BalanceAfter money.Money
	RefID        string // optional link to a bill or import batch
	Remark       string
	Operator     string
}

// =============================================================================
// WAIVER - approval-gated reduction of a bill
// =============================================================================

type WaiverStatus string

const (
	WaiverPending  WaiverStatus = "pending"
	WaiverApproved WaiverStatus = "approved"
	WaiverRejected WaiverStatus = "rejected"
)

// WaiverRequest transitions Pending -> Approved|Rejected exactly once.
// OriginalArrears is informational; approval re-validates against the
// bill's live arrears, not this snapshot.
type WaiverRequest struct {
	ID              string
	UnitID          string
	FeeType         string
	BillRefID       string
	OriginalArrears money.Money
	WaiveAmount     money.Money
	Reason          string
	Applicant       string
	SubmittedAt     time.Time
	Status          WaiverStatus
	Approver        string
	Opinion         string
	DecidedAt       *time.Time
}

// =============================================================================
// MASTER DATA - consumed, not owned
// =============================================================================

// FeeStandard is one priority-ordered input to the waterfall allocator.
type FeeStandard struct {
	FeeType string
	Amount  money.Money
}

// Unit is the minimal master record the importer upserts. Full
// unit/fee-schedule CRUD lives outside the core.
type Unit struct {
	ID        string
	OwnerName string
	CreatedAt time.Time
}

// AuditEntry records who did what when. Append-only.
type AuditEntry struct {
	ID       int64
	At       time.Time
	Operator string
	Action   string
	Detail   string
}

// =============================================================================
// ID GENERATION
// =============================================================================

var idSeq atomic.Int64

// newID returns a process-unique identifier. The counter suffix keeps
// ids distinct inside tight import loops.
func newID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), idSeq.Add(1))
}
