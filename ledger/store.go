/*
store.go - Persistence interfaces for the fee-ledger core

PURPOSE:
  The seam between domain services and the database. A Store holds
  bills, wallet accounts + their append-only logs, waiver requests,
  minimal unit master records, and the audit trail.

TRANSACTION MODEL:
  Multi-step operations (settlement, waiver approval, bulk import)
  run inside TxStore.WithTx: the closure receives a Store whose writes
  all land in one database transaction, committed iff the closure
  returns nil. All inputs are captured before the transaction opens;
  nothing suspends mid-transaction.

APPEND-ONLY CONTRACT:
  - wallet_transactions: insert-only, no update/delete
  - audit_logs:          insert-only
  - bills: never deleted; quantity columns change only through
    payments and waivers, status is recomputed alongside them

IMPLEMENTATIONS:
  - store/sqlite: production embedded store (also used by tests
    via ":memory:")

SEE ALSO:
  - bill.go, wallet.go, settlement.go, waiver.go, importer.go
*/
package ledger

import (
	"context"
	"time"
)

// BillFilter narrows ListBills. Zero fields match everything.
type BillFilter struct {
	UnitID    string
	FeeType   string
	Status    BillStatus
	ReceiptNo string
	Operator  string
	Limit     int
}

// Store is the persistence surface for one logical dataset.
type Store interface {
	// Bills
	InsertBill(ctx context.Context, b Bill) error
	GetBill(ctx context.Context, id string) (*Bill, error)
	// UpdateBill rewrites the mutable columns (quantities, derived
	// status, receipt, remark, charge date) of an existing bill.
	UpdateBill(ctx context.Context, b Bill) error
	// ListOutstanding returns the unit's bills with arrears > 0,
	// oldest period first (period key, creation time, id).
	ListOutstanding(ctx context.Context, unitID string) ([]Bill, error)
	ListBills(ctx context.Context, f BillFilter) ([]Bill, error)

	// Wallet
	GetWalletAccount(ctx context.Context, unitID string) (*WalletAccount, error)
	UpsertWalletAccount(ctx context.Context, a WalletAccount) error
	AppendWalletTransaction(ctx context.Context, tx WalletTransaction) error
	ListWalletTransactions(ctx context.Context, unitID string) ([]WalletTransaction, error)

	// Waivers
	InsertWaiver(ctx context.Context, w WaiverRequest) error
	GetWaiver(ctx context.Context, id string) (*WaiverRequest, error)
	// UpdateWaiverDecision moves a request to its terminal status.
	UpdateWaiverDecision(ctx context.Context, id string, status WaiverStatus, approver, opinion string, decidedAt time.Time) error
	ListWaivers(ctx context.Context, status WaiverStatus) ([]WaiverRequest, error)

	// Units (minimal master data)
	UpsertUnit(ctx context.Context, u Unit) error
	GetUnit(ctx context.Context, id string) (*Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)

	// Audit trail
	AppendAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// TxStore is a Store that can run closures transactionally.
type TxStore interface {
	Store

	// WithTx executes fn inside one database transaction. If fn
	// returns an error the transaction is rolled back and the error
	// returned; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
