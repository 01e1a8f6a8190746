/*
Package sqlite provides the SQLite-backed implementation of the
ledger storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore on an embedded SQLite
  database. Use ":memory:" for tests.

KEY TABLES:
  bills:               ledger lines; quantities plus derived status
  wallet_accounts:     one balance row per unit
  wallet_transactions: append-only wallet log with balance_after
  waiver_requests:     approval state machine rows
  units:               minimal master records
  audit_logs:          append-only who/what/when trail

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE ever touches wallet_transactions or audit_logs.
  - Bills are never deleted; UpdateBill rewrites only the mutable
    columns of one row. Corrections are offsetting reversal lines.

MONEY COLUMNS:
  Stored as canonical fixed 2-place decimal strings and parsed back via
  the money package. Outstanding-arrears filtering casts to REAL for
  the comparison only; the stored value round-trips exactly as text.

CONCURRENCY:
  A sync.RWMutex serializes writers (single-logical-writer model) while
  SQLite runs in WAL mode so readers don't block. WithTx holds the
  write lock for the whole closure and hands out a transactional view
  that calls unlocked helpers, so in-transaction reads don't deadlock.

USAGE:
  store, err := sqlite.New("./data/feeledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.WithTx(ctx, func(st ledger.Store) error { ... })

SEE ALSO:
  - ledger/store.go: interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/centuryview/feeledger/ledger"
	"github.com/centuryview/feeledger/money"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Bills (one obligation line per unit, fee type, period)
	CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL,
		owner_name TEXT,
		fee_type TEXT NOT NULL,
		period TEXT,
		period_key TEXT,
		receivable TEXT NOT NULL,
		received TEXT NOT NULL,
		waived TEXT NOT NULL,
		arrears TEXT NOT NULL,
		status TEXT NOT NULL,
		charge_date TEXT,
		receipt_no TEXT,
		remark TEXT,
		operator TEXT,
		source TEXT,
		ref_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bills_unit
		ON bills(unit_id);
	-- Settlement hot path: outstanding bills oldest-period-first
	CREATE INDEX IF NOT EXISTS idx_bills_unit_period
		ON bills(unit_id, period_key, created_at);
	CREATE INDEX IF NOT EXISTS idx_bills_status
		ON bills(status);
	CREATE INDEX IF NOT EXISTS idx_bills_receipt
		ON bills(receipt_no) WHERE receipt_no IS NOT NULL;

	-- Wallet accounts (single balance row per unit)
	CREATE TABLE IF NOT EXISTS wallet_accounts (
		unit_id TEXT PRIMARY KEY,
		owner_name TEXT,
		balance TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Wallet transactions (append-only; balance_after is the running
	-- sum through each row)
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		ref_id TEXT,
		remark TEXT,
		operator TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_tx_unit
		ON wallet_transactions(unit_id, occurred_at);

	-- Waiver requests
	CREATE TABLE IF NOT EXISTS waiver_requests (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL,
		fee_type TEXT,
		bill_ref_id TEXT NOT NULL,
		original_arrears TEXT NOT NULL,
		waive_amount TEXT NOT NULL,
		reason TEXT,
		applicant TEXT,
		submitted_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		approver TEXT,
		opinion TEXT,
		decided_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_waivers_status
		ON waiver_requests(status);
	CREATE INDEX IF NOT EXISTS idx_waivers_bill
		ON waiver_requests(bill_ref_id);

	-- Units (minimal master data)
	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		owner_name TEXT,
		created_at TEXT NOT NULL
	);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		operator TEXT,
		action TEXT NOT NULL,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_at
		ON audit_logs(at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx so the package
// helpers serve the plain store and the transactional view alike.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within one database transaction. The write lock
// is held for the whole closure: writers are fully serialized.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the in-transaction view. It must not touch the parent
// mutex: WithTx already holds it.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertBill(ctx context.Context, b ledger.Bill) error {
	return insertBill(ctx, ts.tx, b)
}
func (ts *txStore) GetBill(ctx context.Context, id string) (*ledger.Bill, error) {
	return getBill(ctx, ts.tx, id)
}
func (ts *txStore) UpdateBill(ctx context.Context, b ledger.Bill) error {
	return updateBill(ctx, ts.tx, b)
}
func (ts *txStore) ListOutstanding(ctx context.Context, unitID string) ([]ledger.Bill, error) {
	return listOutstanding(ctx, ts.tx, unitID)
}
func (ts *txStore) ListBills(ctx context.Context, f ledger.BillFilter) ([]ledger.Bill, error) {
	return listBills(ctx, ts.tx, f)
}
func (ts *txStore) GetWalletAccount(ctx context.Context, unitID string) (*ledger.WalletAccount, error) {
	return getWalletAccount(ctx, ts.tx, unitID)
}
func (ts *txStore) UpsertWalletAccount(ctx context.Context, a ledger.WalletAccount) error {
	return upsertWalletAccount(ctx, ts.tx, a)
}
func (ts *txStore) AppendWalletTransaction(ctx context.Context, wt ledger.WalletTransaction) error {
	return appendWalletTransaction(ctx, ts.tx, wt)
}
func (ts *txStore) ListWalletTransactions(ctx context.Context, unitID string) ([]ledger.WalletTransaction, error) {
	return listWalletTransactions(ctx, ts.tx, unitID)
}
func (ts *txStore) InsertWaiver(ctx context.Context, w ledger.WaiverRequest) error {
	return insertWaiver(ctx, ts.tx, w)
}
func (ts *txStore) GetWaiver(ctx context.Context, id string) (*ledger.WaiverRequest, error) {
	return getWaiver(ctx, ts.tx, id)
}
func (ts *txStore) UpdateWaiverDecision(ctx context.Context, id string, status ledger.WaiverStatus, approver, opinion string, decidedAt time.Time) error {
	return updateWaiverDecision(ctx, ts.tx, id, status, approver, opinion, decidedAt)
}
func (ts *txStore) ListWaivers(ctx context.Context, status ledger.WaiverStatus) ([]ledger.WaiverRequest, error) {
	return listWaivers(ctx, ts.tx, status)
}
func (ts *txStore) UpsertUnit(ctx context.Context, u ledger.Unit) error {
	return upsertUnit(ctx, ts.tx, u)
}
func (ts *txStore) GetUnit(ctx context.Context, id string) (*ledger.Unit, error) {
	return getUnit(ctx, ts.tx, id)
}
func (ts *txStore) ListUnits(ctx context.Context) ([]ledger.Unit, error) {
	return listUnits(ctx, ts.tx)
}
func (ts *txStore) AppendAudit(ctx context.Context, e ledger.AuditEntry) error {
	return appendAudit(ctx, ts.tx, e)
}
func (ts *txStore) ListAudit(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	return listAudit(ctx, ts.tx, limit)
}

// =============================================================================
// BILLS
// =============================================================================

func (s *Store) InsertBill(ctx context.Context, b ledger.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBill(ctx, s.db, b)
}

func (s *Store) GetBill(ctx context.Context, id string) (*ledger.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBill(ctx, s.db, id)
}

func (s *Store) UpdateBill(ctx context.Context, b ledger.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBill(ctx, s.db, b)
}

func (s *Store) ListOutstanding(ctx context.Context, unitID string) ([]ledger.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOutstanding(ctx, s.db, unitID)
}

func (s *Store) ListBills(ctx context.Context, f ledger.BillFilter) ([]ledger.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBills(ctx, s.db, f)
}

const billColumns = `id, unit_id, owner_name, fee_type, period, period_key,
	receivable, received, waived, arrears, status, charge_date, receipt_no,
	remark, operator, source, ref_id, created_at`

func insertBill(ctx context.Context, q querier, b ledger.Bill) error {
	query := `
		INSERT INTO bills
		(id, unit_id, owner_name, fee_type, period, period_key, receivable,
		 received, waived, arrears, status, charge_date, receipt_no, remark,
		 operator, source, ref_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		b.ID, b.UnitID, b.OwnerName, b.FeeType, b.Period, b.PeriodKey,
		b.Receivable.String(), b.Received.String(), b.Waived.String(),
		b.Arrears.String(), string(b.Status), chargeDateString(b.ChargeDate),
		nullString(b.ReceiptNo), b.Remark, b.Operator, string(b.Source),
		nullString(b.RefID), b.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	return nil
}

func getBill(ctx context.Context, q querier, id string) (*ledger.Bill, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills, err := scanBills(rows)
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, nil
	}
	return &bills[0], nil
}

// updateBill rewrites only the columns a settlement, waiver, or
// reversal may change. Identity and quantity-at-creation columns stay
// as inserted.
func updateBill(ctx context.Context, q querier, b ledger.Bill) error {
	query := `
		UPDATE bills
		SET received = ?, waived = ?, arrears = ?, status = ?,
		    receipt_no = ?, remark = ?, charge_date = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		b.Received.String(), b.Waived.String(), b.Arrears.String(),
		string(b.Status), nullString(b.ReceiptNo), b.Remark,
		chargeDateString(b.ChargeDate), b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrBillNotFound, b.ID)
	}
	return nil
}

func listOutstanding(ctx context.Context, q querier, unitID string) ([]ledger.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE unit_id = ? AND CAST(arrears AS REAL) > 0
		ORDER BY period_key ASC, created_at ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func listBills(ctx context.Context, q querier, f ledger.BillFilter) ([]ledger.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE 1=1`
	var args []any
	if f.UnitID != "" {
		query += ` AND unit_id = ?`
		args = append(args, f.UnitID)
	}
	if f.FeeType != "" {
		query += ` AND fee_type = ?`
		args = append(args, f.FeeType)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.ReceiptNo != "" {
		query += ` AND receipt_no = ?`
		args = append(args, f.ReceiptNo)
	}
	if f.Operator != "" {
		query += ` AND operator = ?`
		args = append(args, f.Operator)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func scanBills(rows *sql.Rows) ([]ledger.Bill, error) {
	var bills []ledger.Bill
	for rows.Next() {
		var (
			b          ledger.Bill
			receivable string
			received   string
			waived     string
			arrears    string
			status     string
			source     string
			chargeDate sql.NullString
			receiptNo  sql.NullString
			refID      sql.NullString
			createdAt  string
		)
		if err := rows.Scan(
			&b.ID, &b.UnitID, &b.OwnerName, &b.FeeType, &b.Period, &b.PeriodKey,
			&receivable, &received, &waived, &arrears, &status, &chargeDate,
			&receiptNo, &b.Remark, &b.Operator, &source, &refID, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		b.Receivable = parseMoney(receivable)
		b.Received = parseMoney(received)
		b.Waived = parseMoney(waived)
		b.Arrears = parseMoney(arrears)
		b.Status = ledger.BillStatus(status)
		b.Source = ledger.BillSource(source)
		b.ReceiptNo = receiptNo.String
		b.RefID = refID.String
		if chargeDate.Valid && chargeDate.String != "" {
			if t, err := time.Parse("2006-01-02", chargeDate.String); err == nil {
				b.ChargeDate = &t
			}
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// =============================================================================
// WALLET
// =============================================================================

func (s *Store) GetWalletAccount(ctx context.Context, unitID string) (*ledger.WalletAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getWalletAccount(ctx, s.db, unitID)
}

func (s *Store) UpsertWalletAccount(ctx context.Context, a ledger.WalletAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertWalletAccount(ctx, s.db, a)
}

func (s *Store) AppendWalletTransaction(ctx context.Context, wt ledger.WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendWalletTransaction(ctx, s.db, wt)
}

func (s *Store) ListWalletTransactions(ctx context.Context, unitID string) ([]ledger.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listWalletTransactions(ctx, s.db, unitID)
}

func getWalletAccount(ctx context.Context, q querier, unitID string) (*ledger.WalletAccount, error) {
	var (
		a         ledger.WalletAccount
		balance   string
		updatedAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT unit_id, owner_name, balance, updated_at FROM wallet_accounts WHERE unit_id = ?`,
		unitID,
	).Scan(&a.UnitID, &a.OwnerName, &balance, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Balance = parseMoney(balance)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &a, nil
}

func upsertWalletAccount(ctx context.Context, q querier, a ledger.WalletAccount) error {
	query := `
		INSERT INTO wallet_accounts (unit_id, owner_name, balance, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(unit_id) DO UPDATE SET
			owner_name = excluded.owner_name,
			balance = excluded.balance,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		a.UnitID, a.OwnerName, a.Balance.String(),
		a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func appendWalletTransaction(ctx context.Context, q querier, wt ledger.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions
		(id, unit_id, occurred_at, kind, amount, balance_after, ref_id, remark, operator)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		wt.ID, wt.UnitID, wt.OccurredAt.UTC().Format(time.RFC3339Nano),
		string(wt.Kind), wt.Amount.String(), wt.BalanceAfter.String(),
		nullString(wt.RefID), wt.Remark, wt.Operator,
	)
	if err != nil {
		return fmt.Errorf("failed to append wallet transaction: %w", err)
	}
	return nil
}

func listWalletTransactions(ctx context.Context, q querier, unitID string) ([]ledger.WalletTransaction, error) {
	query := `
		SELECT id, unit_id, occurred_at, kind, amount, balance_after, ref_id, remark, operator
		FROM wallet_transactions
		WHERE unit_id = ?
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []ledger.WalletTransaction
	for rows.Next() {
		var (
			wt           ledger.WalletTransaction
			occurredAt   string
			kind         string
			amount       string
			balanceAfter string
			refID        sql.NullString
		)
		if err := rows.Scan(&wt.ID, &wt.UnitID, &occurredAt, &kind, &amount,
			&balanceAfter, &refID, &wt.Remark, &wt.Operator); err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		wt.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		wt.Kind = ledger.WalletTxKind(kind)
		wt.Amount = parseMoney(amount)
		wt.BalanceAfter = parseMoney(balanceAfter)
		wt.RefID = refID.String
		txs = append(txs, wt)
	}
	return txs, rows.Err()
}

// =============================================================================
// WAIVERS
// =============================================================================

func (s *Store) InsertWaiver(ctx context.Context, w ledger.WaiverRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertWaiver(ctx, s.db, w)
}

func (s *Store) GetWaiver(ctx context.Context, id string) (*ledger.WaiverRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getWaiver(ctx, s.db, id)
}

func (s *Store) UpdateWaiverDecision(ctx context.Context, id string, status ledger.WaiverStatus, approver, opinion string, decidedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateWaiverDecision(ctx, s.db, id, status, approver, opinion, decidedAt)
}

func (s *Store) ListWaivers(ctx context.Context, status ledger.WaiverStatus) ([]ledger.WaiverRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listWaivers(ctx, s.db, status)
}

const waiverColumns = `id, unit_id, fee_type, bill_ref_id, original_arrears,
	waive_amount, reason, applicant, submitted_at, status, approver, opinion, decided_at`

func insertWaiver(ctx context.Context, q querier, w ledger.WaiverRequest) error {
	query := `
		INSERT INTO waiver_requests
		(id, unit_id, fee_type, bill_ref_id, original_arrears, waive_amount,
		 reason, applicant, submitted_at, status, approver, opinion, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		w.ID, w.UnitID, w.FeeType, w.BillRefID,
		w.OriginalArrears.String(), w.WaiveAmount.String(),
		w.Reason, w.Applicant, w.SubmittedAt.UTC().Format(time.RFC3339Nano),
		string(w.Status), w.Approver, w.Opinion, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to insert waiver request: %w", err)
	}
	return nil
}

func getWaiver(ctx context.Context, q querier, id string) (*ledger.WaiverRequest, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+waiverColumns+` FROM waiver_requests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ws, err := scanWaivers(rows)
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, nil
	}
	return &ws[0], nil
}

// updateWaiverDecision is guarded on the pending status so a racing
// decision can never overwrite an earlier one.
func updateWaiverDecision(ctx context.Context, q querier, id string, status ledger.WaiverStatus, approver, opinion string, decidedAt time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE waiver_requests
		SET status = ?, approver = ?, opinion = ?, decided_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), approver, opinion, decidedAt.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to update waiver decision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: waiver %s is not pending", ledger.ErrInvalidState, id)
	}
	return nil
}

func listWaivers(ctx context.Context, q querier, status ledger.WaiverStatus) ([]ledger.WaiverRequest, error) {
	query := `SELECT ` + waiverColumns + ` FROM waiver_requests`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY submitted_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWaivers(rows)
}

func scanWaivers(rows *sql.Rows) ([]ledger.WaiverRequest, error) {
	var ws []ledger.WaiverRequest
	for rows.Next() {
		var (
			w               ledger.WaiverRequest
			originalArrears string
			waiveAmount     string
			submittedAt     string
			status          string
			approver        sql.NullString
			opinion         sql.NullString
			decidedAt       sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.UnitID, &w.FeeType, &w.BillRefID,
			&originalArrears, &waiveAmount, &w.Reason, &w.Applicant,
			&submittedAt, &status, &approver, &opinion, &decidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waiver request: %w", err)
		}
		w.OriginalArrears = parseMoney(originalArrears)
		w.WaiveAmount = parseMoney(waiveAmount)
		w.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submittedAt)
		w.Status = ledger.WaiverStatus(status)
		w.Approver = approver.String
		w.Opinion = opinion.String
		if decidedAt.Valid && decidedAt.String != "" {
			if t, err := time.Parse(time.RFC3339Nano, decidedAt.String); err == nil {
				w.DecidedAt = &t
			}
		}
		ws = append(ws, w)
	}
	return ws, rows.Err()
}

// =============================================================================
// UNITS
// =============================================================================

func (s *Store) UpsertUnit(ctx context.Context, u ledger.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertUnit(ctx, s.db, u)
}

func (s *Store) GetUnit(ctx context.Context, id string) (*ledger.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUnit(ctx, s.db, id)
}

func (s *Store) ListUnits(ctx context.Context) ([]ledger.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUnits(ctx, s.db)
}

func upsertUnit(ctx context.Context, q querier, u ledger.Unit) error {
	query := `
		INSERT INTO units (id, owner_name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_name = excluded.owner_name
	`
	_, err := q.ExecContext(ctx, query,
		u.ID, u.OwnerName, u.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func getUnit(ctx context.Context, q querier, id string) (*ledger.Unit, error) {
	var (
		u         ledger.Unit
		createdAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, owner_name, created_at FROM units WHERE id = ?`, id,
	).Scan(&u.ID, &u.OwnerName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &u, nil
}

func listUnits(ctx context.Context, q querier) ([]ledger.Unit, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, owner_name, created_at FROM units ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []ledger.Unit
	for rows.Next() {
		var (
			u         ledger.Unit
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.OwnerName, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		units = append(units, u)
	}
	return units, rows.Err()
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, e)
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAudit(ctx, s.db, limit)
}

func appendAudit(ctx context.Context, q querier, e ledger.AuditEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_logs (at, operator, action, detail) VALUES (?, ?, ?, ?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.Operator, e.Action, e.Detail)
	return err
}

func listAudit(ctx context.Context, q querier, limit int) ([]ledger.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, at, operator, action, detail
		FROM audit_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.AuditEntry
	for rows.Next() {
		var (
			e  ledger.AuditEntry
			at string
		)
		if err := rows.Scan(&e.ID, &at, &e.Operator, &e.Action, &e.Detail); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func chargeDateString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format("2006-01-02"), Valid: true}
}

// parseMoney reads back values this store wrote itself.
func parseMoney(s string) money.Money {
	m, err := money.Parse(s)
	if err != nil {
		return money.Zero()
	}
	return m
}
