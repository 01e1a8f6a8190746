/*
wallet.go - Prepaid wallet: balance plus append-only transaction log

PURPOSE:
  Each unit may hold a prepaid balance usable against future or
  existing bills. The balance column is a convenience; the log is the
  truth: replaying a unit's transactions from zero in timestamp order
  must reproduce the balance, and every row's balance_after must equal
  the running sum through that row.

ATOMICITY:
  Every mutation updates the account row and appends the log row in
  the same transaction. The settlement engine consumes through the
  same in-transaction primitive so a failed consume aborts the whole
  settlement with no bill mutation.

AUDIT:
  ImportPrepay behaves exactly like a recharge but is tagged
  separately so imported opening balances stay distinguishable from
  operator-initiated recharges.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/centuryview/feeledger/money"
)

// WalletService exposes the prepaid wallet operations.
type WalletService struct {
	Store TxStore
}

func NewWalletService(store TxStore) *WalletService {
	return &WalletService{Store: store}
}

// Recharge adds prepaid funds to a unit's wallet. The account is
// created lazily on first transaction.
func (s *WalletService) Recharge(ctx context.Context, unitID string, amount money.Money, remark, operator string) (*WalletTransaction, error) {
	var tx *WalletTransaction
	err := s.Store.WithTx(ctx, func(st Store) error {
		var err error
		tx, err = creditTx(ctx, st, unitID, amount, KindRecharge, "", remark, operator)
		if err != nil {
			return err
		}
		return st.AppendAudit(ctx, AuditEntry{
			At:       tx.OccurredAt,
			Operator: operator,
			Action:   "wallet_recharge",
			Detail:   fmt.Sprintf("unit %s amount %s balance %s", unitID, amount, tx.BalanceAfter),
		})
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ImportPrepay records an imported opening balance. Same effect as a
// recharge, distinct kind for audit.
func (s *WalletService) ImportPrepay(ctx context.Context, unitID string, amount money.Money, refID, remark, operator string) (*WalletTransaction, error) {
	var tx *WalletTransaction
	err := s.Store.WithTx(ctx, func(st Store) error {
		var err error
		tx, err = creditTx(ctx, st, unitID, amount, KindImportPrepay, refID, remark, operator)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Consume spends wallet balance, typically against a settlement.
func (s *WalletService) Consume(ctx context.Context, unitID string, amount money.Money, refID, remark, operator string) (*WalletTransaction, error) {
	var tx *WalletTransaction
	err := s.Store.WithTx(ctx, func(st Store) error {
		var err error
		tx, err = consumeTx(ctx, st, unitID, amount, refID, remark, operator)
		if err != nil {
			return err
		}
		return st.AppendAudit(ctx, AuditEntry{
			At:       tx.OccurredAt,
			Operator: operator,
			Action:   "wallet_consume",
			Detail:   fmt.Sprintf("unit %s amount %s balance %s", unitID, amount, tx.BalanceAfter),
		})
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// GetBalance returns the unit's prepaid balance, zero when no account
// exists yet.
func (s *WalletService) GetBalance(ctx context.Context, unitID string) (money.Money, error) {
	acct, err := s.Store.GetWalletAccount(ctx, unitID)
	if err != nil {
		return money.Zero(), err
	}
	if acct == nil {
		return money.Zero(), nil
	}
	return acct.Balance, nil
}

// ListTransactions returns the unit's wallet log in timestamp order.
func (s *WalletService) ListTransactions(ctx context.Context, unitID string) ([]WalletTransaction, error) {
	return s.Store.ListWalletTransactions(ctx, unitID)
}

// creditTx is the in-transaction credit primitive (recharge/prepay).
func creditTx(ctx context.Context, st Store, unitID string, amount money.Money, kind WalletTxKind, refID, remark, operator string) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit %s", money.ErrInvalidAmount, amount)
	}
	return mutateWallet(ctx, st, unitID, amount, kind, refID, remark, operator)
}

// consumeTx is the in-transaction debit primitive shared with the
// settlement engine. Fails when amount exceeds the balance.
func consumeTx(ctx context.Context, st Store, unitID string, amount money.Money, refID, remark, operator string) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: consume %s", money.ErrInvalidAmount, amount)
	}
	acct, err := st.GetWalletAccount(ctx, unitID)
	if err != nil {
		return nil, err
	}
	balance := money.Zero()
	if acct != nil {
		balance = acct.Balance
	}
	if amount.GreaterThan(balance) {
		return nil, &InsufficientBalanceError{UnitID: unitID, Available: balance, Requested: amount}
	}
	return mutateWallet(ctx, st, unitID, amount.Neg(), KindConsumption, refID, remark, operator)
}

// mutateWallet applies a signed delta: single-row balance update plus
// one appended log row, same transaction.
func mutateWallet(ctx context.Context, st Store, unitID string, delta money.Money, kind WalletTxKind, refID, remark, operator string) (*WalletTransaction, error) {
	acct, err := st.GetWalletAccount(ctx, unitID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if acct == nil {
		unit, err := st.GetUnit(ctx, unitID)
		if err != nil {
			return nil, err
		}
		owner := ""
		if unit != nil {
			owner = unit.OwnerName
		}
		acct = &WalletAccount{UnitID: unitID, OwnerName: owner}
	}

	acct.Balance = acct.Balance.Add(delta)
	acct.UpdatedAt = now
	if err := st.UpsertWalletAccount(ctx, *acct); err != nil {
		return nil, err
	}

	tx := WalletTransaction{
		ID:           newID("wtx"),
		UnitID:       unitID,
		OccurredAt:   now,
		Kind:         kind,
		Amount:       delta,
		BalanceAfter: acct.Balance,
		RefID:        refID,
		Remark:       remark,
		Operator:     operator,
	}
	if err := st.AppendWalletTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
