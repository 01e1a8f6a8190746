package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centuryview/feeledger/ledger"
	"github.com/centuryview/feeledger/money"
)

// =============================================================================
// CREDIT / DEBIT
// =============================================================================

func TestWallet_RechargeCreatesAccountLazily(t *testing.T) {
	store := newTestStore(t)
	seedUnit(t, store, "3-1-501", "Zhang")
	wallet := ledger.NewWalletService(store)
	ctx := context.Background()

	balance, err := wallet.GetBalance(ctx, "3-1-501")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	tx, err := wallet.Recharge(ctx, "3-1-501", money.MustParse("500"), "opening", "tester")
	require.NoError(t, err)
	assert.Equal(t, ledger.KindRecharge, tx.Kind)
	assert.Equal(t, "500.00", tx.Amount.String())
	assert.Equal(t, "500.00", tx.BalanceAfter.String())

	acct, err := store.GetWalletAccount(ctx, "3-1-501")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, "Zhang", acct.OwnerName)
	assert.Equal(t, "500.00", acct.Balance.String())
}

func TestWallet_Recharge_UnitLookupFailure_Aborts(t *testing.T) {
	// A store error during the lazy account lookup aborts the whole
	// transaction instead of silently creating an ownerless account.
	store := newTestStore(t)
	faulty := &faultStore{Store: store, failGetUnit: true}
	wallet := ledger.NewWalletService(faulty)
	ctx := context.Background()

	_, err := wallet.Recharge(ctx, "3-1-501", money.MustParse("100"), "", "tester")
	require.Error(t, err)

	acct, err := store.GetWalletAccount(ctx, "3-1-501")
	require.NoError(t, err)
	assert.Nil(t, acct)

	txs, err := store.ListWalletTransactions(ctx, "3-1-501")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestWallet_ConsumeWithinBalance(t *testing.T) {
	store := newTestStore(t)
	seedUnit(t, store, "3-1-501", "Zhang")
	wallet := ledger.NewWalletService(store)
	ctx := context.Background()

	_, err := wallet.Recharge(ctx, "3-1-501", money.MustParse("500"), "", "tester")
	require.NoError(t, err)

	tx, err := wallet.Consume(ctx, "3-1-501", money.MustParse("180"), "bill-1", "", "tester")
	require.NoError(t, err)

	// Consumption rows carry the signed delta.
	assert.Equal(t, ledger.KindConsumption, tx.Kind)
	assert.Equal(t, "-180.00", tx.Amount.String())
	assert.Equal(t, "320.00", tx.BalanceAfter.String())
	assert.Equal(t, "bill-1", tx.RefID)
}

func TestWallet_Consume_InsufficientBalance(t *testing.T) {
	store := newTestStore(t)
	seedUnit(t, store, "3-1-501", "Zhang")
	wallet := ledger.NewWalletService(store)
	ctx := context.Background()

	_, err := wallet.Recharge(ctx, "3-1-501", money.MustParse("100"), "", "tester")
	require.NoError(t, err)

	_, err = wallet.Consume(ctx, "3-1-501", money.MustParse("100.01"), "", "", "tester")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	var ib *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, "100.00", ib.Available.String())
	assert.Equal(t, "100.01", ib.Requested.String())

	// Balance and log untouched.
	balance, err := wallet.GetBalance(ctx, "3-1-501")
	require.NoError(t, err)
	assert.Equal(t, "100.00", balance.String())
	txs, err := wallet.ListTransactions(ctx, "3-1-501")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestWallet_Consume_NoAccount(t *testing.T) {
	store := newTestStore(t)
	wallet := ledger.NewWalletService(store)

	_, err := wallet.Consume(context.Background(), "ghost", money.MustParse("1"), "", "", "tester")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestWallet_NonPositiveAmounts_Rejected(t *testing.T) {
	store := newTestStore(t)
	seedUnit(t, store, "3-1-501", "Zhang")
	wallet := ledger.NewWalletService(store)
	ctx := context.Background()

	_, err := wallet.Recharge(ctx, "3-1-501", money.Zero(), "", "tester")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = wallet.Consume(ctx, "3-1-501", money.MustParse("-10"), "", "", "tester")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}

// =============================================================================
// LOG INVARIANTS
// =============================================================================

func TestWallet_ReplayReproducesBalance(t *testing.T) {
	// GIVEN: a mixed history of recharges, prepays and consumptions
	// WHEN: the log is replayed from zero in order
	// THEN: the running sum matches every balance_after and the final
	//       account balance

	store := newTestStore(t)
	seedUnit(t, store, "3-1-501", "Zhang")
	wallet := ledger.NewWalletService(store)
	ctx := context.Background()

	_, err := wallet.Recharge(ctx, "3-1-501", money.MustParse("500"), "", "tester")
	require.NoError(t, err)
	_, err = wallet.ImportPrepay(ctx, "3-1-501", money.MustParse("120.50"), "batch-1", "", "tester")
	require.NoError(t, err)
	_, err = wallet.Consume(ctx, "3-1-501", money.MustParse("310.25"), "bill-1", "", "tester")
	require.NoError(t, err)
	_, err = wallet.Recharge(ctx, "3-1-501", money.MustParse("42"), "", "tester")
	require.NoError(t, err)

	txs, err := wallet.ListTransactions(ctx, "3-1-501")
	require.NoError(t, err)
	require.Len(t, txs, 4)

	running := money.Zero()
	for _, tx := range txs {
		running = running.Add(tx.Amount)
		assert.True(t, tx.BalanceAfter.Equal(running), "balance_after mismatch at %s", tx.ID)
	}

	balance, err := wallet.GetBalance(ctx, "3-1-501")
	require.NoError(t, err)
	assert.True(t, balance.Equal(running))
	assert.Equal(t, "352.25", balance.String())
}

func TestWallet_ImportPrepay_TaggedDistinctly(t *testing.T) {
	store := newTestStore(t)
	seedUnit(t, store, "3-1-501", "Zhang")
	wallet := ledger.NewWalletService(store)

	tx, err := wallet.ImportPrepay(context.Background(), "3-1-501", money.MustParse("75"), "batch-9", "opening prepay", "tester")
	require.NoError(t, err)

	assert.Equal(t, ledger.KindImportPrepay, tx.Kind)
	assert.Equal(t, "batch-9", tx.RefID)
}
