package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centuryview/feeledger/ledger"
	"github.com/centuryview/feeledger/money"
	"github.com/centuryview/feeledger/store/sqlite"
)

type settleFixture struct {
	store  *sqlite.Store
	bills  *ledger.BillService
	wallet *ledger.WalletService
	engine *ledger.SettlementEngine
}

func newSettleFixture(t *testing.T) *settleFixture {
	store := newTestStore(t)
	seedUnit(t, store, "3-1-501", "Zhang")
	return &settleFixture{
		store:  store,
		bills:  ledger.NewBillService(store),
		wallet: ledger.NewWalletService(store),
		engine: ledger.NewSettlementEngine(store),
	}
}

// =============================================================================
// ORDERING AND DISTRIBUTION
// =============================================================================

func TestSettle_OldestPeriodFirst(t *testing.T) {
	// GIVEN: bills for 2024-02 (1000) and 2024-01 (200), selected in
	//        the "wrong" order
	// WHEN: owner pays 300 cash
	// THEN: 2024-01 is cleared first, the 100 remainder hits 2024-02

	f := newSettleFixture(t)
	ctx := context.Background()

	feb := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "1000", "2024.2.1-2025.1.31")
	jan := createBill(t, f.bills, "3-1-501", ledger.FeeTypeElevator, "200", "2024.1.1-2024.12.31")

	result, err := f.engine.Settle(ctx, ledger.SettleParams{
		UnitID:   "3-1-501",
		BillIDs:  []string{feb.ID, jan.ID},
		Amount:   money.MustParse("300"),
		Source:   ledger.PayCash,
		Operator: "tester",
	})
	require.NoError(t, err)

	require.Len(t, result.Deductions, 2)
	assert.Equal(t, jan.ID, result.Deductions[0].BillID)
	assert.Equal(t, "200.00", result.Deductions[0].Deducted.String())
	assert.Equal(t, ledger.StatusPaid, result.Deductions[0].Status)
	assert.Equal(t, feb.ID, result.Deductions[1].BillID)
	assert.Equal(t, "100.00", result.Deductions[1].Deducted.String())
	assert.Equal(t, "900.00", result.Deductions[1].ArrearsAfter.String())
	assert.Equal(t, ledger.StatusPartiallyPaid, result.Deductions[1].Status)
}

func TestSettle_StampsReceiptOnTouchedBills(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	b := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "500", "2024.1.1")
	_, err := f.engine.Settle(ctx, ledger.SettleParams{
		UnitID:    "3-1-501",
		BillIDs:   []string{b.ID},
		Amount:    money.MustParse("500"),
		Source:    ledger.PayCash,
		Operator:  "tester",
		ReceiptNo: "R-2024-001",
	})
	require.NoError(t, err)

	stored, err := f.store.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "R-2024-001", stored.ReceiptNo)
	assert.Equal(t, ledger.StatusPaid, stored.Status)
}

func TestSettle_DuplicateSelection_CountedOnce(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	b := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "500", "2024.1.1")
	result, err := f.engine.Settle(ctx, ledger.SettleParams{
		UnitID:   "3-1-501",
		BillIDs:  []string{b.ID, b.ID, b.ID},
		Amount:   money.MustParse("500"),
		Source:   ledger.PayCash,
		Operator: "tester",
	})
	require.NoError(t, err)
	require.Len(t, result.Deductions, 1)
}

// =============================================================================
// GUARDS
// =============================================================================

func TestSettle_OverpaySelection_RejectedWithoutMutation(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	b := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "500", "2024.1.1")

	_, err := f.engine.Settle(ctx, ledger.SettleParams{
		UnitID:   "3-1-501",
		BillIDs:  []string{b.ID},
		Amount:   money.MustParse("500.01"),
		Source:   ledger.PayCash,
		Operator: "tester",
	})
	assert.ErrorIs(t, err, ledger.ErrPaymentExceedsSelection)

	var pe *ledger.PaymentExceedsSelectionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "500.00", pe.SelectedArrears.String())

	stored, err := f.store.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", stored.Arrears.String())
	assert.Equal(t, ledger.StatusUnpaid, stored.Status)
}

func TestSettle_ForeignBillInSelection_Rejected(t *testing.T) {
	f := newSettleFixture(t)
	seedUnit(t, f.store, "3-1-502", "Li")
	ctx := context.Background()

	mine := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "500", "2024.1.1")
	theirs := createBill(t, f.bills, "3-1-502", ledger.FeeTypeProperty, "500", "2024.1.1")

	_, err := f.engine.Settle(ctx, ledger.SettleParams{
		UnitID:   "3-1-501",
		BillIDs:  []string{mine.ID, theirs.ID},
		Amount:   money.MustParse("100"),
		Source:   ledger.PayCash,
		Operator: "tester",
	})
	assert.ErrorIs(t, err, ledger.ErrUnitMismatch)
}

func TestSettle_InvalidInputs(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()
	b := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "500", "2024.1.1")

	_, err := f.engine.Settle(ctx, ledger.SettleParams{
		UnitID: "3-1-501", BillIDs: []string{b.ID},
		Amount: money.Zero(), Source: ledger.PayCash,
	})
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = f.engine.Settle(ctx, ledger.SettleParams{
		UnitID: "3-1-501", BillIDs: nil,
		Amount: money.MustParse("10"), Source: ledger.PayCash,
	})
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = f.engine.Settle(ctx, ledger.SettleParams{
		UnitID: "3-1-501", BillIDs: []string{b.ID},
		Amount: money.MustParse("10"), Source: "cheque",
	})
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = f.engine.Settle(ctx, ledger.SettleParams{
		UnitID: "3-1-501", BillIDs: []string{"bill-nope"},
		Amount: money.MustParse("10"), Source: ledger.PayCash,
	})
	assert.ErrorIs(t, err, ledger.ErrBillNotFound)
}

// =============================================================================
// WALLET-FUNDED SETTLEMENT
// =============================================================================

func TestSettle_WalletSource_DebitsAndPays(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	b := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "500", "2024.1.1")
	_, err := f.wallet.Recharge(ctx, "3-1-501", money.MustParse("800"), "", "tester")
	require.NoError(t, err)

	result, err := f.engine.Settle(ctx, ledger.SettleParams{
		UnitID:   "3-1-501",
		BillIDs:  []string{b.ID},
		Amount:   money.MustParse("500"),
		Source:   ledger.PayWallet,
		Operator: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.PayWallet, result.Source)

	balance, err := f.wallet.GetBalance(ctx, "3-1-501")
	require.NoError(t, err)
	assert.Equal(t, "300.00", balance.String())

	stored, err := f.store.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, stored.Status)

	// The wallet log links back to the settlement.
	txs, err := f.wallet.ListTransactions(ctx, "3-1-501")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.KindConsumption, txs[1].Kind)
	assert.NotEmpty(t, txs[1].RefID)
}

func TestSettle_WalletSource_InsufficientBalance_NothingMutates(t *testing.T) {
	// GIVEN: wallet holds 100, bill arrears 500
	// WHEN: a wallet settlement of 500 is attempted
	// THEN: the whole transaction rolls back: no debit, no payment

	f := newSettleFixture(t)
	ctx := context.Background()

	b := createBill(t, f.bills, "3-1-501", ledger.FeeTypeProperty, "500", "2024.1.1")
	_, err := f.wallet.Recharge(ctx, "3-1-501", money.MustParse("100"), "", "tester")
	require.NoError(t, err)

	_, err = f.engine.Settle(ctx, ledger.SettleParams{
		UnitID:   "3-1-501",
		BillIDs:  []string{b.ID},
		Amount:   money.MustParse("500"),
		Source:   ledger.PayWallet,
		Operator: "tester",
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	balance, err := f.wallet.GetBalance(ctx, "3-1-501")
	require.NoError(t, err)
	assert.Equal(t, "100.00", balance.String())

	stored, err := f.store.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", stored.Arrears.String())
	assert.Equal(t, ledger.StatusUnpaid, stored.Status)
}
