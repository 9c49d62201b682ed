package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fintrack/backend/src/models"
)

func TestBuildSnapshotBucketsBalances(t *testing.T) {
	store := newFakeStore()
	store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, CurrentBalance: 1000, IsActive: true})
	store.addAccount(models.Account{Name: "Card", AccountType: models.AccountCredit, CurrentBalance: -200, IsActive: true})
	store.addAccount(models.Account{Name: "Brokerage", AccountType: models.AccountBrokerage, CurrentBalance: 5000, IsActive: true})
	svc := NewNetWorthService(store)

	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.BuildSnapshot(date))

	snap := store.snapshots["2026-08-29"]
	require.NotNil(t, snap)
	assert.InDelta(t, 6000, snap.TotalAssets, 0.001)
	assert.InDelta(t, 200, snap.TotalLiabilities, 0.001)
	assert.InDelta(t, 5800, snap.NetWorth, 0.001)
	assert.InDelta(t, 1000, snap.Cash, 0.001)
	assert.InDelta(t, 5000, snap.Investments, 0.001)
	assert.InDelta(t, 200, snap.CreditDebt, 0.001)
}

func TestBuildSnapshotSkipsHiddenAndInactive(t *testing.T) {
	store := newFakeStore()
	store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, CurrentBalance: 1000, IsActive: true})
	store.addAccount(models.Account{Name: "Hidden", AccountType: models.AccountSavings, CurrentBalance: 9999, IsActive: true, IsHidden: true})
	store.addAccount(models.Account{Name: "Closed", AccountType: models.AccountSavings, CurrentBalance: 500, IsActive: false})
	svc := NewNetWorthService(store)

	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.BuildSnapshot(date))

	snap := store.snapshots["2026-08-29"]
	require.NotNil(t, snap)
	assert.InDelta(t, 1000, snap.TotalAssets, 0.001)
}

func TestBuildSnapshotOtherAccountsSplitOnSign(t *testing.T) {
	store := newFakeStore()
	store.addAccount(models.Account{Name: "Crypto", AccountType: models.AccountOther, CurrentBalance: 300, IsActive: true})
	store.addAccount(models.Account{Name: "IOU", AccountType: models.AccountOther, CurrentBalance: -100, IsActive: true})
	store.addAccount(models.Account{Name: "Mortgage", AccountType: models.AccountMortgage, CurrentBalance: -250000, IsActive: true})
	svc := NewNetWorthService(store)

	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.BuildSnapshot(date))

	snap := store.snapshots["2026-08-29"]
	require.NotNil(t, snap)
	assert.InDelta(t, 300, snap.TotalAssets, 0.001)
	assert.InDelta(t, 250100, snap.TotalLiabilities, 0.001)
	assert.InDelta(t, 250000, snap.LoanDebt, 0.001)
}

func TestBuildSnapshotIsIdempotentPerDate(t *testing.T) {
	store := newFakeStore()
	acct := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, CurrentBalance: 1000, IsActive: true})
	svc := NewNetWorthService(store)

	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.BuildSnapshot(date))
	store.accounts[acct.ID].CurrentBalance = 1500
	require.NoError(t, svc.BuildSnapshot(date))

	assert.Len(t, store.snapshots, 1)
	assert.InDelta(t, 1500, store.snapshots["2026-08-29"].NetWorth, 0.001)
}

func TestBackfillUsesBalanceHistory(t *testing.T) {
	store := newFakeStore()
	acct := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, CurrentBalance: 1200, IsActive: true})
	today := time.Now().UTC()
	store.balances[acct.ID] = map[string]float64{
		today.AddDate(0, 0, -2).Format("2006-01-02"): 900,
		today.Format("2006-01-02"):                   1200,
	}
	svc := NewNetWorthService(store)

	written, err := svc.Backfill(3)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	// The day between recorded balances carries the most recent earlier one.
	middle := store.snapshots[today.AddDate(0, 0, -1).Format("2006-01-02")]
	require.NotNil(t, middle)
	assert.InDelta(t, 900, middle.NetWorth, 0.001)
	assert.InDelta(t, 1200, store.snapshots[today.Format("2006-01-02")].NetWorth, 0.001)
}
