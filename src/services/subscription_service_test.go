package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fintrack/backend/src/models"
)

func newSubscriptionFixture(store *fakeStore) *SubscriptionService {
	svc := NewSubscriptionService(store, SubscriptionConfig{
		LookbackDays:       90,
		AnnualLookbackDays: 730,
		MinOccurrences:     3,
		AmountTolerancePct: 0.05,
		AmountToleranceAbs: 2.00,
		IntervalBandPct:    0.20,
	}, cache.New(time.Minute, time.Minute))
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC) }
	return svc
}

func seedRecurring(store *fakeStore, accountID int64, name string, amount float64, intervalDays, count int) {
	// Latest charge lands a few days before "today".
	last := day(-4)
	for i := 0; i < count; i++ {
		store.addTransaction(models.Transaction{
			AccountID:    accountID,
			ProviderTxID: fmt.Sprintf("%s-%d", name, i),
			Date:         last.AddDate(0, 0, -intervalDays*(count-1-i)),
			Amount:       amount,
			Name:         name,
		})
	}
}

func TestDetectMonthlySubscription(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "NETFLIX.COM", -15.99, 30, 4)

	detected, err := newSubscriptionFixture(store).Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)

	sub := detected[0]
	assert.Equal(t, models.CycleMonthly, sub.BillingCycle)
	assert.InDelta(t, 15.99, sub.ExpectedAmount, 0.001)
	assert.Equal(t, 4, sub.TransactionCount)
	assert.False(t, sub.AmountChanged)
	assert.InDelta(t, 15.99, sub.MonthlyEquivalent, 0.001)
	assert.Equal(t, day(-4).AddDate(0, 0, 30), sub.NextExpectedDate)
	assert.Equal(t, 26, sub.DaysUntilCharge)
}

func TestDetectWeeklySubscription(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "GYM CLASS", -25.00, 7, 5)

	detected, err := newSubscriptionFixture(store).Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)
	assert.Equal(t, models.CycleWeekly, detected[0].BillingCycle)
}

func TestDetectFlagsAmountChange(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "NETFLIX.COM", -15.99, 30, 3)
	// The latest charge moves within the clustering band but well past the
	// change threshold.
	store.addTransaction(models.Transaction{
		AccountID: checking.ID, ProviderTxID: "bump", Date: day(-4).AddDate(0, 0, 30),
		Amount: -16.99, Name: "NETFLIX.COM",
	})
	svc := newSubscriptionFixture(store)
	svc.now = func() time.Time { return day(-4).AddDate(0, 0, 34) }

	detected, err := svc.Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)
	assert.True(t, detected[0].AmountChanged)
	assert.InDelta(t, 16.99, detected[0].LastChargeAmount, 0.001)
}

func TestDetectToleratesSmallAmountDrift(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "NETFLIX.COM", -15.99, 30, 3)
	// A dime of drift is rounding noise, not a price change.
	store.addTransaction(models.Transaction{
		AccountID: checking.ID, ProviderTxID: "drift", Date: day(-4).AddDate(0, 0, 30),
		Amount: -16.09, Name: "NETFLIX.COM",
	})
	svc := newSubscriptionFixture(store)
	svc.now = func() time.Time { return day(-4).AddDate(0, 0, 34) }

	detected, err := svc.Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)
	assert.False(t, detected[0].AmountChanged)
}

func TestDetectPrefersMerchantNameOverDescription(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	// Raw statement lines vary per charge; the payee field is stable.
	descriptions := []string{
		"CARD PURCHASE 1234 NETFLIX",
		"POS DEBIT 5678 NETFLIX",
		"RECURRING PMT 9012 NETFLIX",
		"CARD PURCHASE 3456 NETFLIX",
	}
	for i, desc := range descriptions {
		store.addTransaction(models.Transaction{
			AccountID:    checking.ID,
			ProviderTxID: fmt.Sprintf("nf-%d", i),
			Date:         day(-4).AddDate(0, 0, -30*(len(descriptions)-1-i)),
			Amount:       -15.99,
			Name:         desc,
			MerchantName: "Netflix",
		})
	}

	detected, err := newSubscriptionFixture(store).Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)
	assert.Equal(t, "netflix", detected[0].MerchantPattern)
	assert.Equal(t, 4, detected[0].TransactionCount)
}

func TestDetectRequiresMinOccurrences(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "NETFLIX.COM", -15.99, 30, 2)

	detected, err := newSubscriptionFixture(store).Detect()
	require.NoError(t, err)
	assert.Empty(t, detected)
}

func TestDetectIgnoresIrregularCharges(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	for i, offset := range []int{-80, -61, -39, -4} {
		store.addTransaction(models.Transaction{
			AccountID:    checking.ID,
			ProviderTxID: fmt.Sprintf("grocery-%d", i),
			Date:         day(offset),
			Amount:       -87.12,
			Name:         "WHOLE FOODS MARKET",
		})
	}

	detected, err := newSubscriptionFixture(store).Detect()
	require.NoError(t, err)
	assert.Empty(t, detected)
}

func TestDetectSeparatesAmountClusters(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "AMAZON PRIME", -14.99, 30, 4)
	// A one-off large purchase at the same merchant must not pollute the
	// recurring cluster.
	store.addTransaction(models.Transaction{
		AccountID: checking.ID, ProviderTxID: "big", Date: day(-20), Amount: -219.00, Name: "AMAZON PRIME",
	})

	detected, err := newSubscriptionFixture(store).Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)
	assert.InDelta(t, 14.99, detected[0].ExpectedAmount, 0.001)
}

func TestDetectSkipsNonSpendingAccounts(t *testing.T) {
	store := newFakeStore()
	brokerage := store.addAccount(models.Account{Name: "Brokerage", AccountType: models.AccountBrokerage, IsActive: true})
	seedRecurring(store, brokerage.ID, "ROBINHOOD GOLD", -5.00, 30, 4)

	detected, err := newSubscriptionFixture(store).Detect()
	require.NoError(t, err)
	assert.Empty(t, detected)
}

func TestDetectSkipsKnownMerchants(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "NETFLIX.COM", -15.99, 30, 4)
	svc := newSubscriptionFixture(store)

	detected, err := svc.Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)

	_, err = svc.Confirm(detected[0], "")
	require.NoError(t, err)

	// Confirmation invalidates the cache and hides the merchant.
	detected, err = svc.Detect()
	require.NoError(t, err)
	assert.Empty(t, detected)
}

func TestDismissHidesMerchantFromDetection(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	seedRecurring(store, checking.ID, "NETFLIX.COM", -15.99, 30, 4)
	svc := newSubscriptionFixture(store)

	detected, err := svc.Detect()
	require.NoError(t, err)
	require.Len(t, detected, 1)
	require.NoError(t, svc.Dismiss(detected[0]))

	detected, err = svc.Detect()
	require.NoError(t, err)
	assert.Empty(t, detected)

	// Dismissed rows stay out of the default subscription list.
	subs, err := svc.List(false)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestNormalizeMerchant(t *testing.T) {
	assert.Equal(t, "netflix com", normalizeMerchant("NETFLIX.COM 866-579-7172"))
	assert.Equal(t, "netflix com", normalizeMerchant("Netflix.com"))
	assert.Equal(t, "sq coffee shop", normalizeMerchant("SQ *COFFEE SHOP 0042"))
	assert.Equal(t, "", normalizeMerchant("123456"))
}
