package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fintrack/backend/src/models"
)

func newDuplicateFixture(store *fakeStore) *DuplicateService {
	svc := NewDuplicateService(store, DuplicateConfig{LookbackDays: 90, DateWindowDays: 3})
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC) }
	return svc
}

func day(offset int) time.Time {
	return time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestDetectCrossAccountDuplicate(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	credit := store.addAccount(models.Account{Name: "Card", AccountType: models.AccountCredit, IsActive: true})
	store.addTransaction(models.Transaction{AccountID: checking.ID, ProviderTxID: "a", Date: day(-2), Amount: -50.00, Name: "STORE"})
	store.addTransaction(models.Transaction{AccountID: credit.ID, ProviderTxID: "b", Date: day(-1), Amount: -50.00, Name: "STORE"})

	groups, err := newDuplicateFixture(store).Detect()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(5000), groups[0].AmountCents)
	assert.Len(t, groups[0].Transactions, 2)
}

func TestDetectIgnoresSameAccount(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	store.addTransaction(models.Transaction{AccountID: checking.ID, ProviderTxID: "a", Date: day(-2), Amount: -50.00, Name: "STORE"})
	store.addTransaction(models.Transaction{AccountID: checking.ID, ProviderTxID: "b", Date: day(-1), Amount: -50.00, Name: "STORE"})

	groups, err := newDuplicateFixture(store).Detect()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetectIgnoresManualRows(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	credit := store.addAccount(models.Account{Name: "Card", AccountType: models.AccountCredit, IsActive: true})
	parentID := int64(99)
	store.addTransaction(models.Transaction{
		AccountID: checking.ID, ProviderTxID: "split-abc", Date: day(-2), Amount: -50.00,
		Name: "COSTCO WHOLESALE", IsManual: true, IsManualCategory: true, ParentID: &parentID,
	})
	store.addTransaction(models.Transaction{AccountID: credit.ID, ProviderTxID: "b", Date: day(-1), Amount: -50.00, Name: "COSTCO WHOLESALE"})

	groups, err := newDuplicateFixture(store).Detect()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetectSignInsensitive(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	credit := store.addAccount(models.Account{Name: "Card", AccountType: models.AccountCredit, IsActive: true})
	store.addTransaction(models.Transaction{AccountID: checking.ID, ProviderTxID: "a", Date: day(-1), Amount: -75.25, Name: "PAYMENT"})
	store.addTransaction(models.Transaction{AccountID: credit.ID, ProviderTxID: "b", Date: day(-1), Amount: 75.25, Name: "PAYMENT RECEIVED"})

	groups, err := newDuplicateFixture(store).Detect()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(7525), groups[0].AmountCents)
}

func TestDetectRespectsDateWindow(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	credit := store.addAccount(models.Account{Name: "Card", AccountType: models.AccountCredit, IsActive: true})
	store.addTransaction(models.Transaction{AccountID: checking.ID, ProviderTxID: "a", Date: day(-10), Amount: -50.00, Name: "STORE"})
	store.addTransaction(models.Transaction{AccountID: credit.ID, ProviderTxID: "b", Date: day(-1), Amount: -50.00, Name: "STORE"})

	groups, err := newDuplicateFixture(store).Detect()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetectSuppressesDismissedPairs(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	credit := store.addAccount(models.Account{Name: "Card", AccountType: models.AccountCredit, IsActive: true})
	a := store.addTransaction(models.Transaction{AccountID: checking.ID, ProviderTxID: "a", Date: day(-2), Amount: -50.00, Name: "STORE"})
	b := store.addTransaction(models.Transaction{AccountID: credit.ID, ProviderTxID: "b", Date: day(-1), Amount: -50.00, Name: "STORE"})
	svc := newDuplicateFixture(store)

	require.NoError(t, svc.Dismiss([]int64{b.ID, a.ID}))

	groups, err := svc.Detect()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDismissNormalizesPairOrder(t *testing.T) {
	store := newFakeStore()
	svc := newDuplicateFixture(store)
	require.NoError(t, svc.Dismiss([]int64{9, 4}))

	pairs, err := store.DismissedPairs()
	require.NoError(t, err)
	assert.True(t, pairs[models.DismissedPair{LowID: 4, HighID: 9}])
}

func TestDismissRejectsShortGroups(t *testing.T) {
	svc := newDuplicateFixture(newFakeStore())
	err := svc.Dismiss([]int64{1})
	assert.True(t, IsValidationError(err))
}

func TestExcludeResolvesDuplicate(t *testing.T) {
	store := newFakeStore()
	checking := store.addAccount(models.Account{Name: "Checking", AccountType: models.AccountChecking, IsActive: true})
	credit := store.addAccount(models.Account{Name: "Card", AccountType: models.AccountCredit, IsActive: true})
	a := store.addTransaction(models.Transaction{AccountID: checking.ID, ProviderTxID: "a", Date: day(-2), Amount: -50.00, Name: "STORE"})
	store.addTransaction(models.Transaction{AccountID: credit.ID, ProviderTxID: "b", Date: day(-1), Amount: -50.00, Name: "STORE"})
	svc := newDuplicateFixture(store)

	require.NoError(t, svc.Exclude(a.ID))

	// The excluded row no longer participates in detection.
	groups, err := svc.Detect()
	require.NoError(t, err)
	assert.Empty(t, groups)

	require.NoError(t, svc.Include(a.ID))
	groups, err = svc.Detect()
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}
