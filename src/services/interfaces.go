package services

import (
	"context"
	"time"

	"github.com/username/fintrack/backend/src/models"
)

// AggregatorClient is the engine's view of the external data aggregator.
type AggregatorClient interface {
	ClaimSetupToken(ctx context.Context, setupToken string) (string, error)
	// FetchAccounts returns accounts with transactions. A nil since requests
	// the full provider retention window.
	FetchAccounts(ctx context.Context, accessURL string, since *time.Time) ([]models.AccountSnapshot, error)
	// FetchBalances returns accounts without transactions.
	FetchBalances(ctx context.Context, accessURL string) ([]models.AccountSnapshot, error)
}

// AccountUpsert is one account write within a sync batch. InsertType is
// applied only when the account has never been seen; an existing account
// keeps its (possibly user-corrected) type.
type AccountUpsert struct {
	Snapshot   models.AccountSnapshot
	InsertType models.AccountType
}

// TransactionWrite is one transaction write within a sync batch. A zero
// Txn.ID inserts; otherwise the store refreshes the sync-owned columns of
// the existing row (date, name, merchant, amount, pending, category) and
// leaves user-owned columns untouched.
type TransactionWrite struct {
	ProviderAccountID string
	Txn               models.Transaction
}

// BalanceWrite upserts one account's balance row for a date.
type BalanceWrite struct {
	ProviderAccountID string
	Date              time.Time
	Balance           float64
	Available         *float64
}

// HoldingWrite replaces an account's holdings with the aggregator's current
// positions.
type HoldingWrite struct {
	ProviderAccountID string
	Holdings          []models.RawHolding
}

// SyncBatch is everything one institution's sync wants to persist. The store
// applies it atomically: a mid-sync failure never leaves a partially updated
// institution.
type SyncBatch struct {
	Accounts     []AccountUpsert
	Transactions []TransactionWrite
	Balances     []BalanceWrite
	Holdings     []HoldingWrite
}

// AccountUpdate carries user-initiated account changes. Nil fields are left
// unchanged; a non-nil balance is an explicit manual override that replaces
// the synced value.
type AccountUpdate struct {
	Name           *string
	AccountType    *models.AccountType
	CurrentBalance *float64
	CreditLimit    *float64
	IsHidden       *bool
}

// CategoryUpdate rewrites one transaction's category.
type CategoryUpdate struct {
	TransactionID int64
	Category      models.Category
}

// LedgerStore is the persistence boundary consumed by the engine. Writes for
// one institution's sync are transactional per ApplySyncBatch.
type LedgerStore interface {
	// Institutions
	CreateInstitution(inst *models.Institution) error
	GetInstitution(id int64) (*models.Institution, error)
	ListInstitutions(activeOnly bool) ([]models.Institution, error)
	DeleteInstitution(id int64) error
	UpdateInstitutionSyncState(id int64, status models.SyncStatus, lastSync *time.Time, errMsg string) error

	// Accounts
	GetAccounts(includeHidden bool) ([]models.Account, error)
	GetAccountsByInstitution(institutionID int64) ([]models.Account, error)
	GetAccount(id int64) (*models.Account, error)
	UpdateAccount(id int64, update AccountUpdate) error
	// RemoveAccount deletes the account and records its provider id so a
	// later sync does not recreate it.
	RemoveAccount(id int64) error
	ExcludedProviderAccountIDs() (map[string]bool, error)

	// Sync
	ApplySyncBatch(institutionID int64, batch *SyncBatch) error
	GetTransactionsByProviderIDs(providerIDs []string) (map[string]models.Transaction, error)

	// Ledger reads
	GetTransactions(filter models.TransactionFilter) ([]models.Transaction, error)
	GetTransaction(id int64) (*models.Transaction, error)

	// Transaction edits
	UpdateTransactionCategory(id int64, category models.Category, manual bool) error
	SetTransactionExcluded(id int64, excluded bool) error
	UpdateTransactionNotes(id int64, notes string) error
	BulkUpdateCategories(updates []CategoryUpdate) error
	// InsertSplit atomically excludes the parent and inserts the children.
	InsertSplit(parentID int64, children []models.Transaction) error

	// Rules
	ListRules(activeOnly bool) ([]models.TransactionRule, error)
	GetRule(id int64) (*models.TransactionRule, error)
	CreateRule(rule *models.TransactionRule) error
	UpdateRule(rule *models.TransactionRule) error
	DeleteRule(id int64) error

	// Subscriptions
	ListSubscriptions(includeDismissed bool) ([]models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	UpdateSubscription(sub *models.Subscription) error
	DeleteSubscription(id int64) error

	// Duplicate dismissals
	DismissedPairs() (map[models.DismissedPair]bool, error)
	AddDismissedPairs(pairs []models.DismissedPair) error

	// Net worth
	SaveNetWorthSnapshot(snapshot *models.NetWorthSnapshot) error
	GetNetWorthHistory(days int) ([]models.NetWorthSnapshot, error)
	// BalancesAsOf returns, per account id, the most recent recorded balance
	// on or before the given date. Accounts with no history by then are
	// absent from the map.
	BalancesAsOf(date time.Time) (map[int64]float64, error)
}
