package services

import (
	"time"

	"github.com/username/fintrack/backend/src/models"
)

// fakeStore is an in-memory LedgerStore for service tests.
type fakeStore struct {
	institutions map[int64]*models.Institution
	accounts     map[int64]*models.Account
	transactions map[int64]*models.Transaction
	rules        map[int64]*models.TransactionRule
	subs         map[int64]*models.Subscription
	dismissed    map[models.DismissedPair]bool
	excluded     map[string]bool
	snapshots    map[string]*models.NetWorthSnapshot
	balances     map[int64]map[string]float64

	nextID       int64
	appliedBatch *SyncBatch
	batchCount   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		institutions: make(map[int64]*models.Institution),
		accounts:     make(map[int64]*models.Account),
		transactions: make(map[int64]*models.Transaction),
		rules:        make(map[int64]*models.TransactionRule),
		subs:         make(map[int64]*models.Subscription),
		dismissed:    make(map[models.DismissedPair]bool),
		excluded:     make(map[string]bool),
		snapshots:    make(map[string]*models.NetWorthSnapshot),
		balances:     make(map[int64]map[string]float64),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addAccount(acct models.Account) *models.Account {
	if acct.ID == 0 {
		acct.ID = f.id()
	}
	f.accounts[acct.ID] = &acct
	return &acct
}

func (f *fakeStore) addTransaction(txn models.Transaction) *models.Transaction {
	if txn.ID == 0 {
		txn.ID = f.id()
	}
	f.transactions[txn.ID] = &txn
	return &txn
}

func (f *fakeStore) CreateInstitution(inst *models.Institution) error {
	inst.ID = f.id()
	copied := *inst
	f.institutions[inst.ID] = &copied
	return nil
}

func (f *fakeStore) GetInstitution(id int64) (*models.Institution, error) {
	inst, ok := f.institutions[id]
	if !ok {
		return nil, ErrInstitutionNotFound
	}
	copied := *inst
	return &copied, nil
}

func (f *fakeStore) ListInstitutions(activeOnly bool) ([]models.Institution, error) {
	var out []models.Institution
	for _, inst := range f.institutions {
		if activeOnly && !inst.IsActive {
			continue
		}
		out = append(out, *inst)
	}
	return out, nil
}

func (f *fakeStore) DeleteInstitution(id int64) error {
	if _, ok := f.institutions[id]; !ok {
		return ErrInstitutionNotFound
	}
	delete(f.institutions, id)
	return nil
}

func (f *fakeStore) UpdateInstitutionSyncState(id int64, status models.SyncStatus, lastSync *time.Time, errMsg string) error {
	inst, ok := f.institutions[id]
	if !ok {
		return ErrInstitutionNotFound
	}
	inst.SyncStatus = status
	inst.LastSync = lastSync
	inst.ErrorMessage = errMsg
	return nil
}

func (f *fakeStore) GetAccounts(includeHidden bool) ([]models.Account, error) {
	var out []models.Account
	for _, acct := range f.accounts {
		if !includeHidden && acct.IsHidden {
			continue
		}
		out = append(out, *acct)
	}
	return out, nil
}

func (f *fakeStore) GetAccountsByInstitution(institutionID int64) ([]models.Account, error) {
	var out []models.Account
	for _, acct := range f.accounts {
		if acct.InstitutionID == institutionID {
			out = append(out, *acct)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAccount(id int64) (*models.Account, error) {
	acct, ok := f.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *acct
	return &copied, nil
}

func (f *fakeStore) UpdateAccount(id int64, update AccountUpdate) error {
	acct, ok := f.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if update.Name != nil {
		acct.Name = *update.Name
	}
	if update.AccountType != nil {
		acct.AccountType = *update.AccountType
	}
	if update.CurrentBalance != nil {
		acct.CurrentBalance = *update.CurrentBalance
	}
	if update.IsHidden != nil {
		acct.IsHidden = *update.IsHidden
	}
	return nil
}

func (f *fakeStore) RemoveAccount(id int64) error {
	acct, ok := f.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	f.excluded[acct.ProviderAccountID] = true
	delete(f.accounts, id)
	return nil
}

func (f *fakeStore) ExcludedProviderAccountIDs() (map[string]bool, error) {
	return f.excluded, nil
}

// ApplySyncBatch mirrors the SQL store's merge semantics closely enough for
// orchestrator tests: inserts new rows, refreshes sync-owned columns of
// existing ones.
func (f *fakeStore) ApplySyncBatch(institutionID int64, batch *SyncBatch) error {
	f.appliedBatch = batch
	f.batchCount++

	accountIDs := make(map[string]int64)
	for _, upsert := range batch.Accounts {
		var existing *models.Account
		for _, acct := range f.accounts {
			if acct.ProviderAccountID == upsert.Snapshot.ProviderAccountID {
				existing = acct
				break
			}
		}
		if existing == nil {
			existing = f.addAccount(models.Account{
				InstitutionID:     institutionID,
				ProviderAccountID: upsert.Snapshot.ProviderAccountID,
				Name:              upsert.Snapshot.Name,
				AccountType:       upsert.InsertType,
				Currency:          upsert.Snapshot.Currency,
				IsActive:          true,
			})
		}
		existing.CurrentBalance = upsert.Snapshot.Balance
		accountIDs[upsert.Snapshot.ProviderAccountID] = existing.ID
	}

	for _, write := range batch.Transactions {
		txn := write.Txn
		if txn.ID == 0 {
			txn.AccountID = accountIDs[write.ProviderAccountID]
			f.addTransaction(txn)
			continue
		}
		existing := f.transactions[txn.ID]
		existing.Date = txn.Date
		existing.Name = txn.Name
		existing.MerchantName = txn.MerchantName
		existing.Amount = txn.Amount
		existing.IsPending = txn.IsPending
		existing.Category = txn.Category
		existing.OriginalCategory = txn.OriginalCategory
	}

	for _, write := range batch.Balances {
		accountID := accountIDs[write.ProviderAccountID]
		if f.balances[accountID] == nil {
			f.balances[accountID] = make(map[string]float64)
		}
		f.balances[accountID][write.Date.Format("2006-01-02")] = write.Balance
	}
	return nil
}

func (f *fakeStore) GetTransactionsByProviderIDs(providerIDs []string) (map[string]models.Transaction, error) {
	out := make(map[string]models.Transaction)
	for _, txn := range f.transactions {
		for _, id := range providerIDs {
			if txn.ProviderTxID == id {
				out[id] = *txn
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetTransactions(filter models.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range f.transactions {
		if !filter.IncludeExcluded && txn.IsExcluded {
			continue
		}
		if filter.AccountID != nil && txn.AccountID != *filter.AccountID {
			continue
		}
		if filter.ParentID != nil && (txn.ParentID == nil || *txn.ParentID != *filter.ParentID) {
			continue
		}
		if filter.StartDate != nil && txn.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && txn.Date.After(*filter.EndDate) {
			continue
		}
		if filter.OnlyExpenses && txn.Amount >= 0 {
			continue
		}
		if len(filter.AccountTypes) > 0 {
			acct, ok := f.accounts[txn.AccountID]
			if !ok {
				continue
			}
			match := false
			for _, t := range filter.AccountTypes {
				if acct.AccountType == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *txn)
	}
	return out, nil
}

func (f *fakeStore) GetTransaction(id int64) (*models.Transaction, error) {
	txn, ok := f.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	copied := *txn
	return &copied, nil
}

func (f *fakeStore) UpdateTransactionCategory(id int64, category models.Category, manual bool) error {
	txn, ok := f.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	txn.Category = category
	txn.IsManualCategory = manual
	return nil
}

func (f *fakeStore) SetTransactionExcluded(id int64, excluded bool) error {
	txn, ok := f.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	txn.IsExcluded = excluded
	return nil
}

func (f *fakeStore) UpdateTransactionNotes(id int64, notes string) error {
	txn, ok := f.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	txn.Notes = notes
	return nil
}

func (f *fakeStore) BulkUpdateCategories(updates []CategoryUpdate) error {
	for _, update := range updates {
		if txn, ok := f.transactions[update.TransactionID]; ok {
			txn.Category = update.Category
		}
	}
	return nil
}

func (f *fakeStore) InsertSplit(parentID int64, children []models.Transaction) error {
	parent, ok := f.transactions[parentID]
	if !ok {
		return ErrTransactionNotFound
	}
	parent.IsExcluded = true
	for _, child := range children {
		f.addTransaction(child)
	}
	return nil
}

func (f *fakeStore) ListRules(activeOnly bool) ([]models.TransactionRule, error) {
	var out []models.TransactionRule
	for _, rule := range f.rules {
		if activeOnly && !rule.IsActive {
			continue
		}
		out = append(out, *rule)
	}
	return out, nil
}

func (f *fakeStore) GetRule(id int64) (*models.TransactionRule, error) {
	rule, ok := f.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	copied := *rule
	return &copied, nil
}

func (f *fakeStore) CreateRule(rule *models.TransactionRule) error {
	rule.ID = f.id()
	copied := *rule
	f.rules[rule.ID] = &copied
	return nil
}

func (f *fakeStore) UpdateRule(rule *models.TransactionRule) error {
	if _, ok := f.rules[rule.ID]; !ok {
		return ErrRuleNotFound
	}
	copied := *rule
	f.rules[rule.ID] = &copied
	return nil
}

func (f *fakeStore) DeleteRule(id int64) error {
	if _, ok := f.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(f.rules, id)
	return nil
}

func (f *fakeStore) ListSubscriptions(includeDismissed bool) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if !includeDismissed && sub.IsDismissed {
			continue
		}
		out = append(out, *sub)
	}
	return out, nil
}

func (f *fakeStore) CreateSubscription(sub *models.Subscription) error {
	sub.ID = f.id()
	copied := *sub
	f.subs[sub.ID] = &copied
	return nil
}

func (f *fakeStore) UpdateSubscription(sub *models.Subscription) error {
	if _, ok := f.subs[sub.ID]; !ok {
		return ErrSubscriptionNotFound
	}
	copied := *sub
	f.subs[sub.ID] = &copied
	return nil
}

func (f *fakeStore) DeleteSubscription(id int64) error {
	if _, ok := f.subs[id]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(f.subs, id)
	return nil
}

func (f *fakeStore) DismissedPairs() (map[models.DismissedPair]bool, error) {
	return f.dismissed, nil
}

func (f *fakeStore) AddDismissedPairs(pairs []models.DismissedPair) error {
	for _, pair := range pairs {
		f.dismissed[pair] = true
	}
	return nil
}

func (f *fakeStore) SaveNetWorthSnapshot(snapshot *models.NetWorthSnapshot) error {
	copied := *snapshot
	f.snapshots[snapshot.Date.Format("2006-01-02")] = &copied
	return nil
}

func (f *fakeStore) GetNetWorthHistory(days int) ([]models.NetWorthSnapshot, error) {
	var out []models.NetWorthSnapshot
	for _, snap := range f.snapshots {
		out = append(out, *snap)
	}
	return out, nil
}

func (f *fakeStore) BalancesAsOf(date time.Time) (map[int64]float64, error) {
	out := make(map[int64]float64)
	cutoff := date.Format("2006-01-02")
	for accountID, history := range f.balances {
		best := ""
		for day := range history {
			if day <= cutoff && day > best {
				best = day
			}
		}
		if best != "" {
			out[accountID] = history[best]
		}
	}
	return out, nil
}
