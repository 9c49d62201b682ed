package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
)

// SyncMode selects the depth of a sync.
type SyncMode string

const (
	// SyncQuick refreshes balances only. No transaction fetch.
	SyncQuick SyncMode = "quick"
	// SyncFull refreshes balances and transactions, incrementally when the
	// institution has synced before.
	SyncFull SyncMode = "full"
)

// SyncResult summarizes one institution's sync attempt.
type SyncResult struct {
	InstitutionID       int64    `json:"institution_id"`
	Institution         string   `json:"institution"`
	Mode                SyncMode `json:"mode"`
	AccountsSynced      int      `json:"accounts_synced"`
	TransactionsAdded   int      `json:"transactions_added"`
	TransactionsUpdated int      `json:"transactions_updated"`
	Error               string   `json:"error,omitempty"`
}

// SyncConfig carries the orchestrator's tunables.
type SyncConfig struct {
	QuickTimeout          time.Duration
	FullTimeout           time.Duration
	FullWindowDays        int
	IncrementalBufferDays int
}

// SyncService coordinates per-institution syncs: fetch from the aggregator,
// categorize, persist atomically, update sync state, refresh the net worth
// snapshot. Concurrent syncs of different institutions are safe; concurrency
// within one institution is capped at 1 by an advisory keyed lock.
type SyncService struct {
	store       LedgerStore
	client      AggregatorClient
	rules       *RuleService
	netWorth    *NetWorthService
	categoryCfg *models.CategoryConfig
	cfg         SyncConfig

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	now func() time.Time
}

// NewSyncService builds a SyncService.
func NewSyncService(
	store LedgerStore,
	client AggregatorClient,
	rules *RuleService,
	netWorth *NetWorthService,
	categoryCfg *models.CategoryConfig,
	cfg SyncConfig,
) *SyncService {
	return &SyncService{
		store:       store,
		client:      client,
		rules:       rules,
		netWorth:    netWorth,
		categoryCfg: categoryCfg,
		cfg:         cfg,
		locks:       make(map[int64]*sync.Mutex),
		now:         time.Now,
	}
}

// lockFor returns the advisory lock for one institution, creating it on
// first use.
func (s *SyncService) lockFor(institutionID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[institutionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[institutionID] = lock
	}
	return lock
}

// ConnectInstitution exchanges a single-use setup token for a durable access
// URL and registers the institution. The first full sync is attempted
// immediately; a failure there is recorded on the institution, not returned.
func (s *SyncService) ConnectInstitution(ctx context.Context, setupToken, name string) (*models.Institution, error) {
	accessURL, err := s.client.ClaimSetupToken(ctx, setupToken)
	if err != nil {
		return nil, err
	}

	inst := &models.Institution{
		Name:       name,
		AccessURL:  accessURL,
		IsActive:   true,
		SyncStatus: models.SyncStatusPending,
	}
	if err := s.store.CreateInstitution(inst); err != nil {
		return nil, fmt.Errorf("registering institution: %w", err)
	}
	logger.L.Info("Institution connected", "institutionID", inst.ID, "name", inst.Name)

	if result := s.Sync(ctx, inst.ID, SyncFull); result.Error != "" {
		logger.L.Warn("Initial sync failed", "institutionID", inst.ID, "error", result.Error)
	}
	return s.store.GetInstitution(inst.ID)
}

// RemoveInstitution deletes an institution; its accounts and transactions
// cascade.
func (s *SyncService) RemoveInstitution(id int64) error {
	return s.store.DeleteInstitution(id)
}

// InstitutionDetail returns one institution together with its accounts.
func (s *SyncService) InstitutionDetail(id int64) (*models.Institution, []models.Account, error) {
	inst, err := s.store.GetInstitution(id)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := s.store.GetAccountsByInstitution(id)
	if err != nil {
		return nil, nil, fmt.Errorf("loading accounts for institution %d: %w", id, err)
	}
	return inst, accounts, nil
}

// Sync runs one institution's sync at the requested depth. The error slot of
// the result is populated instead of an error return so that bulk callers can
// aggregate; lock contention is reported as "already syncing".
func (s *SyncService) Sync(ctx context.Context, institutionID int64, mode SyncMode) SyncResult {
	result := SyncResult{InstitutionID: institutionID, Mode: mode}

	lock := s.lockFor(institutionID)
	if !lock.TryLock() {
		result.Error = ErrSyncInProgress.Error()
		return result
	}
	defer lock.Unlock()

	inst, err := s.store.GetInstitution(institutionID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Institution = inst.Name

	if inst.AccessURL == "" {
		result.Error = "institution has no aggregator access URL"
		s.recordFailure(inst, result.Error)
		return result
	}

	logger.L.Info("Starting sync", "institution", inst.Name, "mode", mode)

	switch mode {
	case SyncQuick:
		err = s.syncQuick(ctx, inst, &result)
	default:
		err = s.syncFull(ctx, inst, &result)
	}

	if err != nil {
		logger.L.Error("Sync failed", "institution", inst.Name, "mode", mode, "error", err)
		result.Error = err.Error()
		s.recordFailure(inst, err.Error())
		return result
	}

	now := s.now().UTC()
	if err := s.store.UpdateInstitutionSyncState(inst.ID, models.SyncStatusSuccess, &now, ""); err != nil {
		logger.L.Error("Failed to record sync success", "institution", inst.Name, "error", err)
	}

	if err := s.netWorth.BuildSnapshot(dateOnly(s.now())); err != nil {
		// The ledger itself synced; a snapshot failure is logged, not fatal.
		logger.L.Error("Net worth snapshot failed after sync", "error", err)
	}

	logger.L.Info("Sync complete", "institution", inst.Name, "mode", mode,
		"accounts", result.AccountsSynced, "added", result.TransactionsAdded, "updated", result.TransactionsUpdated)
	return result
}

// SyncAll syncs every active institution at the requested depth. One
// institution's failure never blocks the others; each failure is recorded on
// its institution row and reported in the result list.
func (s *SyncService) SyncAll(ctx context.Context, mode SyncMode) []SyncResult {
	institutions, err := s.store.ListInstitutions(true)
	if err != nil {
		logger.L.Error("Failed to list institutions for sync-all", "error", err)
		return nil
	}

	results := make([]SyncResult, 0, len(institutions))
	for _, inst := range institutions {
		results = append(results, s.Sync(ctx, inst.ID, mode))
	}
	return results
}

func (s *SyncService) recordFailure(inst *models.Institution, message string) {
	if err := s.store.UpdateInstitutionSyncState(inst.ID, models.SyncStatusError, inst.LastSync, message); err != nil {
		logger.L.Error("Failed to record sync error", "institution", inst.Name, "error", err)
	}
}

// syncQuick fetches balances only and records today's balance history rows.
func (s *SyncService) syncQuick(ctx context.Context, inst *models.Institution, result *SyncResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QuickTimeout)
	defer cancel()

	snapshots, err := s.client.FetchBalances(ctx, inst.AccessURL)
	if err != nil {
		return err
	}

	batch, err := s.buildAccountBatch(inst, snapshots)
	if err != nil {
		return err
	}
	result.AccountsSynced = len(batch.Accounts)

	return s.store.ApplySyncBatch(inst.ID, batch)
}

// syncFull fetches balances and transactions. The fetch window is anchored
// to the last successful sync minus a safety buffer to absorb late-posting
// corrections; idempotent upsert-by-provider-id de-duplicates the overlap.
func (s *SyncService) syncFull(ctx context.Context, inst *models.Institution, result *SyncResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FullTimeout)
	defer cancel()

	// First sync pulls the full provider window; later syncs fetch from the
	// last success minus a buffer, so late-posting corrections in the
	// overlap are re-merged rather than missed.
	var since time.Time
	if inst.LastSync != nil {
		since = inst.LastSync.AddDate(0, 0, -s.cfg.IncrementalBufferDays)
	} else {
		since = s.now().AddDate(0, 0, -s.cfg.FullWindowDays)
	}
	logger.L.Info("Fetching transactions", "institution", inst.Name, "since", since.Format("2006-01-02"))

	snapshots, err := s.client.FetchAccounts(ctx, inst.AccessURL, &since)
	if err != nil {
		return err
	}

	batch, err := s.buildAccountBatch(inst, snapshots)
	if err != nil {
		return err
	}
	result.AccountsSynced = len(batch.Accounts)

	if err := s.buildTransactionWrites(batch, snapshots, result); err != nil {
		return err
	}

	for _, snap := range snapshots {
		if len(snap.Holdings) > 0 && !s.isExcludedSnapshot(batch, snap) {
			batch.Holdings = append(batch.Holdings, HoldingWrite{
				ProviderAccountID: snap.ProviderAccountID,
				Holdings:          snap.Holdings,
			})
		}
	}

	return s.store.ApplySyncBatch(inst.ID, batch)
}

func (s *SyncService) isExcludedSnapshot(batch *SyncBatch, snap models.AccountSnapshot) bool {
	for _, upsert := range batch.Accounts {
		if upsert.Snapshot.ProviderAccountID == snap.ProviderAccountID {
			return false
		}
	}
	return true
}

// buildAccountBatch assembles account upserts and today's balance rows,
// skipping accounts the user explicitly removed. Account removal is never
// automatic: accounts missing from a snapshot are left alone.
func (s *SyncService) buildAccountBatch(inst *models.Institution, snapshots []models.AccountSnapshot) (*SyncBatch, error) {
	excluded, err := s.store.ExcludedProviderAccountIDs()
	if err != nil {
		return nil, fmt.Errorf("loading excluded accounts: %w", err)
	}

	batch := &SyncBatch{}
	today := dateOnly(s.now())

	for _, snap := range snapshots {
		if excluded[snap.ProviderAccountID] {
			logger.L.Info("Skipping excluded account", "account", snap.Name)
			continue
		}
		batch.Accounts = append(batch.Accounts, AccountUpsert{
			Snapshot:   snap,
			InsertType: models.GuessAccountType(snap.Name, snap.Balance),
		})
		batch.Balances = append(batch.Balances, BalanceWrite{
			ProviderAccountID: snap.ProviderAccountID,
			Date:              today,
			Balance:           snap.Balance,
			Available:         snap.AvailableBalance,
		})
	}
	return batch, nil
}

// buildTransactionWrites merges fetched transactions against existing ledger
// rows. New rows are categorized; existing rows keep category, is_excluded,
// is_manual_category and notes unless the upstream amount or date actually
// changed (a genuine correction). Split-created manual rows are never
// touched by sync.
func (s *SyncService) buildTransactionWrites(batch *SyncBatch, snapshots []models.AccountSnapshot, result *SyncResult) error {
	var providerIDs []string
	for _, snap := range snapshots {
		for _, raw := range snap.Transactions {
			providerIDs = append(providerIDs, raw.ProviderTxID)
		}
	}
	if len(providerIDs) == 0 {
		return nil
	}

	existing, err := s.store.GetTransactionsByProviderIDs(providerIDs)
	if err != nil {
		return fmt.Errorf("loading existing transactions: %w", err)
	}

	rules, err := s.rules.ActiveRules()
	if err != nil {
		return err
	}

	for _, snap := range snapshots {
		if s.isExcludedSnapshot(batch, snap) {
			continue
		}
		for _, raw := range snap.Transactions {
			prev, seen := existing[raw.ProviderTxID]
			if !seen {
				txn := s.newTransactionFromRaw(snap, raw, rules)
				batch.Transactions = append(batch.Transactions, TransactionWrite{
					ProviderAccountID: snap.ProviderAccountID,
					Txn:               txn,
				})
				result.TransactionsAdded++
				continue
			}
			if prev.IsManual {
				continue
			}

			merged, changed := s.mergeTransaction(prev, raw, rules)
			if !changed {
				continue
			}
			batch.Transactions = append(batch.Transactions, TransactionWrite{
				ProviderAccountID: snap.ProviderAccountID,
				Txn:               merged,
			})
			result.TransactionsUpdated++
		}
	}
	return nil
}

func (s *SyncService) newTransactionFromRaw(snap models.AccountSnapshot, raw models.RawTransaction, rules []models.TransactionRule) models.Transaction {
	txn := models.Transaction{
		ProviderTxID:     raw.ProviderTxID,
		Date:             dateOnly(raw.Posted),
		Name:             raw.Description,
		MerchantName:     raw.Payee,
		Amount:           raw.Amount,
		Currency:         snap.Currency,
		OriginalCategory: raw.Memo,
		IsPending:        raw.Pending,
	}
	if txn.Name == "" {
		txn.Name = "Unknown"
	}
	txn.Category = Categorize(CategorizeInput{
		Name:             txn.Name,
		MerchantName:     txn.MerchantName,
		OriginalCategory: txn.OriginalCategory,
		Amount:           txn.Amount,
	}, s.categoryCfg, rules)
	return txn
}

// mergeTransaction resolves an existing row against fresh upstream data.
// Returns the row to write and whether anything actually changed.
func (s *SyncService) mergeTransaction(prev models.Transaction, raw models.RawTransaction, rules []models.TransactionRule) (models.Transaction, bool) {
	corrected := !sameAmount(prev.Amount, raw.Amount) || !prev.Date.Equal(dateOnly(raw.Posted))

	merged := prev
	merged.Amount = raw.Amount
	merged.Date = dateOnly(raw.Posted)
	merged.IsPending = raw.Pending
	if raw.Description != "" {
		merged.Name = raw.Description
	}
	merged.MerchantName = raw.Payee
	if raw.Memo != "" {
		merged.OriginalCategory = raw.Memo
	}

	if corrected && !prev.IsManualCategory {
		merged.Category = Categorize(CategorizeInput{
			Name:             merged.Name,
			MerchantName:     merged.MerchantName,
			OriginalCategory: merged.OriginalCategory,
			Amount:           merged.Amount,
		}, s.categoryCfg, rules)
	}

	changed := corrected ||
		merged.IsPending != prev.IsPending ||
		merged.Name != prev.Name ||
		merged.MerchantName != prev.MerchantName ||
		merged.OriginalCategory != prev.OriginalCategory
	return merged, changed
}

// IsLockContention reports whether a result's error is only the advisory
// lock being held.
func IsLockContention(result SyncResult) bool {
	return result.Error == ErrSyncInProgress.Error()
}

// dateOnly truncates a timestamp to its UTC date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
