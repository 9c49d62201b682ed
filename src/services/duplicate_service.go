package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
)

// DuplicateConfig carries the detector's tunables.
type DuplicateConfig struct {
	LookbackDays   int
	DateWindowDays int
}

// DuplicateService finds the same real-world charge recorded on more than
// one account, typically a card purchase that also appears on the linked
// checking feed.
type DuplicateService struct {
	store LedgerStore
	cfg   DuplicateConfig
	now   func() time.Time
}

// NewDuplicateService builds a DuplicateService.
func NewDuplicateService(store LedgerStore, cfg DuplicateConfig) *DuplicateService {
	return &DuplicateService{store: store, cfg: cfg, now: time.Now}
}

// Detect scans recent transactions and returns groups of likely duplicates:
// same absolute amount, posted within the date window, spread across at
// least two accounts. Matching is sign-insensitive so a -50.00 card charge
// pairs with a +50.00 reversal-style entry on the other feed. Groups the
// user already dismissed in full are suppressed.
func (s *DuplicateService) Detect() ([]models.DuplicateGroup, error) {
	start := dateOnly(s.now()).AddDate(0, 0, -s.cfg.LookbackDays)
	txns, err := s.store.GetTransactions(models.TransactionFilter{StartDate: &start})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	dismissed, err := s.store.DismissedPairs()
	if err != nil {
		return nil, fmt.Errorf("loading dismissed pairs: %w", err)
	}

	// Bucket by absolute amount in cents. Zero-amount rows are noise, and
	// manual rows (split children) are user-authored, not feed echoes.
	byAmount := make(map[int64][]models.Transaction)
	for _, txn := range txns {
		if txn.IsManual {
			continue
		}
		cents := toCents(txn.Amount)
		if cents < 0 {
			cents = -cents
		}
		if cents == 0 {
			continue
		}
		byAmount[cents] = append(byAmount[cents], txn)
	}

	var groups []models.DuplicateGroup
	for cents, bucket := range byAmount {
		if len(bucket) < 2 {
			continue
		}
		sort.Slice(bucket, func(i, j int) bool {
			if !bucket[i].Date.Equal(bucket[j].Date) {
				return bucket[i].Date.Before(bucket[j].Date)
			}
			return bucket[i].ID < bucket[j].ID
		})

		for _, cluster := range clusterByDate(bucket, s.cfg.DateWindowDays) {
			if !s.isCandidateGroup(cluster, dismissed) {
				continue
			}
			groups = append(groups, models.DuplicateGroup{
				AmountCents:  cents,
				Transactions: cluster,
			})
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Transactions[0].Date.After(groups[j].Transactions[0].Date)
	})
	return groups, nil
}

// clusterByDate splits a date-sorted bucket wherever consecutive rows are
// more than windowDays apart.
func clusterByDate(bucket []models.Transaction, windowDays int) [][]models.Transaction {
	var clusters [][]models.Transaction
	current := []models.Transaction{bucket[0]}
	for _, txn := range bucket[1:] {
		gap := txn.Date.Sub(current[len(current)-1].Date)
		if gap > time.Duration(windowDays)*24*time.Hour {
			clusters = append(clusters, current)
			current = []models.Transaction{txn}
			continue
		}
		current = append(current, txn)
	}
	clusters = append(clusters, current)
	return clusters
}

// isCandidateGroup requires at least two distinct accounts and at least one
// cross-account pair the user has not dismissed.
func (s *DuplicateService) isCandidateGroup(cluster []models.Transaction, dismissed map[models.DismissedPair]bool) bool {
	if len(cluster) < 2 {
		return false
	}
	accounts := make(map[int64]bool)
	for _, txn := range cluster {
		accounts[txn.AccountID] = true
	}
	if len(accounts) < 2 {
		return false
	}

	for i := 0; i < len(cluster); i++ {
		for j := i + 1; j < len(cluster); j++ {
			if cluster[i].AccountID == cluster[j].AccountID {
				continue
			}
			if !dismissed[models.NewDismissedPair(cluster[i].ID, cluster[j].ID)] {
				return true
			}
		}
	}
	return false
}

// Exclude marks one transaction of a duplicate group as excluded so it stops
// counting toward spending and detection.
func (s *DuplicateService) Exclude(transactionID int64) error {
	if err := s.store.SetTransactionExcluded(transactionID, true); err != nil {
		return err
	}
	logger.L.Info("Duplicate resolved by exclusion", "transactionID", transactionID)
	return nil
}

// Include reverses an exclusion.
func (s *DuplicateService) Include(transactionID int64) error {
	return s.store.SetTransactionExcluded(transactionID, false)
}

// Dismiss records every pair within the given group as "not duplicates".
// Pairs are stored order-normalized, so the group never resurfaces no matter
// which scan order a later detection uses.
func (s *DuplicateService) Dismiss(transactionIDs []int64) error {
	if len(transactionIDs) < 2 {
		return newValidationError("dismissing a duplicate group needs at least two transactions")
	}
	var pairs []models.DismissedPair
	for i := 0; i < len(transactionIDs); i++ {
		for j := i + 1; j < len(transactionIDs); j++ {
			if transactionIDs[i] == transactionIDs[j] {
				return newValidationError("duplicate group contains transaction %d twice", transactionIDs[i])
			}
			pairs = append(pairs, models.NewDismissedPair(transactionIDs[i], transactionIDs[j]))
		}
	}
	if err := s.store.AddDismissedPairs(pairs); err != nil {
		return fmt.Errorf("recording dismissed pairs: %w", err)
	}
	logger.L.Info("Duplicate group dismissed", "transactions", len(transactionIDs))
	return nil
}
