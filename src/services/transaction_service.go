package services

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/security/validation"
)

// splitSumTolerance is how far the children of a split may drift from the
// parent amount before the split is rejected.
const splitSumTolerance = 0.01

// TransactionService owns user edits to ledger rows: category overrides,
// exclusion, notes, and splits.
type TransactionService struct {
	store LedgerStore
}

// NewTransactionService builds a TransactionService.
func NewTransactionService(store LedgerStore) *TransactionService {
	return &TransactionService{store: store}
}

// List returns transactions matching the filter.
func (s *TransactionService) List(filter models.TransactionFilter) ([]models.Transaction, error) {
	return s.store.GetTransactions(filter)
}

// Get returns one transaction.
func (s *TransactionService) Get(id int64) (*models.Transaction, error) {
	return s.store.GetTransaction(id)
}

// SetCategory records a user category override. The row is marked manually
// categorized so rules and re-syncs never overwrite it.
func (s *TransactionService) SetCategory(id int64, category models.Category) error {
	if !models.ValidCategory(category) {
		return newValidationError("unknown category %q", category)
	}
	if _, err := s.store.GetTransaction(id); err != nil {
		return err
	}
	return s.store.UpdateTransactionCategory(id, category, true)
}

// SetExcluded toggles a transaction's exclusion from spending and detection.
func (s *TransactionService) SetExcluded(id int64, excluded bool) error {
	if _, err := s.store.GetTransaction(id); err != nil {
		return err
	}
	return s.store.SetTransactionExcluded(id, excluded)
}

// SetNotes replaces a transaction's notes, sanitized.
func (s *TransactionService) SetNotes(id int64, notes string) error {
	if _, err := s.store.GetTransaction(id); err != nil {
		return err
	}
	return s.store.UpdateTransactionNotes(id, validation.SanitizeText(notes))
}

// Split divides a transaction into parts with their own categories. The
// parent is excluded rather than deleted, so totals count each dollar
// exactly once and the original row survives for audit. Children are manual
// rows: syncs never touch them, and their synthetic provider ids can never
// collide with upstream data.
func (s *TransactionService) Split(parentID int64, parts []models.SplitPart) ([]models.Transaction, error) {
	if len(parts) < 2 {
		return nil, newValidationError("a split needs at least two parts")
	}

	parent, err := s.store.GetTransaction(parentID)
	if err != nil {
		return nil, err
	}
	if parent.IsManual {
		return nil, newValidationError("cannot split a manually created transaction")
	}
	if parent.ParentID != nil {
		return nil, newValidationError("cannot split a split child")
	}
	if parent.IsExcluded {
		return nil, newValidationError("transaction %d is already excluded or split", parentID)
	}

	var sum float64
	for i, part := range parts {
		if part.Amount == 0 {
			return nil, newValidationError("split part %d has zero amount", i+1)
		}
		if !models.ValidCategory(part.Category) {
			return nil, newValidationError("split part %d has unknown category %q", i+1, part.Category)
		}
		sum += part.Amount
	}
	if math.Abs(sum-parent.Amount) > splitSumTolerance {
		return nil, newValidationError("split parts sum to %.2f, transaction amount is %.2f", sum, parent.Amount)
	}

	children := make([]models.Transaction, len(parts))
	for i, part := range parts {
		children[i] = models.Transaction{
			AccountID:        parent.AccountID,
			ProviderTxID:     "split-" + uuid.NewString(),
			Date:             parent.Date,
			Name:             parent.Name,
			MerchantName:     parent.MerchantName,
			Amount:           roundCents(part.Amount),
			Currency:         parent.Currency,
			Category:         part.Category,
			IsManual:         true,
			IsManualCategory: true,
			ParentID:         &parent.ID,
			Notes:            validation.SanitizeText(part.Notes),
		}
	}

	if err := s.store.InsertSplit(parentID, children); err != nil {
		return nil, fmt.Errorf("splitting transaction %d: %w", parentID, err)
	}
	logger.L.Info("Transaction split", "transactionID", parentID, "parts", len(parts))
	return s.store.GetTransactions(models.TransactionFilter{IncludeExcluded: true, ParentID: &parentID})
}
