package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
)

const transactionColumns = `id, account_id, provider_tx_id, date, name, merchant_name, amount, currency,
	category, original_category, is_pending, is_excluded, is_manual, is_manual_category, parent_transaction_id, notes,
	created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var txn models.Transaction
	var date string
	var parentID sql.NullInt64
	err := row.Scan(
		&txn.ID, &txn.AccountID, &txn.ProviderTxID, &date, &txn.Name, &txn.MerchantName,
		&txn.Amount, &txn.Currency, &txn.Category, &txn.OriginalCategory,
		&txn.IsPending, &txn.IsExcluded, &txn.IsManual, &txn.IsManualCategory,
		&parentID, &txn.Notes, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Date = parseDate(date)
	if parentID.Valid {
		txn.ParentID = &parentID.Int64
	}
	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var txns []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// GetTransactions returns ledger rows matching the filter, newest first.
// Excluded and split-created rows are filtered out unless asked for.
func (s *SQLStore) GetTransactions(filter models.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if !filter.IncludeExcluded {
		query += ` AND is_excluded = 0`
	}
	if filter.AccountID != nil {
		query += ` AND account_id = ?`
		args = append(args, *filter.AccountID)
	}
	if filter.ParentID != nil {
		query += ` AND parent_transaction_id = ?`
		args = append(args, *filter.ParentID)
	}
	if filter.StartDate != nil {
		query += ` AND date >= ?`
		args = append(args, formatDate(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query += ` AND date <= ?`
		args = append(args, formatDate(*filter.EndDate))
	}
	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, *filter.Category)
	}
	if filter.OnlyExpenses {
		query += ` AND amount < 0`
	}
	if len(filter.AccountTypes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.AccountTypes)), ",")
		query += ` AND account_id IN (SELECT id FROM accounts WHERE account_type IN (` + placeholders + `))`
		for _, t := range filter.AccountTypes {
			args = append(args, t)
		}
	}

	query += ` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// GetTransaction fetches one transaction by id.
func (s *SQLStore) GetTransaction(id int64) (*models.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %d: %w", id, err)
	}
	return txn, nil
}

// UpdateTransactionCategory rewrites one row's category. When manual is set
// the row is flagged as manually categorized so automation skips it from
// then on.
func (s *SQLStore) UpdateTransactionCategory(id int64, category models.Category, manual bool) error {
	result, err := s.db.Exec(`
		UPDATE transactions SET category = ?, is_manual_category = ?, updated_at = ?
		WHERE id = ?`,
		category, manual, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update category for transaction %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrTransactionNotFound
	}
	return nil
}

// SetTransactionExcluded toggles a row's exclusion flag.
func (s *SQLStore) SetTransactionExcluded(id int64, excluded bool) error {
	result, err := s.db.Exec(
		`UPDATE transactions SET is_excluded = ?, updated_at = ? WHERE id = ?`,
		excluded, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set exclusion for transaction %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrTransactionNotFound
	}
	return nil
}

// UpdateTransactionNotes replaces a row's notes.
func (s *SQLStore) UpdateTransactionNotes(id int64, notes string) error {
	result, err := s.db.Exec(
		`UPDATE transactions SET notes = ?, updated_at = ? WHERE id = ?`,
		notes, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update notes for transaction %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrTransactionNotFound
	}
	return nil
}

// BulkUpdateCategories rewrites categories for many rows in one SQL
// transaction. Rows touched here are not marked manual; rule application
// remains reversible by later automation.
func (s *SQLStore) BulkUpdateCategories(updates []services.CategoryUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE transactions SET category = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare category update: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, update := range updates {
		if _, err := stmt.Exec(update.Category, now, update.TransactionID); err != nil {
			return fmt.Errorf("failed to update category for transaction %d: %w", update.TransactionID, err)
		}
	}
	return tx.Commit()
}

// InsertSplit excludes the parent and inserts its children atomically.
func (s *SQLStore) InsertSplit(parentID int64, children []models.Transaction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE transactions SET is_excluded = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), parentID,
	)
	if err != nil {
		return fmt.Errorf("failed to exclude split parent %d: %w", parentID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrTransactionNotFound
	}

	now := time.Now().UTC()
	for _, child := range children {
		if _, err := tx.Exec(`
			INSERT INTO transactions (account_id, provider_tx_id, date, name, merchant_name, amount, currency,
				category, original_category, is_pending, is_excluded, is_manual, is_manual_category, parent_transaction_id, notes,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', 0, 0, 1, 1, ?, ?, ?, ?)`,
			child.AccountID, child.ProviderTxID, formatDate(child.Date), child.Name, child.MerchantName,
			child.Amount, child.Currency, child.Category, parentID, child.Notes, now, now,
		); err != nil {
			return fmt.Errorf("failed to insert split child: %w", err)
		}
	}
	return tx.Commit()
}
