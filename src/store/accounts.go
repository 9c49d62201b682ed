package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
)

const accountColumns = `id, institution_id, provider_account_id, name, official_name, account_type, currency,
	current_balance, available_balance, credit_limit, is_active, is_hidden, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var acct models.Account
	var available, creditLimit sql.NullFloat64
	err := row.Scan(
		&acct.ID, &acct.InstitutionID, &acct.ProviderAccountID, &acct.Name, &acct.OfficialName,
		&acct.AccountType, &acct.Currency, &acct.CurrentBalance, &available, &creditLimit,
		&acct.IsActive, &acct.IsHidden, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acct.AvailableBalance = floatPtr(available)
	acct.CreditLimit = floatPtr(creditLimit)
	return &acct, nil
}

func collectAccounts(rows *sql.Rows) ([]models.Account, error) {
	defer rows.Close()
	var accounts []models.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

// GetAccounts returns all accounts, optionally including hidden ones.
func (s *SQLStore) GetAccounts(includeHidden bool) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if !includeHidden {
		query += ` WHERE is_hidden = 0`
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return collectAccounts(rows)
}

// GetAccountsByInstitution returns every account of one institution,
// hidden included.
func (s *SQLStore) GetAccountsByInstitution(institutionID int64) ([]models.Account, error) {
	rows, err := s.db.Query(
		`SELECT `+accountColumns+` FROM accounts WHERE institution_id = ? ORDER BY id`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for institution %d: %w", institutionID, err)
	}
	return collectAccounts(rows)
}

// GetAccount fetches one account by id.
func (s *SQLStore) GetAccount(id int64) (*models.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	return acct, nil
}

// UpdateAccount applies user-initiated changes; nil fields are untouched.
func (s *SQLStore) UpdateAccount(id int64, update services.AccountUpdate) error {
	acct, err := s.GetAccount(id)
	if err != nil {
		return err
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
	if update.CreditLimit != nil {
		acct.CreditLimit = update.CreditLimit
	}
	if update.IsHidden != nil {
		acct.IsHidden = *update.IsHidden
	}

	var creditLimit any
	if acct.CreditLimit != nil {
		creditLimit = *acct.CreditLimit
	}
	_, err = s.db.Exec(`
		UPDATE accounts SET name = ?, account_type = ?, current_balance = ?, credit_limit = ?, is_hidden = ?, updated_at = ?
		WHERE id = ?`,
		acct.Name, acct.AccountType, acct.CurrentBalance, creditLimit, acct.IsHidden, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", id, err)
	}
	return nil
}

// RemoveAccount deletes an account and records its provider id in the
// exclusion list so a later sync does not resurrect it. Both writes commit
// together.
func (s *SQLStore) RemoveAccount(id int64) error {
	acct, err := s.GetAccount(id)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO excluded_accounts (provider_account_id, account_name, excluded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(provider_account_id) DO NOTHING`,
		acct.ProviderAccountID, acct.Name, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record account exclusion: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	return tx.Commit()
}

// ExcludedProviderAccountIDs returns the provider ids of removed accounts.
func (s *SQLStore) ExcludedProviderAccountIDs() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT provider_account_id FROM excluded_accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load excluded accounts: %w", err)
	}
	defer rows.Close()

	excluded := make(map[string]bool)
	for rows.Next() {
		var providerID string
		if err := rows.Scan(&providerID); err != nil {
			return nil, err
		}
		excluded[providerID] = true
	}
	return excluded, rows.Err()
}
