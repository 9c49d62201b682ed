package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
)

// ApplySyncBatch persists one institution's sync output in a single SQL
// transaction: account upserts, transaction inserts and refreshes, balance
// history rows, and holdings replacement. A failure anywhere rolls the whole
// batch back, so a crashed sync never leaves the institution half-updated.
func (s *SQLStore) ApplySyncBatch(institutionID int64, batch *services.SyncBatch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	accountIDs, err := upsertAccounts(tx, institutionID, batch.Accounts)
	if err != nil {
		return err
	}

	if err := writeTransactions(tx, accountIDs, batch.Transactions); err != nil {
		return err
	}
	if err := writeBalances(tx, accountIDs, batch.Balances); err != nil {
		return err
	}
	if err := replaceHoldings(tx, accountIDs, batch.Holdings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync batch: %w", err)
	}
	return nil
}

// upsertAccounts inserts unseen accounts and refreshes sync-owned columns
// of known ones. Name and account type are set only on insert; users may
// correct both, and a sync must not undo that.
func upsertAccounts(tx *sql.Tx, institutionID int64, upserts []services.AccountUpsert) (map[string]int64, error) {
	now := time.Now().UTC()
	accountIDs := make(map[string]int64, len(upserts))

	for _, upsert := range upserts {
		snap := upsert.Snapshot

		var available any
		if snap.AvailableBalance != nil {
			available = *snap.AvailableBalance
		}

		var id int64
		err := tx.QueryRow(`SELECT id FROM accounts WHERE provider_account_id = ?`, snap.ProviderAccountID).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			result, err := tx.Exec(`
				INSERT INTO accounts (institution_id, provider_account_id, name, official_name, account_type,
					currency, current_balance, available_balance, is_active, is_hidden, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)`,
				institutionID, snap.ProviderAccountID, snap.Name, snap.OrgName, upsert.InsertType,
				snap.Currency, snap.Balance, available, now, now,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert account %q: %w", snap.Name, err)
			}
			if id, err = result.LastInsertId(); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, fmt.Errorf("failed to look up account %q: %w", snap.ProviderAccountID, err)
		default:
			if _, err := tx.Exec(`
				UPDATE accounts SET current_balance = ?, available_balance = ?, official_name = ?, updated_at = ?
				WHERE id = ?`,
				snap.Balance, available, snap.OrgName, now, id,
			); err != nil {
				return nil, fmt.Errorf("failed to refresh account %q: %w", snap.ProviderAccountID, err)
			}
		}
		accountIDs[snap.ProviderAccountID] = id
	}
	return accountIDs, nil
}

func writeTransactions(tx *sql.Tx, accountIDs map[string]int64, writes []services.TransactionWrite) error {
	if len(writes) == 0 {
		return nil
	}
	now := time.Now().UTC()

	insert, err := tx.Prepare(`
		INSERT INTO transactions (account_id, provider_tx_id, date, name, merchant_name, amount, currency,
			category, original_category, is_pending, is_excluded, is_manual, is_manual_category, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, '', ?, ?)
		ON CONFLICT(provider_tx_id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			merchant_name = excluded.merchant_name,
			amount = excluded.amount,
			is_pending = excluded.is_pending,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer insert.Close()

	update, err := tx.Prepare(`
		UPDATE transactions SET date = ?, name = ?, merchant_name = ?, amount = ?, original_category = ?,
			is_pending = ?, category = ?, updated_at = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction update: %w", err)
	}
	defer update.Close()

	for _, write := range writes {
		txn := write.Txn
		if txn.ID == 0 {
			accountID, ok := accountIDs[write.ProviderAccountID]
			if !ok {
				return fmt.Errorf("transaction %q references unknown account %q", txn.ProviderTxID, write.ProviderAccountID)
			}
			if _, err := insert.Exec(
				accountID, txn.ProviderTxID, formatDate(txn.Date), txn.Name, txn.MerchantName,
				txn.Amount, txn.Currency, txn.Category, txn.OriginalCategory, txn.IsPending, now, now,
			); err != nil {
				return fmt.Errorf("failed to insert transaction %q: %w", txn.ProviderTxID, err)
			}
			continue
		}
		if _, err := update.Exec(
			formatDate(txn.Date), txn.Name, txn.MerchantName, txn.Amount, txn.OriginalCategory,
			txn.IsPending, txn.Category, now, txn.ID,
		); err != nil {
			return fmt.Errorf("failed to refresh transaction %d: %w", txn.ID, err)
		}
	}
	return nil
}

func writeBalances(tx *sql.Tx, accountIDs map[string]int64, writes []services.BalanceWrite) error {
	if len(writes) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO balance_history (account_id, date, balance, available_balance)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, date) DO UPDATE SET
			balance = excluded.balance,
			available_balance = excluded.available_balance`)
	if err != nil {
		return fmt.Errorf("failed to prepare balance upsert: %w", err)
	}
	defer stmt.Close()

	for _, write := range writes {
		accountID, ok := accountIDs[write.ProviderAccountID]
		if !ok {
			continue
		}
		var available any
		if write.Available != nil {
			available = *write.Available
		}
		if _, err := stmt.Exec(accountID, formatDate(write.Date), write.Balance, available); err != nil {
			return fmt.Errorf("failed to upsert balance for account %d: %w", accountID, err)
		}
	}
	return nil
}

// replaceHoldings swaps each account's positions wholesale. The aggregator's
// snapshot is authoritative; stale positions must not linger.
func replaceHoldings(tx *sql.Tx, accountIDs map[string]int64, writes []services.HoldingWrite) error {
	if len(writes) == 0 {
		return nil
	}
	now := time.Now().UTC()

	for _, write := range writes {
		accountID, ok := accountIDs[write.ProviderAccountID]
		if !ok {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM holdings WHERE account_id = ?`, accountID); err != nil {
			return fmt.Errorf("failed to clear holdings for account %d: %w", accountID, err)
		}
		for _, holding := range write.Holdings {
			if _, err := tx.Exec(`
				INSERT INTO holdings (account_id, provider_holding_id, ticker, security_name, quantity, cost_basis, current_value, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				accountID, holding.ProviderHoldingID, holding.Ticker, holding.Description,
				holding.Shares, holding.CostBasis, holding.MarketValue, now,
			); err != nil {
				return fmt.Errorf("failed to insert holding %q: %w", holding.ProviderHoldingID, err)
			}
		}
	}
	return nil
}

// GetTransactionsByProviderIDs returns existing rows keyed by provider
// transaction id. The query is chunked to stay under SQLite's bind limit.
func (s *SQLStore) GetTransactionsByProviderIDs(providerIDs []string) (map[string]models.Transaction, error) {
	existing := make(map[string]models.Transaction, len(providerIDs))

	const chunkSize = 500
	for start := 0; start < len(providerIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(providerIDs) {
			end = len(providerIDs)
		}
		chunk := providerIDs[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		rows, err := s.db.Query(
			`SELECT `+transactionColumns+` FROM transactions WHERE provider_tx_id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions by provider id: %w", err)
		}
		txns, err := collectTransactions(rows)
		if err != nil {
			return nil, err
		}
		for _, txn := range txns {
			existing[txn.ProviderTxID] = txn
		}
	}
	return existing, nil
}
