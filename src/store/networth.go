package store

import (
	"fmt"
	"time"

	"github.com/username/fintrack/backend/src/models"
)

// SaveNetWorthSnapshot upserts the snapshot for its date. One row per date;
// recomputation overwrites.
func (s *SQLStore) SaveNetWorthSnapshot(snapshot *models.NetWorthSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO net_worth_snapshots (date, total_assets, total_liabilities, net_worth,
			cash, investments, retirement, credit_debt, loan_debt, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_assets = excluded.total_assets,
			total_liabilities = excluded.total_liabilities,
			net_worth = excluded.net_worth,
			cash = excluded.cash,
			investments = excluded.investments,
			retirement = excluded.retirement,
			credit_debt = excluded.credit_debt,
			loan_debt = excluded.loan_debt`,
		formatDate(snapshot.Date), snapshot.TotalAssets, snapshot.TotalLiabilities, snapshot.NetWorth,
		snapshot.Cash, snapshot.Investments, snapshot.Retirement, snapshot.CreditDebt, snapshot.LoanDebt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert net worth snapshot: %w", err)
	}
	return nil
}

// GetNetWorthHistory returns snapshots from the past `days` days, oldest
// first.
func (s *SQLStore) GetNetWorthHistory(days int) ([]models.NetWorthSnapshot, error) {
	start := formatDate(time.Now().UTC().AddDate(0, 0, -days))
	rows, err := s.db.Query(`
		SELECT id, date, total_assets, total_liabilities, net_worth, cash, investments, retirement,
			credit_debt, loan_debt, created_at
		FROM net_worth_snapshots WHERE date >= ? ORDER BY date`, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load net worth history: %w", err)
	}
	defer rows.Close()

	var snapshots []models.NetWorthSnapshot
	for rows.Next() {
		var snap models.NetWorthSnapshot
		var date string
		if err := rows.Scan(
			&snap.ID, &date, &snap.TotalAssets, &snap.TotalLiabilities, &snap.NetWorth,
			&snap.Cash, &snap.Investments, &snap.Retirement, &snap.CreditDebt, &snap.LoanDebt,
			&snap.CreatedAt,
		); err != nil {
			return nil, err
		}
		snap.Date = parseDate(date)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// BalancesAsOf returns each account's most recent recorded balance on or
// before the date.
func (s *SQLStore) BalancesAsOf(date time.Time) (map[int64]float64, error) {
	rows, err := s.db.Query(`
		SELECT account_id, balance FROM balance_history b
		WHERE date = (SELECT MAX(date) FROM balance_history WHERE account_id = b.account_id AND date <= ?)`,
		formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to load balances as of %s: %w", formatDate(date), err)
	}
	defer rows.Close()

	balances := make(map[int64]float64)
	for rows.Next() {
		var accountID int64
		var balance float64
		if err := rows.Scan(&accountID, &balance); err != nil {
			return nil, err
		}
		balances[accountID] = balance
	}
	return balances, rows.Err()
}
