package store

import (
	"fmt"
	"time"

	"github.com/username/fintrack/backend/src/models"
)

// DismissedPairs returns every "not a duplicate" pair, keyed for O(1)
// lookup during detection.
func (s *SQLStore) DismissedPairs() (map[models.DismissedPair]bool, error) {
	rows, err := s.db.Query(`SELECT low_transaction_id, high_transaction_id FROM duplicate_dismissals`)
	if err != nil {
		return nil, fmt.Errorf("failed to load dismissed pairs: %w", err)
	}
	defer rows.Close()

	dismissed := make(map[models.DismissedPair]bool)
	for rows.Next() {
		var pair models.DismissedPair
		if err := rows.Scan(&pair.LowID, &pair.HighID); err != nil {
			return nil, err
		}
		dismissed[pair] = true
	}
	return dismissed, rows.Err()
}

// AddDismissedPairs records pairs, ignoring ones already recorded.
func (s *SQLStore) AddDismissedPairs(pairs []models.DismissedPair) error {
	if len(pairs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO duplicate_dismissals (low_transaction_id, high_transaction_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(low_transaction_id, high_transaction_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare dismissal insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, pair := range pairs {
		if _, err := stmt.Exec(pair.LowID, pair.HighID, now); err != nil {
			return fmt.Errorf("failed to insert dismissed pair (%d, %d): %w", pair.LowID, pair.HighID, err)
		}
	}
	return tx.Commit()
}
