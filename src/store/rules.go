package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
)

const ruleColumns = `id, name, match_field, match_type, match_value, assign_category, priority, is_active, created_at, updated_at`

// scanRule reads a rule row and rebuilds its compiled matcher. A row whose
// stored pattern no longer compiles is unusable; the caller decides whether
// to skip or fail.
func scanRule(row interface{ Scan(...any) error }) (*models.TransactionRule, error) {
	var rule models.TransactionRule
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.MatchField, &rule.MatchType, &rule.MatchValue,
		&rule.AssignCategory, &rule.Priority, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.Matcher, err = models.NewRuleMatcher(rule.MatchField, rule.MatchType, rule.MatchValue)
	if err != nil {
		return nil, fmt.Errorf("rule %d has invalid matcher: %w", rule.ID, err)
	}
	return &rule, nil
}

// ListRules returns rules, optionally only active ones. Rows with matchers
// that no longer compile are skipped with a warning rather than poisoning
// every categorization.
func (s *SQLStore) ListRules(activeOnly bool) ([]models.TransactionRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM transaction_rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY priority, id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.TransactionRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			logger.L.Warn("Skipping unreadable rule row", "error", err)
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// GetRule fetches one rule by id.
func (s *SQLStore) GetRule(id int64) (*models.TransactionRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleColumns+` FROM transaction_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rule %d: %w", id, err)
	}
	return rule, nil
}

// CreateRule inserts a rule and sets its new id.
func (s *SQLStore) CreateRule(rule *models.TransactionRule) error {
	now := time.Now().UTC()
	result, err := s.db.Exec(`
		INSERT INTO transaction_rules (name, match_field, match_type, match_value, assign_category, priority, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, rule.MatchField, rule.MatchType, rule.MatchValue,
		rule.AssignCategory, rule.Priority, rule.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	rule.ID, err = result.LastInsertId()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return err
}

// UpdateRule replaces a rule's fields.
func (s *SQLStore) UpdateRule(rule *models.TransactionRule) error {
	result, err := s.db.Exec(`
		UPDATE transaction_rules SET name = ?, match_field = ?, match_type = ?, match_value = ?,
			assign_category = ?, priority = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name, rule.MatchField, rule.MatchType, rule.MatchValue,
		rule.AssignCategory, rule.Priority, rule.IsActive, time.Now().UTC(), rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule %d: %w", rule.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrRuleNotFound
	}
	return nil
}

// DeleteRule removes a rule.
func (s *SQLStore) DeleteRule(id int64) error {
	result, err := s.db.Exec(`DELETE FROM transaction_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrRuleNotFound
	}
	return nil
}
