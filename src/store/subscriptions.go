package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
)

const subscriptionColumns = `id, name, merchant_pattern, expected_amount, billing_cycle, category,
	is_active, is_confirmed, is_dismissed, last_charge_date, last_charge_amount, next_expected_date,
	created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var sub models.Subscription
	var lastDate, nextDate sql.NullString
	var lastAmount sql.NullFloat64
	err := row.Scan(
		&sub.ID, &sub.Name, &sub.MerchantPattern, &sub.ExpectedAmount, &sub.BillingCycle, &sub.Category,
		&sub.IsActive, &sub.IsConfirmed, &sub.IsDismissed, &lastDate, &lastAmount, &nextDate,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.LastChargeDate = parseDatePtr(lastDate)
	sub.LastChargeAmount = floatPtr(lastAmount)
	sub.NextExpectedDate = parseDatePtr(nextDate)
	return &sub, nil
}

// ListSubscriptions returns tracked subscriptions, optionally including
// dismissed ones.
func (s *SQLStore) ListSubscriptions(includeDismissed bool) ([]models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if !includeDismissed {
		query += ` WHERE is_dismissed = 0`
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// CreateSubscription inserts a subscription and sets its new id.
func (s *SQLStore) CreateSubscription(sub *models.Subscription) error {
	now := time.Now().UTC()
	var lastAmount any
	if sub.LastChargeAmount != nil {
		lastAmount = *sub.LastChargeAmount
	}
	result, err := s.db.Exec(`
		INSERT INTO subscriptions (name, merchant_pattern, expected_amount, billing_cycle, category,
			is_active, is_confirmed, is_dismissed, last_charge_date, last_charge_amount, next_expected_date,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Name, sub.MerchantPattern, sub.ExpectedAmount, sub.BillingCycle, sub.Category,
		sub.IsActive, sub.IsConfirmed, sub.IsDismissed,
		formatDatePtr(sub.LastChargeDate), lastAmount, formatDatePtr(sub.NextExpectedDate),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	sub.ID, err = result.LastInsertId()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return err
}

// UpdateSubscription replaces a subscription's fields.
func (s *SQLStore) UpdateSubscription(sub *models.Subscription) error {
	var lastAmount any
	if sub.LastChargeAmount != nil {
		lastAmount = *sub.LastChargeAmount
	}
	result, err := s.db.Exec(`
		UPDATE subscriptions SET name = ?, merchant_pattern = ?, expected_amount = ?, billing_cycle = ?,
			category = ?, is_active = ?, is_confirmed = ?, is_dismissed = ?,
			last_charge_date = ?, last_charge_amount = ?, next_expected_date = ?, updated_at = ?
		WHERE id = ?`,
		sub.Name, sub.MerchantPattern, sub.ExpectedAmount, sub.BillingCycle,
		sub.Category, sub.IsActive, sub.IsConfirmed, sub.IsDismissed,
		formatDatePtr(sub.LastChargeDate), lastAmount, formatDatePtr(sub.NextExpectedDate), time.Now().UTC(),
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription %d: %w", sub.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrSubscriptionNotFound
	}
	return nil
}

// DeleteSubscription removes a subscription.
func (s *SQLStore) DeleteSubscription(id int64) error {
	result, err := s.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrSubscriptionNotFound
	}
	return nil
}
