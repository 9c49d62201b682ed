package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
)

const institutionColumns = `id, provider_id, access_url, name, is_active, last_sync, sync_status, error_message, created_at, updated_at`

func scanInstitution(row interface{ Scan(...any) error }) (*models.Institution, error) {
	var inst models.Institution
	var lastSync sql.NullTime
	err := row.Scan(
		&inst.ID, &inst.ProviderID, &inst.AccessURL, &inst.Name, &inst.IsActive,
		&lastSync, &inst.SyncStatus, &inst.ErrorMessage, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.LastSync = timePtr(lastSync)
	return &inst, nil
}

// CreateInstitution inserts an institution and sets its new id.
func (s *SQLStore) CreateInstitution(inst *models.Institution) error {
	now := time.Now().UTC()
	result, err := s.db.Exec(`
		INSERT INTO institutions (provider_id, access_url, name, is_active, sync_status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ProviderID, inst.AccessURL, inst.Name, inst.IsActive, inst.SyncStatus, inst.ErrorMessage, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert institution: %w", err)
	}
	inst.ID, err = result.LastInsertId()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	return err
}

// GetInstitution fetches one institution by id.
func (s *SQLStore) GetInstitution(id int64) (*models.Institution, error) {
	row := s.db.QueryRow(`SELECT `+institutionColumns+` FROM institutions WHERE id = ?`, id)
	inst, err := scanInstitution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrInstitutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load institution %d: %w", id, err)
	}
	return inst, nil
}

// ListInstitutions returns institutions, optionally active ones only.
func (s *SQLStore) ListInstitutions(activeOnly bool) ([]models.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	defer rows.Close()

	var institutions []models.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		institutions = append(institutions, *inst)
	}
	return institutions, rows.Err()
}

// DeleteInstitution removes an institution; accounts and their transactions
// cascade via foreign keys.
func (s *SQLStore) DeleteInstitution(id int64) error {
	result, err := s.db.Exec(`DELETE FROM institutions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete institution %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrInstitutionNotFound
	}
	return nil
}

// UpdateInstitutionSyncState records the outcome of a sync attempt.
func (s *SQLStore) UpdateInstitutionSyncState(id int64, status models.SyncStatus, lastSync *time.Time, errMsg string) error {
	var lastSyncVal any
	if lastSync != nil {
		lastSyncVal = lastSync.UTC()
	}
	result, err := s.db.Exec(`
		UPDATE institutions SET sync_status = ?, last_sync = ?, error_message = ?, updated_at = ?
		WHERE id = ?`,
		status, lastSyncVal, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync state for institution %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return services.ErrInstitutionNotFound
	}
	return nil
}
