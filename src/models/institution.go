package models

import "time"

// SyncStatus is the last recorded sync outcome for an institution.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// Institution is one connected financial institution. The AccessURL is the
// durable credential obtained from a single-use claim-token exchange.
type Institution struct {
	ID           int64      `json:"id"`
	ProviderID   string     `json:"provider_id"`
	AccessURL    string     `json:"-"`
	Name         string     `json:"name"`
	IsActive     bool       `json:"is_active"`
	LastSync     *time.Time `json:"last_sync"`
	SyncStatus   SyncStatus `json:"sync_status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
