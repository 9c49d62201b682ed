package models

import "time"

// Transaction is one ledger row. ProviderTxID is stable across syncs and is
// the basis for idempotent upserts. Amounts are signed: negative is money
// out, positive is money in.
type Transaction struct {
	ID               int64     `json:"id"`
	AccountID        int64     `json:"account_id"`
	ProviderTxID     string    `json:"provider_tx_id"`
	Date             time.Time `json:"date"`
	Name             string    `json:"name"`
	MerchantName     string    `json:"merchant_name,omitempty"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Category         Category  `json:"category"`
	OriginalCategory string    `json:"original_category,omitempty"`
	IsPending        bool      `json:"is_pending"`
	IsExcluded       bool      `json:"is_excluded"`
	IsManual         bool      `json:"is_manual"`
	IsManualCategory bool      `json:"is_manual_category"`
	ParentID         *int64    `json:"parent_transaction_id,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TransactionFilter narrows ledger reads.
type TransactionFilter struct {
	AccountID       *int64
	ParentID        *int64
	StartDate       *time.Time
	EndDate         *time.Time
	Category        *Category
	OnlyExpenses    bool
	IncludeExcluded bool
	AccountTypes    []AccountType
	Limit           int
}

// SplitPart describes one child of a transaction split.
type SplitPart struct {
	Amount   float64  `json:"amount"`
	Category Category `json:"category"`
	Notes    string   `json:"notes,omitempty"`
}
