package models

import "time"

// NetWorthSnapshot aggregates visible account balances for one date. Unique
// per date; recomputation overwrites rather than appends.
type NetWorthSnapshot struct {
	ID               int64     `json:"id"`
	Date             time.Time `json:"date"`
	TotalAssets      float64   `json:"total_assets"`
	TotalLiabilities float64   `json:"total_liabilities"`
	NetWorth         float64   `json:"net_worth"`
	Cash             float64   `json:"cash"`
	Investments      float64   `json:"investments"`
	Retirement       float64   `json:"retirement"`
	CreditDebt       float64   `json:"credit_debt"`
	LoanDebt         float64   `json:"loan_debt"`
	CreatedAt        time.Time `json:"created_at"`
}

// BalanceEntry is one account's balance on one date. Unique per
// (account, date); the same sync day overwrites.
type BalanceEntry struct {
	AccountID int64     `json:"account_id"`
	Date      time.Time `json:"date"`
	Balance   float64   `json:"balance"`
	Available *float64  `json:"available"`
}

// Holding is one security position within an investment account.
type Holding struct {
	ID                int64     `json:"id"`
	AccountID         int64     `json:"account_id"`
	ProviderHoldingID string    `json:"provider_holding_id"`
	Ticker            string    `json:"ticker,omitempty"`
	SecurityName      string    `json:"security_name"`
	Quantity          float64   `json:"quantity"`
	CostBasis         float64   `json:"cost_basis"`
	CurrentValue      float64   `json:"current_value"`
	UpdatedAt         time.Time `json:"updated_at"`
}
