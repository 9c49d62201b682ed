package models

import "time"

// AccountSnapshot is one account as reported by the aggregator on a single
// fetch, already normalized into engine types.
type AccountSnapshot struct {
	ProviderAccountID string
	Name              string
	Currency          string
	Balance           float64
	AvailableBalance  *float64
	BalanceDate       *time.Time
	OrgName           string
	Transactions      []RawTransaction
	Holdings          []RawHolding
}

// RawTransaction is one transaction as reported by the aggregator.
type RawTransaction struct {
	ProviderTxID string
	Posted       time.Time
	Amount       float64
	Description  string
	Payee        string
	Memo         string
	Pending      bool
}

// RawHolding is one investment position as reported by the aggregator.
type RawHolding struct {
	ProviderHoldingID string
	Ticker            string
	Description       string
	Shares            float64
	CostBasis         float64
	MarketValue       float64
}
