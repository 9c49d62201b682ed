package models

import (
	"strings"
	"time"
)

// AccountType classifies an account for net worth bucketing.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountBrokerage  AccountType = "brokerage"
	AccountRetirement AccountType = "retirement"
	AccountLoan       AccountType = "loan"
	AccountMortgage   AccountType = "mortgage"
	AccountOther      AccountType = "other"
)

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountInvestment,
		AccountBrokerage, AccountRetirement, AccountLoan, AccountMortgage, AccountOther:
		return true
	}
	return false
}

// SpendingAccountTypes are the types whose outflows feed subscription
// detection. Brokerage activity is deliberately excluded.
var SpendingAccountTypes = []AccountType{AccountChecking, AccountSavings, AccountCredit}

// Account is one account within an institution.
type Account struct {
	ID                int64       `json:"id"`
	InstitutionID     int64       `json:"institution_id"`
	ProviderAccountID string      `json:"provider_account_id"`
	Name              string      `json:"name"`
	OfficialName      string      `json:"official_name,omitempty"`
	AccountType       AccountType `json:"account_type"`
	Currency          string      `json:"currency"`
	CurrentBalance    float64     `json:"current_balance"`
	AvailableBalance  *float64    `json:"available_balance"`
	CreditLimit       *float64    `json:"credit_limit"`
	IsActive          bool        `json:"is_active"`
	IsHidden          bool        `json:"is_hidden"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

var accountTypeHints = []struct {
	accountType AccountType
	words       []string
}{
	{AccountChecking, []string{"checking", "chk"}},
	{AccountSavings, []string{"saving", "sav"}},
	{AccountCredit, []string{"credit", "card", "visa", "mastercard", "amex"}},
	{AccountRetirement, []string{"401k", "401(k)", "retirement", "ira", "roth"}},
	{AccountBrokerage, []string{"brokerage", "investment", "trading", "stock"}},
	{AccountLoan, []string{"loan", "auto", "personal"}},
	{AccountMortgage, []string{"mortgage", "home"}},
}

// GuessAccountType infers an account type from its name and balance. Used
// only when an account is first seen; later syncs never overwrite a
// user-chosen type.
func GuessAccountType(name string, balance float64) AccountType {
	nameLower := strings.ToLower(name)
	for _, hint := range accountTypeHints {
		for _, word := range hint.words {
			if strings.Contains(nameLower, word) {
				return hint.accountType
			}
		}
	}
	if balance < 0 {
		return AccountCredit
	}
	return AccountOther
}
