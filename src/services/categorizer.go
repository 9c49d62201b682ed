package services

import (
	"strings"

	"github.com/username/fintrack/backend/src/models"
)

// CategorizeInput is the subset of a transaction the categorizer looks at.
type CategorizeInput struct {
	Name             string
	MerchantName     string
	OriginalCategory string
	Amount           float64
}

// investmentMarkers identify brokerage activity by transaction text. Checked
// before merchant matching so "YOU BOUGHT CAVA GROUP INC" does not match a
// restaurant pattern.
var investmentMarkers = []string{
	"YOU BOUGHT", "YOU SOLD",
	"REDEMPTION FROM", "PURCHASE INTO",
	"DIVIDEND", "DISTRIBUTION", "REINVESTMENT",
	"ASSIGNED", "EXERCISED", "EXPIRED",
	"JOURNALED", "CORE ACCOUNT", "MONEY MARKET",
	"CONTRIBUTION", "ROLLOVER",
	"MARGIN INTEREST", "ADVISORY FEE",
	"ELECTRONIC FUNDS TRANSFER", "EFT FROM", "EFT TO",
	"(MARGIN)", "(CASH)", "(SHS)",
}

func isInvestmentTransaction(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range investmentMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// incomeCategory classifies a positive-amount transaction by common deposit
// patterns. Returns "" when nothing matches.
func incomeCategory(name string) models.Category {
	lower := strings.ToLower(name)
	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("payroll", "direct dep", "salary", "wage"):
		return models.CategoryIncomeSalary
	case contains("dividend", "interest"):
		return models.CategoryIncomeInvestment
	// Zelle payments FROM others are income; check before the generic
	// transfer patterns.
	case strings.Contains(lower, "zelle") && strings.Contains(lower, "payment from"):
		return models.CategoryIncomeOther
	case contains("transfer", "xfer"):
		return models.CategoryIncomeTransfer
	case strings.Contains(lower, "deposit") && contains("mobile", "remote", "online", "check"):
		return models.CategoryIncomeOther
	}
	return ""
}

// Categorize classifies one transaction. It is a pure function of its
// inputs; rules must already be sorted by precedence (models.SortRules).
//
// Precedence, highest first:
//  1. Active user rules, first match wins.
//  2. Investment/income signals, then the provider category mapping.
//  3. Static merchant heuristics, else uncategorized.
func Categorize(in CategorizeInput, cfg *models.CategoryConfig, rules []models.TransactionRule) models.Category {
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.Matcher.Matches(in.Name, in.MerchantName) {
			return rule.AssignCategory
		}
	}

	if isInvestmentTransaction(in.Name) {
		return models.CategoryFinancialInvestment
	}

	if in.Amount > 0 {
		if cat := incomeCategory(in.Name); cat != "" {
			return cat
		}
	}

	if in.OriginalCategory != "" {
		composite := strings.ToUpper(strings.ReplaceAll(in.OriginalCategory, " ", "_"))
		simple := strings.ToLower(strings.TrimSpace(in.OriginalCategory))
		if cat, ok := cfg.LookupProviderCategory(composite, simple); ok {
			return cat
		}
	}

	searchText := in.MerchantName + " " + in.Name
	if paypalMerchant := cfg.StripPayPalPrefix(in.Name); paypalMerchant != "" {
		searchText += " " + paypalMerchant
	}
	if cat, ok := cfg.MatchMerchant(strings.ToLower(searchText)); ok {
		return cat
	}

	return models.CategoryUncategorized
}
