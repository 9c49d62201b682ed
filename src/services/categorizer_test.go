package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fintrack/backend/src/models"
)

func mustRule(t *testing.T, field models.MatchField, typ models.MatchType, value string, category models.Category, priority int) models.TransactionRule {
	t.Helper()
	matcher, err := models.NewRuleMatcher(field, typ, value)
	require.NoError(t, err)
	return models.TransactionRule{
		Matcher:        matcher,
		MatchField:     field,
		MatchType:      typ,
		MatchValue:     value,
		AssignCategory: category,
		Priority:       priority,
		IsActive:       true,
	}
}

func TestCategorizeUserRuleBeatsEverything(t *testing.T) {
	cfg := models.NewCategoryConfig()
	rules := []models.TransactionRule{
		mustRule(t, models.MatchFieldAny, models.MatchContains, "netflix", models.CategoryEntertainmentGames, 1),
	}

	// Without the rule, provider category and merchant heuristics would both
	// put Netflix under streaming.
	got := Categorize(CategorizeInput{
		Name:             "NETFLIX.COM",
		OriginalCategory: "ENTERTAINMENT_TV_AND_MOVIES",
		Amount:           -15.99,
	}, cfg, rules)
	assert.Equal(t, models.CategoryEntertainmentGames, got)
}

func TestCategorizeRulePrecedenceByPriority(t *testing.T) {
	cfg := models.NewCategoryConfig()
	high := mustRule(t, models.MatchFieldAny, models.MatchContains, "coffee", models.CategoryFoodCoffee, 1)
	low := mustRule(t, models.MatchFieldAny, models.MatchContains, "coffee", models.CategoryFoodRestaurants, 5)
	rules := []models.TransactionRule{low, high}
	models.SortRules(rules)

	got := Categorize(CategorizeInput{Name: "BLUE BOTTLE COFFEE", Amount: -6.50}, cfg, rules)
	assert.Equal(t, models.CategoryFoodCoffee, got)
}

func TestCategorizeRuleTieBreaksByID(t *testing.T) {
	cfg := models.NewCategoryConfig()
	first := mustRule(t, models.MatchFieldAny, models.MatchContains, "market", models.CategoryFoodGroceries, 3)
	first.ID = 1
	second := mustRule(t, models.MatchFieldAny, models.MatchContains, "market", models.CategoryShoppingGeneral, 3)
	second.ID = 2
	rules := []models.TransactionRule{second, first}
	models.SortRules(rules)

	got := Categorize(CategorizeInput{Name: "CENTRAL MARKET", Amount: -42.00}, cfg, rules)
	assert.Equal(t, models.CategoryFoodGroceries, got)
}

func TestCategorizeInactiveRuleIgnored(t *testing.T) {
	cfg := models.NewCategoryConfig()
	rule := mustRule(t, models.MatchFieldAny, models.MatchContains, "netflix", models.CategoryFoodCoffee, 1)
	rule.IsActive = false

	got := Categorize(CategorizeInput{Name: "Netflix.com", Amount: -15.99}, cfg, []models.TransactionRule{rule})
	assert.Equal(t, models.CategorySubscription, got)
}

func TestCategorizeInvestmentMarkerBeatsMerchant(t *testing.T) {
	cfg := models.NewCategoryConfig()

	// "CAVA" would otherwise hit the restaurant heuristics.
	got := Categorize(CategorizeInput{
		Name:   "YOU BOUGHT CAVA GROUP INC",
		Amount: -500.00,
	}, cfg, nil)
	assert.Equal(t, models.CategoryFinancialInvestment, got)
}

func TestCategorizeIncomeOnlyForPositiveAmounts(t *testing.T) {
	cfg := models.NewCategoryConfig()

	deposit := Categorize(CategorizeInput{Name: "ACME CORP PAYROLL", Amount: 2500.00}, cfg, nil)
	assert.Equal(t, models.CategoryIncomeSalary, deposit)

	// The same text with a negative amount must not classify as income.
	charge := Categorize(CategorizeInput{Name: "ACME CORP PAYROLL", Amount: -2500.00}, cfg, nil)
	assert.NotEqual(t, models.CategoryIncomeSalary, charge)
}

func TestCategorizeZelleFromIsIncome(t *testing.T) {
	cfg := models.NewCategoryConfig()
	got := Categorize(CategorizeInput{Name: "Zelle payment from JANE DOE", Amount: 50.00}, cfg, nil)
	assert.Equal(t, models.CategoryIncomeOther, got)
}

func TestCategorizeProviderCompositeKey(t *testing.T) {
	cfg := models.NewCategoryConfig()
	got := Categorize(CategorizeInput{
		Name:             "SQ *SOMEWHERE",
		OriginalCategory: "FOOD_AND_DRINK_GROCERIES",
		Amount:           -80.12,
	}, cfg, nil)
	assert.Equal(t, models.CategoryFoodGroceries, got)
}

func TestCategorizeProviderSimpleToken(t *testing.T) {
	cfg := models.NewCategoryConfig()
	got := Categorize(CategorizeInput{
		Name:             "LOCAL PLACE",
		OriginalCategory: "groceries",
		Amount:           -23.45,
	}, cfg, nil)
	assert.Equal(t, models.CategoryFoodGroceries, got)
}

func TestCategorizeMerchantHeuristic(t *testing.T) {
	cfg := models.NewCategoryConfig()
	got := Categorize(CategorizeInput{Name: "SPOTIFY USA", Amount: -10.99}, cfg, nil)
	assert.Equal(t, models.CategorySubscription, got)
}

func TestCategorizePayPalPrefixStripped(t *testing.T) {
	cfg := models.NewCategoryConfig()
	got := Categorize(CategorizeInput{Name: "PAYPAL *SPOTIFY", Amount: -10.99}, cfg, nil)
	assert.Equal(t, models.CategorySubscription, got)
}

func TestCategorizeFallsBackToUncategorized(t *testing.T) {
	cfg := models.NewCategoryConfig()
	got := Categorize(CategorizeInput{Name: "XYZZY 9912 LLC", Amount: -12.00}, cfg, nil)
	assert.Equal(t, models.CategoryUncategorized, got)
}
