package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuleMatcherValidation(t *testing.T) {
	tests := []struct {
		name    string
		field   MatchField
		typ     MatchType
		value   string
		wantErr bool
	}{
		{"contains on any", MatchFieldAny, MatchContains, "netflix", false},
		{"regex on name", MatchFieldName, MatchRegex, `^uber\s`, false},
		{"bad field", MatchField("description"), MatchContains, "netflix", true},
		{"bad type", MatchFieldAny, MatchType("fuzzy"), "netflix", true},
		{"empty value", MatchFieldAny, MatchContains, "   ", true},
		{"bad regex", MatchFieldAny, MatchRegex, "(unclosed", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRuleMatcher(tc.field, tc.typ, tc.value)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleMatcherPredicates(t *testing.T) {
	tests := []struct {
		name     string
		typ      MatchType
		value    string
		txnName  string
		merchant string
		want     bool
	}{
		{"contains case-insensitive", MatchContains, "netflix", "NETFLIX.COM 866-579", "", true},
		{"contains miss", MatchContains, "netflix", "SPOTIFY USA", "", false},
		{"starts_with", MatchStartsWith, "sq *", "SQ *COFFEE SHOP", "", true},
		{"starts_with mid-string miss", MatchStartsWith, "coffee", "SQ *COFFEE SHOP", "", false},
		{"ends_with", MatchEndsWith, "payroll", "ACME CORP PAYROLL", "", true},
		{"exact", MatchExact, "venmo", "VENMO", "", true},
		{"exact partial miss", MatchExact, "venmo", "VENMO PAYMENT", "", false},
		{"regex case-insensitive", MatchRegex, `uber\s+(trip|eats)`, "UBER   TRIP HELP.UBER.COM", "", true},
		{"regex miss", MatchRegex, `uber\s+(trip|eats)`, "UBERMENSCH BOOKS", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewRuleMatcher(MatchFieldAny, tc.typ, tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.Matches(tc.txnName, tc.merchant))
		})
	}
}

func TestRuleMatcherFieldSelection(t *testing.T) {
	name, err := NewRuleMatcher(MatchFieldName, MatchContains, "netflix")
	require.NoError(t, err)
	merchant, err := NewRuleMatcher(MatchFieldMerchant, MatchContains, "netflix")
	require.NoError(t, err)
	any, err := NewRuleMatcher(MatchFieldAny, MatchContains, "netflix")
	require.NoError(t, err)

	assert.True(t, name.Matches("NETFLIX.COM", "Apple"))
	assert.False(t, name.Matches("APPLE.COM/BILL", "Netflix"))
	assert.False(t, merchant.Matches("NETFLIX.COM", "Apple"))
	assert.True(t, merchant.Matches("APPLE.COM/BILL", "Netflix"))
	assert.True(t, any.Matches("APPLE.COM/BILL", "Netflix"))
	assert.True(t, any.Matches("NETFLIX.COM", "Apple"))
}

func TestSortRulesPrecedence(t *testing.T) {
	rules := []TransactionRule{
		{ID: 3, Priority: 10},
		{ID: 1, Priority: 5},
		{ID: 2, Priority: 5},
		{ID: 4, Priority: 1},
	}
	SortRules(rules)

	got := make([]int64, len(rules))
	for i, rule := range rules {
		got[i] = rule.ID
	}
	// Lower priority number first, id ascending on ties.
	assert.Equal(t, []int64{4, 1, 2, 3}, got)
}
