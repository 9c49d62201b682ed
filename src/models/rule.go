package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MatchField selects which transaction text a rule is evaluated against.
type MatchField string

// MatchType selects the predicate a rule applies to its field.
type MatchType string

const (
	MatchFieldAny      MatchField = "any"
	MatchFieldName     MatchField = "name"
	MatchFieldMerchant MatchField = "merchant_name"

	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
	MatchEndsWith   MatchType = "ends_with"
	MatchExact      MatchType = "exact"
	MatchRegex      MatchType = "regex"
)

// RuleMatcher is a validated (field, type, value) triple. Invalid
// combinations are rejected at construction, and regex patterns are compiled
// once here rather than per evaluation.
type RuleMatcher struct {
	field MatchField
	typ   MatchType
	value string
	re    *regexp.Regexp
}

// NewRuleMatcher validates and builds a matcher. The value of a non-regex
// matcher is lowercased once; regex patterns are compiled case-insensitive
// and unanchored.
func NewRuleMatcher(field MatchField, typ MatchType, value string) (RuleMatcher, error) {
	switch field {
	case MatchFieldAny, MatchFieldName, MatchFieldMerchant:
	default:
		return RuleMatcher{}, fmt.Errorf("invalid match_field %q", field)
	}
	if strings.TrimSpace(value) == "" {
		return RuleMatcher{}, fmt.Errorf("match_value cannot be empty")
	}

	m := RuleMatcher{field: field, typ: typ}
	switch typ {
	case MatchContains, MatchStartsWith, MatchEndsWith, MatchExact:
		m.value = strings.ToLower(value)
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + value)
		if err != nil {
			return RuleMatcher{}, fmt.Errorf("invalid regex %q: %w", value, err)
		}
		m.value = value
		m.re = re
	default:
		return RuleMatcher{}, fmt.Errorf("invalid match_type %q", typ)
	}
	return m, nil
}

// Field returns the matcher's field, for persistence.
func (m RuleMatcher) Field() MatchField { return m.field }

// Type returns the matcher's predicate type, for persistence.
func (m RuleMatcher) Type() MatchType { return m.typ }

// Value returns the raw match value, for persistence.
func (m RuleMatcher) Value() string { return m.value }

// Matches evaluates the matcher against a transaction's name and merchant
// name. All predicates are case-insensitive; regex is an unanchored search.
func (m RuleMatcher) Matches(name, merchantName string) bool {
	var texts []string
	switch m.field {
	case MatchFieldName:
		texts = []string{name}
	case MatchFieldMerchant:
		texts = []string{merchantName}
	default:
		texts = []string{name, merchantName}
	}

	for _, text := range texts {
		if m.typ == MatchRegex {
			if m.re.MatchString(text) {
				return true
			}
			continue
		}
		lower := strings.ToLower(text)
		switch m.typ {
		case MatchContains:
			if strings.Contains(lower, m.value) {
				return true
			}
		case MatchStartsWith:
			if strings.HasPrefix(lower, m.value) {
				return true
			}
		case MatchEndsWith:
			if strings.HasSuffix(lower, m.value) {
				return true
			}
		case MatchExact:
			if lower == m.value {
				return true
			}
		}
	}
	return false
}

// TransactionRule assigns a category to transactions whose text matches.
type TransactionRule struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Matcher        RuleMatcher `json:"-"`
	MatchField     MatchField  `json:"match_field"`
	MatchType      MatchType   `json:"match_type"`
	MatchValue     string      `json:"match_value"`
	AssignCategory Category    `json:"assign_category"`
	Priority       int         `json:"priority"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// SortRules orders rules by evaluation precedence: the LOWER priority number
// wins, with ties broken by ascending rule id so evaluation is deterministic.
func SortRules(rules []TransactionRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
