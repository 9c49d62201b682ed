package services

import (
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/security/validation"
)

const (
	ckActiveRules       = "rules_active_sorted"
	ruleTestSampleLimit = 250
)

// RuleService owns transaction-rule CRUD and rule application. The active
// rule set is cached so batch categorization during a sync does not hit the
// store once per transaction.
type RuleService struct {
	store       LedgerStore
	categoryCfg *models.CategoryConfig
	ruleCache   *cache.Cache
}

// NewRuleService builds a RuleService.
func NewRuleService(store LedgerStore, categoryCfg *models.CategoryConfig, ruleCache *cache.Cache) *RuleService {
	return &RuleService{
		store:       store,
		categoryCfg: categoryCfg,
		ruleCache:   ruleCache,
	}
}

// ActiveRules returns the active rules sorted by precedence, from cache when
// warm.
func (s *RuleService) ActiveRules() ([]models.TransactionRule, error) {
	if cached, found := s.ruleCache.Get(ckActiveRules); found {
		return cached.([]models.TransactionRule), nil
	}
	rules, err := s.store.ListRules(true)
	if err != nil {
		return nil, fmt.Errorf("loading active rules: %w", err)
	}
	models.SortRules(rules)
	s.ruleCache.Set(ckActiveRules, rules, cache.DefaultExpiration)
	return rules, nil
}

func (s *RuleService) invalidateRuleCache() {
	s.ruleCache.Delete(ckActiveRules)
}

// ListRules returns all rules, active or not.
func (s *RuleService) ListRules() ([]models.TransactionRule, error) {
	rules, err := s.store.ListRules(false)
	if err != nil {
		return nil, err
	}
	models.SortRules(rules)
	return rules, nil
}

// RuleParams carries the user-supplied fields of a rule.
type RuleParams struct {
	Name           string            `json:"name"`
	MatchField     models.MatchField `json:"match_field"`
	MatchType      models.MatchType  `json:"match_type"`
	MatchValue     string            `json:"match_value"`
	AssignCategory models.Category   `json:"assign_category"`
	Priority       int               `json:"priority"`
	IsActive       bool              `json:"is_active"`
}

func (s *RuleService) buildRule(params RuleParams) (*models.TransactionRule, error) {
	matcher, err := models.NewRuleMatcher(params.MatchField, params.MatchType, params.MatchValue)
	if err != nil {
		return nil, newValidationError("%v", err)
	}
	if !models.ValidCategory(params.AssignCategory) {
		return nil, newValidationError("unknown category %q", params.AssignCategory)
	}
	name := validation.SanitizeText(params.Name)
	if name == "" {
		name = params.MatchValue
	}
	return &models.TransactionRule{
		Name:           name,
		Matcher:        matcher,
		MatchField:     matcher.Field(),
		MatchType:      matcher.Type(),
		MatchValue:     matcher.Value(),
		AssignCategory: params.AssignCategory,
		Priority:       params.Priority,
		IsActive:       params.IsActive,
	}, nil
}

// CreateRule validates and persists a new rule.
func (s *RuleService) CreateRule(params RuleParams) (*models.TransactionRule, error) {
	rule, err := s.buildRule(params)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRule(rule); err != nil {
		return nil, fmt.Errorf("creating rule: %w", err)
	}
	s.invalidateRuleCache()
	logger.L.Info("Rule created", "ruleID", rule.ID, "name", rule.Name)
	return rule, nil
}

// UpdateRule validates and replaces an existing rule's fields.
func (s *RuleService) UpdateRule(id int64, params RuleParams) (*models.TransactionRule, error) {
	if _, err := s.store.GetRule(id); err != nil {
		return nil, err
	}
	rule, err := s.buildRule(params)
	if err != nil {
		return nil, err
	}
	rule.ID = id
	if err := s.store.UpdateRule(rule); err != nil {
		return nil, fmt.Errorf("updating rule %d: %w", id, err)
	}
	s.invalidateRuleCache()
	return rule, nil
}

// DeleteRule removes a rule.
func (s *RuleService) DeleteRule(id int64) error {
	if err := s.store.DeleteRule(id); err != nil {
		return err
	}
	s.invalidateRuleCache()
	return nil
}

// ApplyRule re-runs one rule across the ledger and overwrites the category
// wherever the rule matches and the user has not set a manual category.
// Returns the number of transactions updated.
func (s *RuleService) ApplyRule(id int64) (int, error) {
	rule, err := s.store.GetRule(id)
	if err != nil {
		return 0, err
	}
	if !rule.IsActive {
		return 0, newValidationError("rule %d is not active", id)
	}

	txns, err := s.store.GetTransactions(models.TransactionFilter{IncludeExcluded: true})
	if err != nil {
		return 0, fmt.Errorf("loading transactions: %w", err)
	}

	var updates []CategoryUpdate
	for _, txn := range txns {
		if txn.IsManualCategory {
			continue
		}
		if !rule.Matcher.Matches(txn.Name, txn.MerchantName) {
			continue
		}
		if txn.Category == rule.AssignCategory {
			continue
		}
		updates = append(updates, CategoryUpdate{TransactionID: txn.ID, Category: rule.AssignCategory})
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := s.store.BulkUpdateCategories(updates); err != nil {
		return 0, fmt.Errorf("applying rule %d: %w", id, err)
	}
	logger.L.Info("Rule applied to existing transactions", "ruleID", id, "updated", len(updates))
	return len(updates), nil
}

// TestRule evaluates an unsaved rule against recent transactions and returns
// the rows it would match, without writing anything.
func (s *RuleService) TestRule(params RuleParams) ([]models.Transaction, error) {
	matcher, err := models.NewRuleMatcher(params.MatchField, params.MatchType, params.MatchValue)
	if err != nil {
		return nil, newValidationError("%v", err)
	}
	txns, err := s.store.GetTransactions(models.TransactionFilter{Limit: ruleTestSampleLimit})
	if err != nil {
		return nil, err
	}
	matched := []models.Transaction{}
	for _, txn := range txns {
		if matcher.Matches(txn.Name, txn.MerchantName) {
			matched = append(matched, txn)
		}
	}
	return matched, nil
}

// RecategorizeAll re-runs the full categorization pipeline over every
// transaction without a manual category. Maintenance operation, exposed for
// use after editing the rule set wholesale.
func (s *RuleService) RecategorizeAll() (int, error) {
	rules, err := s.ActiveRules()
	if err != nil {
		return 0, err
	}
	txns, err := s.store.GetTransactions(models.TransactionFilter{IncludeExcluded: true})
	if err != nil {
		return 0, err
	}

	var updates []CategoryUpdate
	for _, txn := range txns {
		if txn.IsManualCategory {
			continue
		}
		newCat := Categorize(CategorizeInput{
			Name:             txn.Name,
			MerchantName:     txn.MerchantName,
			OriginalCategory: txn.OriginalCategory,
			Amount:           txn.Amount,
		}, s.categoryCfg, rules)
		if newCat != txn.Category {
			updates = append(updates, CategoryUpdate{TransactionID: txn.ID, Category: newCat})
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := s.store.BulkUpdateCategories(updates); err != nil {
		return 0, fmt.Errorf("recategorizing: %w", err)
	}
	logger.L.Info("Recategorized transactions", "updated", len(updates))
	return len(updates), nil
}
