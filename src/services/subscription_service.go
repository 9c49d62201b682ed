package services

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
)

const ckDetectedSubscriptions = "subscriptions_detected"

// amountChangeThreshold is how far the latest charge may drift from the
// cluster's typical amount before the detection is flagged as a price change.
// Looser than cent-exact so rounding noise does not alarm, tighter than the
// clustering band so real plan bumps still surface.
const amountChangeThreshold = 0.50

// SubscriptionConfig carries the detector's tunables.
type SubscriptionConfig struct {
	LookbackDays       int
	AnnualLookbackDays int
	MinOccurrences     int
	AmountTolerancePct float64
	AmountToleranceAbs float64
	IntervalBandPct    float64
}

// SubscriptionService detects recurring charges from transaction history and
// manages the confirmed/dismissed subscription list. Detection is a read-only
// scan; nothing persists until the user confirms or dismisses.
type SubscriptionService struct {
	store       LedgerStore
	cfg         SubscriptionConfig
	resultCache *cache.Cache
	now         func() time.Time
}

// NewSubscriptionService builds a SubscriptionService.
func NewSubscriptionService(store LedgerStore, cfg SubscriptionConfig, resultCache *cache.Cache) *SubscriptionService {
	return &SubscriptionService{store: store, cfg: cfg, resultCache: resultCache, now: time.Now}
}

var merchantNoise = regexp.MustCompile(`[^a-z\s]+`)

// normalizeMerchant collapses a transaction description into a stable
// merchant key: lowercase, strip digits and punctuation (store numbers,
// reference ids), keep the first three tokens. "NETFLIX.COM 866-579-7172"
// and "Netflix.com" both normalize to "netflix com".
func normalizeMerchant(name string) string {
	lower := strings.ToLower(name)
	lower = merchantNoise.ReplaceAllString(lower, " ")
	tokens := strings.Fields(lower)
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return strings.Join(tokens, " ")
}

// Detect scans spending-account expenses and returns inferred recurring
// charges, cached briefly so dashboard polling does not rescan the ledger.
// Merchants already covered by a confirmed or dismissed subscription are
// skipped.
func (s *SubscriptionService) Detect() ([]models.DetectedSubscription, error) {
	if cached, found := s.resultCache.Get(ckDetectedSubscriptions); found {
		return cached.([]models.DetectedSubscription), nil
	}

	// The longer window exists so semiannual and annual charges can reach
	// the occurrence minimum; shorter cycles are detected from it as well.
	start := dateOnly(s.now()).AddDate(0, 0, -s.cfg.AnnualLookbackDays)
	txns, err := s.store.GetTransactions(models.TransactionFilter{
		StartDate:    &start,
		OnlyExpenses: true,
		AccountTypes: models.SpendingAccountTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	known, err := s.knownMerchants()
	if err != nil {
		return nil, err
	}

	byMerchant := make(map[string][]models.Transaction)
	for _, txn := range txns {
		if txn.IsPending {
			continue
		}
		// The aggregator's payee field is steadier than the raw statement
		// line; fall back to the description when the feed omits it.
		name := txn.MerchantName
		if name == "" {
			name = txn.Name
		}
		key := normalizeMerchant(name)
		if key == "" || known[key] {
			continue
		}
		byMerchant[key] = append(byMerchant[key], txn)
	}

	detected := []models.DetectedSubscription{}
	for merchant, rows := range byMerchant {
		for _, cluster := range s.clusterByAmount(rows) {
			if sub, ok := s.evaluateCluster(merchant, cluster); ok {
				detected = append(detected, sub)
			}
		}
	}

	sort.Slice(detected, func(i, j int) bool {
		if detected[i].Confidence != detected[j].Confidence {
			return detected[i].Confidence > detected[j].Confidence
		}
		return detected[i].Name < detected[j].Name
	})

	s.resultCache.Set(ckDetectedSubscriptions, detected, cache.DefaultExpiration)
	logger.L.Info("Subscription detection complete", "merchants", len(byMerchant), "detected", len(detected))
	return detected, nil
}

func (s *SubscriptionService) knownMerchants() (map[string]bool, error) {
	subs, err := s.store.ListSubscriptions(true)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}
	known := make(map[string]bool, len(subs))
	for _, sub := range subs {
		known[sub.MerchantPattern] = true
	}
	return known, nil
}

// clusterByAmount splits one merchant's charges into groups of similar
// amounts, so a $15.99 streaming plan and a one-off $120 purchase at the
// same merchant are evaluated separately. Tolerance is the larger of the
// percentage and absolute bands, anchored on each cluster's first amount.
func (s *SubscriptionService) clusterByAmount(rows []models.Transaction) [][]models.Transaction {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	var clusters [][]models.Transaction
	var anchors []float64
next:
	for _, txn := range rows {
		amount := math.Abs(txn.Amount)
		for i, anchor := range anchors {
			if withinTolerance(anchor, amount, s.cfg.AmountTolerancePct, s.cfg.AmountToleranceAbs) {
				clusters[i] = append(clusters[i], txn)
				continue next
			}
		}
		clusters = append(clusters, []models.Transaction{txn})
		anchors = append(anchors, amount)
	}
	return clusters
}

// evaluateCluster decides whether one amount cluster looks recurring: enough
// occurrences and a median gap landing inside the tolerance band of a known
// billing cycle.
func (s *SubscriptionService) evaluateCluster(merchant string, cluster []models.Transaction) (models.DetectedSubscription, bool) {
	if len(cluster) < s.cfg.MinOccurrences {
		return models.DetectedSubscription{}, false
	}

	gaps := make([]float64, 0, len(cluster)-1)
	for i := 1; i < len(cluster); i++ {
		gaps = append(gaps, cluster[i].Date.Sub(cluster[i-1].Date).Hours()/24)
	}
	gap := median(gaps)

	cycle, ok := matchCycle(gap, s.cfg.IntervalBandPct)
	if !ok {
		return models.DetectedSubscription{}, false
	}

	// A lapsed subscription should not keep surfacing: short cycles must
	// have charged within the regular lookback, long cycles within two
	// nominal intervals.
	last := cluster[len(cluster)-1]
	today := dateOnly(s.now())
	staleAfter := math.Min(float64(s.cfg.LookbackDays), 2*cycle.NominalDays())
	if cycle.NominalDays() > float64(s.cfg.LookbackDays) {
		staleAfter = 2 * cycle.NominalDays()
	}
	if today.Sub(last.Date).Hours()/24 > staleAfter {
		return models.DetectedSubscription{}, false
	}

	amounts := make([]float64, len(cluster))
	for i, txn := range cluster {
		amounts[i] = math.Abs(txn.Amount)
	}
	expected := roundCents(median(amounts))
	lastAmount := roundCents(math.Abs(last.Amount))

	nextDate := last.Date.AddDate(0, 0, int(math.Round(cycle.NominalDays())))
	daysUntil := int(math.Ceil(nextDate.Sub(today).Hours() / 24))

	return models.DetectedSubscription{
		Name:              last.Name,
		MerchantPattern:   merchant,
		ExpectedAmount:    expected,
		BillingCycle:      cycle,
		TransactionCount:  len(cluster),
		LastChargeDate:    last.Date,
		LastChargeAmount:  lastAmount,
		NextExpectedDate:  nextDate,
		DaysUntilCharge:   daysUntil,
		AmountChanged:     math.Abs(expected-lastAmount) > amountChangeThreshold,
		Confidence:        confidence(len(cluster), gaps, cycle, s.cfg.IntervalBandPct),
		MonthlyEquivalent: roundCents(expected * cycle.PerMonth()),
	}, true
}

// matchCycle returns the billing cycle whose nominal interval contains the
// observed gap within the tolerance band. Cycles are tried shortest first;
// the bands do not overlap at 20%.
func matchCycle(gapDays, bandPct float64) (models.BillingCycle, bool) {
	for _, cycle := range models.BillingCycles {
		nominal := cycle.NominalDays()
		if math.Abs(gapDays-nominal) <= nominal*bandPct {
			return cycle, true
		}
	}
	return "", false
}

// confidence scores a detection from 0 to 1: more observed charges and more
// regular gaps score higher.
func confidence(count int, gaps []float64, cycle models.BillingCycle, bandPct float64) float64 {
	countScore := math.Min(float64(count), 6) / 6 * 0.5

	inBand := 0
	for _, gap := range gaps {
		if math.Abs(gap-cycle.NominalDays()) <= cycle.NominalDays()*bandPct {
			inBand++
		}
	}
	regularity := float64(inBand) / float64(len(gaps)) * 0.5

	return math.Round((countScore+regularity)*100) / 100
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// List returns tracked subscriptions, optionally including dismissed ones.
func (s *SubscriptionService) List(includeDismissed bool) ([]models.Subscription, error) {
	return s.store.ListSubscriptions(includeDismissed)
}

// Confirm persists a detected subscription as tracked. Future detections
// skip its merchant.
func (s *SubscriptionService) Confirm(detected models.DetectedSubscription, category models.Category) (*models.Subscription, error) {
	if !models.ValidBillingCycle(detected.BillingCycle) {
		return nil, newValidationError("unknown billing cycle %q", detected.BillingCycle)
	}
	if category == "" {
		category = models.CategorySubscription
	}
	if !models.ValidCategory(category) {
		return nil, newValidationError("unknown category %q", category)
	}

	lastDate := detected.LastChargeDate
	lastAmount := detected.LastChargeAmount
	nextDate := detected.NextExpectedDate
	sub := &models.Subscription{
		Name:             detected.Name,
		MerchantPattern:  detected.MerchantPattern,
		ExpectedAmount:   detected.ExpectedAmount,
		BillingCycle:     detected.BillingCycle,
		Category:         category,
		IsActive:         true,
		IsConfirmed:      true,
		LastChargeDate:   &lastDate,
		LastChargeAmount: &lastAmount,
		NextExpectedDate: &nextDate,
	}
	if err := s.store.CreateSubscription(sub); err != nil {
		return nil, fmt.Errorf("confirming subscription: %w", err)
	}
	s.resultCache.Delete(ckDetectedSubscriptions)
	logger.L.Info("Subscription confirmed", "subscriptionID", sub.ID, "merchant", sub.MerchantPattern)
	return sub, nil
}

// Dismiss records a detected subscription as "not a subscription" so it
// never resurfaces in detection.
func (s *SubscriptionService) Dismiss(detected models.DetectedSubscription) error {
	sub := &models.Subscription{
		Name:            detected.Name,
		MerchantPattern: detected.MerchantPattern,
		ExpectedAmount:  detected.ExpectedAmount,
		BillingCycle:    detected.BillingCycle,
		Category:        models.CategorySubscription,
		IsDismissed:     true,
	}
	if err := s.store.CreateSubscription(sub); err != nil {
		return fmt.Errorf("dismissing subscription: %w", err)
	}
	s.resultCache.Delete(ckDetectedSubscriptions)
	return nil
}

// Update edits a tracked subscription.
func (s *SubscriptionService) Update(sub *models.Subscription) error {
	if !models.ValidBillingCycle(sub.BillingCycle) {
		return newValidationError("unknown billing cycle %q", sub.BillingCycle)
	}
	if err := s.store.UpdateSubscription(sub); err != nil {
		return err
	}
	s.resultCache.Delete(ckDetectedSubscriptions)
	return nil
}

// Delete removes a tracked subscription; detection may surface its merchant
// again.
func (s *SubscriptionService) Delete(id int64) error {
	if err := s.store.DeleteSubscription(id); err != nil {
		return err
	}
	s.resultCache.Delete(ckDetectedSubscriptions)
	return nil
}
