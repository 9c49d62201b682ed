package models

import "time"

// BillingCycle is a recognized recurrence interval.
type BillingCycle string

const (
	CycleWeekly     BillingCycle = "weekly"
	CycleBiweekly   BillingCycle = "biweekly"
	CycleMonthly    BillingCycle = "monthly"
	CycleQuarterly  BillingCycle = "quarterly"
	CycleSemiannual BillingCycle = "semiannual"
	CycleAnnual     BillingCycle = "annual"
)

// BillingCycles lists cycles from shortest to longest nominal interval.
var BillingCycles = []BillingCycle{
	CycleWeekly, CycleBiweekly, CycleMonthly, CycleQuarterly, CycleSemiannual, CycleAnnual,
}

// NominalDays returns the nominal interval for a cycle. Monthly uses 29.5 so
// both 28 and 31 day months fall inside a symmetric tolerance band.
func (c BillingCycle) NominalDays() float64 {
	switch c {
	case CycleWeekly:
		return 7
	case CycleBiweekly:
		return 14
	case CycleMonthly:
		return 29.5
	case CycleQuarterly:
		return 90
	case CycleSemiannual:
		return 180
	case CycleAnnual:
		return 365
	}
	return 0
}

// ValidBillingCycle reports whether c is a recognized cycle.
func ValidBillingCycle(c BillingCycle) bool {
	return c.NominalDays() != 0
}

// PerMonth returns the number of charges per month for the cycle.
func (c BillingCycle) PerMonth() float64 {
	switch c {
	case CycleWeekly:
		return 52.0 / 12
	case CycleBiweekly:
		return 26.0 / 12
	case CycleMonthly:
		return 1
	case CycleQuarterly:
		return 1.0 / 3
	case CycleSemiannual:
		return 1.0 / 6
	case CycleAnnual:
		return 1.0 / 12
	}
	return 1
}

// Subscription is a tracked recurring charge, either confirmed by the user
// or auto-detected.
type Subscription struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	MerchantPattern  string       `json:"merchant_pattern"`
	ExpectedAmount   float64      `json:"expected_amount"`
	BillingCycle     BillingCycle `json:"billing_cycle"`
	Category         Category     `json:"category"`
	IsActive         bool         `json:"is_active"`
	IsConfirmed      bool         `json:"is_confirmed"`
	IsDismissed      bool         `json:"is_dismissed"`
	LastChargeDate   *time.Time   `json:"last_charge_date"`
	LastChargeAmount *float64     `json:"last_charge_amount"`
	NextExpectedDate *time.Time   `json:"next_expected_date"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// DetectedSubscription is one inferred recurring charge, not yet persisted.
type DetectedSubscription struct {
	Name              string       `json:"name"`
	MerchantPattern   string       `json:"merchant_pattern"`
	ExpectedAmount    float64      `json:"expected_amount"`
	BillingCycle      BillingCycle `json:"billing_cycle"`
	TransactionCount  int          `json:"transaction_count"`
	LastChargeDate    time.Time    `json:"last_charge_date"`
	LastChargeAmount  float64      `json:"last_charge_amount"`
	NextExpectedDate  time.Time    `json:"next_expected_date"`
	DaysUntilCharge   int          `json:"days_until_charge"`
	AmountChanged     bool         `json:"amount_changed"`
	Confidence        float64      `json:"confidence"`
	MonthlyEquivalent float64      `json:"monthly_equivalent"`
}
