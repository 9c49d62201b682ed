package services

import (
	"fmt"
	"math"
	"time"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
)

// NetWorthService computes daily net worth snapshots from visible account
// balances. Hidden and inactive accounts never contribute.
type NetWorthService struct {
	store LedgerStore
}

// NewNetWorthService builds a NetWorthService.
func NewNetWorthService(store LedgerStore) *NetWorthService {
	return &NetWorthService{store: store}
}

// BuildSnapshot computes and upserts the snapshot for one date from current
// account balances. Idempotent: rerunning for the same date overwrites.
func (s *NetWorthService) BuildSnapshot(date time.Time) error {
	accounts, err := s.visibleAccounts()
	if err != nil {
		return err
	}

	snapshot := bucketBalances(accounts, nil)
	snapshot.Date = dateOnly(date)
	if err := s.store.SaveNetWorthSnapshot(snapshot); err != nil {
		return fmt.Errorf("saving net worth snapshot: %w", err)
	}
	return nil
}

// Backfill recomputes snapshots for each of the past `days` days from
// recorded balance history, ending today. Dates with no balance history for
// any account are skipped.
func (s *NetWorthService) Backfill(days int) (int, error) {
	accounts, err := s.visibleAccounts()
	if err != nil {
		return 0, err
	}

	written := 0
	today := dateOnly(time.Now())
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		balances, err := s.store.BalancesAsOf(date)
		if err != nil {
			return written, fmt.Errorf("loading balances as of %s: %w", date.Format("2006-01-02"), err)
		}
		if len(balances) == 0 {
			continue
		}
		snapshot := bucketBalances(accounts, balances)
		snapshot.Date = date
		if err := s.store.SaveNetWorthSnapshot(snapshot); err != nil {
			return written, fmt.Errorf("saving snapshot for %s: %w", date.Format("2006-01-02"), err)
		}
		written++
	}
	logger.L.Info("Net worth backfill complete", "days", days, "snapshots", written)
	return written, nil
}

// History returns the recorded snapshots for the past `days` days.
func (s *NetWorthService) History(days int) ([]models.NetWorthSnapshot, error) {
	return s.store.GetNetWorthHistory(days)
}

func (s *NetWorthService) visibleAccounts() ([]models.Account, error) {
	accounts, err := s.store.GetAccounts(false)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	visible := accounts[:0]
	for _, acct := range accounts {
		if acct.IsActive {
			visible = append(visible, acct)
		}
	}
	return visible, nil
}

// bucketBalances aggregates account balances into net worth buckets. When
// historical is non-nil it supplies per-account balances (accounts absent
// from the map are skipped); otherwise current balances are used.
//
// Debt types always count their magnitude as a liability. "Other" accounts
// split on sign: positive balances are assets, negative are liabilities.
func bucketBalances(accounts []models.Account, historical map[int64]float64) *models.NetWorthSnapshot {
	snap := &models.NetWorthSnapshot{}
	for _, acct := range accounts {
		balance := acct.CurrentBalance
		if historical != nil {
			b, ok := historical[acct.ID]
			if !ok {
				continue
			}
			balance = b
		}

		switch acct.AccountType {
		case models.AccountChecking, models.AccountSavings:
			snap.Cash += balance
		case models.AccountInvestment, models.AccountBrokerage:
			snap.Investments += balance
		case models.AccountRetirement:
			snap.Retirement += balance
		case models.AccountCredit:
			snap.CreditDebt += math.Abs(balance)
		case models.AccountLoan, models.AccountMortgage:
			snap.LoanDebt += math.Abs(balance)
		default:
			if balance >= 0 {
				snap.TotalAssets += balance
			} else {
				snap.TotalLiabilities += math.Abs(balance)
			}
		}
	}

	snap.TotalAssets = roundCents(snap.TotalAssets + snap.Cash + snap.Investments + snap.Retirement)
	snap.TotalLiabilities = roundCents(snap.TotalLiabilities + snap.CreditDebt + snap.LoanDebt)
	snap.NetWorth = roundCents(snap.TotalAssets - snap.TotalLiabilities)
	snap.Cash = roundCents(snap.Cash)
	snap.Investments = roundCents(snap.Investments)
	snap.Retirement = roundCents(snap.Retirement)
	snap.CreditDebt = roundCents(snap.CreditDebt)
	snap.LoanDebt = roundCents(snap.LoanDebt)
	return snap
}
