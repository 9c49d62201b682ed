// Package simplefin is a typed client for the SimpleFIN Bridge API
// (https://www.simplefin.org/protocol.html). It claims setup tokens and
// fetches accounts, transactions and balances. The client never retries:
// transient failures surface as NetworkError and are left for the next
// scheduled sync cycle.
package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/security/validation"
	"golang.org/x/time/rate"
)

// AuthError reports an invalid or expired aggregator credential. It is
// per-institution and non-fatal to a bulk sync.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "simplefin: " + e.Reason }

// NetworkError reports a transient transport failure, including timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "simplefin: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// DataError reports an unusable aggregator payload. Malformed individual
// records are skipped and logged instead; this fires only when the whole
// response cannot be decoded.
type DataError struct {
	Err error
}

func (e *DataError) Error() string { return "simplefin: bad payload: " + e.Err.Error() }
func (e *DataError) Unwrap() error { return e.Err }

// Client talks to a SimpleFIN bridge. A shared limiter paces outbound calls
// so a sync-all burst does not hammer the bridge.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a Client. Per-call deadlines come from the caller's
// context, so the underlying http.Client carries no timeout of its own.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 5),
	}
}

// ClaimSetupToken exchanges a single-use setup token for a durable access
// URL. The token is a base64-encoded claim URL; POSTing to it can only be
// done once per token.
func (c *Client) ClaimSetupToken(ctx context.Context, setupToken string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(setupToken))
	if err != nil {
		return "", &AuthError{Reason: "invalid setup token format"}
	}
	claimURL := strings.TrimSpace(string(decoded))
	if _, err := url.ParseRequestURI(claimURL); err != nil {
		return "", &AuthError{Reason: "setup token does not contain a valid claim URL"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &NetworkError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden:
		return "", &AuthError{Reason: "setup token already claimed or invalid"}
	case http.StatusPaymentRequired:
		return "", &AuthError{Reason: "aggregator subscription required"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NetworkError{Err: fmt.Errorf("claim returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	accessURL := strings.TrimSpace(string(body))
	if accessURL == "" {
		return "", &AuthError{Reason: "claim response contained no access URL"}
	}
	logger.L.Info("Claimed aggregator setup token")
	return accessURL, nil
}

// FetchAccounts fetches accounts with transactions. A nil since requests the
// full provider retention window; otherwise the caller has already applied
// the late-posting safety buffer.
func (c *Client) FetchAccounts(ctx context.Context, accessURL string, since *time.Time) ([]models.AccountSnapshot, error) {
	params := url.Values{}
	params.Set("pending", "1")
	if since != nil {
		params.Set("start-date", strconv.FormatInt(since.Unix(), 10))
	}
	return c.fetch(ctx, accessURL, params)
}

// FetchBalances fetches account balances only, with no transaction payload.
// Much faster than a full fetch.
func (c *Client) FetchBalances(ctx context.Context, accessURL string) ([]models.AccountSnapshot, error) {
	params := url.Values{}
	params.Set("balances-only", "1")
	return c.fetch(ctx, accessURL, params)
}

func (c *Client) fetch(ctx context.Context, accessURL string, params url.Values) ([]models.AccountSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Err: err}
	}

	endpoint := strings.TrimRight(accessURL, "/") + "/accounts"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &NetworkError{Err: fmt.Errorf("fetch timed out: %w", err)}
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden:
		return nil, &AuthError{Reason: "access denied - invalid credentials"}
	case http.StatusPaymentRequired:
		return nil, &AuthError{Reason: "aggregator subscription expired"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Err: fmt.Errorf("accounts endpoint returned status %d", resp.StatusCode)}
	}

	var payload accountSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &DataError{Err: fmt.Errorf("decoding accounts response: %w", err)}
	}
	for _, msg := range payload.Errors {
		logger.L.Warn("Aggregator reported a partial error", "message", msg)
	}
	return parseAccounts(payload), nil
}

// Wire structures. SimpleFIN sends monetary values as decimal strings and
// dates as unix timestamps.
type accountSetResponse struct {
	Errors   []string      `json:"errors"`
	Accounts []wireAccount `json:"accounts"`
}

type wireAccount struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Currency         string            `json:"currency"`
	Balance          string            `json:"balance"`
	AvailableBalance string            `json:"available-balance"`
	BalanceDate      int64             `json:"balance-date"`
	Org              wireOrg           `json:"org"`
	Transactions     []wireTransaction `json:"transactions"`
	Holdings         []wireHolding     `json:"holdings"`
}

type wireOrg struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	SfinURL string `json:"sfin-url"`
}

type wireTransaction struct {
	ID          string `json:"id"`
	Posted      int64  `json:"posted"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Memo        string `json:"memo"`
	Pending     bool   `json:"pending"`
}

type wireHolding struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Shares      string `json:"shares"`
	CostBasis   string `json:"cost_basis"`
	MarketValue string `json:"market_value"`
}

func parseAccounts(payload accountSetResponse) []models.AccountSnapshot {
	snapshots := make([]models.AccountSnapshot, 0, len(payload.Accounts))
	for _, acct := range payload.Accounts {
		if acct.ID == "" {
			// Malformed record: skip and log, never abort the batch.
			logger.L.Warn("Skipping aggregator account with no id", "name", acct.Name)
			continue
		}

		snap := models.AccountSnapshot{
			ProviderAccountID: acct.ID,
			Name:              acct.Name,
			Currency:          acct.Currency,
			Balance:           parseAmount(acct.Balance),
			OrgName:           acct.Org.Name,
		}
		if snap.Name == "" {
			snap.Name = "Unknown Account"
		}
		if snap.Currency == "" {
			snap.Currency = "USD"
		}
		if acct.AvailableBalance != "" {
			avail := parseAmount(acct.AvailableBalance)
			snap.AvailableBalance = &avail
		}
		if acct.BalanceDate > 0 {
			t := time.Unix(acct.BalanceDate, 0).UTC()
			snap.BalanceDate = &t
		}

		for _, txn := range acct.Transactions {
			if txn.ID == "" || txn.Posted == 0 {
				logger.L.Warn("Skipping malformed aggregator transaction",
					"account", acct.ID, "description", txn.Description)
				continue
			}
			snap.Transactions = append(snap.Transactions, models.RawTransaction{
				ProviderTxID: txn.ID,
				Posted:       time.Unix(txn.Posted, 0).UTC(),
				Amount:       parseAmount(txn.Amount),
				Description:  validation.StripUnprintable(txn.Description),
				Payee:        validation.StripUnprintable(txn.Payee),
				Memo:         validation.StripUnprintable(txn.Memo),
				Pending:      txn.Pending,
			})
		}

		for _, h := range acct.Holdings {
			if h.ID == "" {
				continue
			}
			snap.Holdings = append(snap.Holdings, models.RawHolding{
				ProviderHoldingID: h.ID,
				Ticker:            h.Symbol,
				Description:       h.Description,
				Shares:            parseAmount(h.Shares),
				CostBasis:         parseAmount(h.CostBasis),
				MarketValue:       parseAmount(h.MarketValue),
			})
		}

		snapshots = append(snapshots, snap)
	}
	return snapshots
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logger.L.Warn("Unparseable aggregator amount, treating as zero", "value", s)
		return 0
	}
	return v
}
