// Package ratefeed fetches daily exchange rates from an external source
// and persists them for posting and revaluation. Posting never calls the
// feed directly; a feed outage only affects dates no stored rate covers.
package ratefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/shopspring/decimal"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 1 * 1024 * 1024 // 1MB max response

// defaultTimeout is used when the config carries no per-request timeout
const defaultTimeout = 10 * time.Second

// DailyRate is one quoted rate from the feed. Buying and selling are the
// bank quotes; effective is the rate balance checks and revaluation use.
type DailyRate struct {
	Date      time.Time
	Currency  string
	Buying    decimal.Decimal
	Selling   decimal.Decimal
	Effective decimal.Decimal
}

// feedResponse is the wire shape of the rate source
type feedResponse struct {
	Date  string     `json:"date"`
	Base  string     `json:"base"`
	Rates []feedRate `json:"rates"`
}

type feedRate struct {
	Currency  string          `json:"currency"`
	Buying    decimal.Decimal `json:"buying"`
	Selling   decimal.Decimal `json:"selling"`
	Effective decimal.Decimal `json:"effective"`
}

// Client is an HTTP client for the exchange-rate source
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a rate feed client from configuration
func NewClient(cfg config.RateFeedConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("ratefeed: endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("ratefeed: invalid endpoint: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchDaily fetches the quoted rates for a date. The feed quotes source
// currencies against the reporting currency; currencies not in the
// requested set are dropped.
func (c *Client) FetchDaily(ctx context.Context, date time.Time, currencies []string) ([]DailyRate, error) {
	reqURL := fmt.Sprintf("%s/rates?date=%s", c.endpoint, date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ratefeed: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ratefeed: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ratefeed: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ratefeed: HTTP %d from rate source", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("ratefeed: failed to decode response: %w", err)
	}

	rateDate, err := time.Parse("2006-01-02", feed.Date)
	if err != nil {
		return nil, fmt.Errorf("ratefeed: invalid date %q in response: %w", feed.Date, err)
	}

	wanted := make(map[string]bool, len(currencies))
	for _, cur := range currencies {
		wanted[cur] = true
	}

	rates := make([]DailyRate, 0, len(feed.Rates))
	for _, r := range feed.Rates {
		if len(wanted) > 0 && !wanted[r.Currency] {
			continue
		}
		if r.Effective.IsZero() || r.Effective.IsNegative() {
			return nil, fmt.Errorf("ratefeed: non-positive effective rate for %s", r.Currency)
		}
		rates = append(rates, DailyRate{
			Date:      rateDate,
			Currency:  r.Currency,
			Buying:    r.Buying,
			Selling:   r.Selling,
			Effective: r.Effective,
		})
	}

	return rates, nil
}
