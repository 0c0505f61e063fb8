package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/folioapp/folio/internal/domain"
)

// Quote is one price observation for a symbol.
type Quote struct {
	Symbol     string        `json:"symbol"`
	Price      domain.Amount `json:"price"`
	ObservedAt time.Time     `json:"observedAt"`
}

// Provider fetches live quotes for a set of symbols. It may omit
// symbols or fail entirely; callers degrade to stored quotes.
type Provider interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// HTTPProvider fetches quotes from a JSON quote API:
// GET {base}/quotes?symbols=AAA,BBB →
// {"AAA": {"price": "101.25", "observedAt": "2026-08-30T16:00:00Z"}}
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
	baseDelay  time.Duration
	maxRetries int
}

// NewHTTPProvider creates a quote API client with exponential-backoff
// retries.
func NewHTTPProvider(baseURL string, baseDelay time.Duration, maxRetries int) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseDelay:  baseDelay,
		maxRetries: maxRetries,
	}
}

func (c *HTTPProvider) FetchQuotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}

	endpoint := fmt.Sprintf("%s/quotes?symbols=%s", c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))
	body, err := c.fetchWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw map[string]struct {
		Price      string    `json:"price"`
		ObservedAt time.Time `json:"observedAt"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing quote response: %w", err)
	}

	quotes := make(map[string]Quote, len(raw))
	for symbol, entry := range raw {
		price, err := domain.ParseAmount(entry.Price)
		if err != nil {
			// One bad quote should not poison the batch.
			continue
		}
		observedAt := entry.ObservedAt
		if observedAt.IsZero() {
			observedAt = time.Now().UTC()
		}
		quotes[strings.ToUpper(symbol)] = Quote{
			Symbol:     strings.ToUpper(symbol),
			Price:      price,
			ObservedAt: observedAt,
		}
	}
	return quotes, nil
}

func (c *HTTPProvider) fetchWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.baseDelay
			if baseDelay == 0 {
				baseDelay = time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetching quotes after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *HTTPProvider) fetchOnce(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
