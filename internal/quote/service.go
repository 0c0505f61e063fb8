package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Result is one symbol's quote lookup outcome. Stale is set when the
// price came from storage rather than a live fetch.
type Result struct {
	Quote Quote `json:"quote"`
	Stale bool  `json:"stale"`
}

// Service serves quotes with a TTL cache in front of the live provider
// and stored observations as the stale fallback. Provider failures
// never escape this boundary as errors for individual symbols.
type Service struct {
	provider Provider
	repo     Repository
	cache    *quoteCache
}

// NewService creates a quote Service with the given cache TTL.
func NewService(provider Provider, repo Repository, cacheTTL time.Duration) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
		cache:    newQuoteCache(cacheTTL),
	}
}

// Lookup resolves quotes for the given symbols. Symbols the live
// provider cannot serve fall back to the most recent stored quote,
// marked stale; symbols never observed anywhere are absent from the
// result.
func (s *Service) Lookup(ctx context.Context, symbols []string) (map[string]Result, error) {
	results := make(map[string]Result, len(symbols))

	var misses []string
	for _, symbol := range symbols {
		if q, ok := s.cache.get(symbol); ok {
			results[symbol] = Result{Quote: q}
			continue
		}
		misses = append(misses, symbol)
	}
	if len(misses) == 0 {
		return results, nil
	}

	live, err := s.provider.FetchQuotes(ctx, misses)
	if err != nil {
		slog.Warn("live quote fetch failed, falling back to stored quotes", "error", err)
		live = map[string]Quote{}
	}

	var stale []string
	for _, symbol := range misses {
		q, ok := live[symbol]
		if !ok {
			stale = append(stale, symbol)
			continue
		}
		s.cache.set(q)
		if err := s.repo.SaveQuote(ctx, q); err != nil {
			slog.Warn("failed to persist quote", "symbol", symbol, "error", err)
		}
		results[symbol] = Result{Quote: q}
	}

	if len(stale) > 0 {
		stored, err := s.repo.GetQuotes(ctx, stale)
		if err != nil {
			return nil, fmt.Errorf("loading stored quotes: %w", err)
		}
		for symbol, q := range stored {
			results[symbol] = Result{Quote: q, Stale: true}
		}
	}
	return results, nil
}

// FetchAndStoreQuotes refreshes stored quotes for the given symbols.
// Run periodically by the quote worker so stale fallbacks stay fresh.
func (s *Service) FetchAndStoreQuotes(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	quotes, err := s.provider.FetchQuotes(ctx, symbols)
	if err != nil {
		return fmt.Errorf("fetching quotes: %w", err)
	}

	for _, q := range quotes {
		s.cache.set(q)
		if err := s.repo.SaveQuote(ctx, q); err != nil {
			return fmt.Errorf("storing quote for %s: %w", q.Symbol, err)
		}
	}
	return nil
}
