package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aaronwins356/voltrader/internal/circuitbreaker"
	"github.com/aaronwins356/voltrader/pkg/cache"
	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

// QuoteService fronts the exchange client with bounded retries, a
// circuit breaker and a deterministic synthetic fallback. Market
// metadata from successful listings is cached so the fallback can still
// name markets and compute time-to-resolution after the feed goes dark.
type QuoteService struct {
	client   Client
	cache    cache.Cache
	breaker  *circuitbreaker.Breaker
	cacheTTL time.Duration
	retries  int
	backoff  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	// Known market IDs live on the service, not in the cache: ristretto
	// writes are asynchronous, so a cache-held list can miss its own
	// previous write. The cache only holds per-market metadata.
	mu    sync.Mutex
	ids   []string
	known map[string]bool
}

// QuoteServiceConfig holds quote service configuration.
type QuoteServiceConfig struct {
	Client      Client
	Cache       cache.Cache
	Breaker     *circuitbreaker.Breaker
	Retries     int
	Backoff     time.Duration
	MetadataTTL time.Duration
	Logger      *zap.Logger
}

// NewQuoteService creates a quote service. Cache and Breaker are
// optional; without a cache one is created with defaults, without a
// breaker calls always reach the client.
func NewQuoteService(cfg *QuoteServiceConfig) (*QuoteService, error) {
	metaCache := cfg.Cache
	if metaCache == nil {
		var err error
		metaCache, err = cache.NewRistrettoCache(&cache.RistrettoConfig{
			NumCounters: 10000,
			MaxCost:     1000,
			BufferItems: 64,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create metadata cache: %w", err)
		}
	}

	return &QuoteService{
		client:   cfg.Client,
		cache:    metaCache,
		breaker:  cfg.Breaker,
		cacheTTL: cfg.MetadataTTL,
		retries:  cfg.Retries,
		backoff:  cfg.Backoff,
		logger:   cfg.Logger,
		now:      time.Now,
		known:    make(map[string]bool),
	}, nil
}

// SetClock overrides the time source. Test hook.
func (s *QuoteService) SetClock(now func() time.Time) {
	s.now = now
}

// ListMarkets lists markets, caching metadata per market on success.
func (s *QuoteService) ListMarkets(ctx context.Context, eventType string, windowHours int) ([]MarketInfo, error) {
	var infos []MarketInfo
	err := s.withRetry(ctx, "list_markets", func() error {
		var inner error
		infos, inner = s.client.ListMarkets(ctx, eventType, windowHours)
		return inner
	})
	if err != nil {
		// Serve the cached universe so a listing outage degrades to stale
		// metadata instead of an empty cycle.
		cached := s.cachedMarkets()
		if len(cached) > 0 {
			s.logger.Warn("market-listing-failed-serving-cache",
				zap.Int("cached-markets", len(cached)),
				zap.Error(err))
			return cached, nil
		}
		return nil, &types.ExternalAPIError{Op: "list_markets", Err: err}
	}

	for _, info := range infos {
		s.cache.Set("market:"+info.MarketID, info, s.cacheTTL)
		s.rememberID(info.MarketID)
	}
	s.cache.Wait()

	return infos, nil
}

// GetQuotes fetches quotes with retry; markets the exchange could not
// quote fall back to deterministic synthetic prices flagged Synthetic so
// scoring stays computable and no exception propagates into the cycle.
func (s *QuoteService) GetQuotes(ctx context.Context, infos []MarketInfo) []types.RawQuote {
	ids := make([]string, len(infos))
	byID := make(map[string]MarketInfo, len(infos))
	for i, info := range infos {
		ids[i] = info.MarketID
		byID[info.MarketID] = info
	}

	var quotes []types.RawQuote
	err := s.withRetry(ctx, "get_quotes", func() error {
		var inner error
		quotes, inner = s.client.GetQuotes(ctx, ids)
		return inner
	})
	if err != nil {
		QuoteFailuresTotal.Inc()
		s.logger.Warn("quote-fetch-failed-using-synthetic",
			zap.Int("markets", len(infos)),
			zap.Error(err))
		quotes = nil
	}

	quoted := make(map[string]bool, len(quotes))
	result := make([]types.RawQuote, 0, len(infos))
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		quoted[q.MarketID] = true
		result = append(result, q)
	}

	at := s.now()
	for _, id := range ids {
		if quoted[id] {
			continue
		}
		SyntheticQuotesTotal.Inc()
		result = append(result, SyntheticQuote(byID[id], at))
	}

	return result
}

// MarketInfo returns cached metadata for a market, if known.
func (s *QuoteService) MarketInfo(marketID string) (MarketInfo, bool) {
	value, ok := s.cache.Get("market:" + marketID)
	if !ok {
		return MarketInfo{}, false
	}
	info, ok := value.(MarketInfo)
	return info, ok
}

// withRetry runs fn up to retries+1 times with linear backoff, gated by
// the circuit breaker when one is configured.
func (s *QuoteService) withRetry(ctx context.Context, op string, fn func() error) error {
	if s.breaker != nil && !s.breaker.Allow() {
		return fmt.Errorf("%s: circuit breaker open", op)
	}

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}
		err = fn()
		if err == nil {
			if s.breaker != nil {
				s.breaker.RecordSuccess()
			}
			return nil
		}
		s.logger.Debug("exchange-call-retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	if s.breaker != nil {
		s.breaker.RecordFailure()
	}
	return err
}

// rememberID tracks the set of cached market IDs so cachedMarkets can
// enumerate them; the cache itself has no key iteration.
func (s *QuoteService) rememberID(marketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known[marketID] {
		return
	}
	s.known[marketID] = true
	s.ids = append(s.ids, marketID)
}

func (s *QuoteService) knownIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *QuoteService) cachedMarkets() []MarketInfo {
	infos := make([]MarketInfo, 0)
	for _, id := range s.knownIDs() {
		if info, found := s.MarketInfo(id); found {
			infos = append(infos, info)
		}
	}
	return infos
}

// Close releases the metadata cache.
func (s *QuoteService) Close() {
	s.cache.Close()
}
