package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nifty-options/internal/chain"
	"nifty-options/internal/config"
	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/logging"
	"nifty-options/internal/models"
	"nifty-options/internal/resilience"
	"nifty-options/internal/store"
	"nifty-options/pkg/utils"
)

// Resolver turns a symbol into a spot quote. It walks the configured sources
// and their ticker spellings, then the quote cache, then a mock snapshot, so
// it always produces a quote unless ctx is cancelled.
type Resolver struct {
	sources     []PriceSource
	breakers    *resilience.CircuitBreakerRegistry
	cache       store.QuoteCache
	cacheMaxAge time.Duration
	retry       utils.RetryConfig
	tickerPause time.Duration
	sleep       utils.Sleeper
	logger      zerolog.Logger
	now         func() time.Time

	mu  sync.Mutex
	rng chain.Rand
}

// ResolverConfig configures a Resolver. Zero values get defaults.
type ResolverConfig struct {
	Sources     []PriceSource
	Cache       store.QuoteCache // nil disables the cache tier
	CacheMaxAge time.Duration
	Retry       utils.RetryConfig
	TickerPause time.Duration
	Breaker     resilience.CircuitBreakerConfig
	Logger      zerolog.Logger
	Rand        chain.Rand
	Now         func() time.Time
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}
	if cfg.Retry.Sleep == nil {
		cfg.Retry.Sleep = utils.ContextSleep
	}
	if cfg.Rand == nil {
		cfg.Rand = chain.NewRand(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig()
	}

	logger := logging.WithOperation(cfg.Logger, "resolve_price")
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			logger.Debug().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying quote fetch")
		}
	}

	breakers := resilience.NewCircuitBreakerRegistry(cfg.Breaker)
	for _, src := range cfg.Sources {
		breakers.Get(src.Name())
	}

	return &Resolver{
		sources:     cfg.Sources,
		breakers:    breakers,
		cache:       cfg.Cache,
		cacheMaxAge: cfg.CacheMaxAge,
		retry:       cfg.Retry,
		tickerPause: cfg.TickerPause,
		sleep:       cfg.Retry.Sleep,
		logger:      logger,
		now:         cfg.Now,
		rng:         cfg.Rand,
	}
}

// NewResolverFromConfig wires Kite (when credentials exist) ahead of Yahoo.
func NewResolverFromConfig(cfg *config.Config, cache store.QuoteCache, logger zerolog.Logger) *Resolver {
	var sources []PriceSource
	if cfg.Sources.KiteEnabled() {
		sources = append(sources, NewKiteSource(cfg.Sources.KiteAPIKey, cfg.Sources.KiteAccessToken, cfg.Fetch.Timeout))
	}
	sources = append(sources, NewYahooSource(YahooConfig{
		BaseURL:           cfg.Sources.YahooBaseURL,
		Timeout:           cfg.Fetch.Timeout,
		RequestsPerMinute: cfg.Fetch.RequestsPerMinute,
		Logger:            logger,
	}))

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Fetch.MaxAttempts
	retry.InitialDelay = cfg.Fetch.InitialDelay
	retry.DelayStep = cfg.Fetch.DelayStep

	return NewResolver(ResolverConfig{
		Sources:     sources,
		Cache:       cache,
		CacheMaxAge: cfg.Cache.MaxAge,
		Retry:       retry,
		TickerPause: cfg.Fetch.TickerPause,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Fetch.BreakerFailures,
			SuccessThreshold: 1,
			Timeout:          cfg.Fetch.BreakerCooldown,
		},
		Logger: logger,
		Rand:   chain.NewRand(cfg.Generator.Seed),
	})
}

// Resolve returns a quote for symbol. Unknown symbols resolve to NIFTY.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	inst := models.LookupInstrument(symbol)
	logger := logging.WithSymbol(r.logger, inst.Key)

	var lastErr error
	for _, src := range r.sources {
		snap, err := r.fromSource(ctx, src, inst)
		if err == nil {
			snap.Symbol = inst.Name
			r.remember(ctx, inst, snap)
			return snap, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug().Err(err).Str("source", src.Name()).Msg("Source exhausted")
		lastErr = err
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, inst.Key, r.cacheMaxAge)
		if err == nil {
			cached.Symbol = inst.Name
			cached.Status = models.StatusCached
			logging.LogFallback(logger, inst.Name, cached.Status, cached.Price, lastErr)
			return cached, nil
		}
	}

	r.mu.Lock()
	snap := MockSnapshot(r.rng, inst.Name, inst.FallbackPrice, r.now())
	r.mu.Unlock()
	logging.LogFallback(logger, inst.Name, snap.Status, snap.Price, lastErr)
	return snap, nil
}

// fromSource tries each ticker of inst on src, pausing between tickers.
func (r *Resolver) fromSource(ctx context.Context, src PriceSource, inst models.Instrument) (*models.PriceSnapshot, error) {
	breaker := r.breakers.Get(src.Name())
	var lastErr error

	for i, ticker := range src.Tickers(inst) {
		if i > 0 && r.tickerPause > 0 {
			if err := r.sleep(ctx, r.tickerPause); err != nil {
				return nil, err
			}
		}

		snap, err := resilience.ExecuteWithResult(breaker, func() (*models.PriceSnapshot, error) {
			return utils.RetryWithResult(ctx, r.retry, func() (*models.PriceSnapshot, error) {
				return src.FetchSpotPrice(ctx, ticker)
			})
		})
		if err == nil {
			return snap, nil
		}
		if errors.Is(err, resilience.ErrCircuitOpen) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = apperrors.NewNoDataError(src.Name(), inst.Key)
	}
	return nil, lastErr
}

func (r *Resolver) remember(ctx context.Context, inst models.Instrument, snap *models.PriceSnapshot) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, inst.Key, snap); err != nil {
		r.logger.Warn().Err(err).Str("symbol", inst.Key).Msg("Failed to cache quote")
	}
}

// BreakerStats reports the state of each source's circuit breaker.
func (r *Resolver) BreakerStats() []resilience.CircuitBreakerStats {
	return r.breakers.AllStats()
}

// HealthChecks returns a check per source breaker plus one for the cache.
func (r *Resolver) HealthChecks() []resilience.HealthCheck {
	checks := r.breakers.HealthChecks()
	if r.cache != nil {
		checks = append(checks, resilience.DatabaseHealthCheck("quote_cache", r.cache.Ping))
	}
	return checks
}
