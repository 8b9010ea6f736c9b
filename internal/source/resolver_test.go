package source

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-options/internal/chain"
	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
	"nifty-options/internal/resilience"
	"nifty-options/internal/store"
	"nifty-options/pkg/utils"
)

var fixedNow = time.Date(2024, 1, 3, 4, 30, 0, 0, time.UTC)

// scriptedSource answers per ticker from a table; missing tickers fail.
type scriptedSource struct {
	name    string
	answers map[string]float64
	calls   []string
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Tickers(inst models.Instrument) []string { return inst.YahooTickers }

func (s *scriptedSource) FetchSpotPrice(_ context.Context, ticker string) (*models.PriceSnapshot, error) {
	s.calls = append(s.calls, ticker)
	if p, ok := s.answers[ticker]; ok {
		return newSnapshot(s.name, p, p, p, p, 1000, fixedNow), nil
	}
	return nil, apperrors.NewNetworkError(s.name, 429, nil)
}

type sleepLog struct{ delays []time.Duration }

func (l *sleepLog) sleep(_ context.Context, d time.Duration) error {
	l.delays = append(l.delays, d)
	return nil
}

func newTestResolver(sources []PriceSource, cache store.QuoteCache, sleeps *sleepLog) *Resolver {
	retry := utils.DefaultRetryConfig()
	retry.Sleep = sleeps.sleep
	return NewResolver(ResolverConfig{
		Sources:     sources,
		Cache:       cache,
		Retry:       retry,
		TickerPause: 500 * time.Millisecond,
		Logger:      zerolog.Nop(),
		Rand:        chain.NewRand(7),
		Now:         func() time.Time { return fixedNow },
	})
}

func TestResolveFirstTickerSucceeds(t *testing.T) {
	src := &scriptedSource{name: "yahoo", answers: map[string]float64{"^NSEI": 24310.5}}
	sleeps := &sleepLog{}
	r := newTestResolver([]PriceSource{src}, nil, sleeps)

	snap, err := r.Resolve(context.Background(), "nifty")
	require.NoError(t, err)

	assert.Equal(t, "NIFTY 50", snap.Symbol)
	assert.Equal(t, 24310.5, snap.Price)
	assert.Equal(t, models.StatusSuccess, snap.Status)
	assert.Equal(t, []string{"^NSEI"}, src.calls)
	assert.Empty(t, sleeps.delays)
}

func TestResolveWalksTickersWithRetryAndPause(t *testing.T) {
	src := &scriptedSource{name: "yahoo", answers: map[string]float64{"BANKNIFTY": 51234}}
	sleeps := &sleepLog{}
	r := newTestResolver([]PriceSource{src}, nil, sleeps)

	snap, err := r.Resolve(context.Background(), "BANK_NIFTY")
	require.NoError(t, err)

	assert.Equal(t, "BANK NIFTY", snap.Symbol)
	assert.Equal(t, 51234.0, snap.Price)
	assert.Equal(t, []string{"^NSEBANK", "^NSEBANK", "NSEBANK", "NSEBANK", "BANKNIFTY"}, src.calls)
	assert.Equal(t, []time.Duration{
		time.Second, 500 * time.Millisecond, // ^NSEBANK retry, then pause
		time.Second, 500 * time.Millisecond, // NSEBANK retry, then pause
	}, sleeps.delays)
}

func TestResolveFallsBackToMock(t *testing.T) {
	src := &scriptedSource{name: "yahoo"}
	r := newTestResolver([]PriceSource{src}, nil, &sleepLog{})

	snap, err := r.Resolve(context.Background(), "RELIANCE")
	require.NoError(t, err)

	assert.Equal(t, "RELIANCE", snap.Symbol)
	assert.Equal(t, models.StatusMock, snap.Status)
	assert.Equal(t, MockSource, snap.Source)
	assert.Equal(t, MockNote, snap.Note)
	assert.InDelta(t, 2800, snap.Price, 100)
	assert.Equal(t, []string{"RELIANCE.NS", "RELIANCE.NS"}, src.calls)
}

func TestResolveUnknownSymbolIsNifty(t *testing.T) {
	r := newTestResolver(nil, nil, &sleepLog{})
	snap, err := r.Resolve(context.Background(), "SBIN")
	require.NoError(t, err)
	assert.Equal(t, "NIFTY 50", snap.Symbol)
	assert.InDelta(t, 24300, snap.Price, 100)
}

func TestResolveServesCachedQuote(t *testing.T) {
	cache, err := store.NewSQLiteQuoteCache(filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err)
	defer cache.Close()

	up := &scriptedSource{name: "yahoo", answers: map[string]float64{"TCS.NS": 4150.25}}
	r := newTestResolver([]PriceSource{up}, cache, &sleepLog{})
	_, err = r.Resolve(context.Background(), "TCS")
	require.NoError(t, err)

	down := &scriptedSource{name: "yahoo"}
	r = newTestResolver([]PriceSource{down}, cache, &sleepLog{})
	snap, err := r.Resolve(context.Background(), "tcs")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCached, snap.Status)
	assert.Equal(t, 4150.25, snap.Price)
	assert.Equal(t, "TCS", snap.Symbol)
}

func TestResolveSkipsOpenBreaker(t *testing.T) {
	dead := &scriptedSource{name: "kite"}
	live := &scriptedSource{name: "yahoo", answers: map[string]float64{"INFY.NS": 1850}}
	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = 1
	r := NewResolver(ResolverConfig{
		Sources: []PriceSource{dead, live},
		Retry:   retry,
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour},
		Logger:  zerolog.Nop(),
	})

	for i := 0; i < 3; i++ {
		snap, err := r.Resolve(context.Background(), "INFY")
		require.NoError(t, err)
		assert.Equal(t, "INFOSYS", snap.Symbol)
	}

	assert.Len(t, dead.calls, 1)
	stats := r.BreakerStats()
	require.Len(t, stats, 2)
	assert.Equal(t, resilience.CircuitOpen, stats[0].State)
	assert.Equal(t, int64(2), stats[0].TotalRejected)

	health := resilience.RunChecks(context.Background(), time.Now(), r.HealthChecks()...)
	assert.Equal(t, resilience.HealthStatusDegraded, health.Status)
	require.Len(t, health.Components, 2)
	assert.Equal(t, "kite", health.Components[0].Name)
}

func TestResolveCancelledContext(t *testing.T) {
	src := &scriptedSource{name: "yahoo"}
	r := NewResolver(ResolverConfig{Sources: []PriceSource{src}, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, "NIFTY")
	assert.ErrorIs(t, err, context.Canceled)
}

// Property: mock snapshots stay inside the sampling envelope around base.
func TestProperty_MockSnapshotEnvelope(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("mock OHLC is consistent and bounded", prop.ForAll(
		func(seed int64, base float64) bool {
			snap := MockSnapshot(chain.NewRand(seed), "NIFTY 50", base, fixedNow)
			const eps = 0.01
			return snap.Price >= base-100-eps && snap.Price <= base+100+eps &&
				snap.High+eps >= snap.Price && snap.High+eps >= snap.Open &&
				snap.Low-eps <= snap.Price && snap.Low-eps <= snap.Open &&
				snap.High-snap.Low <= 50+160+eps &&
				snap.Volume >= 500000 && snap.Volume <= 2000000 &&
				snap.Status == models.StatusMock
		},
		gen.Int64Range(1, 1<<40),
		gen.Float64Range(1000, 60000),
	))

	properties.TestingRun(t)
}
