package chain

import (
	"sync"
	"time"

	"nifty-options/internal/models"
)

// nearbyWidth is how many strikes either side of ATM the slice keeps.
const nearbyWidth = 2

// ATMSlice returns the ATM call/put of chain plus up to two strikes on each side.
// Ties between two equidistant strikes resolve to the lower one.
func ATMSlice(chain *models.OptionChain) *models.ATMOptions {
	out := &models.ATMOptions{
		Symbol:      chain.Symbol,
		SpotPrice:   chain.SpotPrice,
		ExpiryDate:  chain.ExpiryDate,
		GeneratedAt: chain.GeneratedAt,
		Source:      chain.Source,
		Status:      models.StatusSuccess,
		NearbyCalls: []models.OptionQuote{},
		NearbyPuts:  []models.OptionQuote{},
	}

	idx := NearestStrikeIndex(chain.Strikes(), chain.SpotPrice)
	if idx < 0 {
		return out
	}

	call := chain.Calls[idx]
	put := chain.Puts[idx]
	out.ATMStrike = call.Strike
	out.ATMCall = &call
	out.ATMPut = &put

	lo := max(0, idx-nearbyWidth)
	hi := min(len(chain.Calls), idx+nearbyWidth+1)
	out.NearbyCalls = append(out.NearbyCalls, chain.Calls[lo:hi]...)
	out.NearbyPuts = append(out.NearbyPuts, chain.Puts[lo:hi]...)

	return out
}

// Generator holds the injectable randomness and clock for chain generation.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng Rand
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the pseudorandom source.
func WithRand(r Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithSeed seeds a math/rand source.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rng = NewRand(seed) }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator. Without options it uses a time-seeded
// source and the wall clock.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = NewRand(0)
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Chain generates a full chain.
func (g *Generator) Chain(spotPrice float64, symbol string, expiryDays int) *models.OptionChain {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Generate(g.rng, g.now(), spotPrice, symbol, expiryDays)
}

// ATM generates a chain with the default expiry and returns its ATM slice.
func (g *Generator) ATM(spotPrice float64, symbol string) *models.ATMOptions {
	return g.ATMWithExpiry(spotPrice, symbol, DefaultExpiryDays)
}

// ATMWithExpiry is ATM with an explicit expiry.
func (g *Generator) ATMWithExpiry(spotPrice float64, symbol string, expiryDays int) *models.ATMOptions {
	return ATMSlice(g.Chain(spotPrice, symbol, expiryDays))
}
