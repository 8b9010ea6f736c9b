package source

import (
	"math"
	"time"

	"nifty-options/internal/chain"
	"nifty-options/internal/models"
)

// MockNote explains a mock snapshot to the caller.
const MockNote = "Generated realistic mock data - upstream rate limited or unavailable"

// MockSource tags snapshots synthesized when every upstream failed.
const MockSource = "yfinance-fallback"

// MockSnapshot synthesizes a plausible session around base.
func MockSnapshot(rng chain.Rand, name string, base float64, now time.Time) *models.PriceSnapshot {
	price := base + chain.Uniform(rng, -100, 100)
	open := price + chain.Uniform(rng, -50, 50)
	high := math.Max(price, open) + chain.Uniform(rng, 0, 80)
	low := math.Min(price, open) - chain.Uniform(rng, 0, 80)

	volume := int64(chain.IntBetween(rng, 500000, 2000000))

	snap := newSnapshot(MockSource, price, open, high, low, volume, now)
	snap.Symbol = name
	snap.Status = models.StatusMock
	snap.Note = MockNote
	return snap
}
