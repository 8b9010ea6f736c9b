package chain

import (
	"math"
	"strings"
)

// Ladder is the strike grid configuration for an underlying.
type Ladder struct {
	Interval  float64
	HalfWidth int
}

var (
	niftyLadder     = Ladder{Interval: 50, HalfWidth: 10}
	bankNiftyLadder = Ladder{Interval: 100, HalfWidth: 8}
	defaultLadder   = Ladder{Interval: 50, HalfWidth: 8}
)

// LadderFor classifies symbol case-insensitively.
func LadderFor(symbol string) Ladder {
	switch strings.ToUpper(symbol) {
	case "NIFTY", "NIFTY50":
		return niftyLadder
	case "BANKNIFTY", "BANK_NIFTY":
		return bankNiftyLadder
	default:
		return defaultLadder
	}
}

// ATMStrike rounds spot to the nearest multiple of the interval.
// Halves go to the even multiple.
func (l Ladder) ATMStrike(spot float64) float64 {
	return math.RoundToEven(spot/l.Interval) * l.Interval
}

// Strikes returns the 2*HalfWidth+1 ascending strikes centred on the ATM strike.
func (l Ladder) Strikes(spot float64) []float64 {
	atm := l.ATMStrike(spot)
	strikes := make([]float64, 0, 2*l.HalfWidth+1)
	for k := -l.HalfWidth; k <= l.HalfWidth; k++ {
		strikes = append(strikes, atm+float64(k)*l.Interval)
	}
	return strikes
}

// NearestStrikeIndex returns the index of the strike closest to spot.
// strikes must be ascending; ties go to the lower strike. Returns -1 when empty.
func NearestStrikeIndex(strikes []float64, spot float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, s := range strikes {
		if d := math.Abs(s - spot); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
