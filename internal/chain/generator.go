// Package chain fabricates synthetic option chains around a spot price.
//
// Quotes are not model prices. They are shaped so that intrinsic value,
// moneyness and call/put symmetry look sane: ITM options carry intrinsic
// plus a decaying time value, OTM premiums shrink with distance from spot,
// and nothing trades below the 0.05 tick floor.
package chain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"nifty-options/internal/models"
	"nifty-options/pkg/utils"
)

// Defaults used when callers leave parameters unset.
const (
	DefaultSymbol     = "NIFTY"
	DefaultExpiryDays = 7
	DefaultSpotPrice  = 24300.0
)

// MinPremium is the price floor for last price and bid.
const MinPremium = 0.05

// Sampling ranges for fields that carry no cross-field consistency.
const (
	minVolume       = 100
	maxVolume       = 5000
	minOpenInterest = 1000
	maxOpenInterest = 50000
	minIV           = 15.0
	maxIV           = 35.0
	minGamma        = 0.001
	maxGamma        = 0.01
	minTheta        = 0.5
	maxTheta        = 3.0
	minVega         = 5.0
	maxVega         = 25.0
	minSpread       = 0.5
	maxSpread       = 2.0
)

// Generate builds a synthetic chain. It never fails; spot <= 0 yields a
// degenerate ladder rather than an error.
func Generate(rng Rand, now time.Time, spotPrice float64, symbol string, expiryDays int) *models.OptionChain {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	symbol = strings.ToUpper(symbol)

	expiry := models.NewDate(now.In(utils.IndiaLocation).AddDate(0, 0, expiryDays))
	strikes := LadderFor(symbol).Strikes(spotPrice)

	chain := &models.OptionChain{
		Symbol:      symbol,
		SpotPrice:   spotPrice,
		ExpiryDate:  expiry,
		GeneratedAt: now,
		Source:      models.SourceSynthetic,
		Status:      models.StatusSuccess,
		Calls:       make([]models.OptionQuote, 0, len(strikes)),
		Puts:        make([]models.OptionQuote, 0, len(strikes)),
	}

	for _, strike := range strikes {
		call, put := quotePair(rng, spotPrice, strike)
		call.ContractSymbol = ContractSymbol(symbol, expiry, models.Call, strike)
		put.ContractSymbol = ContractSymbol(symbol, expiry, models.Put, strike)
		chain.Calls = append(chain.Calls, call)
		chain.Puts = append(chain.Puts, put)
	}

	return chain
}

// quotePair prices the call and put at one strike.
func quotePair(rng Rand, spot, strike float64) (models.OptionQuote, models.OptionQuote) {
	moneyness := strike - spot
	timeValue := TimeValue(moneyness)

	var callPrice float64
	if strike <= spot {
		callPrice = (spot - strike) + timeValue + Uniform(rng, -10, 20)
	} else {
		callPrice = timeValue*(1-ratio(moneyness, spot*0.1)) + Uniform(rng, -5, 15)
	}
	callPrice = math.Max(MinPremium, callPrice)

	var putPrice float64
	if strike >= spot {
		putPrice = (strike - spot) + timeValue + Uniform(rng, -10, 20)
	} else {
		putPrice = timeValue*(1-ratio(math.Abs(moneyness), spot*0.1)) + Uniform(rng, -5, 15)
	}
	putPrice = math.Max(MinPremium, putPrice)

	callBid := callPrice - Uniform(rng, minSpread, maxSpread)
	callAsk := callPrice + Uniform(rng, minSpread, maxSpread)
	putBid := putPrice - Uniform(rng, minSpread, maxSpread)
	putAsk := putPrice + Uniform(rng, minSpread, maxSpread)

	call := sampledQuote(rng, strike, callPrice, callBid, callAsk)
	call.Delta = utils.Round3(CallDelta(spot, strike))
	call.Moneyness = CallMoneyness(spot, strike)

	put := sampledQuote(rng, strike, putPrice, putBid, putAsk)
	put.Delta = utils.Round3(PutDelta(spot, strike))
	put.Moneyness = PutMoneyness(spot, strike)

	return call, put
}

func sampledQuote(rng Rand, strike, price, bid, ask float64) models.OptionQuote {
	return models.OptionQuote{
		Strike:            strike,
		LastPrice:         utils.Round2(price),
		Bid:               utils.Round2(math.Max(MinPremium, bid)),
		Ask:               utils.Round2(ask),
		Volume:            IntBetween(rng, minVolume, maxVolume),
		OpenInterest:      IntBetween(rng, minOpenInterest, maxOpenInterest),
		ImpliedVolatility: utils.Round2(Uniform(rng, minIV, maxIV)),
		Gamma:             utils.Round4(Uniform(rng, minGamma, maxGamma)),
		Theta:             utils.Round3(-Uniform(rng, minTheta, maxTheta)),
		Vega:              utils.Round2(Uniform(rng, minVega, maxVega)),
	}
}

// TimeValue decays with distance from spot and is floored at 20.
func TimeValue(moneyness float64) float64 {
	return math.Max(20, 100-0.5*math.Abs(moneyness))
}

// CallDelta is 0.5 at the money and moves linearly across ten percent of spot.
func CallDelta(spot, strike float64) float64 {
	return utils.Clamp(0.5+ratio(spot-strike, spot*0.1), 0, 1)
}

// PutDelta mirrors CallDelta on [-1, 0].
func PutDelta(spot, strike float64) float64 {
	return utils.Clamp(-0.5-ratio(strike-spot, spot*0.1), -1, 0)
}

// CallMoneyness is ITM for strike <= spot.
func CallMoneyness(spot, strike float64) models.Moneyness {
	if strike <= spot {
		return models.ITM
	}
	return models.OTM
}

// PutMoneyness is ITM for strike >= spot. At strike == spot both legs are ITM.
func PutMoneyness(spot, strike float64) models.Moneyness {
	if strike >= spot {
		return models.ITM
	}
	return models.OTM
}

// ContractSymbol formats SYMBOL + YYMMDD + C|P + 5-digit strike + "000".
func ContractSymbol(symbol string, expiry models.Date, side models.OptionType, strike float64) string {
	return fmt.Sprintf("%s%s%s%05d000", symbol, expiry.Format("060102"), side, int64(strike))
}

// ratio divides without producing NaN when spot is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		switch {
		case num > 0:
			return math.Inf(1)
		case num < 0:
			return math.Inf(-1)
		default:
			return 0
		}
	}
	return num / den
}
