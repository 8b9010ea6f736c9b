package chain

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-options/internal/models"
)

// 2024-01-03 10:00 IST
var fixedNow = time.Date(2024, 1, 3, 4, 30, 0, 0, time.UTC)

func fixedGenerator(seed int64) *Generator {
	return NewGenerator(
		WithRand(rand.New(rand.NewSource(seed))),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestGenerateNiftyLadder(t *testing.T) {
	c := fixedGenerator(1).Chain(24300, "nifty", DefaultExpiryDays)

	assert.Equal(t, "NIFTY", c.Symbol)
	require.Len(t, c.Calls, 21)
	require.Len(t, c.Puts, 21)
	assert.Equal(t, 23800.0, c.Calls[0].Strike)
	assert.Equal(t, 24800.0, c.Calls[20].Strike)
	assert.Equal(t, 24300.0, c.Calls[10].Strike)
	assert.Equal(t, "2024-01-10", c.ExpiryDate.String())
	assert.Equal(t, "NIFTY240110C24300000", c.Calls[10].ContractSymbol)
	assert.Equal(t, "NIFTY240110P23800000", c.Puts[0].ContractSymbol)
	assert.Equal(t, models.SourceSynthetic, c.Source)
	assert.Equal(t, models.StatusSuccess, c.Status)
}

func TestGenerateBankNiftyLadder(t *testing.T) {
	c := fixedGenerator(2).Chain(51234, "BANKNIFTY", DefaultExpiryDays)

	strikes := c.Strikes()
	require.Len(t, strikes, 17)
	assert.Equal(t, 50400.0, strikes[0])
	assert.Equal(t, 52000.0, strikes[16])
	assert.Equal(t, 51200.0, strikes[8])

	assert.Equal(t, models.ITM, c.Calls[8].Moneyness)
	assert.Equal(t, models.OTM, c.Puts[8].Moneyness)
	assert.Equal(t, models.OTM, c.Calls[9].Moneyness)
	assert.Equal(t, models.ITM, c.Puts[9].Moneyness)
}

func TestLadderFor(t *testing.T) {
	assert.Equal(t, Ladder{Interval: 50, HalfWidth: 10}, LadderFor("nifty50"))
	assert.Equal(t, Ladder{Interval: 100, HalfWidth: 8}, LadderFor("Bank_Nifty"))
	assert.Equal(t, Ladder{Interval: 50, HalfWidth: 8}, LadderFor("RELIANCE"))
	assert.Equal(t, Ladder{Interval: 50, HalfWidth: 8}, LadderFor("FINNIFTY"))
}

func TestATMStrikeRoundsHalfToEven(t *testing.T) {
	l := LadderFor("NIFTY")
	assert.Equal(t, 24300.0, l.ATMStrike(24325))
	assert.Equal(t, 24400.0, l.ATMStrike(24375))
	assert.Equal(t, 24350.0, l.ATMStrike(24340))
}

func TestStrikeAtSpotIsITMOnBothSides(t *testing.T) {
	c := fixedGenerator(3).Chain(24300, "NIFTY", DefaultExpiryDays)

	assert.Equal(t, models.ITM, c.Calls[10].Moneyness)
	assert.Equal(t, models.ITM, c.Puts[10].Moneyness)
	assert.Equal(t, 0.5, c.Calls[10].Delta)
	assert.Equal(t, -0.5, c.Puts[10].Delta)
}

func TestDeltaFormula(t *testing.T) {
	// 10% of 24000 is 2400; a strike 1200 below spot adds 0.5.
	assert.InDelta(t, 1.0, CallDelta(24000, 22800), 1e-9)
	assert.InDelta(t, 0.25, CallDelta(24000, 24600), 1e-9)
	assert.InDelta(t, -0.25, PutDelta(24000, 23400), 1e-9)
	assert.Equal(t, 0.0, CallDelta(24000, 30000))
	assert.Equal(t, -1.0, PutDelta(24000, 30000))
}

func TestPutDeltaFallsWithStrike(t *testing.T) {
	c := Generate(NewRand(7), fixedNow, 24300, "NIFTY", 7)
	// Strikes 23800 and 23850 sit at indices 0 and 1.
	require.Equal(t, 23800.0, c.Puts[0].Strike)
	assert.Equal(t, -0.294, c.Puts[0].Delta)
	assert.Equal(t, -0.315, c.Puts[1].Delta)
	for i := 1; i < len(c.Puts); i++ {
		assert.LessOrEqual(t, c.Puts[i].Delta, c.Puts[i-1].Delta)
	}
}

func TestTimeValueFloor(t *testing.T) {
	assert.Equal(t, 100.0, TimeValue(0))
	assert.Equal(t, 75.0, TimeValue(-50))
	assert.Equal(t, 20.0, TimeValue(400))
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a := fixedGenerator(99).Chain(22150.4, "NIFTY", 3)
	b := fixedGenerator(99).Chain(22150.4, "NIFTY", 3)
	assert.Equal(t, a, b)

	c := fixedGenerator(100).Chain(22150.4, "NIFTY", 3)
	assert.NotEqual(t, a.Calls, c.Calls)
}

func TestChainJSONRoundTrip(t *testing.T) {
	orig := fixedGenerator(7).Chain(51234, "BANKNIFTY", 14)

	data, err := json.MarshalIndent(orig, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expiryDate": "2024-01-17"`)
	assert.Contains(t, string(data), `"impliedVolatility"`)
	assert.Contains(t, string(data), `"contractSymbol": "BANKNIFTY240117C50400000"`)

	var decoded models.OptionChain
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *orig, decoded)
}

func TestGenerateDegenerateSpot(t *testing.T) {
	for _, spot := range []float64{0, -120} {
		c := fixedGenerator(5).Chain(spot, "NIFTY", DefaultExpiryDays)
		require.Len(t, c.Calls, 21)
		for i := range c.Calls {
			assert.GreaterOrEqual(t, c.Calls[i].LastPrice, MinPremium)
			assert.GreaterOrEqual(t, c.Puts[i].Bid, MinPremium)
		}
		_, err := json.Marshal(c)
		assert.NoError(t, err)
	}
}

func TestATMSliceNifty(t *testing.T) {
	atm := fixedGenerator(11).ATM(24300, "NIFTY")

	assert.Equal(t, 24300.0, atm.ATMStrike)
	require.NotNil(t, atm.ATMCall)
	require.NotNil(t, atm.ATMPut)
	assert.Equal(t, 24300.0, atm.ATMCall.Strike)
	assert.Equal(t, 24300.0, atm.ATMPut.Strike)
	require.Len(t, atm.NearbyCalls, 5)
	require.Len(t, atm.NearbyPuts, 5)
	assert.Equal(t, 24200.0, atm.NearbyCalls[0].Strike)
	assert.Equal(t, 24400.0, atm.NearbyPuts[4].Strike)
	assert.Equal(t, "2024-01-10", atm.ExpiryDate.String())
}

func TestATMSliceTieGoesToLowerStrike(t *testing.T) {
	atm := fixedGenerator(12).ATM(24325, "NIFTY")
	assert.Equal(t, 24300.0, atm.ATMStrike)
}

func TestATMSliceAtLadderEdge(t *testing.T) {
	quotes := func(strikes ...float64) []models.OptionQuote {
		out := make([]models.OptionQuote, len(strikes))
		for i, s := range strikes {
			out[i] = models.OptionQuote{Strike: s}
		}
		return out
	}
	c := &models.OptionChain{
		Symbol:    "NIFTY",
		SpotPrice: 100,
		Calls:     quotes(100, 150, 200, 250),
		Puts:      quotes(100, 150, 200, 250),
	}

	atm := ATMSlice(c)
	assert.Equal(t, 100.0, atm.ATMStrike)
	assert.Len(t, atm.NearbyCalls, 3)
	assert.Len(t, atm.NearbyPuts, 3)

	empty := ATMSlice(&models.OptionChain{Symbol: "NIFTY", SpotPrice: 100})
	assert.Nil(t, empty.ATMCall)
	assert.Empty(t, empty.NearbyCalls)
}

func TestNearestStrikeIndex(t *testing.T) {
	strikes := []float64{100, 200, 300}
	assert.Equal(t, 0, NearestStrikeIndex(strikes, 20))
	assert.Equal(t, 0, NearestStrikeIndex(strikes, 150))
	assert.Equal(t, 2, NearestStrikeIndex(strikes, 1000))
	assert.Equal(t, -1, NearestStrikeIndex(nil, 10))
}
