package models

import (
	"strings"
	"time"
)

// Moneyness classifies an option relative to spot.
type Moneyness string

const (
	ITM Moneyness = "ITM"
	OTM Moneyness = "OTM"
)

// OptionType is the call/put side of a contract.
type OptionType string

const (
	Call OptionType = "C"
	Put  OptionType = "P"
)

// Result statuses shared by every JSON payload.
const (
	StatusSuccess = "success"
	StatusCached  = "cached"
	StatusMock    = "mock"
	StatusError   = "error"
)

// SourceSynthetic tags chains fabricated by the generator.
const SourceSynthetic = "synthetic"

// DateLayout is the wire layout for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in t's location and returns it at UTC midnight.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// OptionChain is a synthetic chain around a spot price.
// Calls and Puts are index-aligned by strike.
type OptionChain struct {
	Symbol      string        `json:"symbol"`
	SpotPrice   float64       `json:"spotPrice"`
	ExpiryDate  Date          `json:"expiryDate"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Source      string        `json:"source"`
	Status      string        `json:"status"`
	Calls       []OptionQuote `json:"calls"`
	Puts        []OptionQuote `json:"puts"`
}

// Strikes returns the strike ladder of the chain in ascending order.
func (c *OptionChain) Strikes() []float64 {
	strikes := make([]float64, len(c.Calls))
	for i, q := range c.Calls {
		strikes[i] = q.Strike
	}
	return strikes
}

// OptionQuote is a single call or put quote.
type OptionQuote struct {
	Strike            float64   `json:"strike"`
	LastPrice         float64   `json:"lastPrice"`
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	Volume            int       `json:"volume"`
	OpenInterest      int       `json:"openInterest"`
	ImpliedVolatility float64   `json:"impliedVolatility"`
	Delta             float64   `json:"delta"`
	Gamma             float64   `json:"gamma"`
	Theta             float64   `json:"theta"`
	Vega              float64   `json:"vega"`
	Moneyness         Moneyness `json:"moneyness"`
	ContractSymbol    string    `json:"contractSymbol"`
}

// ATMOptions is the at-the-money slice of a chain.
type ATMOptions struct {
	Symbol      string        `json:"symbol"`
	SpotPrice   float64       `json:"spotPrice"`
	ATMStrike   float64       `json:"atmStrike"`
	ATMCall     *OptionQuote  `json:"atmCall"`
	ATMPut      *OptionQuote  `json:"atmPut"`
	NearbyCalls []OptionQuote `json:"nearbyCalls"`
	NearbyPuts  []OptionQuote `json:"nearbyPuts"`
	ExpiryDate  Date          `json:"expiryDate"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Source      string        `json:"source"`
	Status      string        `json:"status"`
}

// NSEOptionChain is an option chain as published by the NSE website API.
type NSEOptionChain struct {
	Symbol          string      `json:"symbol"`
	UnderlyingValue float64     `json:"underlyingValue"`
	Options         []NSEOption `json:"options"`
	ExpiryDates     []string    `json:"expiryDates"`
	Timestamp       time.Time   `json:"timestamp"`
	Status          string      `json:"status"`
}

// NSEOption is one CE or PE row of an NSE option chain.
type NSEOption struct {
	StrikePrice       float64 `json:"strikePrice"`
	OptionType        string  `json:"optionType"` // CE, PE
	LastPrice         float64 `json:"lastPrice"`
	Change            float64 `json:"change"`
	PChange           float64 `json:"pChange"`
	TotalTradedVolume int64   `json:"totalTradedVolume"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	OpenInterest      float64 `json:"openInterest"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
}

// NSEATM is the at-the-money view of a fetched NSE chain.
type NSEATM struct {
	ATMStrike float64     `json:"atmStrike"`
	Options   []NSEOption `json:"options"`
	SpotPrice float64     `json:"spotPrice"`
}
