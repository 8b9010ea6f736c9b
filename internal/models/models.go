// Package models provides domain models for option-chain and price data.
package models

import (
	"strings"
	"time"
)

// PriceSnapshot is a spot quote for an index or stock.
type PriceSnapshot struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price,omitempty"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	Change        float64   `json:"change,omitempty"`
	ChangePercent float64   `json:"changePercent,omitempty"`
	Volume        int64     `json:"volume,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	Source        string    `json:"source,omitempty"`
	Note          string    `json:"note,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// ErrorResult is the JSON shape for any failed operation.
type ErrorResult struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Symbol    string    `json:"symbol,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewErrorResult builds an ErrorResult for err.
func NewErrorResult(symbol string, err error, now time.Time) *ErrorResult {
	return &ErrorResult{
		Status:    StatusError,
		Message:   err.Error(),
		Symbol:    symbol,
		Timestamp: now,
	}
}

// Instrument describes a tradeable underlying and how to price it offline.
type Instrument struct {
	Key           string
	Name          string
	YahooTickers  []string
	KiteSymbol    string
	FallbackPrice float64
	Aliases       []string
}

var (
	Nifty = Instrument{
		Key:           "NIFTY",
		Name:          "NIFTY 50",
		YahooTickers:  []string{"^NSEI", "NSEI", "NIFTY50"},
		KiteSymbol:    "NSE:NIFTY 50",
		FallbackPrice: 24300,
		Aliases:       []string{"NIFTY50", "NSEI"},
	}
	BankNifty = Instrument{
		Key:           "BANKNIFTY",
		Name:          "BANK NIFTY",
		YahooTickers:  []string{"^NSEBANK", "NSEBANK", "BANKNIFTY"},
		KiteSymbol:    "NSE:NIFTY BANK",
		FallbackPrice: 51200,
		Aliases:       []string{"BANK_NIFTY", "NSEBANK"},
	}
)

// Instruments is the registry of supported underlyings.
var Instruments = []Instrument{
	Nifty,
	BankNifty,
	{Key: "RELIANCE", Name: "RELIANCE", YahooTickers: []string{"RELIANCE.NS"}, KiteSymbol: "NSE:RELIANCE", FallbackPrice: 2800},
	{Key: "TCS", Name: "TCS", YahooTickers: []string{"TCS.NS"}, KiteSymbol: "NSE:TCS", FallbackPrice: 4200},
	{Key: "HDFCBANK", Name: "HDFC BANK", YahooTickers: []string{"HDFCBANK.NS"}, KiteSymbol: "NSE:HDFCBANK", FallbackPrice: 1700},
	{Key: "INFY", Name: "INFOSYS", YahooTickers: []string{"INFY.NS"}, KiteSymbol: "NSE:INFY", FallbackPrice: 1850},
}

// LookupInstrument resolves a symbol or alias case-insensitively.
// Unknown symbols resolve to NIFTY.
func LookupInstrument(symbol string) Instrument {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, inst := range Instruments {
		if inst.Key == s {
			return inst
		}
		for _, a := range inst.Aliases {
			if a == s {
				return inst
			}
		}
	}
	return Nifty
}

// IsIndex reports whether the instrument is an index with several ticker spellings.
func (i Instrument) IsIndex() bool {
	return len(i.YahooTickers) > 1
}
