// Package source fetches spot prices and exchange option chains from upstream
// market-data providers.
package source

import (
	"context"
	"time"

	"nifty-options/internal/models"
	"nifty-options/pkg/utils"
)

// PriceSource fetches a live spot quote.
type PriceSource interface {
	// Name identifies the source in logs and the snapshot's source field.
	Name() string
	// Tickers returns the upstream spellings of inst to try, in order.
	Tickers(inst models.Instrument) []string
	// FetchSpotPrice fetches the latest quote for one ticker.
	FetchSpotPrice(ctx context.Context, ticker string) (*models.PriceSnapshot, error)
}

// newSnapshot builds a successful snapshot from OHLCV values. Change is
// measured against the session open.
func newSnapshot(source string, price, open, high, low float64, volume int64, now time.Time) *models.PriceSnapshot {
	change := price - open
	var changePct float64
	if open != 0 {
		changePct = change / open * 100
	}
	return &models.PriceSnapshot{
		Price:         utils.Round2(price),
		Open:          utils.Round2(open),
		High:          utils.Round2(high),
		Low:           utils.Round2(low),
		Change:        utils.Round2(change),
		ChangePercent: utils.Round2(changePct),
		Volume:        volume,
		Timestamp:     now,
		Status:        models.StatusSuccess,
		Source:        source,
	}
}
