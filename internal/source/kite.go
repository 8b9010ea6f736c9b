package source

import (
	"context"
	"errors"
	"net/http"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
	"nifty-options/internal/security"
)

// kiteQuoter is the subset of the Kite Connect client used here.
type kiteQuoter interface {
	GetQuote(instruments ...string) (kiteconnect.Quote, error)
}

// KiteSource reads live quotes from Zerodha Kite Connect.
type KiteSource struct {
	client kiteQuoter
	now    func() time.Time
}

// NewKiteSource creates a Kite Connect source for an existing session.
func NewKiteSource(apiKey, accessToken string, timeout time.Duration) *KiteSource {
	client := kiteconnect.New(apiKey)
	client.SetAccessToken(accessToken)
	client.SetHTTPClient(&http.Client{Timeout: timeout})
	return &KiteSource{client: client, now: time.Now}
}

// Name implements PriceSource.
func (k *KiteSource) Name() string { return "kite" }

// Tickers implements PriceSource.
func (k *KiteSource) Tickers(inst models.Instrument) []string {
	if inst.KiteSymbol == "" {
		return nil
	}
	return []string{inst.KiteSymbol}
}

// FetchSpotPrice implements PriceSource.
func (k *KiteSource) FetchSpotPrice(ctx context.Context, ticker string) (*models.PriceSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quotes, err := k.client.GetQuote(ticker)
	if err != nil {
		// Kite error messages can echo the request's credentials.
		return nil, apperrors.NewNetworkError(k.Name(), 0, errors.New(security.MaskString(err.Error())))
	}

	q, ok := quotes[ticker]
	if !ok || q.LastPrice == 0 {
		return nil, apperrors.NewNoDataError(k.Name(), ticker)
	}

	open := q.OHLC.Open
	if open == 0 {
		open = q.LastPrice
	}
	return newSnapshot(k.Name(), q.LastPrice, open, q.OHLC.High, q.OHLC.Low, int64(q.Volume), k.now()), nil
}
