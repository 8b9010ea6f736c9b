package source

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
)

type fakeQuoter struct {
	quotes kiteconnect.Quote
	err    error
	asked  []string
}

func (f *fakeQuoter) GetQuote(instruments ...string) (kiteconnect.Quote, error) {
	f.asked = append(f.asked, instruments...)
	return f.quotes, f.err
}

func TestKiteFetchSpotPrice(t *testing.T) {
	var quotes kiteconnect.Quote
	require.NoError(t, json.Unmarshal([]byte(`{"NSE:NIFTY 50":{
		"last_price":24310.5,"volume":0,"net_change":55.2,
		"ohlc":{"open":24250,"high":24380,"low":24201.35,"close":24255.3}}}`), &quotes))

	fake := &fakeQuoter{quotes: quotes}
	k := &KiteSource{client: fake, now: func() time.Time { return time.Date(2024, 1, 3, 4, 30, 0, 0, time.UTC) }}

	ticker := k.Tickers(models.Nifty)[0]
	snap, err := k.FetchSpotPrice(context.Background(), ticker)
	require.NoError(t, err)

	assert.Equal(t, []string{"NSE:NIFTY 50"}, fake.asked)
	assert.Equal(t, 24310.5, snap.Price)
	assert.Equal(t, 60.5, snap.Change)
	assert.Equal(t, "kite", snap.Source)
}

func TestKiteErrors(t *testing.T) {
	k := &KiteSource{client: &fakeQuoter{err: errors.New("TokenException")}, now: time.Now}
	_, err := k.FetchSpotPrice(context.Background(), "NSE:NIFTY 50")
	assert.ErrorIs(t, err, apperrors.ErrNetwork)

	k = &KiteSource{client: &fakeQuoter{quotes: kiteconnect.Quote{}}, now: time.Now}
	_, err = k.FetchSpotPrice(context.Background(), "NSE:NIFTY 50")
	assert.ErrorIs(t, err, apperrors.ErrNoData)
}
