package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/logging"
	"nifty-options/internal/models"
)

const yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// YahooSource reads daily bars from the Yahoo Finance chart API.
type YahooSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
	now     func() time.Time
}

// YahooConfig configures a YahooSource.
type YahooConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int // 0 = unlimited
	Logger            zerolog.Logger
}

// NewYahooSource creates a Yahoo Finance source.
func NewYahooSource(cfg YahooConfig) *YahooSource {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &YahooSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Name implements PriceSource.
func (y *YahooSource) Name() string { return "yahoo" }

// Tickers implements PriceSource.
func (y *YahooSource) Tickers(inst models.Instrument) []string { return inst.YahooTickers }

// FetchSpotPrice implements PriceSource. It returns the last non-null bar of
// the current session.
func (y *YahooSource) FetchSpotPrice(ctx context.Context, ticker string) (*models.PriceSnapshot, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRateLimited, err.Error())
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", y.baseURL, url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := y.client.Do(req)
	if err != nil {
		logging.LogAPICall(y.logger, http.MethodGet, endpoint, time.Since(start), err)
		return nil, apperrors.NewNetworkError(y.Name(), 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		netErr := apperrors.NewNetworkError(y.Name(), resp.StatusCode, nil)
		logging.LogAPICall(y.logger, http.MethodGet, endpoint, time.Since(start), netErr)
		return nil, netErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError(y.Name(), 0, err)
	}
	logging.LogAPICall(y.logger, http.MethodGet, endpoint, time.Since(start), nil)

	return y.parseChart(body, ticker)
}

func (y *YahooSource) parseChart(body []byte, ticker string) (*models.PriceSnapshot, error) {
	quote, _, _, err := jsonparser.Get(body, "chart", "result", "[0]", "indicators", "quote", "[0]")
	if err != nil {
		return nil, apperrors.NewNoDataError(y.Name(), ticker)
	}

	closes := floatSeries(quote, "close")
	idx := -1
	for i := len(closes) - 1; i >= 0; i-- {
		if !math.IsNaN(closes[i]) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.NewNoDataError(y.Name(), ticker)
	}

	price := closes[idx]
	open := valueAt(floatSeries(quote, "open"), idx, price)
	high := valueAt(floatSeries(quote, "high"), idx, math.Max(price, open))
	low := valueAt(floatSeries(quote, "low"), idx, math.Min(price, open))
	volume := valueAt(floatSeries(quote, "volume"), idx, 0)

	return newSnapshot(y.Name(), price, open, high, low, int64(volume), y.now()), nil
}

// floatSeries reads a numeric array; nulls and non-numbers become NaN.
func floatSeries(data []byte, key string) []float64 {
	var out []float64
	_, _ = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		v := math.NaN()
		if dataType == jsonparser.Number {
			if f, err := jsonparser.ParseFloat(value); err == nil {
				v = f
			}
		}
		out = append(out, v)
	}, key)
	return out
}

func valueAt(series []float64, idx int, fallback float64) float64 {
	if idx >= len(series) || math.IsNaN(series[idx]) {
		return fallback
	}
	return series[idx]
}
