package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/logging"
	"nifty-options/internal/models"
)

// nseHeaders mimic a desktop browser; the NSE API rejects bare clients.
var nseHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Connection":      "keep-alive",
	"DNT":             "1",
	"Pragma":          "no-cache",
	"Cache-Control":   "no-cache",
}

// NSEClient fetches option chains from the NSE website API.
type NSEClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	now     func() time.Time
}

// NewNSEClient creates an NSE client. Each client keeps its own cookie jar
// so the session cookie from the warm-up request is reused.
func NewNSEClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *NSEClient {
	jar, _ := cookiejar.New(nil)
	return &NSEClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout, Jar: jar},
		logger:  logger,
		now:     time.Now,
	}
}

// FetchOptionChain fetches the exchange option chain for an index symbol.
func (n *NSEClient) FetchOptionChain(ctx context.Context, symbol string) (*models.NSEOptionChain, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		symbol = models.Nifty.Key
	}

	// Warm-up request establishes the session cookies. Its outcome is ignored.
	if resp, err := n.get(ctx, n.baseURL); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	endpoint := fmt.Sprintf("%s/api/option-chain-indices?symbol=%s", n.baseURL, url.QueryEscape(symbol))
	start := time.Now()
	resp, err := n.get(ctx, endpoint)
	if err != nil {
		logging.LogAPICall(n.logger, http.MethodGet, endpoint, time.Since(start), err)
		return nil, apperrors.NewNetworkError("NSE API", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		netErr := apperrors.NewNetworkError("NSE API", resp.StatusCode, nil)
		logging.LogAPICall(n.logger, http.MethodGet, endpoint, time.Since(start), netErr)
		return nil, netErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("NSE API", 0, err)
	}
	logging.LogAPICall(n.logger, http.MethodGet, endpoint, time.Since(start), nil)

	return parseNSEChain(body, symbol, n.now())
}

func (n *NSEClient) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range nseHeaders {
		req.Header.Set(k, v)
	}
	return n.client.Do(req)
}

func parseNSEChain(body []byte, symbol string, now time.Time) (*models.NSEOptionChain, error) {
	records, _, _, err := jsonparser.Get(body, "records")
	if err != nil {
		return nil, apperrors.NewNoDataError("NSE API", symbol)
	}

	chain := &models.NSEOptionChain{
		Symbol:      symbol,
		Options:     []models.NSEOption{},
		ExpiryDates: []string{},
		Timestamp:   now,
		Status:      models.StatusSuccess,
	}
	chain.UnderlyingValue, _ = jsonparser.GetFloat(records, "underlyingValue")

	_, _ = jsonparser.ArrayEach(records, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType == jsonparser.String {
			if s, err := jsonparser.ParseString(value); err == nil {
				chain.ExpiryDates = append(chain.ExpiryDates, s)
			}
		}
	}, "expiryDates")

	_, _ = jsonparser.ArrayEach(records, func(item []byte, _ jsonparser.ValueType, _ int, _ error) {
		strike, _ := jsonparser.GetFloat(item, "strikePrice")
		for _, side := range []string{"CE", "PE"} {
			leg, dataType, _, err := jsonparser.Get(item, side)
			if err != nil || dataType != jsonparser.Object {
				continue
			}
			chain.Options = append(chain.Options, parseNSELeg(leg, side, strike))
		}
	}, "data")

	return chain, nil
}

func parseNSELeg(leg []byte, side string, strike float64) models.NSEOption {
	num := func(key string) float64 {
		v, _ := jsonparser.GetFloat(leg, key)
		return v
	}
	return models.NSEOption{
		StrikePrice:       strike,
		OptionType:        side,
		LastPrice:         num("lastPrice"),
		Change:            num("change"),
		PChange:           num("pChange"),
		TotalTradedVolume: int64(num("totalTradedVolume")),
		ImpliedVolatility: num("impliedVolatility"),
		OpenInterest:      num("openInterest"),
		Bid:               num("bidprice"),
		Ask:               num("askPrice"),
	}
}

// ATMFromNSE picks the strike closest to spot among the fetched rows and
// returns every row at that strike. Ties go to the lower strike.
func ATMFromNSE(spot float64, options []models.NSEOption) (*models.NSEATM, error) {
	if len(options) == 0 {
		return nil, apperrors.NewNoDataError("NSE API", "option chain")
	}

	seen := make(map[float64]struct{}, len(options))
	strikes := make([]float64, 0, len(options))
	for _, o := range options {
		if _, ok := seen[o.StrikePrice]; !ok {
			seen[o.StrikePrice] = struct{}{}
			strikes = append(strikes, o.StrikePrice)
		}
	}
	sort.Float64s(strikes)

	atm := strikes[0]
	for _, s := range strikes[1:] {
		if math.Abs(s-spot) < math.Abs(atm-spot) {
			atm = s
		}
	}

	rows := []models.NSEOption{}
	for _, o := range options {
		if o.StrikePrice == atm {
			rows = append(rows, o)
		}
	}
	return &models.NSEATM{ATMStrike: atm, Options: rows, SpotPrice: spot}, nil
}
