// Package server exposes the option-chain generator and upstream quotes over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"nifty-options/internal/chain"
	"nifty-options/internal/config"
	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/logging"
	"nifty-options/internal/models"
	"nifty-options/internal/resilience"
	"nifty-options/internal/source"
	"nifty-options/pkg/utils"
)

// PriceResolver resolves a symbol to a spot quote.
type PriceResolver interface {
	Resolve(ctx context.Context, symbol string) (*models.PriceSnapshot, error)
}

// HealthReporter is implemented by components that expose health checks.
type HealthReporter interface {
	HealthChecks() []resilience.HealthCheck
}

// OptionChainFetcher fetches an exchange option chain.
type OptionChainFetcher interface {
	FetchOptionChain(ctx context.Context, symbol string) (*models.NSEOptionChain, error)
}

// Server is the HTTP API.
type Server struct {
	cfg       config.ServerConfig
	defaults  config.GeneratorConfig
	generator *chain.Generator
	resolver  PriceResolver
	nse       OptionChainFetcher
	logger    zerolog.Logger
	router    *mux.Router
}

// New creates a server. resolver and nse may be nil, in which case their
// routes answer 503.
func New(cfg config.ServerConfig, defaults config.GeneratorConfig, generator *chain.Generator,
	resolver PriceResolver, nse OptionChainFetcher, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		defaults:  defaults,
		generator: generator,
		resolver:  resolver,
		nse:       nse,
		logger:    logger,
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.cfg.Listen).Msg("HTTP API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP API")
	return srv.Shutdown(shutdownCtx)
}

type envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Status: models.StatusSuccess, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: models.StatusError, Message: message})
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrInputValidation):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrSourceDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// handleHealth always answers 200 while the process serves: an open source
// breaker only means quotes fall back to the cache or mock.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var checks []resilience.HealthCheck
	if reporter, ok := s.resolver.(HealthReporter); ok {
		checks = reporter.HealthChecks()
	}
	health := resilience.RunChecks(r.Context(), time.Now().UTC(), checks...)

	status := "ok"
	if health.Status != resilience.HealthStatusHealthy {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"timestamp":  health.CheckedAt,
		"market":     utils.MarketStatusAt(health.CheckedAt),
		"components": health.Components,
	})
}

// chainParams reads symbol, spot and expiryDays from the query string.
func (s *Server) chainParams(r *http.Request) (symbol string, spot float64, expiryDays int, err error) {
	q := r.URL.Query()

	symbol = strings.ToUpper(strings.TrimSpace(q.Get("symbol")))
	if symbol == "" {
		symbol = s.defaults.DefaultSymbol
	}

	spot = s.defaults.DefaultSpot
	if raw := q.Get("spot"); raw != "" {
		spot, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(spot) || math.IsInf(spot, 0) {
			return "", 0, 0, apperrors.NewValidationError("spot", raw, "must be a finite number")
		}
	}

	expiryDays = s.defaults.ExpiryDays
	if raw := q.Get("expiryDays"); raw != "" {
		expiryDays, err = strconv.Atoi(raw)
		if err != nil || expiryDays < 0 {
			return "", 0, 0, apperrors.NewValidationError("expiryDays", raw, "must be a non-negative integer")
		}
	}
	return symbol, spot, expiryDays, nil
}

func (s *Server) handleOptionChain(w http.ResponseWriter, r *http.Request) {
	symbol, spot, expiryDays, err := s.chainParams(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeData(w, s.generator.Chain(spot, symbol, expiryDays))
}

func (s *Server) handleATM(w http.ResponseWriter, r *http.Request) {
	symbol, spot, expiryDays, err := s.chainParams(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeData(w, s.generator.ATMWithExpiry(spot, symbol, expiryDays))
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, apperrors.ErrSourceDisabled.Error())
		return
	}
	symbol := mux.Vars(r)["symbol"]
	snap, err := s.resolver.Resolve(r.Context(), symbol)
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Warn().Err(err).Str("symbol", symbol).Msg("Price resolution failed")
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeData(w, snap)
}

func (s *Server) fetchNSE(w http.ResponseWriter, r *http.Request) (*models.NSEOptionChain, bool) {
	if s.nse == nil {
		writeError(w, http.StatusServiceUnavailable, apperrors.ErrSourceDisabled.Error())
		return nil, false
	}
	symbol := mux.Vars(r)["symbol"]
	oc, err := s.nse.FetchOptionChain(r.Context(), symbol)
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Warn().Err(err).Str("symbol", symbol).Msg("NSE fetch failed")
		writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return oc, true
}

func (s *Server) handleNSEChain(w http.ResponseWriter, r *http.Request) {
	if oc, ok := s.fetchNSE(w, r); ok {
		writeData(w, oc)
	}
}

// handleNSEATM picks the ATM rows of the NSE chain around its own
// underlying value, or around ?spot= when given.
func (s *Server) handleNSEATM(w http.ResponseWriter, r *http.Request) {
	spot := 0.0
	if raw := r.URL.Query().Get("spot"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			err = apperrors.NewValidationError("spot", raw, "must be a finite number")
			writeError(w, statusFor(err), err.Error())
			return
		}
		spot = v
	}

	oc, ok := s.fetchNSE(w, r)
	if !ok {
		return
	}
	if spot == 0 {
		spot = oc.UnderlyingValue
	}
	atm, err := source.ATMFromNSE(spot, oc.Options)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeData(w, atm)
}
