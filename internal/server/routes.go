package server

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"nifty-options/internal/logging"
)

// Route binds a named handler to a method and path pattern.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

func (s *Server) routes() []Route {
	return []Route{
		{"Health", http.MethodGet, "/health", s.handleHealth},
		{"OptionChain", http.MethodGet, "/api/option-chain", s.handleOptionChain},
		{"ATMOptions", http.MethodGet, "/api/option-chain/atm", s.handleATM},
		{"SpotPrice", http.MethodGet, "/api/price/{symbol}", s.handlePrice},
		{"NSEOptionChain", http.MethodGet, "/api/nse/option-chain/{symbol}", s.handleNSEChain},
		{"NSEATM", http.MethodGet, "/api/nse/option-chain/{symbol}/atm", s.handleNSEATM},
	}
}

func (s *Server) newRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	for _, route := range s.routes() {
		var handler http.Handler
		handler = route.HandlerFunc
		handler = s.restLogger(handler, route.Name)
		handler = s.requestID(handler)

		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(handler)
	}
	router.NotFoundHandler = s.requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	}))
	return router
}

// requestID tags each request with an ID, reusing X-Request-ID when the
// caller sent one.
func (s *Server) requestID(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			if u, err := uuid.NewV4(); err == nil {
				id = u.String()
			}
		}
		w.Header().Set("X-Request-ID", id)

		logger := s.logger.With().Str("request_id", id).Logger()
		ctx := logging.WithRequestID(logging.WithLogger(r.Context(), logger), id)
		inner.ServeHTTP(w, r.WithContext(ctx))
	})
}

// restLogger logs each request once it has been served.
func (s *Server) restLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		inner.ServeHTTP(rec, r)

		logger := logging.FromContext(r.Context())
		var event *zerolog.Event
		if rec.status >= http.StatusInternalServerError {
			event = logger.Warn()
		} else {
			event = logger.Info()
		}
		event.
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("route", name).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
