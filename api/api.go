package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/verifier"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Engine   *session.Engine
	Verifier *verifier.Gateway
	// CurveType is the curve of the verifier encryption key.
	CurveType string
}

// API type represents the API HTTP handlers of the sequencer.
type API struct {
	router    *chi.Mux
	engine    *session.Engine
	verifier  *verifier.Gateway
	curveType string
}

// New creates a new API instance with the given configuration and
// initializes its router. Serving it is up to the caller.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Engine == nil {
		return nil, fmt.Errorf("missing session engine")
	}
	if conf.Verifier == nil {
		return nil, fmt.Errorf("missing verifier gateway")
	}
	a := &API{
		engine:    conf.Engine,
		verifier:  conf.Verifier,
		curveType: conf.CurveType,
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router, it implements http.Handler.
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers the request/response API handlers.
func (a *API) registerHandlers(r chi.Router) {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	r.Get(PingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", VerifierEndpoint, "method", "GET")
	r.Get(VerifierEndpoint, a.verifierInfo)
	log.Infow("register handler", "endpoint", SessionsEndpoint, "method", "POST")
	r.Post(SessionsEndpoint, a.newSession)
	log.Infow("register handler", "endpoint", SessionsEndpoint, "method", "GET")
	r.Get(SessionsEndpoint, a.sessions)
	log.Infow("register handler", "endpoint", SessionEndpoint, "method", "GET")
	r.Get(SessionEndpoint, a.session)
	log.Infow("register handler", "endpoint", CreatorNonceEndpoint, "method", "GET")
	r.Get(CreatorNonceEndpoint, a.creatorNonce)
	log.Infow("register handler", "endpoint", BallotsEndpoint, "method", "POST")
	r.Post(BallotsEndpoint, a.castBallot)
	log.Infow("register handler", "endpoint", FinalizeEndpoint, "method", "POST")
	r.Post(FinalizeEndpoint, a.finalize)
	log.Infow("register handler", "endpoint", ResultsEndpoint, "method", "GET")
	r.Get(ResultsEndpoint, a.results)
	log.Infow("register handler", "endpoint", EventsEndpoint, "method", "GET")
	r.Get(EventsEndpoint, a.events)
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	r.Handle(MetricsEndpoint, promhttp.Handler())
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	if log.Level() == log.LogLevelDebug {
		a.router.Use(middleware.Logger)
	}
	a.router.Use(middleware.Recoverer)

	// the event stream is long lived, so it is kept out of the throttle and
	// the request timeout
	log.Infow("register handler", "endpoint", EventsStreamEndpoint, "method", "GET")
	a.router.Get(EventsStreamEndpoint, a.eventsStream)
	a.router.Group(func(r chi.Router) {
		r.Use(middleware.Throttle(100))
		r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
		r.Use(middleware.Timeout(45 * time.Second))
		a.registerHandlers(r)
	})
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Withf("%s %s", r.Method, r.URL.Path).Write(w)
	})
}
