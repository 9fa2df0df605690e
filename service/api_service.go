package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vocdoni/ciphervote/api"
	"github.com/vocdoni/ciphervote/log"
)

const shutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	conf   *api.APIConfig
	host   string
	port   int
	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// NewAPI creates a new APIService instance. A zero port lets the OS pick a
// free one, see Addr.
func NewAPI(conf *api.APIConfig, host string, port int) *APIService {
	return &APIService{
		conf: conf,
		host: host,
		port: port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.server != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(as.conf)
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	listener, err := net.Listen("tcp", net.JoinHostPort(as.host, strconv.Itoa(as.port)))
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.addr = listener.Addr()
	as.server = &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	log.Infow("starting API server", "addr", as.addr.String())
	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server failed")
		}
	}(as.server)
	return nil
}

// Stop gracefully halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := as.server.Shutdown(ctx); err != nil {
		log.Warnw("API server shutdown", "error", err.Error())
	}
	as.server = nil
	as.addr = nil
}

// Addr returns the address the API server listens on, nil if it is not
// running.
func (as *APIService) Addr() net.Addr {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.addr
}
