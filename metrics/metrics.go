package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.vocdoni.io/guardians/log"
)

// DefaultPath is where the prometheus handler is mounted.
const DefaultPath = "/metrics"

// Agent struct with options
type Agent struct {
	Path   string
	Router *chi.Mux
	server *http.Server
}

// NewAgent creates the metrics agent, mounting the prometheus handler and a
// /ping heartbeat on a new chi router.
func NewAgent(path string) *Agent {
	if path == "" {
		path = DefaultPath
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Method(http.MethodGet, path, promhttp.Handler())
	return &Agent{Path: path, Router: r}
}

// Register the provided prometheus collector, ignoring any error returned (simply logs a Warn)
func (a *Agent) Register(c prometheus.Collector) {
	Register(c)
}

// Register the provided prometheus collector, ignoring any error returned (simply logs a Warn)
func Register(c prometheus.Collector) {
	err := prometheus.Register(c)
	if err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return
		}
		log.Warnf("cannot register metrics: (%s) (%+v)", err, c)
	}
}

// Start serves the agent router on addr until Stop is called. The returned
// address is the one actually listened on, useful when addr has port 0.
func (a *Agent) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	a.server = &http.Server{
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("metrics server stopped: %v", err)
		}
	}()
	log.Infof("prometheus metrics ready at: http://%s%s", ln.Addr(), a.Path)
	return ln.Addr(), nil
}

// Stop gracefully shuts down the metrics server, if started.
func (a *Agent) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
