package http

import (
	"net/http"
	"net/http/pprof"

	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminOptions configures the routes served by the admin server.
type AdminOptions struct {
	Version string

	// Reports whether the simulation is running. Nil always reports ready.
	ReadinessCheck func() bool

	// Returns the value served as JSON on /stats. Nil disables the route.
	Stats func() any

	// Serves the point feed on /feed. Nil disables the route.
	Feed http.Handler
}

// NewAdminHandler returns the handler of the admin server, instrumented with
// HTTP metrics.
func NewAdminHandler(opts AdminOptions) http.Handler {
	readinessCheck := opts.ReadinessCheck
	if readinessCheck == nil {
		readinessCheck = func() bool { return true }
	}

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", HandleHealthCheck)
	admin.HandleFunc("/ready", HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/version", HandleVersion(opts.Version))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	if opts.Stats != nil {
		admin.HandleFunc("/stats", HandleStats(opts.Stats))
	}
	if opts.Feed != nil {
		admin.Handle("/feed", opts.Feed)
	}

	return metrics.HTTPHandler(&admin, MetricsPathFormatter)
}
