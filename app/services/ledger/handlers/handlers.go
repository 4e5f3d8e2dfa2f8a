// Package handlers manages the different versions of the API.
package handlers

import (
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/tesseralabs/ledger/app/services/ledger/handlers/debug/checkgrp"
	v1 "github.com/tesseralabs/ledger/app/services/ledger/handlers/v1"
	"github.com/tesseralabs/ledger/business/web/mid"
	"github.com/tesseralabs/ledger/foundation/events"
	"github.com/tesseralabs/ledger/foundation/ledger/blocklog"
	"github.com/tesseralabs/ledger/foundation/ledger/inspect"
	"github.com/tesseralabs/ledger/foundation/ledger/limits"
	"github.com/tesseralabs/ledger/foundation/ledger/notify"
	"github.com/tesseralabs/ledger/foundation/ledger/state"
	"github.com/tesseralabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
	BlockLog *blocklog.Log
	Notify   *notify.Scheduler
	Pipeline *inspect.Pipeline
	Evts     *events.Events
}

// NewPipeline constructs the inspection pipeline from the full v1 endpoint
// validation table. The table is static service metadata: it is built once
// here at startup and read-only thereafter.
func NewPipeline(l limits.Limits) (*inspect.Pipeline, error) {
	return inspect.New(l, v1.Rules()...)
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Load the v1 routes.
	v1.PublicRoutes(app, v1.Config{
		Log:      cfg.Log,
		State:    cfg.State,
		BlockLog: cfg.BlockLog,
		Pipeline: cfg.Pipeline,
		Evts:     cfg.Evts,
	})

	return app
}

// PrivateMux constructs a http.Handler with all application routes defined.
func PrivateMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Panics(),
	)

	// Load the v1 routes.
	v1.PrivateRoutes(app, v1.Config{
		Log:      cfg.Log,
		State:    cfg.State,
		BlockLog: cfg.BlockLog,
		Notify:   cfg.Notify,
		Pipeline: cfg.Pipeline,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service. This bypassing the use of the
// DefaultServerMux. Using the DefaultServerMux would be a security risk since
// a dependency could inject a handler into our service without us knowing it.
func DebugMux(build string, log *zap.SugaredLogger) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
