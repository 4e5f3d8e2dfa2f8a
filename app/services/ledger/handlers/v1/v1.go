// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/tesseralabs/ledger/app/services/ledger/handlers/v1/private"
	"github.com/tesseralabs/ledger/app/services/ledger/handlers/v1/public"
	"github.com/tesseralabs/ledger/business/web/mid"
	"github.com/tesseralabs/ledger/foundation/events"
	"github.com/tesseralabs/ledger/foundation/ledger/blocklog"
	"github.com/tesseralabs/ledger/foundation/ledger/inspect"
	"github.com/tesseralabs/ledger/foundation/ledger/notify"
	"github.com/tesseralabs/ledger/foundation/ledger/state"
	"github.com/tesseralabs/ledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log      *zap.SugaredLogger
	State    *state.State
	BlockLog *blocklog.Log
	Notify   *notify.Scheduler
	Pipeline *inspect.Pipeline
	Evts     *events.Events
}

// Rules returns the full endpoint validation table for the v1 api.
func Rules() []inspect.Rule {
	return append(public.Rules(), private.Rules()...)
}

// PublicRoutes binds all the version 1 public routes. Every mutating route
// runs the admission filter for its operation before the handler executes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:      cfg.Log,
		State:    cfg.State,
		BlockLog: cfg.BlockLog,
		Pipeline: cfg.Pipeline,
		Evts:     cfg.Evts,
	}

	// The events route is a websocket upgrade and carries no payload, so it
	// is the one public route that skips the admission filter.
	app.Handle(http.MethodGet, version, "/events", pbl.Events)

	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis,
		mid.Inspect(cfg.Log, cfg.Pipeline, public.OpQueryGenesis))
	app.Handle(http.MethodGet, version, "/blocks/latest", pbl.LatestBlock,
		mid.Inspect(cfg.Log, cfg.Pipeline, public.OpQueryLatestBlock))
	app.Handle(http.MethodGet, version, "/accounts/:account/balance", pbl.Balance,
		mid.Inspect(cfg.Log, cfg.Pipeline, public.OpQueryBalance))

	app.Handle(http.MethodPost, version, "/tx/transfer", pbl.Transfer,
		mid.Inspect(cfg.Log, cfg.Pipeline, public.OpTransfer))
	app.Handle(http.MethodPost, version, "/tx/approve", pbl.Approve,
		mid.Inspect(cfg.Log, cfg.Pipeline, public.OpApprove))
	app.Handle(http.MethodPost, version, "/tx/transfer-from", pbl.TransferFrom,
		mid.Inspect(cfg.Log, cfg.Pipeline, public.OpTransferFrom))
	app.Handle(http.MethodPost, version, "/tx/batch", pbl.BatchTransfer,
		mid.Inspect(cfg.Log, cfg.Pipeline, public.OpBatch))
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:      cfg.Log,
		State:    cfg.State,
		BlockLog: cfg.BlockLog,
		Notify:   cfg.Notify,
		Pipeline: cfg.Pipeline,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/indexer", prv.Indexer)
	app.Handle(http.MethodPut, version, "/node/indexer", prv.SetIndexer)
	app.Handle(http.MethodDelete, version, "/node/indexer", prv.DisableIndexer)
	app.Handle(http.MethodPost, version, "/node/tx/settle", prv.Settle)
}
