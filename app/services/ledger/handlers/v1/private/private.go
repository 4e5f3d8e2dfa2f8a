// Package private maintains the group of handlers for the node's private
// surface: administrative operations and calls arriving from other services.
// Requests here never pass the admission filter, so mutating handlers run
// the same validators in guard form themselves.
package private

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tesseralabs/ledger/business/sys/validate"
	"github.com/tesseralabs/ledger/business/web/errs"
	"github.com/tesseralabs/ledger/foundation/ledger/blocklog"
	"github.com/tesseralabs/ledger/foundation/ledger/inspect"
	"github.com/tesseralabs/ledger/foundation/ledger/notify"
	"github.com/tesseralabs/ledger/foundation/ledger/state"
	"github.com/tesseralabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of private ledger endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	State    *state.State
	BlockLog *blocklog.Log
	Notify   *notify.Scheduler
	Pipeline *inspect.Pipeline
}

// Status returns basic information about the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.BlockLog.LatestBlock()

	status := struct {
		Height        uint64 `json:"height"`
		LatestHash    string `json:"latest_hash"`
		IndexTarget   string `json:"index_target,omitempty"`
		NotifyPending bool   `json:"notify_pending"`
	}{
		Height:        latest.Header.Number,
		LatestHash:    latest.Hash(),
		IndexTarget:   h.Notify.Target(),
		NotifyPending: h.Notify.Pending(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// =============================================================================
// Index target administration. The private host binding is the authorization
// boundary, holders of this surface are controllers of the node.

// Indexer returns the configured index service target.
func (h Handlers) Indexer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Target  string `json:"target,omitempty"`
		Enabled bool   `json:"enabled"`
	}{
		Target:  h.Notify.Target(),
		Enabled: h.Notify.Target() != "",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SetIndexer sets the index service target, enabling block notifications.
func (h Handlers) SetIndexer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var target struct {
		Target string `json:"target" validate:"required,url"`
	}
	if err := web.Decode(r, &target); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := h.Pipeline.Limits().CheckText("target", target.Target); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(target); err != nil {
		return err
	}

	h.Notify.SetTarget(target.Target)
	h.Log.Infow("index target set", "traceid", v.TraceID, "target", target.Target)

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// DisableIndexer clears the index service target, disabling block
// notifications. Disabling an already-disabled notifier is a no-op.
func (h Handlers) DisableIndexer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Notify.Disable()
	h.Log.Infow("index target disabled", "traceid", v.TraceID)

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// =============================================================================

// Settle moves funds on behalf of another service. The admission filter
// never sees this call path, so the operation's validators run here in
// guard form and abort the operation with the rejection reason.
func (h Handlers) Settle(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx settleTx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(tx); err != nil {
		return err
	}

	if err := h.Pipeline.Guard(OpSettle, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	from, err := state.NewAccount(tx.From.Owner, tx.From.Subaccount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := state.NewAccount(tx.To.Owner, tx.To.Subaccount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := parseAmount(tx.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("settle", "traceid", v.TraceID, "from", from.Owner, "to", to.Owner, "amount", amount)

	block, err := h.State.Settle(from, to, amount, tx.Memo, tx.Data)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
		Block  uint64 `json:"block"`
	}{
		Status: "transaction committed",
		Block:  block.Header.Number,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
