// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tesseralabs/ledger/business/sys/validate"
	"github.com/tesseralabs/ledger/business/web/errs"
	"github.com/tesseralabs/ledger/foundation/events"
	"github.com/tesseralabs/ledger/foundation/ledger/blocklog"
	"github.com/tesseralabs/ledger/foundation/ledger/inspect"
	"github.com/tesseralabs/ledger/foundation/ledger/signature"
	"github.com/tesseralabs/ledger/foundation/ledger/state"
	"github.com/tesseralabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	State    *state.State
	BlockLog *blocklog.Log
	Pipeline *inspect.Pipeline
	WS       websocket.Upgrader
	Evts     *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Transfer moves funds between two accounts.
func (h Handlers) Transfer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx signedTransferTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(signedTx); err != nil {
		return err
	}

	from, err := h.signer(signedTx.transferTx, signedTx.FromSub, signedTx.V, signedTx.R, signedTx.S)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := state.NewAccount(signedTx.To.Owner, signedTx.To.Subaccount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := parseAmount(signedTx.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("transfer", "traceid", v.TraceID, "from", from.Owner, "to", to.Owner, "amount", amount)

	sig := signature.SignatureString(signedTx.V, signedTx.R, signedTx.S)
	block, err := h.State.Transfer(from, to, amount, signedTx.Memo, sig)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Evts.Send(fmt.Sprintf("transfer: block %d: %s -> %s: %d", block.Header.Number, from.Owner, to.Owner, amount))

	return web.Respond(ctx, w, toTxResult(block), http.StatusOK)
}

// Approve grants a spender an allowance over the signer's account.
func (h Handlers) Approve(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx signedApproveTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(signedTx); err != nil {
		return err
	}

	owner, err := h.signer(signedTx.approveTx, signedTx.OwnerSub, signedTx.V, signedTx.R, signedTx.S)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	spender, err := state.NewAccount(signedTx.Spender.Owner, signedTx.Spender.Subaccount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := parseAmount(signedTx.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("approve", "traceid", v.TraceID, "owner", owner.Owner, "spender", spender.Owner, "amount", amount)

	sig := signature.SignatureString(signedTx.V, signedTx.R, signedTx.S)
	block, err := h.State.Approve(owner, spender, amount, signedTx.Memo, sig)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, toTxResult(block), http.StatusOK)
}

// TransferFrom moves funds on the strength of an allowance granted to the
// signer.
func (h Handlers) TransferFrom(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx signedTransferFromTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(signedTx); err != nil {
		return err
	}

	spender, err := h.signer(signedTx.transferFromTx, signedTx.SpenderSub, signedTx.V, signedTx.R, signedTx.S)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	from, err := state.NewAccount(signedTx.From.Owner, signedTx.From.Subaccount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := state.NewAccount(signedTx.To.Owner, signedTx.To.Subaccount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := parseAmount(signedTx.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("transfer from", "traceid", v.TraceID, "spender", spender.Owner, "from", from.Owner, "to", to.Owner, "amount", amount)

	sig := signature.SignatureString(signedTx.V, signedTx.R, signedTx.S)
	block, err := h.State.TransferFrom(spender, from, to, amount, signedTx.Memo, sig)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, toTxResult(block), http.StatusOK)
}

// BatchTransfer moves funds from the signer's account to a set of
// destinations as a single block.
func (h Handlers) BatchTransfer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx signedBatchTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(signedTx); err != nil {
		return err
	}

	from, err := h.signer(signedTx.batchTx, signedTx.FromSub, signedTx.V, signedTx.R, signedTx.S)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	items := make([]state.TransferItem, len(signedTx.Items))
	for i, item := range signedTx.Items {
		to, err := state.NewAccount(item.To.Owner, item.To.Subaccount)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}

		amount, err := parseAmount(item.Amount)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}

		items[i] = state.TransferItem{
			To:     to,
			Amount: amount,
			Memo:   item.Memo,
		}
	}

	h.Log.Infow("batch transfer", "traceid", v.TraceID, "from", from.Owner, "items", len(items))

	sig := signature.SignatureString(signedTx.V, signedTx.R, signedTx.S)
	block, err := h.State.BatchTransfer(from, items, sig)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Evts.Send(fmt.Sprintf("batch transfer: block %d: %s: %d items", block.Header.Number, from.Owner, len(items)))

	return web.Respond(ctx, w, toTxResult(block), http.StatusOK)
}

// =============================================================================
// Queries.

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// LatestBlock returns the most recent block in the log.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block := h.BlockLog.LatestBlock()

	resp := struct {
		Height uint64         `json:"height"`
		Hash   string         `json:"hash"`
		Block  blocklog.Block `json:"block"`
	}{
		Height: block.Header.Number,
		Hash:   block.Hash(),
		Block:  block,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balance returns the balance for the specified account. The account and
// subaccount arrive in the URL rather than a payload, so they are bounded
// here before the hex validation looks at them.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	l := h.Pipeline.Limits()

	owner := web.Param(r, "account")
	if err := l.CheckText("account", owner); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	sub := r.URL.Query().Get("subaccount")
	if err := l.CheckText("subaccount", sub); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	account, err := state.NewAccount(owner, sub)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	info := balanceInfo{
		Account: toAccountModel(account),
		Balance: h.State.Balance(account),
		Height:  h.BlockLog.CurrentHeight(),
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// =============================================================================

// signer recovers the account that signed the transaction.
func (h Handlers) signer(value any, subaccount string, v, r, s *big.Int) (state.Account, error) {
	if err := signature.VerifySignature(v, r, s); err != nil {
		return state.Account{}, err
	}

	address, err := signature.FromAddress(value, v, r, s)
	if err != nil {
		return state.Account{}, err
	}

	account, err := state.NewAccount(address, subaccount)
	if err != nil {
		return state.Account{}, err
	}

	return account, nil
}

// parseAmount converts a validated decimal amount into a uint64.
func parseAmount(amount string) (uint64, error) {
	value, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return 0, errors.New("amount is not a representable number")
	}

	return value, nil
}

// toTxResult builds the response for a committed transaction.
func toTxResult(block blocklog.Block) txResult {
	return txResult{
		Status: "transaction committed",
		Block:  block.Header.Number,
		Hash:   block.Hash(),
	}
}

// toAccountModel converts an account to its wire form.
func toAccountModel(a state.Account) account {
	return account{
		Owner:      string(a.Owner),
		Subaccount: a.SubaccountString(),
	}
}
