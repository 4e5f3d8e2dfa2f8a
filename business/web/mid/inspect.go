package mid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tesseralabs/ledger/business/web/errs"
	"github.com/tesseralabs/ledger/foundation/ledger/inspect"
	"github.com/tesseralabs/ledger/foundation/ledger/limits"
	"github.com/tesseralabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Inspect runs the admission filter for the specified operation before its
// handler executes. A refused request never reaches the handler and the
// caller only ever sees a generic rejection: the detailed reason is logged
// but kept inside the service.
func Inspect(log *zap.SugaredLogger, pipeline *inspect.Pipeline, operation string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v, err := web.GetValues(ctx)
			if err != nil {
				return web.NewShutdownError("web value missing from context")
			}

			// Read the raw payload, but never more than one byte past the
			// configured bound. Anything longer fails the gate regardless,
			// so there is no reason to buffer it.
			maxBytes := int64(pipeline.Limits().MaxRawRequestBytes)
			raw, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
			if err != nil {
				return errs.NewTrusted(limits.ErrRejected, http.StatusBadRequest)
			}

			// The decode thunk is only forced by the pipeline once the gate
			// has passed and a rule exists for this operation.
			decode := func() (any, error) {
				args, exists := pipeline.Prototype(operation)
				if !exists {
					return nil, errors.New("no prototype registered")
				}
				if err := json.Unmarshal(raw, args); err != nil {
					return nil, err
				}
				return args, nil
			}

			if !pipeline.Admit(operation, raw, decode) {
				log.Infow("request refused", "traceid", v.TraceID, "operation", operation, "bytes", len(raw))
				return errs.NewTrusted(limits.ErrRejected, http.StatusBadRequest)
			}

			// Re-arm the body so the handler can decode the payload itself.
			r.Body = io.NopCloser(bytes.NewReader(raw))

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
