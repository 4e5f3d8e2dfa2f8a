package mid

import (
	"context"
	"net/http"

	"github.com/tesseralabs/ledger/business/sys/metrics"
	"github.com/tesseralabs/ledger/foundation/web"
)

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Add the metrics value into the context for metric gathering.
			ctx = metrics.Set(ctx)

			// Increment the request counter.
			metrics.AddRequests(ctx)

			// Update the count for the number of active goroutines.
			metrics.AddGoroutines(ctx)

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
