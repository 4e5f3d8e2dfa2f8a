// Package indexer provides the client used to inform the companion index
// service of new blocks. Delivery is best-effort: the call is bounded by the
// caller's context and a failure is the caller's to swallow.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client is the contract for notifying an index service of the latest
// block height.
type Client interface {
	Notify(ctx context.Context, target string, height uint64) error
}

// =============================================================================

// HTTPClient implements Client against an index service's HTTP surface.
type HTTPClient struct {
	client http.Client
}

// NewHTTPClient constructs a client for notifying index services over HTTP.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{}
}

// Notify informs the index service at the specified target address of the
// latest block height. The call is bounded by the provided context.
func (c *HTTPClient) Notify(ctx context.Context, target string, height uint64) error {
	body, err := json.Marshal(struct {
		Height uint64 `json:"height"`
	}{
		Height: height,
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	url := fmt.Sprintf("%s/v1/notify", target)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("constructing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling index service: %w", err)
	}
	defer resp.Body.Close()

	// Drain the body so the underlying connection can be reused.
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("index service returned status %d", resp.StatusCode)
	}

	return nil
}
