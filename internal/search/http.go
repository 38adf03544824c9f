package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/worker"
)

const maxResponseBytes = 4 << 20

// errRateLimited marks an HTTP 429 answer
var errRateLimited = errors.New("rate limited")

// backend holds what every HTTP search API client shares
type backend struct {
	name    string
	client  *http.Client
	limiter *worker.Limiter // nil means unthrottled
	logger  *zap.Logger
}

func newBackend(name string, client *http.Client, limiter *worker.Limiter, logger *zap.Logger) backend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return backend{name: name, client: client, limiter: limiter, logger: logger}
}

// do sends req after waiting for the backend's rate slot and decodes the JSON body into dst
func (b *backend) do(ctx context.Context, req *http.Request, dst any) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx, b.name); err != nil {
			return err
		}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", b.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s read body: %w", b.name, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", b.name, errRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s unexpected status: %d %s", b.name, resp.StatusCode, truncateBody(body))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%s decode response: %w", b.name, err)
	}
	return nil
}

func truncateBody(body []byte) string {
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}
