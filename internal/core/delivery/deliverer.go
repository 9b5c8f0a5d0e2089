package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Deliverer performs exactly one delivery attempt. It returns nil on
// success, an error wrapping ErrUnauthorized for an authentication-invalid
// response, and any other error for a transient failure.
type Deliverer interface {
	Deliver(ctx context.Context, id string, payload ScorePayload) error
}

type DelivererFunc func(ctx context.Context, id string, payload ScorePayload) error

func (f DelivererFunc) Deliver(ctx context.Context, id string, payload ScorePayload) error {
	return f(ctx, id, payload)
}

// IdempotencyHeader carries the record id so the endpoint can drop replays.
const IdempotencyHeader = "Idempotency-Key"

// HTTPDeliverer POSTs the payload as JSON. Credentials are ambient: they
// come from the client's cookie jar and transport.
type HTTPDeliverer struct {
	client   *http.Client
	endpoint string
}

func NewHTTPDeliverer(client *http.Client, endpoint string) *HTTPDeliverer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDeliverer{client: client, endpoint: endpoint}
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, id string, payload ScorePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id != "" {
		req.Header.Set(IdempotencyHeader, id)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	}
}
