package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPRenewer renews by issuing a GET against an authenticated endpoint.
// Credentials travel with the client's jar and transport. A JSON body of
// the form {"expires": "<RFC 3339>"} reports the extended deadline.
type HTTPRenewer struct {
	client   *http.Client
	endpoint string
}

var _ Renewer = (*HTTPRenewer)(nil)

func NewHTTPRenewer(client *http.Client, endpoint string) *HTTPRenewer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRenewer{client: client, endpoint: endpoint}
}

type renewResponse struct {
	Expires time.Time `json:"expires"`
}

func (r *HTTPRenewer) Renew(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrRenewalFailed, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrRenewalFailed, err)
	}
	defer resp.Body.Close()
	body := io.LimitReader(resp.Body, 64<<10)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out renewResponse
		// Bodies without an expiry are fine; the session is still extended.
		_ = json.NewDecoder(body).Decode(&out)
		return out.Expires, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return time.Time{}, fmt.Errorf("%w: status %d", ErrRenewalRejected, resp.StatusCode)
	default:
		return time.Time{}, fmt.Errorf("%w: status %d", ErrRenewalFailed, resp.StatusCode)
	}
}
