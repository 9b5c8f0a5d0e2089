// Package transport builds the HTTP client shared by score delivery and
// session renewal so both ride on the same ambient credentials.
package transport

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/quic-go/quic-go/http3"
)

type Config struct {
	// Timeout bounds a whole request. Zero leaves it to the caller's context.
	Timeout time.Duration `yaml:"timeout"`
	// HTTP3 switches the round tripper to QUIC.
	HTTP3 bool `yaml:"http3"`
	// InsecureSkipVerify is for local development endpoints only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
	// BearerToken, when set, is attached to every request.
	BearerToken string `yaml:"bearer_token"`
}

// Client bundles the http.Client with its cookie jar.
type Client struct {
	HTTP *http.Client
	Jar  http.CookieJar

	closer func() error
}

func New(cfg Config) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // opt-in for dev endpoints

	var base http.RoundTripper
	closer := func() error { return nil }
	if cfg.HTTP3 {
		h3 := &http3.Transport{TLSClientConfig: tlsConfig}
		base = h3
		closer = h3.Close
	} else {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = tlsConfig
		base = t
		closer = func() error {
			t.CloseIdleConnections()
			return nil
		}
	}

	if cfg.BearerToken != "" {
		base = &bearerTransport{token: cfg.BearerToken, next: base}
	}

	return &Client{
		HTTP: &http.Client{
			Transport: base,
			Jar:       jar,
			Timeout:   cfg.Timeout,
		},
		Jar:    jar,
		closer: closer,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(clone)
}
