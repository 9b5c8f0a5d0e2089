package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDelivererSendsContract(t *testing.T) {
	var body map[string]any
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		key = r.Header.Get(IdempotencyHeader)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	moves := 31
	d := NewHTTPDeliverer(srv.Client(), srv.URL)
	err := d.Deliver(context.Background(), "rec-1", ScorePayload{
		GameID:   "2048",
		Score:    4096,
		Moves:    &moves,
		Metadata: map[string]any{"mode": "daily"},
	})
	require.NoError(t, err)

	assert.Equal(t, "rec-1", key)
	assert.Equal(t, "2048", body["gameId"])
	assert.Equal(t, 4096.0, body["score"])
	assert.Equal(t, 31.0, body["moves"])
	assert.NotContains(t, body, "duration")
	assert.NotContains(t, body, "level")
}

func TestHTTPDelivererClassifiesStatus(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	d := NewHTTPDeliverer(srv.Client(), srv.URL)
	ctx := context.Background()

	err := d.Deliver(ctx, "x", score("g", 1))
	assert.ErrorIs(t, err, ErrUnauthorized)

	status = http.StatusServiceUnavailable
	err = d.Deliver(ctx, "x", score("g", 1))
	assert.ErrorIs(t, err, ErrTransient)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	status = http.StatusForbidden
	assert.ErrorIs(t, d.Deliver(ctx, "x", score("g", 1)), ErrTransient)
}

func TestHTTPDelivererTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewHTTPDeliverer(srv.Client(), srv.URL).Deliver(ctx, "x", score("g", 1))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHTTPDelivererNetworkFailure(t *testing.T) {
	err := NewHTTPDeliverer(nil, "http://127.0.0.1:1/scores").Deliver(context.Background(), "x", score("g", 1))
	assert.ErrorIs(t, err, ErrTransient)
}
